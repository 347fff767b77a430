package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitrise-io/go-utils/v2/log"
	flag "github.com/spf13/pflag"

	"github.com/beamup-io/beamup/upload"
)

func main() {
	logger := log.NewLogger()

	var (
		fetchRef        string
		output          string
		contentType     string
		skipHealthCheck bool
	)
	flag.StringVar(&fetchRef, "fetch", "", "download the object with the given durable reference instead of uploading")
	flag.StringVarP(&output, "output", "o", "", "destination path for --fetch")
	flag.StringVar(&contentType, "content-type", "", "content type of the uploaded file (sniffed when empty)")
	flag.BoolVar(&skipHealthCheck, "skip-health-check", false, "do not probe the coordinator before uploading")
	flag.Parse()

	cfg, err := upload.LoadConfig()
	if err != nil {
		failf(logger, "Configuration error: %s", err)
	}
	logger.EnableDebugLog(cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fetchRef != "" {
		if output == "" {
			failf(logger, "--fetch requires --output")
		}
		if err := upload.Fetch(ctx, upload.FetchParams{DurableReference: fetchRef, DownloadPath: output}, logger); err != nil {
			failf(logger, "Fetch failed: %s", err)
		}
		logger.Donef("Fetched %s", output)
		return
	}

	if flag.NArg() != 1 {
		failf(logger, "Usage: beamup [flags] <file>")
	}

	uploader := upload.NewUploader(cfg, nil, nil, logger)

	if !skipHealthCheck {
		health := uploader.CheckHealth(ctx)
		switch {
		case !health.Reachable:
			failf(logger, "Coordinator is unreachable at %s: check connectivity", cfg.CoordinatorURL)
		case !health.StorageConfigured:
			failf(logger, "Coordinator has no storage backend configured: check the deployment")
		}
	}

	result, err := uploader.Upload(ctx, upload.Input{
		Path:        flag.Arg(0),
		ContentType: contentType,
		OnProgress: func(fraction float64) {
			logger.Debugf("Progress: %.1f%%", fraction)
		},
	})
	if err != nil {
		failf(logger, "Upload failed: %s", err)
	}

	logger.Donef("Uploaded (%s mode)", result.Mode)
	logger.Printf("%s", result.DurableReference)
}

func failf(logger log.Logger, format string, args ...interface{}) {
	logger.Errorf(format, args...)
	os.Exit(1)
}
