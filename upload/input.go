package upload

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
)

const fallbackContentType = "application/octet-stream"

// Input describes one upload attempt.
type Input struct {
	// Path names the file to upload. Doublestar patterns are accepted as
	// long as they match exactly one file.
	Path string
	// ContentType overrides content sniffing when set.
	ContentType string
	// PreissuedURL and PreissuedSessionID carry a single-shot grant issued
	// out of band. When set, the orchestrator validates the URL locally and
	// skips the generate-URL handshake.
	PreissuedURL       string
	PreissuedSessionID string
	// OnProgress receives the attempt's cumulative progress, 0..100. It is
	// invoked synchronously from the transfer path.
	OnProgress ProgressFunc
}

// resolveInputPath expands the input path to exactly one existing regular
// file. Patterns matching zero or multiple files are rejected before any
// network call.
func (u *Uploader) resolveInputPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("input path is empty")
	}

	absPath, err := u.pathModifier.AbsPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}

	base, pattern := doublestar.SplitPattern(absPath)
	matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithNoFollow())
	if err != nil {
		return "", fmt.Errorf("invalid path pattern %s: %w", path, err)
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		fullPath := filepath.Join(base, match)
		info, err := os.Stat(fullPath)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			files = append(files, fullPath)
		}
	}

	switch len(files) {
	case 0:
		return "", fmt.Errorf("no file matches %s", path)
	case 1:
		return files[0], nil
	default:
		return "", fmt.Errorf("%s matches %d files, expected exactly one", path, len(files))
	}
}

// resolveContentType returns the override when given, otherwise sniffs the
// file contents.
func (u *Uploader) resolveContentType(override, path string) string {
	if override != "" {
		return override
	}
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		u.logger.Debugf("content type detection failed for %s: %s", path, err)
		return fallbackContentType
	}
	return detected.String()
}
