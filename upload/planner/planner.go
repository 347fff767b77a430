package planner

import "fmt"

// Segment is one contiguous byte range of a segmented upload. Index is
// 1-based to match the coordinator's part numbering.
type Segment struct {
	Index int
	Start int64 // inclusive
	End   int64 // exclusive
}

// Size returns the number of bytes covered by the segment.
func (s Segment) Size() int64 {
	return s.End - s.Start
}

// InvalidPlanError reports segmentation input that cannot produce a plan.
type InvalidPlanError struct {
	Reason string
}

func (e *InvalidPlanError) Error() string {
	return fmt.Sprintf("invalid segment plan: %s", e.Reason)
}

// Plan splits totalSize bytes into ordered segments of at most segmentSize
// bytes each. The last segment is clamped to the file end and may be shorter,
// but never empty. The returned ranges cover [0, totalSize) exactly once.
func Plan(totalSize, segmentSize int64) ([]Segment, error) {
	if totalSize <= 0 {
		return nil, &InvalidPlanError{Reason: "total size must be positive"}
	}
	if segmentSize <= 0 {
		return nil, &InvalidPlanError{Reason: "segment size must be positive"}
	}

	count := (totalSize + segmentSize - 1) / segmentSize
	segments := make([]Segment, 0, count)
	for i := int64(0); i < count; i++ {
		start := i * segmentSize
		end := start + segmentSize
		if end > totalSize {
			end = totalSize
		}
		segments = append(segments, Segment{
			Index: int(i) + 1,
			Start: start,
			End:   end,
		})
	}
	return segments, nil
}
