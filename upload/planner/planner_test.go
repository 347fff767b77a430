package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name        string
		totalSize   int64
		segmentSize int64
		want        []Segment
	}{
		{
			name:        "exact multiple",
			totalSize:   100,
			segmentSize: 50,
			want: []Segment{
				{Index: 1, Start: 0, End: 50},
				{Index: 2, Start: 50, End: 100},
			},
		},
		{
			name:        "last segment clamped",
			totalSize:   100,
			segmentSize: 40,
			want: []Segment{
				{Index: 1, Start: 0, End: 40},
				{Index: 2, Start: 40, End: 80},
				{Index: 3, Start: 80, End: 100},
			},
		},
		{
			name:        "segment size larger than file",
			totalSize:   10,
			segmentSize: 1024,
			want: []Segment{
				{Index: 1, Start: 0, End: 10},
			},
		},
		{
			name:        "single byte segments",
			totalSize:   3,
			segmentSize: 1,
			want: []Segment{
				{Index: 1, Start: 0, End: 1},
				{Index: 2, Start: 1, End: 2},
				{Index: 3, Start: 2, End: 3},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(tt.totalSize, tt.segmentSize)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanInvalidInput(t *testing.T) {
	tests := []struct {
		name        string
		totalSize   int64
		segmentSize int64
	}{
		{name: "zero total size", totalSize: 0, segmentSize: 10},
		{name: "negative total size", totalSize: -1, segmentSize: 10},
		{name: "zero segment size", totalSize: 10, segmentSize: 0},
		{name: "negative segment size", totalSize: 10, segmentSize: -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(tt.totalSize, tt.segmentSize)
			var invalidPlan *InvalidPlanError
			require.ErrorAs(t, err, &invalidPlan)
		})
	}
}

func TestPlanCoversFileExactly(t *testing.T) {
	sizes := []struct {
		totalSize   int64
		segmentSize int64
	}{
		{1, 1},
		{7, 3},
		{1000, 1},
		{1000, 999},
		{1000, 1000},
		{1000, 1001},
		{5*1024*1024 + 17, 1024 * 1024},
	}
	for _, tt := range sizes {
		segments, err := Plan(tt.totalSize, tt.segmentSize)
		require.NoError(t, err)

		var sum int64
		var prevEnd int64
		for i, segment := range segments {
			assert.Equal(t, i+1, segment.Index, "indices are 1-based and contiguous")
			assert.Equal(t, prevEnd, segment.Start, "segments are contiguous")
			assert.Greater(t, segment.End, segment.Start, "no segment is empty")
			assert.LessOrEqual(t, segment.Size(), tt.segmentSize)
			sum += segment.Size()
			prevEnd = segment.End
		}
		assert.Equal(t, tt.totalSize, sum, "segments sum to the total size")
	}
}
