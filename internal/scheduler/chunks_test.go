package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FWeynschenk/dotsmap/internal/geo"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestSplitChunks_CoversEveryColumn(t *testing.T) {
	cases := []struct {
		width, spacing, workers int
	}{
		{960, 8, 4},
		{960, 8, 8},
		{500, 7, 3},
		{100, 1, 8},
		{10, 3, 4},
		{1, 1, 8},
		{811, 13, 5},
	}

	for _, tc := range cases {
		chunks := splitChunks(tc.width, tc.spacing, tc.workers)
		require.NotEmpty(t, chunks, "w=%d s=%d n=%d", tc.width, tc.spacing, tc.workers)
		assert.LessOrEqual(t, len(chunks), tc.workers)

		// Every sampled column belongs to exactly one chunk.
		for x := 0; x < tc.width; x += tc.spacing {
			owners := 0
			for _, c := range chunks {
				if x >= c.StartX && x < c.EndX {
					owners++
				}
			}
			assert.Equal(t, 1, owners, "w=%d s=%d n=%d column %d", tc.width, tc.spacing, tc.workers, x)
		}

		// Chunks are ordered and non-overlapping.
		for i := 1; i < len(chunks); i++ {
			assert.GreaterOrEqual(t, chunks[i].StartX, chunks[i-1].EndX)
		}
	}
}

func TestSplitChunks_Alignment(t *testing.T) {
	chunks := splitChunks(960, 8, 4)
	for _, c := range chunks {
		assert.Zero(t, c.StartX%8, "chunk start %d not spacing-aligned", c.StartX)
		assert.Zero(t, c.EndX%8, "chunk end %d not spacing-aligned", c.EndX)
	}
}

func TestSplitChunks_SingleWorker(t *testing.T) {
	chunks := splitChunks(100, 5, 1)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].StartX)
	assert.GreaterOrEqual(t, chunks[0].EndX, 100)
}

func TestSplitChunks_MoreWorkersThanColumns(t *testing.T) {
	// A 3-column grid cannot feed 8 workers; trailing chunks collapse away.
	chunks := splitChunks(3, 1, 8)
	for x := 0; x < 3; x++ {
		owners := 0
		for _, c := range chunks {
			if x >= c.StartX && x < c.EndX {
				owners++
			}
		}
		assert.Equal(t, 1, owners, "column %d", x)
	}
}

func dot(x, y float64) geo.ClassificationResult {
	return geo.ClassificationResult{X: x, Y: y}
}

func TestBoundaryDedup(t *testing.T) {
	// Overlapping adjacent chunks share the boundary column; only the later
	// chunk's copies go.
	results := []chunkResult{
		{Chunk: chunk{StartX: 0, EndX: 16}, Dots: []geo.ClassificationResult{dot(0, 0), dot(8, 0), dot(16, 0)}},
		{Chunk: chunk{StartX: 16, EndX: 32}, Dots: []geo.ClassificationResult{dot(16, 0), dot(24, 0)}},
	}

	// Aligned chunks (start == previous end) never fire.
	removed := boundaryDedup(results, 8)
	assert.Zero(t, removed)
	assert.Len(t, results[1].Dots, 2)

	// Force an overlap of one spacing.
	results = []chunkResult{
		{Chunk: chunk{StartX: 0, EndX: 16}, Dots: []geo.ClassificationResult{dot(0, 0), dot(8, 0)}},
		{Chunk: chunk{StartX: 8, EndX: 24}, Dots: []geo.ClassificationResult{dot(8, 0), dot(8, 8), dot(16, 0)}},
	}
	removed = boundaryDedup(results, 8)
	assert.Equal(t, 2, removed)
	require.Len(t, results[1].Dots, 1)
	assert.InDelta(t, 16, results[1].Dots[0].X, 1e-9)
}

func TestGlobalDedup(t *testing.T) {
	dots := []geo.ClassificationResult{
		dot(0, 0), dot(8, 0), dot(0, 0), dot(8, 8), dot(8, 0),
	}

	kept, removed := globalDedup(dots)
	assert.Equal(t, 2, removed)
	require.Len(t, kept, 3)

	// First occurrence wins, order preserved.
	assert.InDelta(t, 0, kept[0].X, 1e-9)
	assert.InDelta(t, 8, kept[1].X, 1e-9)
	assert.InDelta(t, 8, kept[2].Y, 1e-9)

	// Idempotent.
	again, removed2 := globalDedup(kept)
	assert.Zero(t, removed2)
	assert.Len(t, again, 3)
}

func TestQueryValidate(t *testing.T) {
	valid := Query{Width: 960, Height: 500, ProjectionName: "equirectangular", Spacing: 8}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		q    Query
	}{
		{"zero width", Query{Width: 0, Height: 500, ProjectionName: "equirectangular", Spacing: 8}},
		{"zero height", Query{Width: 960, Height: 0, ProjectionName: "equirectangular", Spacing: 8}},
		{"zero spacing", Query{Width: 960, Height: 500, ProjectionName: "equirectangular", Spacing: 0}},
		{"unknown projection", Query{Width: 960, Height: 500, ProjectionName: "bogus", Spacing: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.q.Validate())
		})
	}
}

func TestQueryFingerprint(t *testing.T) {
	q := Query{Width: 960, Height: 500, ProjectionName: "mercator", Spacing: 8, IncludeOcean: true}
	assert.Equal(t, "mercator|960|500|8|true", q.Fingerprint())

	// Any parameter change produces a distinct key.
	q2 := q
	q2.IncludeOcean = false
	assert.NotEqual(t, q.Fingerprint(), q2.Fingerprint())
}
