package scheduler

import (
	"math"

	"github.com/FWeynschenk/dotsmap/internal/geo"
)

// chunk is a spacing-aligned x-column range [StartX, EndX) assigned to one
// worker.
type chunk struct {
	StartX int
	EndX   int
}

// splitChunks partitions the sampling grid's x-axis into at most `workers`
// chunks. Raw ranges of ceil(width/workers) columns are aligned: start down
// and end up to the nearest spacing multiple, with the start clamped to the
// previous chunk's aligned end. Every column x = k*spacing < width is covered
// by exactly one chunk; degenerate chunks are dropped.
func splitChunks(width, spacing, workers int) []chunk {
	if workers < 1 {
		workers = 1
	}
	chunkWidth := (width + workers - 1) / workers

	var chunks []chunk
	prevEnd := 0
	for i := 0; i < workers; i++ {
		rawStart := i * chunkWidth
		rawEnd := rawStart + chunkWidth
		if rawEnd > width {
			rawEnd = width
		}
		if rawStart >= width {
			break
		}

		start := rawStart / spacing * spacing
		end := (rawEnd + spacing - 1) / spacing * spacing
		if start < prevEnd {
			start = prevEnd
		}
		if start >= end {
			continue
		}

		chunks = append(chunks, chunk{StartX: start, EndX: end})
		prevEnd = end
	}
	return chunks
}

// dedupKey identifies a sample point by rounded coordinates. Integer
// components keep equality exact across chunks.
type dedupKey struct {
	X int
	Y int
}

func keyOf(d geo.ClassificationResult) dedupKey {
	return dedupKey{X: int(math.Round(d.X)), Y: int(math.Round(d.Y))}
}

// boundaryDedup drops points at the rounded shared boundary from the later of
// two adjacent chunks whose ranges ended up within one spacing of each other.
// With exact alignment this never fires; it guards residual floating-point
// edge effects. Returns the number of points removed.
func boundaryDedup(results []chunkResult, spacing int) int {
	removed := 0
	for i := 1; i < len(results); i++ {
		prev := &results[i-1]
		cur := &results[i]
		if cur.Chunk.StartX >= prev.Chunk.EndX {
			continue
		}
		if prev.Chunk.EndX-cur.Chunk.StartX > spacing {
			continue
		}
		boundary := cur.Chunk.StartX
		kept := cur.Dots[:0]
		for _, d := range cur.Dots {
			if int(math.Round(d.X)) == boundary {
				removed++
				continue
			}
			kept = append(kept, d)
		}
		cur.Dots = kept
	}
	return removed
}

// globalDedup keeps the first occurrence per rounded (x, y) key over the
// combined result. Returns the deduplicated slice and the number removed.
// Idempotent: a second pass over its own output removes nothing.
func globalDedup(dots []geo.ClassificationResult) ([]geo.ClassificationResult, int) {
	seen := make(map[dedupKey]struct{}, len(dots))
	kept := dots[:0]
	removed := 0
	for _, d := range dots {
		k := keyOf(d)
		if _, dup := seen[k]; dup {
			removed++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, d)
	}
	return kept, removed
}
