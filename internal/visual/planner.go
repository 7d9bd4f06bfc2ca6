package visual

// PlannerParams are the static estimates the chunk size is derived from.
type PlannerParams struct {
	ContextWindow       int
	MaxOutputTokens     int
	PromptOverhead      int
	TokensPerSegment    int
	MaxSegmentsPerChunk int
}

// DefaultPlannerParams match a 128k-context model asked for up to 8192 output tokens.
func DefaultPlannerParams() PlannerParams {
	return PlannerParams{
		ContextWindow:       128000,
		MaxOutputTokens:     8192,
		PromptOverhead:      1000,
		TokensPerSegment:    40,
		MaxSegmentsPerChunk: 50,
	}
}

// SegmentsPerChunk is how many segments fit one request, capped at the ceiling.
func (p PlannerParams) SegmentsPerChunk() int {
	per := 1
	if p.TokensPerSegment > 0 {
		per = (p.ContextWindow - p.MaxOutputTokens - p.PromptOverhead) / p.TokensPerSegment
	}
	if p.MaxSegmentsPerChunk > 0 && per > p.MaxSegmentsPerChunk {
		per = p.MaxSegmentsPerChunk
	}
	return max(per, 1)
}

// PlanChunkSize returns the chunk size for n segments. Chunks are balanced:
// the fewest chunks that respect SegmentsPerChunk, with sizes as even as
// possible. The result is at least 1 and never above SegmentsPerChunk.
func PlanChunkSize(n int, p PlannerParams) int {
	per := p.SegmentsPerChunk()
	if n <= 0 {
		return per
	}
	chunks := max(1, ceilDiv(n, per))
	return ceilDiv(n, chunks)
}

// SplitChunks partitions items into contiguous runs of size, the last one
// possibly shorter. No items means no chunks.
func SplitChunks[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	size = max(size, 1)
	out := make([][]T, 0, ceilDiv(len(items), size))
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		out = append(out, items[i:end:end])
	}
	return out
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
