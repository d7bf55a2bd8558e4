package embedqueue

// Terminal and operational error codes recorded in EmbeddingJob.LastError,
// spec §4.7.
const (
	ErrChunkMissing        = "chunk_missing"
	ErrMaxAttemptsExceeded = "max_attempts_exceeded"
)
