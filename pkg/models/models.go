// Package models holds the wire and persistence types shared across the
// indexing pipeline, the storage layer and the query orchestrator.
package models

import "time"

// IndexState is the lifecycle of a branch's index.
type IndexState string

const (
	IndexPending    IndexState = "Pending"
	IndexInProgress IndexState = "InProgress"
	IndexCompleted  IndexState = "Completed"
	IndexFailed     IndexState = "Failed"
	IndexStale      IndexState = "Stale"
)

// Repository is owned by the version-control collaborator; the core only
// reads it to resolve branch state.
type Repository struct {
	Name          string `json:"name"`
	RemoteURL     string `json:"remote_url"`
	DefaultBranch string `json:"default_branch"`
}

// Branch tracks indexing progress for one (repo, name) pair.
type Branch struct {
	Repository       string     `json:"repository"`
	Name             string     `json:"name"`
	HeadCommit       string     `json:"head_commit"`
	IndexState       IndexState `json:"index_state"`
	IndexedCommitSha string     `json:"indexed_commit_sha"`
}

// SymbolKind enumerates the symbol taxonomy the parser collaborator emits.
type SymbolKind string

const (
	KindNamespace   SymbolKind = "Namespace"
	KindClass       SymbolKind = "Class"
	KindInterface   SymbolKind = "Interface"
	KindStruct      SymbolKind = "Struct"
	KindEnum        SymbolKind = "Enum"
	KindMethod      SymbolKind = "Method"
	KindFunction    SymbolKind = "Function"
	KindConstructor SymbolKind = "Constructor"
	KindProperty    SymbolKind = "Property"
	KindField       SymbolKind = "Field"
	KindVariable    SymbolKind = "Variable"
	KindParameter   SymbolKind = "Parameter"
)

// ChunkEligible reports whether the chunker materialises a slice for this kind.
func (k SymbolKind) ChunkEligible() bool {
	switch k {
	case KindClass, KindInterface, KindStruct, KindEnum, KindMethod, KindFunction, KindConstructor, KindProperty:
		return true
	default:
		return false
	}
}

// Span is a 1-based source range, half-open on the end column.
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// Symbol is one declaration extracted from a parsed file.
type Symbol struct {
	ID             string     `json:"id"`
	Repository     string     `json:"repository"`
	Branch         string     `json:"branch"`
	Commit         string     `json:"commit"`
	FilePath       string     `json:"file_path"`
	Name           string     `json:"name"`
	QualifiedName  string     `json:"qualified_name"`
	Kind           SymbolKind `json:"kind"`
	Language       string     `json:"language"`
	Span           Span       `json:"span"`
	Signature      string     `json:"signature"`
	Documentation  string     `json:"documentation"`
	Modifiers      []string   `json:"modifiers"`
	ParentSymbolID string     `json:"parent_symbol_id,omitempty"`
	LiteralTokens  []string   `json:"literal_tokens"`
}

// EdgeKind enumerates the symbol-to-symbol relationship taxonomy.
type EdgeKind string

const (
	EdgeImport     EdgeKind = "Import"
	EdgeInherits   EdgeKind = "Inherits"
	EdgeImplements EdgeKind = "Implements"
	EdgeCalls      EdgeKind = "Calls"
	EdgeReferences EdgeKind = "References"
	EdgeDefines    EdgeKind = "Defines"
	EdgeContains   EdgeKind = "Contains"
	EdgeOverrides  EdgeKind = "Overrides"
	EdgeTypeOf     EdgeKind = "TypeOf"
	EdgeReturns    EdgeKind = "Returns"
)

// SymbolEdge relates a source symbol to a target, which may be an
// unresolved qualified name when no in-repo symbol exists.
type SymbolEdge struct {
	ID              string   `json:"id"`
	Repository      string   `json:"repository"`
	Branch          string   `json:"branch"`
	Commit          string   `json:"commit"`
	SourceSymbolID  string   `json:"source_symbol_id"`
	TargetSymbolID  string   `json:"target_symbol_id,omitempty"`
	TargetQualified string   `json:"target_qualified,omitempty"`
	Kind            EdgeKind `json:"kind"`
}

// CodeChunk is a materialised source slice keyed to a chunk-eligible symbol.
type CodeChunk struct {
	ID               string     `json:"id"`
	Repository       string     `json:"repository"`
	Branch           string     `json:"branch"`
	Commit           string     `json:"commit"`
	FilePath         string     `json:"file_path"`
	SymbolID         string     `json:"symbol_id"`
	SymbolName       string     `json:"symbol_name"`
	SymbolKind       SymbolKind `json:"symbol_kind"`
	StartLine        int        `json:"start_line"`
	EndLine          int        `json:"end_line"`
	ChunkStartLine   int        `json:"chunk_start_line"`
	ChunkEndLine     int        `json:"chunk_end_line"`
	Content          string     `json:"content"`
	Language         string     `json:"language"`
	TokenCount       int        `json:"token_count"`
	ParentSymbolName string     `json:"parent_symbol_name,omitempty"`
	Signature        string     `json:"signature,omitempty"`
	Documentation    string     `json:"documentation,omitempty"`
	ContentHash      string     `json:"content_hash"`
}

// SymbolSearchEntry is the per-symbol inverted-index row.
type SymbolSearchEntry struct {
	SymbolID        string   `json:"symbol_id"`
	Repository      string   `json:"repository"`
	Branch          string   `json:"branch"`
	Commit          string   `json:"commit"`
	NameTokens      []string `json:"name_tokens"`
	SignatureTokens []string `json:"signature_tokens"`
	DocTokens       []string `json:"doc_tokens"`
	LiteralTokens   []string `json:"literal_tokens"`
	Snippet         string   `json:"snippet"`
}

// SymbolFingerprintEntry is one LSH-banded SimHash row.
type SymbolFingerprintEntry struct {
	SymbolID        string     `json:"symbol_id"`
	Repository      string     `json:"repository"`
	Branch          string     `json:"branch"`
	Commit          string     `json:"commit"`
	FilePath        string     `json:"file_path"`
	Language        string     `json:"language"`
	Kind            SymbolKind `json:"kind"`
	FingerprintKind string     `json:"fingerprint_kind"`
	Fingerprint     uint64     `json:"fingerprint"`
	Band0           uint16     `json:"band0"`
	Band1           uint16     `json:"band1"`
	Band2           uint16     `json:"band2"`
	Band3           uint16     `json:"band3"`
}

// Embedding is a single stored vector for a chunk.
type Embedding struct {
	ID          string    `json:"id"`
	ChunkID     string    `json:"chunk_id"`
	Repository  string    `json:"repository"`
	Branch      string    `json:"branch"`
	Commit      string    `json:"commit"`
	Vector      []float32 `json:"vector"`
	Model       string    `json:"model"`
	Dims        int       `json:"dims"`
	GeneratedAt time.Time `json:"generated_at"`
}

// JobStatus is the embedding job state machine, spec §4.7.
type JobStatus string

const (
	JobPending    JobStatus = "Pending"
	JobProcessing JobStatus = "Processing"
	JobCompleted  JobStatus = "Completed"
	JobBlocked    JobStatus = "Blocked"
)

// MissingModelSentinel marks a job enqueued with no embedding model configured.
const MissingModelSentinel = "__missing__"

// TargetKindCodeChunk is the only embedding job target kind the spec defines.
const TargetKindCodeChunk = "code_chunk"

// EmbeddingJob is a durable unit of embedding work.
type EmbeddingJob struct {
	ID            string     `json:"id"`
	Repository    string     `json:"repository"`
	Branch        string     `json:"branch"`
	Commit        string     `json:"commit"`
	TargetKind    string     `json:"target_kind"`
	TargetID      string     `json:"target_id"`
	Model         string     `json:"model"`
	Dims          int        `json:"dims,omitempty"`
	Status        JobStatus  `json:"status"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	LockedAt      *time.Time `json:"locked_at,omitempty"`
	LockedBy      string     `json:"locked_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Intent is the query orchestrator's classification of free-text query
// intent, spec §4.8.
type Intent string

const (
	IntentSearch        Intent = "Search"
	IntentNavigation    Intent = "Navigation"
	IntentRelations     Intent = "Relations"
	IntentDocumentation Intent = "Documentation"
	IntentExamples      Intent = "Examples"
	IntentSimilar       Intent = "Similar"
)

// RetrievalProfile selects which ranking strategy answers a query.
type RetrievalProfile string

const (
	ProfileFast     RetrievalProfile = "Fast"
	ProfileHybrid   RetrievalProfile = "Hybrid"
	ProfileSemantic RetrievalProfile = "Semantic"
)

// QueryEmbedding is the caller-supplied query vector, wire-encoded as
// base64 of a little-endian float32 array.
type QueryEmbedding struct {
	Base64 string `json:"base64"`
	Dims   int    `json:"dims,omitempty"`
	Model  string `json:"model,omitempty"`
}

// QueryRequest is the core's public query contract, spec §4.8/§6.
type QueryRequest struct {
	Query           string          `json:"query"`
	Repository      string          `json:"repository"`
	Branch          string          `json:"branch,omitempty"`
	Language        string          `json:"language,omitempty"`
	MaxResults      int             `json:"max_results,omitempty"`
	ProfileOverride RetrievalProfile `json:"profile_override,omitempty"`
	QueryEmbedding  *QueryEmbedding `json:"query_embedding,omitempty"`
}

// SearchResult is one ranked hit in a QueryResponse.
type SearchResult struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Repository    string     `json:"repository"`
	Branch        string     `json:"branch"`
	FilePath      string     `json:"file_path"`
	Language      string     `json:"language"`
	SymbolName    string     `json:"symbol_name"`
	Qualified     string     `json:"qualified,omitempty"`
	SymbolKind    SymbolKind `json:"symbol_kind,omitempty"`
	Content       string     `json:"content"`
	StartLine     int        `json:"start_line"`
	EndLine       int        `json:"end_line"`
	Score         float64    `json:"score"`
	BM25          *float64   `json:"bm25,omitempty"`
	Vector        *float64   `json:"vector,omitempty"`
	Graph         *string    `json:"graph,omitempty"`
	Signature     string     `json:"signature,omitempty"`
	Documentation string     `json:"documentation,omitempty"`
	Why           []string   `json:"why,omitempty"`
}

// QueryResponse is the core's public query result, spec §4.8/§6.
type QueryResponse struct {
	Query                   string         `json:"query"`
	Intent                  Intent         `json:"intent"`
	Profile                 RetrievalProfile `json:"profile,omitempty"`
	Repository              string         `json:"repository,omitempty"`
	Branch                  string         `json:"branch,omitempty"`
	Results                 []SearchResult `json:"results"`
	TotalResults            int            `json:"total_results"`
	ExecutionTimeMs         int64          `json:"execution_time_ms"`
	Fallback                string         `json:"fallback,omitempty"`
	EmbeddingUsed           bool           `json:"embedding_used,omitempty"`
	EmbeddingModel          string         `json:"embedding_model,omitempty"`
	EmbeddingCandidateCount int            `json:"embedding_candidate_count,omitempty"`
	ErrorCode               string         `json:"error_code,omitempty"`
	Error                   string         `json:"error,omitempty"`
}
