// Package chunker materialises per-symbol source slices (±context lines,
// capped and deduplicated) for embedding and display, per spec §4.4.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/kdsearch/coderetriever/pkg/models"
)

// Config mirrors spec §6's chunk-shaping options.
type Config struct {
	ContextLinesBefore int
	ContextLinesAfter  int
	MaxChunkChars      int
}

// DefaultConfig matches the spec §6 defaults.
func DefaultConfig() Config {
	return Config{ContextLinesBefore: 5, ContextLinesAfter: 5, MaxChunkChars: 30000}
}

// ChunkedFile is the result of chunking one parsed file.
type ChunkedFile struct {
	Chunks  []models.CodeChunk
	Success bool
	Error   string
}

// Chunker turns a ParsedFile into CodeChunk rows.
type Chunker struct {
	cfg Config
}

// New constructs a Chunker with the given configuration.
func New(cfg Config) *Chunker { return &Chunker{cfg: cfg} }

// Chunk iterates a parsed file's symbols in file order, materialising one
// chunk per chunk-eligible symbol and deduplicating by
// (filePath, chunkStartLine, chunkEndLine, contentHash), keeping the
// first insertion.
func (c *Chunker) Chunk(pf *models.ParsedFile) ChunkedFile {
	if pf == nil {
		return ChunkedFile{Success: false, Error: "source missing"}
	}
	if pf.Source == "" {
		return ChunkedFile{Success: false, Error: "source missing"}
	}

	lines := splitLines(pf.Source)
	seen := make(map[string]struct{})
	out := make([]models.CodeChunk, 0, len(pf.Symbols))

	for _, sym := range pf.Symbols {
		if !sym.Kind.ChunkEligible() {
			continue
		}

		chunkStart, chunkEnd, content := c.materialise(lines, sym.Span.StartLine, sym.Span.EndLine)
		hash := contentHash(content)
		key := dedupKey(pf.FilePath, chunkStart, chunkEnd, hash)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, models.CodeChunk{
			ID:               uuid.New().String(),
			Repository:       pf.Repository,
			Branch:           pf.Branch,
			Commit:           pf.Commit,
			FilePath:         pf.FilePath,
			SymbolID:         sym.ID,
			SymbolName:       preferQualified(sym),
			SymbolKind:       sym.Kind,
			StartLine:        sym.Span.StartLine,
			EndLine:          sym.Span.EndLine,
			ChunkStartLine:   chunkStart,
			ChunkEndLine:     chunkEnd,
			Content:          content,
			Language:         pf.Language,
			TokenCount:       approxTokenCount(content),
			ParentSymbolName: parentName(pf.Symbols, sym.ParentSymbolID),
			Signature:        sym.Signature,
			Documentation:    sym.Documentation,
			ContentHash:      hash,
		})
	}

	return ChunkedFile{Chunks: out, Success: true}
}

// materialise computes the ±context window, retries without context if the
// slice is over MaxChunkChars, and truncates as a last resort.
func (c *Chunker) materialise(lines []string, startLine, endLine int) (chunkStart, chunkEnd int, content string) {
	total := len(lines)
	chunkStart = clamp(startLine-c.cfg.ContextLinesBefore, 1, total)
	chunkEnd = clamp(endLine+c.cfg.ContextLinesAfter, 1, total)
	content = joinLines(lines, chunkStart, chunkEnd)

	max := c.cfg.MaxChunkChars
	if max <= 0 || len(content) <= max {
		return chunkStart, chunkEnd, content
	}

	// Retry without context.
	chunkStart = clamp(startLine, 1, total)
	chunkEnd = clamp(endLine, 1, total)
	content = joinLines(lines, chunkStart, chunkEnd)
	if len(content) <= max {
		return chunkStart, chunkEnd, content
	}

	// Still over: hard-truncate, keeping the recorded line range accurate
	// relative to what is actually kept.
	content = content[:max]
	chunkEnd = chunkStart + strings.Count(content, "\n")
	return chunkStart, chunkEnd, content
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func joinLines(lines []string, start, end int) string {
	if start > end || start < 1 || len(lines) == 0 {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

func splitLines(source string) []string {
	if source == "" {
		return nil
	}
	return strings.Split(source, "\n")
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func dedupKey(filePath string, start, end int, hash string) string {
	var b strings.Builder
	b.WriteString(filePath)
	b.WriteByte('\x00')
	b.WriteString(itoa(start))
	b.WriteByte('\x00')
	b.WriteString(itoa(end))
	b.WriteByte('\x00')
	b.WriteString(hash)
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// approxTokenCount is a rough pacing estimate, non-normative per spec §4.4.
func approxTokenCount(content string) int {
	return len(content) / 4
}

func preferQualified(sym models.Symbol) string {
	if sym.QualifiedName != "" {
		return sym.QualifiedName
	}
	return sym.Name
}

func parentName(all []models.Symbol, parentID string) string {
	if parentID == "" {
		return ""
	}
	for _, s := range all {
		if s.ID == parentID {
			return preferQualified(s)
		}
	}
	return ""
}
