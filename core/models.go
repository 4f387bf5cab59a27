package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Chunk and turn IDs are generated by content-based hashing so that
// identical content always maps to the same identity across reindex
// generations.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Generation numbers an index snapshot. A rebuild publishes the next
// generation; readers always observe exactly one generation at a time.
type Generation uint64

// Chunk is the atomic retrievable unit of regulatory text.
// Chunks are immutable after creation and replaced wholesale on reindex.
type Chunk struct {
	Id         ID
	SourceId   string // regulatory volume/section the chunk came from
	Offset     int    // rune offset of the chunk within its source
	Text       string
	Vector     []float32 // unit-normalized embedding (empty until embedded)
	Tokens     []string  // normalized lexical terms
	InsertedAt time.Time
}

// SpecialistProfile describes a domain specialist: the keyword set and
// prototype embedding used for routing, and the corpus sources it owns.
// Profiles are immutable for the process lifetime; a reload swaps in a
// whole new profile set.
type SpecialistProfile struct {
	Id        string
	Name      string
	Keywords  []string
	Prototype []float32
	Priority  int      // tie-break order, lower wins
	Sources   []string // corpus scope (SourceId values)
}

// Query is an analyzed incoming question.
type Query struct {
	Text      string
	Vector    []float32 // empty when embeddings are unavailable
	Tokens    []string
	SessionId string
}

// RetrievalCandidate is a chunk reference carrying the per-modality and
// fused relevance scores. After fusion all scores lie in [0,1].
type RetrievalCandidate struct {
	ChunkId      ID
	VectorScore  float64
	LexicalScore float64
	FusedScore   float64
}

// ConversationTurn is one query/response exchange within a session.
// Turns are append-only; Consolidated flips false to true exactly once
// when the consolidator absorbs the turn.
type ConversationTurn struct {
	Id           ID
	SessionId    string
	Sequence     uint64
	Query        string
	Response     string
	SpecialistId string // empty for the general fallback
	Vector       []float32
	Timestamp    time.Time
	Consolidated bool
}

// CombinedText returns the text that represents the turn for embedding
// purposes: the query and response joined the way the memory index sees
// them.
func (t *ConversationTurn) CombinedText() string {
	return "Pregunta: " + t.Query + "\nRespuesta: " + t.Response
}

// LongTermEntry is durable knowledge consolidated from recurring turns.
// Entries are never deleted; merging recomputes the centroid as a
// count-weighted average and bumps Members.
type LongTermEntry struct {
	ClusterId      ID
	Centroid       []float32
	Representative string
	Members        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ScoredChunk is a chunk with its final relevance score, as returned to
// the answer pipeline.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// ScoredTurn is a prior conversation turn with its similarity to the
// current query.
type ScoredTurn struct {
	Turn  *ConversationTurn
	Score float64
}
