package core

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for every record the storage layer
// persists. Field order is part of the on-disk format; append new fields
// at the end only.

// IDMUS serializes IDs.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// GenerationMUS serializes index generation numbers.
var GenerationMUS = generationMUS{}

type generationMUS struct{}

func (generationMUS) Marshal(g Generation, bs []byte) int {
	return varint.Uint64.Marshal(uint64(g), bs)
}

func (generationMUS) Unmarshal(bs []byte) (Generation, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return Generation(v), n, err
}

func (generationMUS) Size(g Generation) int {
	return varint.Uint64.Size(uint64(g))
}

// VectorMUS serializes embedding vectors as length-prefixed float32 bits.
var VectorMUS = vectorMUS{}

type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	return n
}

func (vectorMUS) Unmarshal(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]float32, length)
	for i := 0; i < length; i++ {
		bits, m, err := varint.Uint32.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v[i] = math.Float32frombits(bits)
	}
	return v, n, nil
}

func (vectorMUS) Size(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Uint32.Size(math.Float32bits(f))
	}
	return size
}

// TokensMUS serializes normalized token lists.
var TokensMUS = tokensMUS{}

type tokensMUS struct{}

func (tokensMUS) Marshal(tokens []string, bs []byte) int {
	n := varint.Int.Marshal(len(tokens), bs)
	for _, tok := range tokens {
		n += ord.String.Marshal(tok, bs[n:])
	}
	return n
}

func (tokensMUS) Unmarshal(bs []byte) ([]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	tokens := make([]string, length)
	for i := 0; i < length; i++ {
		tok, m, err := ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		tokens[i] = tok
	}
	return tokens, n, nil
}

func (tokensMUS) Size(tokens []string) int {
	size := varint.Int.Size(len(tokens))
	for _, tok := range tokens {
		size += ord.String.Size(tok)
	}
	return size
}

// Timestamps are stored as unix microseconds.
type timeMUS struct{}

func (timeMUS) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func (timeMUS) Size(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

var timestampMUS = timeMUS{}

// ChunkMUS serializes Chunks.
var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) int {
	n := IDMUS.Marshal(c.Id, bs)
	n += ord.String.Marshal(c.SourceId, bs[n:])
	n += varint.Int.Marshal(c.Offset, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += VectorMUS.Marshal(c.Vector, bs[n:])
	n += TokensMUS.Marshal(c.Tokens, bs[n:])
	n += timestampMUS.Marshal(c.InsertedAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (Chunk, int, error) {
	var c Chunk
	var err error
	var m int
	n := 0

	if c.Id, m, err = IDMUS.Unmarshal(bs); err != nil {
		return c, m, err
	}
	n += m
	if c.SourceId, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Offset, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Text, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Vector, m, err = VectorMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.Tokens, m, err = TokensMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	if c.InsertedAt, m, err = timestampMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + m, err
	}
	n += m
	return c, n, nil
}

func (chunkMUS) Size(c Chunk) int {
	return IDMUS.Size(c.Id) +
		ord.String.Size(c.SourceId) +
		varint.Int.Size(c.Offset) +
		ord.String.Size(c.Text) +
		VectorMUS.Size(c.Vector) +
		TokensMUS.Size(c.Tokens) +
		timestampMUS.Size(c.InsertedAt)
}

// TurnMUS serializes ConversationTurns.
var TurnMUS = turnMUS{}

type turnMUS struct{}

func (turnMUS) Marshal(t ConversationTurn, bs []byte) int {
	n := IDMUS.Marshal(t.Id, bs)
	n += ord.String.Marshal(t.SessionId, bs[n:])
	n += varint.Uint64.Marshal(t.Sequence, bs[n:])
	n += ord.String.Marshal(t.Query, bs[n:])
	n += ord.String.Marshal(t.Response, bs[n:])
	n += ord.String.Marshal(t.SpecialistId, bs[n:])
	n += VectorMUS.Marshal(t.Vector, bs[n:])
	n += timestampMUS.Marshal(t.Timestamp, bs[n:])
	n += ord.Bool.Marshal(t.Consolidated, bs[n:])
	return n
}

func (turnMUS) Unmarshal(bs []byte) (ConversationTurn, int, error) {
	var t ConversationTurn
	var err error
	var m int
	n := 0

	if t.Id, m, err = IDMUS.Unmarshal(bs); err != nil {
		return t, m, err
	}
	n += m
	if t.SessionId, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if t.Sequence, m, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if t.Query, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if t.Response, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if t.SpecialistId, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if t.Vector, m, err = VectorMUS.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if t.Timestamp, m, err = timestampMUS.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	if t.Consolidated, m, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return t, n + m, err
	}
	n += m
	return t, n, nil
}

func (turnMUS) Size(t ConversationTurn) int {
	return IDMUS.Size(t.Id) +
		ord.String.Size(t.SessionId) +
		varint.Uint64.Size(t.Sequence) +
		ord.String.Size(t.Query) +
		ord.String.Size(t.Response) +
		ord.String.Size(t.SpecialistId) +
		VectorMUS.Size(t.Vector) +
		timestampMUS.Size(t.Timestamp) +
		ord.Bool.Size(t.Consolidated)
}

// LongTermEntryMUS serializes LongTermEntries.
var LongTermEntryMUS = longTermEntryMUS{}

type longTermEntryMUS struct{}

func (longTermEntryMUS) Marshal(e LongTermEntry, bs []byte) int {
	n := IDMUS.Marshal(e.ClusterId, bs)
	n += VectorMUS.Marshal(e.Centroid, bs[n:])
	n += ord.String.Marshal(e.Representative, bs[n:])
	n += varint.Int.Marshal(e.Members, bs[n:])
	n += timestampMUS.Marshal(e.CreatedAt, bs[n:])
	n += timestampMUS.Marshal(e.UpdatedAt, bs[n:])
	return n
}

func (longTermEntryMUS) Unmarshal(bs []byte) (LongTermEntry, int, error) {
	var e LongTermEntry
	var err error
	var m int
	n := 0

	if e.ClusterId, m, err = IDMUS.Unmarshal(bs); err != nil {
		return e, m, err
	}
	n += m
	if e.Centroid, m, err = VectorMUS.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.Representative, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.Members, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.CreatedAt, m, err = timestampMUS.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	if e.UpdatedAt, m, err = timestampMUS.Unmarshal(bs[n:]); err != nil {
		return e, n + m, err
	}
	n += m
	return e, n, nil
}

func (longTermEntryMUS) Size(e LongTermEntry) int {
	return IDMUS.Size(e.ClusterId) +
		VectorMUS.Size(e.Centroid) +
		ord.String.Size(e.Representative) +
		varint.Int.Size(e.Members) +
		timestampMUS.Size(e.CreatedAt) +
		timestampMUS.Size(e.UpdatedAt)
}
