// Copyright 2025 JPVia Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingest

import (
	"regexp"
	"strings"

	"github.com/jpvia/normabot/core"
	"github.com/jpvia/normabot/index"
)

const (
	// DefaultChunkSize is the target chunk length in runes.
	DefaultChunkSize = 1200

	// DefaultOverlap is how many trailing runes of a chunk repeat at the
	// start of the next one, so article boundaries aren't lost mid-cut.
	DefaultOverlap = 150
)

var paragraphSplitter = regexp.MustCompile(`\n\s*\n`)

// Chunker splits raw regulatory text into retrievable chunks. It packs
// whole paragraphs up to the target size and falls back to a hard split
// with overlap for paragraphs longer than one chunk.
type Chunker struct {
	chunkSize int
	overlap   int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker) error

// WithChunkSize sets the target chunk length in runes.
func WithChunkSize(runes int) ChunkerOption {
	return func(c *Chunker) error {
		if runes <= 0 {
			return ErrInvalidChunkSize
		}
		c.chunkSize = runes
		return nil
	}
}

// WithOverlap sets the overlap length in runes.
func WithOverlap(runes int) ChunkerOption {
	return func(c *Chunker) error {
		if runes < 0 {
			return ErrInvalidOverlap
		}
		c.overlap = runes
		return nil
	}
}

// NewChunker creates a chunker.
func NewChunker(opts ...ChunkerOption) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.overlap >= c.chunkSize {
		return nil, ErrInvalidOverlap
	}
	return c, nil
}

// Chunk splits a source document into chunks carrying their rune offset
// and pre-computed lexical tokens. Blank input yields no chunks.
func (c *Chunker) Chunk(sourceID, text string) []*core.Chunk {
	var chunks []*core.Chunk
	emit := func(offset int, body string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		chunks = append(chunks, &core.Chunk{
			SourceId: sourceID,
			Offset:   offset,
			Text:     body,
			Tokens:   index.Tokenize(body),
		})
	}

	var pending strings.Builder
	pendingOffset := 0
	offset := 0
	for _, paragraph := range splitParagraphs(text) {
		runes := []rune(paragraph)

		// A paragraph that fits joins the pending chunk or starts one.
		if len(runes) <= c.chunkSize {
			if pending.Len() == 0 {
				pendingOffset = offset
			} else if runeLen(pending.String())+len(runes)+2 > c.chunkSize {
				emit(pendingOffset, pending.String())
				pending.Reset()
				pendingOffset = offset
			} else {
				pending.WriteString("\n\n")
			}
			pending.WriteString(paragraph)
			offset += len(runes) + 2
			continue
		}

		// Oversized paragraph: flush what we have, then hard-split with
		// overlap.
		if pending.Len() > 0 {
			emit(pendingOffset, pending.String())
			pending.Reset()
		}
		step := c.chunkSize - c.overlap
		for start := 0; start < len(runes); start += step {
			end := start + c.chunkSize
			if end > len(runes) {
				end = len(runes)
			}
			emit(offset+start, string(runes[start:end]))
			if end == len(runes) {
				break
			}
		}
		offset += len(runes) + 2
	}
	if pending.Len() > 0 {
		emit(pendingOffset, pending.String())
	}

	return chunks
}

func splitParagraphs(text string) []string {
	parts := paragraphSplitter.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

func runeLen(s string) int {
	return len([]rune(s))
}
