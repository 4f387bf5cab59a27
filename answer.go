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

package normabot

import (
	"fmt"
	"strings"

	"github.com/jpvia/normabot/core"
)

const (
	// maxExcerptRunes bounds each regulatory excerpt in the context block.
	maxExcerptRunes = 600

	// maxMemoryRunes bounds each recalled turn in the context block.
	maxMemoryRunes = 200

	greetingReply = "¡Saludos! Soy el asistente del Reglamento Conjunto de Puerto Rico. " +
		"Pregúnteme sobre permisos, calificación de suelos, edificabilidad, " +
		"infraestructura o querellas."

	noContextReply = "No encontré disposiciones del reglamento relacionadas con su " +
		"consulta. Intente reformularla con otros términos."

	verbatimPreamble = "No pude elaborar una respuesta. El extracto más relevante del " +
		"reglamento es:"
)

// greetingTokens are the normalized tokens a bare greeting is made of.
var greetingTokens = map[string]struct{}{
	"hola":    {},
	"saludos": {},
	"buenos":  {},
	"buenas":  {},
	"dias":    {},
	"tardes":  {},
	"noches":  {},
	"hey":     {},
	"hello":   {},
}

// isGreeting reports whether the query is a bare greeting: a short token
// sequence made entirely of greeting vocabulary.
func isGreeting(tokens []string) bool {
	if len(tokens) == 0 || len(tokens) > 3 {
		return false
	}
	for _, token := range tokens {
		if _, ok := greetingTokens[token]; !ok {
			return false
		}
	}
	return true
}

// buildContextBlock assembles the generator's grounding context: numbered
// regulatory excerpts followed by conversational memory. Recalled similar
// turns already present in the recent window are not repeated.
func buildContextBlock(chunks []*core.Chunk, recent []*core.ConversationTurn, similar []*core.ScoredTurn) string {
	var b strings.Builder

	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] (%s, desplazamiento %d)\n%s\n\n",
			i+1, chunk.SourceId, chunk.Offset, truncateRunes(chunk.Text, maxExcerptRunes))
	}

	if len(recent) > 0 {
		b.WriteString("MEMORIA CONVERSACIONAL:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "Usuario: %s\nAsistente: %s\n",
				truncateRunes(turn.Query, maxMemoryRunes),
				truncateRunes(turn.Response, maxMemoryRunes))
		}
		b.WriteString("\n")
	}

	seen := make(map[core.ID]bool, len(recent))
	for _, turn := range recent {
		seen[turn.Id] = true
	}
	var related []*core.ScoredTurn
	for _, st := range similar {
		if !seen[st.Turn.Id] {
			related = append(related, st)
		}
	}
	if len(related) > 0 {
		b.WriteString("CONSULTAS PREVIAS RELACIONADAS:\n")
		for _, st := range related {
			fmt.Fprintf(&b, "- %s\n", truncateRunes(st.Turn.Query, maxMemoryRunes))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// verbatimAnswer is the generation-failure fallback: the top excerpt,
// quoted with its source.
func verbatimAnswer(chunks []*core.Chunk) string {
	if len(chunks) == 0 {
		return noContextReply
	}
	chunk := chunks[0]
	return fmt.Sprintf("%s\n\n(%s) %s",
		verbatimPreamble, chunk.SourceId, truncateRunes(chunk.Text, maxExcerptRunes))
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
