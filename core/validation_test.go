package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChunk(t *testing.T) {
	valid := &Chunk{
		SourceId: "tomo-6",
		Offset:   120,
		Text:     "Los distritos residenciales R-1 permiten viviendas unifamiliares.",
	}

	tests := []struct {
		name    string
		mutate  func(c *Chunk)
		wantErr error
	}{
		{"valid chunk", func(c *Chunk) {}, nil},
		{"empty text", func(c *Chunk) { c.Text = "" }, ErrEmptyText},
		{"empty source", func(c *Chunk) { c.SourceId = "" }, ErrEmptySource},
		{"negative offset", func(c *Chunk) { c.Offset = -1 }, ErrInvalidChunk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := *valid
			tt.mutate(&chunk)

			err := ValidateChunk(&chunk)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateChunk_Nil(t *testing.T) {
	err := ValidateChunk(nil)
	assert.ErrorIs(t, err, ErrInvalidChunk)
}

func TestValidateTurn(t *testing.T) {
	valid := &ConversationTurn{
		SessionId: "sess-1",
		Sequence:  1,
		Query:     "¿Qué es un distrito C-1?",
		Response:  "Un distrito comercial de intensidad limitada.",
		Timestamp: time.Now().UTC().Add(-time.Minute),
	}

	tests := []struct {
		name    string
		mutate  func(turn *ConversationTurn)
		wantErr error
	}{
		{"valid turn", func(turn *ConversationTurn) {}, nil},
		{"empty session", func(turn *ConversationTurn) { turn.SessionId = "" }, ErrEmptySession},
		{"empty query", func(turn *ConversationTurn) { turn.Query = "" }, ErrEmptyText},
		{"future timestamp", func(turn *ConversationTurn) { turn.Timestamp = time.Now().Add(time.Hour) }, ErrInvalidTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := *valid
			tt.mutate(&turn)

			err := ValidateTurn(&turn)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateProfile(t *testing.T) {
	t.Run("keywords only is enough", func(t *testing.T) {
		err := ValidateProfile(&SpecialistProfile{Id: "permisos", Keywords: []string{"permiso"}})
		assert.NoError(t, err)
	})

	t.Run("prototype only is enough", func(t *testing.T) {
		err := ValidateProfile(&SpecialistProfile{Id: "permisos", Prototype: []float32{0.1, 0.2}})
		assert.NoError(t, err)
	})

	t.Run("no routing signal", func(t *testing.T) {
		err := ValidateProfile(&SpecialistProfile{Id: "permisos"})
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})

	t.Run("empty id", func(t *testing.T) {
		err := ValidateProfile(&SpecialistProfile{Keywords: []string{"permiso"}})
		assert.ErrorIs(t, err, ErrInvalidProfile)
	})
}

func TestValidateQueryText(t *testing.T) {
	assert.NoError(t, ValidateQueryText("¿Cuál es el proceso de querella?"))
	assert.ErrorIs(t, ValidateQueryText(""), ErrInvalidQuery)
	assert.ErrorIs(t, ValidateQueryText(strings.Repeat("a", MaxQueryBytes+1)), ErrInvalidQuery)
}
