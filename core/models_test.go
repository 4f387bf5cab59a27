package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "spanish regulatory text",
			content: "Los distritos de calificación residencial permiten usos accesorios según el artículo aplicable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestConversationTurn_CombinedText(t *testing.T) {
	turn := ConversationTurn{
		Query:    "¿Qué permisos requiere una obra menor?",
		Response: "Una obra menor requiere un permiso expedito.",
	}

	want := "Pregunta: ¿Qué permisos requiere una obra menor?\nRespuesta: Una obra menor requiere un permiso expedito."
	if got := turn.CombinedText(); got != want {
		t.Errorf("CombinedText() = %q, want %q", got, want)
	}
}
