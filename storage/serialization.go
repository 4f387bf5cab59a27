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


package storage

import (
	"github.com/jpvia/normabot/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalTurn serializes a ConversationTurn to bytes.
func MarshalTurn(turn *core.ConversationTurn) []byte {
	buf := make([]byte, core.TurnMUS.Size(*turn))
	core.TurnMUS.Marshal(*turn, buf)
	return buf
}

// UnmarshalTurn deserializes a ConversationTurn from bytes.
func UnmarshalTurn(data []byte) (*core.ConversationTurn, error) {
	turn, _, err := core.TurnMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &turn, nil
}

// MarshalLongTermEntry serializes a LongTermEntry to bytes.
func MarshalLongTermEntry(entry *core.LongTermEntry) []byte {
	buf := make([]byte, core.LongTermEntryMUS.Size(*entry))
	core.LongTermEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalLongTermEntry deserializes a LongTermEntry from bytes.
func UnmarshalLongTermEntry(data []byte) (*core.LongTermEntry, error) {
	entry, _, err := core.LongTermEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// MarshalGeneration serializes a Generation to bytes.
func MarshalGeneration(generation core.Generation) []byte {
	buf := make([]byte, core.GenerationMUS.Size(generation))
	core.GenerationMUS.Marshal(generation, buf)
	return buf
}

// UnmarshalGeneration deserializes a Generation from bytes.
func UnmarshalGeneration(data []byte) (core.Generation, error) {
	generation, _, err := core.GenerationMUS.Unmarshal(data)
	return generation, err
}
