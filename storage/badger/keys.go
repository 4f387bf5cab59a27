package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/jpvia/normabot/core"
)

// Key prefixes for different data types
const (
	chunkRecordPrefix = "chkrec"
	chunkSourcePrefix = "chkrecs"
	turnRecordPrefix  = "turnrec"
	turnDatePrefix    = "turnrecd"
	longTermPrefix    = "ltrec"
	generationKeyName = "idxgen"
)

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeChunkSourceKey generates a composite key for the source index.
// Format: prefix:sourceHash:chunkID
// The source id is caller-supplied, so it is hashed to a fixed 8-byte
// segment rather than embedded verbatim; an id containing the delimiter
// could otherwise alias another source's key range.
func makeChunkSourceKey(sourceID string, id core.ID) []byte {
	prefix := makePartialChunkSourceKey(sourceID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialChunkSourceKey generates a partial key for source queries.
// Format: prefix:sourceHash:
func makePartialChunkSourceKey(sourceID string) []byte {
	prefix := []byte(chunkSourcePrefix + ":")
	buf := make([]byte, len(prefix)+9)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(sourceID)))
	buf[len(buf)-1] = ':'
	return buf
}

// makeTurnKey generates a composite key for a turn by (session, sequence).
// Format: prefix:sessionHash:sequence
// The sequence is BigEndian so lexicographic order within a session is
// sequence order.
func makeTurnKey(sessionID string, sequence uint64) []byte {
	prefix := makePartialTurnKey(sessionID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], sequence)
	return buf
}

// makePartialTurnKey generates a partial key for session queries.
// Format: prefix:sessionHash:
// The session id is caller-supplied, so it is hashed to a fixed 8-byte
// segment; embedding it verbatim would let a session id containing the
// delimiter alias another session's key range.
func makePartialTurnKey(sessionID string) []byte {
	prefix := []byte(turnRecordPrefix + ":")
	buf := make([]byte, len(prefix)+9)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(sessionID)))
	buf[len(buf)-1] = ':'
	return buf
}

// makeTurnDateKey generates a composite key for the date index.
// Format: prefix:timestamp:id
func makeTurnDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := turnDatePrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+16)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialTurnDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialTurnDateKey(timestamp time.Time) []byte {
	prefix := turnDatePrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeLongTermKey generates a key for a consolidated entry by cluster ID.
func makeLongTermKey(clusterID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", longTermPrefix, clusterID))
}

// makeGenerationKey generates the key for the index generation checkpoint.
func makeGenerationKey() []byte {
	return []byte(fmt.Sprintf("%s:chkpt", generationKeyName))
}
