package badger

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Key prefixes for different data types
const (
	vectorIndexPrefix  = "vidx"
	vectorChunkPrefix  = "vec"
	conversationPrefix = "conv"
)

// Names are length-prefixed so that one name can never be a key prefix of
// another (session "a" vs "a:b").

// makeIndexKey generates the metadata key of a vector index.
// Format: vidx:name
func makeIndexKey(index string) []byte {
	return []byte(fmt.Sprintf("%s:%s", vectorIndexPrefix, index))
}

// makeChunkPrefix generates the common prefix of all chunks in an index.
// Format: vec:len:index:
func makeChunkPrefix(index string) []byte {
	return []byte(fmt.Sprintf("%s:%d:%s:", vectorChunkPrefix, len(index), index))
}

// makeChunkKey generates the key of one chunk.
// Format: vec:len:index:chunkID
func makeChunkKey(index, chunkID string) []byte {
	return append(makeChunkPrefix(index), chunkID...)
}

// makeSessionPrefix generates the common prefix of all turns of a session.
// Format: conv:len:sessionID:
func makeSessionPrefix(sessionID string) []byte {
	return []byte(fmt.Sprintf("%s:%d:%s:", conversationPrefix, len(sessionID), sessionID))
}

// makeTurnKey generates the key of one turn. The suffix is the inverted
// insertion time so that a forward prefix scan yields the newest turn first.
// Format: conv:len:sessionID:inverted
func makeTurnKey(sessionID string, inverted uint64) []byte {
	prefix := makeSessionPrefix(sessionID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], inverted)
	return buf
}

// invertTime maps later times to smaller values.
func invertTime(t time.Time) uint64 {
	return math.MaxUint64 - uint64(t.UnixNano())
}

// turnSuffix extracts the inverted time from a turn key.
func turnSuffix(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}
