package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/docquery/core"
)

// Key prefixes for different data types
const (
	documentRecordPrefix = "docrec"
	documentIDSeq        = "docrecseq"
	chunkRecordPrefix    = "chrec"
	chunkDocumentPrefix  = "chrecdoc"
	jobRecordPrefix      = "jobrec"
	jobIDSeq             = "jobrecseq"
	answerRecordPrefix   = "ansrec"
	answerDatePrefix     = "ansrecd"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentRecordPrefix, id))
}

// makeChunkKey generates a key for a chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeJobKey generates a key for a job by ID.
func makeJobKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", jobRecordPrefix, id))
}

// makeAnswerKey generates a key for an answer record by ID.
func makeAnswerKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", answerRecordPrefix, id))
}

// makeChunkDocumentKey generates a composite key for the document→chunk index.
// Format: prefix:documentID:ordinal
func makeChunkDocumentKey(documentID core.ID, ordinal int) []byte {
	prefix := chunkDocumentPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for documentID + 8 bytes for ordinal
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(ordinal))
	return buf
}

// makePartialChunkDocumentKey generates a partial key for per-document scans.
// Format: prefix:documentID
func makePartialChunkDocumentKey(documentID core.ID) []byte {
	prefix := chunkDocumentPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(documentID))
	return buf
}

// makeAnswerDateKey generates a composite key for the answer date index.
// Format: prefix:timestamp:id
func makeAnswerDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := answerDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialAnswerDateKey generates a partial key for answer date scans.
func makePartialAnswerDateKey(timestamp time.Time) []byte {
	prefix := answerDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}
