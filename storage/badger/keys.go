package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/emberlight/distill/core"
)

// Key prefixes for different data types
const (
	itemRecordPrefix    = "itmrec"
	itemQueuePrefix     = "itmq"
	itemQueueSeq        = "itmqseq"
	contentRecordPrefix = "conrec"
)

// makeItemKey generates a key for an item by ID.
func makeItemKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", itemRecordPrefix, id))
}

// makeItemQueueKey generates a composite key for the pending-queue index.
// Format: prefix:queueIndex, BigEndian so lexicographic order is FIFO order.
func makeItemQueueKey(queueIndex uint64) []byte {
	prefix := itemQueuePrefix + ":"
	prefixBytes := []byte(prefix)
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], queueIndex)
	return buf
}

// makeContentKey generates a key for an item's content by item ID.
func makeContentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", contentRecordPrefix, id))
}
