package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Item IDs are derived from the item's source and creation instant,
// so an ID never changes across retries.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// NewItemID generates an ID for a new item from its kind, source and
// creation instant.
func NewItemID(kind ItemKind, source string, createdAt time.Time) ID {
	return IDFromContent(string(kind) + "|" + source + "|" + strconv.FormatInt(createdAt.UnixNano(), 10))
}

// ItemKind identifies the source type of a work item.
type ItemKind string

const (
	// KindURL is a generic web page.
	KindURL ItemKind = "url"
	// KindYouTube is a single YouTube video.
	KindYouTube ItemKind = "youtube"
	// KindFile is an uploaded document (PDF, DOCX, TXT, HTML, image).
	KindFile ItemKind = "file"
	// KindPlaylist is a YouTube playlist tracking item. Playlist items are
	// never executed; they fan out child video items and are then deleted.
	KindPlaylist ItemKind = "playlist"
)

// ItemStatus is the lifecycle state of a work item.
type ItemStatus string

const (
	// StatusPending means the item is queued and waiting for a free slot.
	StatusPending ItemStatus = "PENDING"
	// StatusExtracting means text extraction is in progress.
	StatusExtracting ItemStatus = "EXTRACTING"
	// StatusDistilling means the AI distillation call is in progress.
	StatusDistilling ItemStatus = "DISTILLING"
	// StatusCompleted means distilled output has been persisted.
	StatusCompleted ItemStatus = "COMPLETED"
	// StatusRead is a user-set terminal state for completed items.
	StatusRead ItemStatus = "READ"
	// StatusError means the pipeline failed; Item.Error holds the message.
	StatusError ItemStatus = "ERROR"
	// StatusStopped means the item was cancelled by a stop request.
	StatusStopped ItemStatus = "STOPPED"
)

// Terminal reports whether s is a terminal status. Terminal items stay
// put until an explicit retry or delete.
func (s ItemStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRead, StatusError, StatusStopped:
		return true
	}
	return false
}

// Active reports whether s is an in-flight pipeline stage.
func (s ItemStatus) Active() bool {
	return s == StatusExtracting || s == StatusDistilling
}

// SourceTagPrefix marks the reserved tag carrying the item's origin.
// Tags with this prefix survive a retry; all other tags are cleared.
const SourceTagPrefix = "source:"

// Item is one unit of work submitted for distillation.
// It is mutated only by its own pipeline executor while active, or by an
// explicit stop/retry/delete request.
type Item struct {
	Id         ID
	Kind       ItemKind
	Source     string // URL, or original file path for KindFile
	FileName   string
	FileMime   string
	FileSize   int64
	ParentId   ID // links a playlist child to its tracking item, 0 otherwise
	Status     ItemStatus
	QueueIndex uint64 // FIFO order among PENDING items
	CreatedAt  time.Time
	StartedAt  time.Time
	DurationMs int64
	Error      string
	Tags       []string
}

// SourceTag returns the item's reserved source tag, or "" if absent.
func (it *Item) SourceTag() string {
	for _, tag := range it.Tags {
		if strings.HasPrefix(tag, SourceTagPrefix) {
			return tag
		}
	}
	return ""
}

// Content holds the extraction and distillation output for an item,
// stored separately and keyed by the item's ID.
type Content struct {
	ItemId       ID
	Text         string // extracted raw text (real or diagnostic placeholder)
	Method       string // name of the extraction strategy that produced Text
	FallbackUsed bool   // true when Text is a diagnostic placeholder
	Output       string // final distilled output
	UpdatedAt    time.Time
}
