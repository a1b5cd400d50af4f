package domain

import (
	"strings"
	"time"
)

// Source identifies which ingestion path produced a turn
type Source string

const (
	SourceTelegram Source = "telegram"
	SourcePeer     Source = "peer"
)

// Label is the sender-class prefix shown to the session
func (s Source) Label() string {
	return strings.ToUpper(string(s))
}

// FragmentSeparator joins fragments of one turn
const FragmentSeparator = "\n\n"

// Turn is one logical inbound message, possibly assembled from several fragments
type Turn struct {
	ChatID    int64
	Sender    string
	Fragments []string
}

// Text returns the fragments joined in arrival order
func (t *Turn) Text() string {
	return strings.Join(t.Fragments, FragmentSeparator)
}

// PeerTimestampLayout is the timestamp format exchanged between peers
const PeerTimestampLayout = "2006-01-02 15:04"

// PeerInjection is the payload accepted from a paired instance
type PeerInjection struct {
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

// JournalEntry records one injection attempt
type JournalEntry struct {
	ID        int64
	Source    Source
	ChatID    int64
	Sender    string
	Fragments int
	Bytes     int
	Delivered bool
	Error     string
	CreatedAt time.Time
}
