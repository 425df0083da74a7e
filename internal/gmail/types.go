package gmail

import "time"

type MessageID string
type LabelID string

// Message is the provider view of one email: the headers we persist, the
// snippet Gmail extracts from the body, and the current label set.
type Message struct {
	ID      MessageID
	Headers map[string]string // From, To, Subject, Date
	Snippet string
	Labels  []LabelID
	Date    time.Time // parsed Date header; zero when absent or unparseable
}

// ListPage is one page of a message listing.
type ListPage struct {
	IDs           []MessageID
	NextPageToken string
}

// ModifyOps describes a label mutation on a single message.
type ModifyOps struct {
	AddLabels    []LabelID
	RemoveLabels []LabelID
}

// Query wraps an already-formed Gmail search string (e.g. `newer_than:7d`).
type Query struct {
	Raw string
}
