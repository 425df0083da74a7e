// Package email holds the stored representation of a fetched message,
// shared by the store and the rule engine.
package email

import "time"

// Record is one persisted email. ID is the provider-assigned message id and
// is immutable; the label set is the only part mutated after fetch.
type Record struct {
	ID         string
	From       string
	To         string
	Subject    string
	ReceivedAt time.Time // zero when the Date header was absent or unparseable
	Snippet    string
	Labels     []string
}
