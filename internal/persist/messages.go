// internal/persist/messages.go
//
// Wire contract between the bridge store and the remote storage
// authority. Outbound requests are fire-and-forget except reads, which
// the caller waits on until a correlated Inbound arrives.

package persist

import "encoding/json"

// Outbound is the message union sent to the remote authority. Exactly
// one of the request fields is set per message.
type Outbound struct {
	RequestReadKey   string `json:"requestReadKey,omitempty"`
	RequestWriteKey  string `json:"requestWriteKey,omitempty"`
	RequestDeleteKey string `json:"requestDeleteKey,omitempty"`
	// Value carries the JSON-encoded record for writes.
	Value string `json:"value,omitempty"`
}

// Inbound is the message union received from the remote authority:
// either a read response (Key set, Value nil when the key is absent) or
// an unsolicited aggregate-stats push (AggregateStats set).
type Inbound struct {
	Key            string          `json:"key"`
	Value          *string         `json:"value"`
	AggregateStats json.RawMessage `json:"aggregateStats,omitempty"`
}

// Sender delivers one outbound message. Implementations must not block
// on the remote authority acknowledging anything; a returned error means
// the message could not be handed to the transport at all.
type Sender func(msg Outbound) error
