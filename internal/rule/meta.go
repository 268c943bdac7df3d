package rule

import (
	"fmt"
	"sort"
)

// Name is the identifier of the draft-mutation rule.
const Name = "no-external-immer-draft"

// MessageExternalMutation is the message kind reported for a property
// mutation whose root is not the innermost draft handle.
const MessageExternalMutation = "externalMutation"

// Meta describes a rule for listings and reports.
type Meta struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Messages    map[string]string `json:"messages"`
}

// Metadata is the description of the draft-mutation rule.
var Metadata = Meta{
	ID:          Name,
	Type:        "problem",
	Description: "Avoid mutating external objects inside produce()",
	Messages: map[string]string{
		MessageExternalMutation: "Avoid mutating variables outside of produce's draft scope.",
	},
}

// Message renders the text for a message kind.
func (m Meta) Message(kind string) string {
	if msg, ok := m.Messages[kind]; ok {
		return msg
	}
	return fmt.Sprintf("%s: %s", m.ID, kind)
}

// MessageKinds returns the message kinds in sorted order.
func (m Meta) MessageKinds() []string {
	kinds := make([]string, 0, len(m.Messages))
	for k := range m.Messages {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
