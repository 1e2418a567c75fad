package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// EventType lets generic events flow through the same emitters as typed ones.
func (e *Event) EventType() string {
	if e == nil {
		return ""
	}
	return e.Type
}

// Attr returns the attribute stored under key, or "" when absent.
func (e *Event) Attr(key string) string {
	if e == nil || e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}
