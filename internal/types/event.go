package types

// EventType classifies a change event.
type EventType string

const (
	EventFieldUpdate       EventType = "field_update"
	EventResearchDiscovery EventType = "research_discovery"
	EventNormalization     EventType = "normalization"
	EventMigration         EventType = "migration"
	EventStatusChange      EventType = "status_change"
)

// Change describes one field-level mutation inside an event.
type Change struct {
	Field     string      `yaml:"field" json:"field"`
	Operation string      `yaml:"operation" json:"operation"`
	Value     interface{} `yaml:"value,omitempty" json:"value,omitempty"`
	OldValue  interface{} `yaml:"old_value,omitempty" json:"old_value,omitempty"`
}

// Event is one immutable entry in an entity's timeline. Events are
// embedded in the entity header and never rewritten after append.
type Event struct {
	EventID       string                 `yaml:"event_id" json:"event_id"`
	Timestamp     string                 `yaml:"timestamp" json:"timestamp"`
	Type          EventType              `yaml:"type" json:"type"`
	Actor         string                 `yaml:"actor" json:"actor"`
	Message       string                 `yaml:"message" json:"message"`
	Changes       []Change               `yaml:"changes,omitempty" json:"changes,omitempty"`
	CorrelationID string                 `yaml:"correlation_id,omitempty" json:"correlation_id,omitempty"`
	Metadata      map[string]interface{} `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// DedupKey identifies an event for idempotent appends: appending a second
// event with the same correlation id and message on one entity is a no-op.
func (e Event) DedupKey() string {
	if e.CorrelationID == "" {
		return ""
	}
	return e.CorrelationID + "\x00" + e.Message
}
