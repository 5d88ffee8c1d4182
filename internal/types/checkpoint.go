package types

// CheckpointState is the orchestrator's progress record, persisted
// atomically after every batch so interrupted runs can resume.
type CheckpointState struct {
	StartedAt         string   `json:"started_at"`
	LastCheckpoint    string   `json:"last_checkpoint"`
	TotalEntities     int      `json:"total_entities"`
	ProcessedEntities int      `json:"processed_entities"`
	Successful        int      `json:"successful"`
	Failed            int      `json:"failed"`
	SourcesCompleted  []string `json:"sources_completed"`
	CurrentSource     string   `json:"current_source"`
	LastEntityID      string   `json:"last_entity_id"`
}

// SourceDone reports whether the named source finished in a prior run.
func (c *CheckpointState) SourceDone(source string) bool {
	for _, s := range c.SourcesCompleted {
		if s == source {
			return true
		}
	}
	return false
}

// QueryResult is one ranked hit from the query engine.
type QueryResult struct {
	ID      string   `json:"id"`
	Score   float64  `json:"score"`
	Source  string   `json:"source"` // "alias", "content", or "graph"
	Reasons []string `json:"reasons,omitempty"`
}
