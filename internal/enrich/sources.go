package enrich

import (
	"fmt"

	"github.com/pmbrain/brain/internal/types"
)

// Source names, in orchestrator declaration order.
const (
	SourceDocstore    = "docstore"
	SourceChat        = "chat"
	SourceIssues      = "issues"
	SourceCodehost    = "codehost"
	SourceCalendar    = "calendar"
	SourceSpreadsheet = "spreadsheet"
	SourceResearch    = "research"
)

// sourceSpec pins each source's reliability and event type.
var sourceSpecs = []struct {
	name        string
	reliability float64
	eventType   types.EventType
}{
	{SourceDocstore, 0.85, types.EventResearchDiscovery},
	{SourceChat, 0.65, types.EventFieldUpdate},
	{SourceIssues, 0.80, types.EventFieldUpdate},
	{SourceCodehost, 0.75, types.EventFieldUpdate},
	{SourceCalendar, 0.60, types.EventFieldUpdate},
	{SourceSpreadsheet, 0.70, types.EventFieldUpdate},
	{SourceResearch, 0.75, types.EventResearchDiscovery},
}

// AllSources lists the source names in declaration order.
func AllSources() []string {
	out := make([]string, len(sourceSpecs))
	for i, s := range sourceSpecs {
		out[i] = s.name
	}
	return out
}

// New instantiates the enricher for a source name.
func New(source string, deps Deps) (Enricher, error) {
	for _, s := range sourceSpecs {
		if s.name == source {
			return &sourceEnricher{
				name:        s.name,
				reliability: s.reliability,
				eventType:   s.eventType,
				deps:        deps,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown source %q", types.ErrNotFound, source)
}

// All instantiates every enricher in declaration order.
func All(deps Deps) []Enricher {
	out := make([]Enricher, len(sourceSpecs))
	for i, s := range sourceSpecs {
		out[i], _ = New(s.name, deps)
	}
	return out
}
