package enrich

import (
	"fmt"

	"github.com/pmbrain/brain/internal/events"
	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// TrackState is the per-entity enrichment workflow state, stored in the
// enrichment_track header key.
type TrackState string

const (
	TrackNotStarted TrackState = "NOT_STARTED"
	TrackInProgress TrackState = "IN_PROGRESS"
	TrackApproved   TrackState = "APPROVED"
	TrackRejected   TrackState = "REJECTED"
	TrackComplete   TrackState = "COMPLETE"
	TrackBlocked    TrackState = "BLOCKED"
)

const trackKey = "enrichment_track"

// transitions lists the states each state may move to.
var transitions = map[TrackState][]TrackState{
	TrackNotStarted: {TrackInProgress},
	TrackInProgress: {TrackApproved, TrackRejected, TrackComplete, TrackBlocked},
	TrackBlocked:    {TrackInProgress},
}

func canTransition(from, to TrackState) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Tracker drives the enrichment workflow state machine over entities.
type Tracker struct {
	st *store.Store
	ev *events.Store
}

// NewTracker returns a tracker over st.
func NewTracker(st *store.Store) *Tracker {
	return &Tracker{st: st, ev: events.New(st)}
}

// State reads the current track state; entities that never entered the
// workflow report NOT_STARTED.
func (t *Tracker) State(rel string) (TrackState, error) {
	_, f, err := t.st.ReadEntity(rel)
	if err != nil {
		return "", err
	}
	node, ok := f.Get(trackKey)
	if !ok || node.Value == "" {
		return TrackNotStarted, nil
	}
	return TrackState(node.Value), nil
}

// Transition moves the entity to the target state, appending a
// field_update event. Illegal moves fail with ErrPrecondition.
func (t *Tracker) Transition(rel string, to TrackState, actor string) error {
	from, err := t.State(rel)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if !canTransition(from, to) {
		return fmt.Errorf("%w: cannot move enrichment track %s -> %s", types.ErrPrecondition, from, to)
	}
	_, _, err = t.ev.Append(rel, events.AppendInput{
		Type:    types.EventFieldUpdate,
		Message: fmt.Sprintf("enrichment track %s -> %s", from, to),
		Actor:   actor,
		Changes: []types.Change{{
			Field: trackKey, Operation: "set", Value: string(to), OldValue: string(from),
		}},
		Mutate: func(e *types.Entity, f *store.File) error {
			return f.Set(trackKey, string(to))
		},
	})
	return err
}

// Start begins the workflow.
func (t *Tracker) Start(rel, actor string) error {
	return t.Transition(rel, TrackInProgress, actor)
}

// Approve marks an in-progress track approved.
func (t *Tracker) Approve(rel, actor string) error {
	return t.Transition(rel, TrackApproved, actor)
}

// Reject marks an in-progress track rejected.
func (t *Tracker) Reject(rel, actor string) error {
	return t.Transition(rel, TrackRejected, actor)
}

// Complete finishes an in-progress track.
func (t *Tracker) Complete(rel, actor string) error {
	return t.Transition(rel, TrackComplete, actor)
}

// Block parks an in-progress track; Start resumes it.
func (t *Tracker) Block(rel, actor string) error {
	return t.Transition(rel, TrackBlocked, actor)
}
