package enrich

import (
	"errors"
	"testing"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

func newTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()
	root := t.TempDir()
	seed(t, root, "Projects/Alpha.md", header("entity/project/alpha", "project"))
	st := store.New(root)
	return NewTracker(st), st
}

func TestTrackHappyPath(t *testing.T) {
	tr, st := newTracker(t)
	const rel = "Projects/Alpha.md"

	if state, err := tr.State(rel); err != nil || state != TrackNotStarted {
		t.Fatalf("initial state = %v, %v", state, err)
	}
	if err := tr.Start(rel, "pm"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if state, _ := tr.State(rel); state != TrackInProgress {
		t.Errorf("state = %v", state)
	}
	if err := tr.Complete(rel, "pm"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if state, _ := tr.State(rel); state != TrackComplete {
		t.Errorf("state = %v", state)
	}

	e, _, _ := st.ReadEntity(rel)
	if len(e.Events) != 2 {
		t.Fatalf("events = %d", len(e.Events))
	}
	for _, ev := range e.Events {
		if ev.Type != types.EventFieldUpdate {
			t.Errorf("event type = %s", ev.Type)
		}
	}
}

func TestTrackInvalidTransitions(t *testing.T) {
	tr, _ := newTracker(t)
	const rel = "Projects/Alpha.md"

	// Completing before starting is a precondition failure.
	if err := tr.Complete(rel, "pm"); !errors.Is(err, types.ErrPrecondition) {
		t.Errorf("Complete from NOT_STARTED = %v", err)
	}
	if err := tr.Start(rel, "pm"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tr.Approve(rel, "pm"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	// Approved is terminal.
	if err := tr.Reject(rel, "pm"); !errors.Is(err, types.ErrPrecondition) {
		t.Errorf("Reject after approve = %v", err)
	}
}

func TestTrackBlockedResumes(t *testing.T) {
	tr, _ := newTracker(t)
	const rel = "Projects/Alpha.md"
	if err := tr.Start(rel, "pm"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tr.Block(rel, "pm"); err != nil {
		t.Fatalf("Block: %v", err)
	}
	if err := tr.Start(rel, "pm"); err != nil {
		t.Fatalf("resume from blocked: %v", err)
	}
	if state, _ := tr.State(rel); state != TrackInProgress {
		t.Errorf("state = %v", state)
	}
}

func TestTrackSameStateIsNoOp(t *testing.T) {
	tr, st := newTracker(t)
	const rel = "Projects/Alpha.md"
	if err := tr.Start(rel, "pm"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tr.Start(rel, "pm"); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	e, _, _ := st.ReadEntity(rel)
	if len(e.Events) != 1 {
		t.Errorf("events = %d, want 1", len(e.Events))
	}
}
