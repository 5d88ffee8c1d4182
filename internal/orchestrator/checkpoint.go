package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pmbrain/brain/internal/store"
	"github.com/pmbrain/brain/internal/types"
)

// CheckpointFile is the default checkpoint name under the brain root.
const CheckpointFile = ".enrichment_checkpoint.json"

// loadCheckpoint reads a prior run's state; a missing file returns nil.
func loadCheckpoint(path string) (*types.CheckpointState, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	var cp types.CheckpointState
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: checkpoint: %v", types.ErrMalformed, err)
	}
	return &cp, nil
}

// saveCheckpoint persists state atomically (temp + rename).
func saveCheckpoint(path string, cp *types.CheckpointState) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return store.WriteFileAtomic(path, data)
}
