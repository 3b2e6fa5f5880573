// Package planstore persists experiment plans as one JSON document per plan.
// Writes are whole-object overwrites with no in-memory cache between
// operations, so concurrent writers on the same plan are last-writer-wins.
package planstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a plan id does not resolve to a stored plan.
var ErrNotFound = errors.New("plan not found")

// Store is a keyed repository of experiment plans.
type Store interface {
	Create(plan *Plan) error
	Get(planID string) (*Plan, error)
	Save(plan *Plan) error
	List() ([]*Plan, error)
	Delete(planID string) (bool, error)
}

// FileStore keeps each plan at <dir>/<plan_id>.json.
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Create assigns a fresh plan id if absent and writes the full plan.
func (s *FileStore) Create(plan *Plan) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}
	if plan.PlanID == "" {
		plan.PlanID = uuid.NewString()
	}
	return s.Save(plan)
}

// Save writes the full plan object, overwriting any previous version.
func (s *FileStore) Save(plan *Plan) error {
	if plan == nil || plan.PlanID == "" {
		return fmt.Errorf("plan id is required")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("ensure plans dir: %w", err)
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plan %s: %w", plan.PlanID, err)
	}
	if err := os.WriteFile(s.planPath(plan.PlanID), data, 0o644); err != nil {
		return fmt.Errorf("write plan %s: %w", plan.PlanID, err)
	}
	return nil
}

// Get reads and decodes a stored plan. A missing or unparseable record is
// reported as ErrNotFound.
func (s *FileStore) Get(planID string) (*Plan, error) {
	data, err := os.ReadFile(s.planPath(planID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plan %s: %w", planID, ErrNotFound)
		}
		return nil, fmt.Errorf("read plan %s: %w", planID, err)
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("plan %s is not parseable: %w", planID, ErrNotFound)
	}
	return &plan, nil
}

// List returns every stored plan in key-enumeration order.
func (s *FileStore) List() ([]*Plan, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure plans dir: %w", err)
	}
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan plans dir: %w", err)
	}
	var plans []*Plan
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		plan, err := s.Get(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// Delete removes the stored plan if present and reports whether a deletion
// occurred. Absence is not an error.
func (s *FileStore) Delete(planID string) (bool, error) {
	err := os.Remove(s.planPath(planID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete plan %s: %w", planID, err)
	}
	return true, nil
}

func (s *FileStore) planPath(planID string) string {
	return filepath.Join(s.Dir, planID+".json")
}
