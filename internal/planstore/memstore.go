package planstore

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store used by tests. It serializes plans the same
// way the file store does so stored objects never alias caller memory.
type MemStore struct {
	mu    sync.Mutex
	plans map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{plans: make(map[string][]byte)}
}

// Create assigns a fresh plan id if absent and stores the full plan.
func (s *MemStore) Create(plan *Plan) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}
	if plan.PlanID == "" {
		plan.PlanID = uuid.NewString()
	}
	return s.Save(plan)
}

// Save stores the full plan object, overwriting any previous version.
func (s *MemStore) Save(plan *Plan) error {
	if plan == nil || plan.PlanID == "" {
		return fmt.Errorf("plan id is required")
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan %s: %w", plan.PlanID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.PlanID] = data
	return nil
}

// Get returns the stored plan or ErrNotFound.
func (s *MemStore) Get(planID string) (*Plan, error) {
	s.mu.Lock()
	data, ok := s.plans[planID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("plan %s: %w", planID, ErrNotFound)
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("plan %s is not parseable: %w", planID, ErrNotFound)
	}
	return &plan, nil
}

// List returns every stored plan in map-enumeration order.
func (s *MemStore) List() ([]*Plan, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.plans))
	for id := range s.plans {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	var plans []*Plan
	for _, id := range ids {
		plan, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// Delete removes the plan if present and reports whether a deletion occurred.
func (s *MemStore) Delete(planID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[planID]; !ok {
		return false, nil
	}
	delete(s.plans, planID)
	return true, nil
}
