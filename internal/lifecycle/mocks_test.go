package lifecycle_test

import (
	"context"
	"errors"

	"dealroom.app/broker/internal/lifecycle"
	"dealroom.app/broker/internal/model"
)

type mockDirectory struct {
	parties map[int64]*model.Party
	lookups int
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{parties: map[int64]*model.Party{}}
}

func (d *mockDirectory) add(id int64, typ model.PartyType, code string) {
	p := &model.Party{ID: id, Type: typ}
	if code != "" {
		c := code
		p.AdvisorCode = &c
	}
	d.parties[id] = p
}

func (d *mockDirectory) setCode(id int64, code string) {
	c := code
	d.parties[id].AdvisorCode = &c
}

func (d *mockDirectory) GetParty(_ context.Context, id int64) (*model.Party, error) {
	d.lookups++
	p, ok := d.parties[id]
	if !ok {
		return nil, errors.New("party not found")
	}
	return p, nil
}

// memoryStore keeps items in a map and honours the conditional gate write.
type memoryStore struct {
	items map[int64]lifecycle.Item
	saves int

	// casFn overrides CompareAndSetGate when set.
	casFn func(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: map[int64]lifecycle.Item{}}
}

func (s *memoryStore) put(item lifecycle.Item) {
	item.Workflow = item.Workflow.Clone()
	s.items[item.ID] = item
}

func (s *memoryStore) get(id int64) lifecycle.Item {
	return s.items[id]
}

func (s *memoryStore) Load(_ context.Context, id int64) (lifecycle.Item, error) {
	item, ok := s.items[id]
	if !ok {
		return lifecycle.Item{}, lifecycle.ErrItemMissing
	}
	item.Workflow = item.Workflow.Clone()
	return item, nil
}

func (s *memoryStore) CompareAndSetGate(ctx context.Context, id int64, gate model.Gate, expected, next model.ApprovalStatus) (model.ApprovalStatus, error) {
	if s.casFn != nil {
		return s.casFn(ctx, id, gate, expected, next)
	}
	item, ok := s.items[id]
	if !ok {
		return "", lifecycle.ErrItemMissing
	}
	prev := item.Workflow.Gate(gate)
	if prev != expected {
		return prev, nil
	}
	item.Workflow = item.Workflow.With(gate, next)
	s.items[id] = item
	return prev, nil
}

func (s *memoryStore) SaveWorkflow(_ context.Context, id int64, prev, next lifecycle.Workflow) error {
	item, ok := s.items[id]
	if !ok {
		return lifecycle.ErrItemMissing
	}
	if item.Workflow.Stage != prev.Stage {
		return errors.New("stage moved underneath")
	}
	item.Workflow = next.Clone()
	s.items[id] = item
	s.saves++
	return nil
}
