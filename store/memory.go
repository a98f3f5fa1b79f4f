package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/BaSui01/tuneflow/tuning"
)

// MemoryStore is an in-memory tuning.Store. Suitable for development and
// testing. Data is lost on restart. Values are copied on the way in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	closed bool

	params     map[string]*tuning.Parameter
	paramOrder []string

	strategies    map[string]*tuning.Strategy
	strategyOrder []string

	performance map[string]*tuning.PerformanceSample
	feedback    map[string][]tuning.AgentFeedback
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		params:      make(map[string]*tuning.Parameter),
		strategies:  make(map[string]*tuning.Strategy),
		performance: make(map[string]*tuning.PerformanceSample),
		feedback:    make(map[string][]tuning.AgentFeedback),
	}
}

// Ping checks if the store is open.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) CreateParameter(ctx context.Context, p *tuning.Parameter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.params[p.Name]; ok {
		return fmt.Errorf("parameter %s: %w", p.Name, tuning.ErrAlreadyExists)
	}
	s.params[p.Name] = p.Clone()
	s.paramOrder = append(s.paramOrder, p.Name)
	return nil
}

func (s *MemoryStore) GetParameter(ctx context.Context, name string) (*tuning.Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	p, ok := s.params[name]
	if !ok {
		return nil, fmt.Errorf("parameter %s: %w", name, tuning.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) ListParameters(ctx context.Context) ([]*tuning.Parameter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]*tuning.Parameter, 0, len(s.paramOrder))
	for _, name := range s.paramOrder {
		out = append(out, s.params[name].Clone())
	}
	return out, nil
}

// ApplyAdjustments validates every command before mutating anything.
func (s *MemoryStore) ApplyAdjustments(ctx context.Context, cmds []tuning.AdjustmentCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	staged := make(map[string]*tuning.Parameter, len(cmds))
	for _, cmd := range cmds {
		p, ok := staged[cmd.Name]
		if !ok {
			stored, exists := s.params[cmd.Name]
			if !exists {
				return fmt.Errorf("parameter %s: %w", cmd.Name, tuning.ErrNotFound)
			}
			p = stored.Clone()
			staged[cmd.Name] = p
		}
		if p.Version != cmd.ExpectedVersion {
			return fmt.Errorf("parameter %s at version %d, expected %d: %w",
				cmd.Name, p.Version, cmd.ExpectedVersion, tuning.ErrVersionConflict)
		}
		p.Apply(cmd.Record)
	}

	for name, p := range staged {
		s.params[name] = p
	}
	return nil
}

func (s *MemoryStore) CreateStrategy(ctx context.Context, st *tuning.Strategy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.strategies[st.ID]; ok {
		return fmt.Errorf("strategy %s: %w", st.ID, tuning.ErrAlreadyExists)
	}
	s.strategies[st.ID] = st.Clone()
	s.strategyOrder = append(s.strategyOrder, st.ID)
	return nil
}

func (s *MemoryStore) GetStrategy(ctx context.Context, id string) (*tuning.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	st, ok := s.strategies[id]
	if !ok {
		return nil, fmt.Errorf("strategy %s: %w", id, tuning.ErrNotFound)
	}
	return st.Clone(), nil
}

func (s *MemoryStore) ListStrategies(ctx context.Context) ([]*tuning.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]*tuning.Strategy, 0, len(s.strategyOrder))
	for _, id := range s.strategyOrder {
		out = append(out, s.strategies[id].Clone())
	}
	return out, nil
}

func (s *MemoryStore) RecordPerformance(ctx context.Context, sample *tuning.PerformanceSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.performance[sample.ID]; ok {
		return fmt.Errorf("performance %s: %w", sample.ID, tuning.ErrAlreadyExists)
	}
	c := *sample
	s.performance[sample.ID] = &c
	return nil
}

func (s *MemoryStore) GetPerformance(ctx context.Context, id string) (*tuning.PerformanceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	sample, ok := s.performance[id]
	if !ok {
		return nil, fmt.Errorf("performance %s: %w", id, tuning.ErrNotFound)
	}
	c := *sample
	return &c, nil
}

func (s *MemoryStore) RecordFeedback(ctx context.Context, f *tuning.AgentFeedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.feedback[f.AgentID] = append(s.feedback[f.AgentID], *f)
	return nil
}

// RecentFeedback returns the newest limit records of each agent, newest first.
func (s *MemoryStore) RecentFeedback(ctx context.Context, agentIDs []string, limit int) ([]tuning.AgentFeedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]tuning.AgentFeedback, 0)
	for _, id := range agentIDs {
		records := s.feedback[id]
		n := len(records)
		if limit > 0 {
			n = min(n, limit)
		}
		recent := slices.Clone(records[len(records)-n:])
		slices.Reverse(recent)
		out = append(out, recent...)
	}
	return out, nil
}

var _ tuning.Store = (*MemoryStore)(nil)
