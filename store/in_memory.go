package store

import (
	"context"
	"sync"

	"github.com/hupe1980/socratic/eval"
	"github.com/hupe1980/socratic/rubric"
)

// InMemoryAttemptStore is a volatile AttemptStore keeping records in a
// process local map. Safe for concurrent access; records are copied on the
// way in and out so callers cannot mutate stored state.
type InMemoryAttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]Attempt
}

// NewInMemoryAttemptStore constructs an empty in-memory attempt store.
func NewInMemoryAttemptStore() *InMemoryAttemptStore {
	return &InMemoryAttemptStore{attempts: make(map[string]Attempt)}
}

func (s *InMemoryAttemptStore) Get(_ context.Context, id string) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &attempt, nil
}

func (s *InMemoryAttemptStore) Create(_ context.Context, attempt *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; ok {
		return ErrAlreadyExists
	}
	s.attempts[attempt.ID] = *attempt
	return nil
}

func (s *InMemoryAttemptStore) Update(_ context.Context, attempt *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; !ok {
		return ErrNotFound
	}
	s.attempts[attempt.ID] = *attempt
	return nil
}

// InMemoryRubricStore serves objectives and rubrics registered up front.
type InMemoryRubricStore struct {
	mu      sync.RWMutex
	entries map[string]rubricEntry
}

type rubricEntry struct {
	objective rubric.Objective
	rubric    rubric.Rubric
}

// NewInMemoryRubricStore constructs an empty in-memory rubric store.
func NewInMemoryRubricStore() *InMemoryRubricStore {
	return &InMemoryRubricStore{entries: make(map[string]rubricEntry)}
}

// Register adds or replaces the assessment inputs for an objective id.
func (s *InMemoryRubricStore) Register(objectiveID string, obj rubric.Objective, rub rubric.Rubric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[objectiveID] = rubricEntry{objective: obj, rubric: rub}
}

func (s *InMemoryRubricStore) Get(_ context.Context, objectiveID string) (rubric.Objective, rubric.Rubric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[objectiveID]
	if !ok {
		return rubric.Objective{}, rubric.Rubric{}, ErrNotFound
	}
	return entry.objective, entry.rubric, nil
}

// InMemoryTranscriptStore keeps ordered segments per attempt.
type InMemoryTranscriptStore struct {
	mu       sync.RWMutex
	segments map[string][]Segment
}

// NewInMemoryTranscriptStore constructs an empty in-memory transcript store.
func NewInMemoryTranscriptStore() *InMemoryTranscriptStore {
	return &InMemoryTranscriptStore{segments: make(map[string][]Segment)}
}

func (s *InMemoryTranscriptStore) Append(_ context.Context, segment Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[segment.AttemptID] = append(s.segments[segment.AttemptID], segment)
	return nil
}

func (s *InMemoryTranscriptStore) List(_ context.Context, attemptID string) ([]Segment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Segment, len(s.segments[attemptID]))
	copy(out, s.segments[attemptID])
	return out, nil
}

// InMemoryEvaluationStore enforces write-once semantics per attempt.
type InMemoryEvaluationStore struct {
	mu      sync.RWMutex
	outputs map[string]*eval.Output
}

// NewInMemoryEvaluationStore constructs an empty in-memory evaluation store.
func NewInMemoryEvaluationStore() *InMemoryEvaluationStore {
	return &InMemoryEvaluationStore{outputs: make(map[string]*eval.Output)}
}

func (s *InMemoryEvaluationStore) Put(_ context.Context, attemptID string, output *eval.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.outputs[attemptID]; ok {
		return ErrAlreadyExists
	}
	s.outputs[attemptID] = output
	return nil
}

func (s *InMemoryEvaluationStore) Get(_ context.Context, attemptID string) (*eval.Output, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	output, ok := s.outputs[attemptID]
	if !ok {
		return nil, ErrNotFound
	}
	return output, nil
}
