// Package store defines the persistence contracts the assessment core
// consumes: attempt records with simple get/create/update semantics, rubric
// and transcript data as read-only inputs, and the evaluation output as a
// single write-once record. In-memory reference implementations ship
// alongside the interfaces; production deployments supply durable ones.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/eval"
	"github.com/hupe1980/socratic/rubric"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrAlreadyExists is returned on create collisions and on a second write to
// a write-once record.
var ErrAlreadyExists = errors.New("store: already exists")

// AttemptStatus is the lifecycle phase of an assessment attempt.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptEvaluated  AttemptStatus = "evaluated"
)

// Attempt is one learner's run at an objective.
type Attempt struct {
	ID          string        `json:"id"`
	LearnerID   string        `json:"learner_id"`
	ObjectiveID string        `json:"objective_id"`
	Status      AttemptStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Segment is one persisted transcript unit of an attempt.
type Segment struct {
	ID        string    `json:"id"`
	AttemptID string    `json:"attempt_id"`
	Role      core.Role `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// AttemptStore persists attempt records.
type AttemptStore interface {
	Get(ctx context.Context, id string) (*Attempt, error)
	Create(ctx context.Context, attempt *Attempt) error
	Update(ctx context.Context, attempt *Attempt) error
}

// RubricStore serves the read-only assessment inputs for an objective.
type RubricStore interface {
	Get(ctx context.Context, objectiveID string) (rubric.Objective, rubric.Rubric, error)
}

// TranscriptStore persists ordered transcript segments per attempt.
type TranscriptStore interface {
	Append(ctx context.Context, segment Segment) error
	List(ctx context.Context, attemptID string) ([]Segment, error)
}

// EvaluationStore persists the write-once evaluation output per attempt.
type EvaluationStore interface {
	// Put stores the output, failing with ErrAlreadyExists on a second write.
	Put(ctx context.Context, attemptID string, output *eval.Output) error
	Get(ctx context.Context, attemptID string) (*eval.Output, error)
}
