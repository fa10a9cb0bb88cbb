package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/socratic/core"
	"github.com/hupe1980/socratic/eval"
	"github.com/hupe1980/socratic/rubric"
)

func TestAttemptStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryAttemptStore()

	_, err := s.Get(ctx, "a1")
	assert.ErrorIs(t, err, ErrNotFound)

	attempt := &Attempt{ID: "a1", LearnerID: "l1", ObjectiveID: "o1", Status: AttemptInProgress, StartedAt: time.Now().UTC()}
	require.NoError(t, s.Create(ctx, attempt))
	assert.ErrorIs(t, s.Create(ctx, attempt), ErrAlreadyExists)

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, AttemptInProgress, got.Status)

	got.Status = AttemptCompleted
	require.NoError(t, s.Update(ctx, got))

	again, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, AttemptCompleted, again.Status)

	assert.ErrorIs(t, s.Update(ctx, &Attempt{ID: "missing"}), ErrNotFound)
}

func TestAttemptStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryAttemptStore()
	require.NoError(t, s.Create(ctx, &Attempt{ID: "a1", Status: AttemptInProgress}))

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	got.Status = AttemptEvaluated

	fresh, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, AttemptInProgress, fresh.Status)
}

func TestRubricStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryRubricStore()

	_, _, err := s.Get(ctx, "o1")
	assert.ErrorIs(t, err, ErrNotFound)

	s.Register("o1",
		rubric.Objective{Title: "Explain recursion"},
		rubric.Rubric{Criteria: []rubric.Criterion{{ID: "c1", Name: "Base cases"}}},
	)

	obj, rub, err := s.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "Explain recursion", obj.Title)
	require.Len(t, rub.Criteria, 1)
	assert.Equal(t, "c1", rub.Criteria[0].ID)
}

func TestTranscriptStoreOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryTranscriptStore()

	for i, text := range []string{"first", "second", "third"} {
		require.NoError(t, s.Append(ctx, Segment{
			ID: core.NewID(), AttemptID: "a1", Role: core.RoleUser, Text: text,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	segments, err := s.List(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, segments, 3)
	assert.Equal(t, "first", segments[0].Text)
	assert.Equal(t, "third", segments[2].Text)

	empty, err := s.List(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEvaluationStoreWriteOnce(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryEvaluationStore()

	_, err := s.Get(ctx, "a1")
	assert.ErrorIs(t, err, ErrNotFound)

	output := &eval.Output{Grading: eval.GradingResult{OverallGrade: eval.GradeA, OverallConfidence: 0.8}}
	require.NoError(t, s.Put(ctx, "a1", output))
	assert.ErrorIs(t, s.Put(ctx, "a1", output), ErrAlreadyExists)

	got, err := s.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, eval.GradeA, got.Grading.OverallGrade)
}
