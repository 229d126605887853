package events

import (
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/blendplan/pkg/domain/linear"
	testhelpers "github.com/vsinha/blendplan/pkg/infrastructure/testing"
	"github.com/vsinha/blendplan/pkg/optimization/model"
)

func TestMemoryStore_AppendAndRead(t *testing.T) {
	store := NewMemoryStore(logr.Discard())

	for _, typ := range []string{"a", "b", "c"} {
		_, err := store.Append("run-1", NewEvent(typ, "run-1", nil))
		require.NoError(t, err)
	}
	stored, err := store.Append("run-2", NewEvent("x", "run-2", 42))
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version())
	assert.Equal(t, 42, stored.Data())

	events, err := store.ReadStream("run-1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Type())
	assert.Equal(t, 2, events[0].Version())
	assert.Equal(t, 3, events[1].Version())

	events, err = store.ReadStream("run-1", 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	events, err = store.ReadStream("run-1", 4)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = store.ReadStream("unknown", 1)
	require.NoError(t, err)
	assert.Empty(t, events)

	all, err := store.ReadAll(2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].Type())
	assert.Equal(t, "run-2", all[1].StreamID())

	all, err = store.ReadAll(10)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStore_AppendErrors(t *testing.T) {
	store := NewMemoryStore(logr.Discard())

	_, err := store.Append("", NewEvent("a", "", nil))
	assert.Error(t, err)
	_, err = store.Append("run", NewEvent("", "run", nil))
	assert.Error(t, err)
	_, err = store.Append("run", nil)
	assert.Error(t, err)
}

func TestMemoryStore_Subscriptions(t *testing.T) {
	store := NewMemoryStore(logr.Discard())

	var solved, everything []string
	solvedID, err := store.Subscribe([]string{SolveCompletedEvent}, HandlerFunc(func(e Event) error {
		solved = append(solved, e.Type())
		return nil
	}))
	require.NoError(t, err)
	_, err = store.Subscribe(nil, HandlerFunc(func(e Event) error {
		everything = append(everything, e.Type())
		return errors.New("handler failure")
	}))
	require.NoError(t, err)

	_, err = store.Append("run", NewEvent(ModelBuiltEvent, "run", nil))
	require.NoError(t, err, "handler errors do not fail the append")
	_, err = store.Append("run", NewEvent(SolveCompletedEvent, "run", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{SolveCompletedEvent}, solved)
	assert.Equal(t, []string{ModelBuiltEvent, SolveCompletedEvent}, everything)

	require.NoError(t, store.Unsubscribe(solvedID))
	_, err = store.Append("run", NewEvent(SolveCompletedEvent, "run", nil))
	require.NoError(t, err)
	assert.Len(t, solved, 1)
	assert.Len(t, everything, 3)

	assert.Error(t, store.Unsubscribe(solvedID))
	assert.Error(t, store.Unsubscribe(uuid.New()))
	_, err = store.Subscribe(nil, nil)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	store := NewMemoryStore(logr.Discard())
	run := NewRun(store)
	assert.NotEqual(t, uuid.Nil, run.ID())

	task := testhelpers.MustReferenceTask()
	stats := model.Stats{
		Variables: 16,
		Binaries:  4,
		Rules: []model.RuleCount{
			{Rule: model.LinkageRule, Constraints: 4},
			{Rule: "stock_transition", Constraints: 8},
			{Rule: "hardness", Constraints: 4},
		},
	}

	require.NoError(t, run.ModelBuilt(task, stats))
	require.NoError(t, run.ConstraintsAdded(stats))
	require.NoError(t, run.ObjectiveSet("profit", linear.Maximize))
	require.NoError(t, run.SolveCompleted(-10000, time.Second))
	require.NoError(t, run.SolveFailed(model.StatusInfeasible, nil, time.Second))

	events, err := store.ReadStream(run.ID().String(), 1)
	require.NoError(t, err)
	require.Len(t, events, 5)

	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type()
		assert.Equal(t, i+1, e.Version())
	}
	assert.Equal(t, []string{
		ModelBuiltEvent, ConstraintsAddedEvent, ObjectiveSetEvent, SolveCompletedEvent, SolveFailedEvent,
	}, types)

	built := events[0].Data().(ModelBuilt)
	assert.Equal(t, "2024/01", built.First)
	assert.Equal(t, 2, built.Materials)

	added := events[1].Data().(ConstraintsAdded)
	assert.Equal(t, 12, added.Constraints)
	assert.Len(t, added.Rules, 2)

	assert.Equal(t, "maximize", events[2].Data().(ObjectiveSet).Sense)
	assert.Equal(t, "infeasible", events[4].Data().(SolveFailed).Status)
	assert.Empty(t, events[4].Data().(SolveFailed).Reason)
}
