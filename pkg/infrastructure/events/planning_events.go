package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/domain/linear"
	"github.com/vsinha/blendplan/pkg/optimization/model"
)

const (
	ModelBuiltEvent       = "model.built"
	ConstraintsAddedEvent = "constraints.added"
	ObjectiveSetEvent     = "objective.set"
	SolveCompletedEvent   = "solve.completed"
	SolveFailedEvent      = "solve.failed"
)

type ModelBuilt struct {
	First     string `json:"first"`
	Last      string `json:"last"`
	Materials int    `json:"materials"`
	Variables int    `json:"variables"`
	Binaries  int    `json:"binaries"`
}

type ConstraintsAdded struct {
	Rules       []model.RuleCount `json:"rules"`
	Constraints int               `json:"constraints"`
}

type ObjectiveSet struct {
	Objective string `json:"objective"`
	Sense     string `json:"sense"`
}

type SolveCompleted struct {
	Status    string        `json:"status"`
	Objective float64       `json:"objective"`
	Elapsed   time.Duration `json:"elapsed"`
}

type SolveFailed struct {
	Status  string        `json:"status"`
	Reason  string        `json:"reason,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Run appends the events of one planning run to a stream named by a
// fresh run id.
type Run struct {
	id    uuid.UUID
	store Store
}

func NewRun(store Store) *Run {
	return &Run{id: uuid.New(), store: store}
}

func (r *Run) ID() uuid.UUID {
	return r.id
}

func (r *Run) emit(eventType string, data any) error {
	if _, err := r.store.Append(r.id.String(), NewEvent(eventType, r.id.String(), data)); err != nil {
		return fmt.Errorf("failed to record %s: %w", eventType, err)
	}
	return nil
}

func (r *Run) ModelBuilt(task *entities.Task, stats model.Stats) error {
	return r.emit(ModelBuiltEvent, ModelBuilt{
		First:     task.First().String(),
		Last:      task.Last().String(),
		Materials: len(task.Materials()),
		Variables: stats.Variables,
		Binaries:  stats.Binaries,
	})
}

// ConstraintsAdded records the rule counts without the linkage rows,
// which ModelBuilt already covers.
func (r *Run) ConstraintsAdded(stats model.Stats) error {
	data := ConstraintsAdded{}
	for _, rc := range stats.Rules {
		if rc.Rule == model.LinkageRule {
			continue
		}
		data.Rules = append(data.Rules, rc)
		data.Constraints += rc.Constraints
	}
	return r.emit(ConstraintsAddedEvent, data)
}

func (r *Run) ObjectiveSet(objective string, sense linear.ObjectiveSense) error {
	return r.emit(ObjectiveSetEvent, ObjectiveSet{Objective: objective, Sense: sense.String()})
}

func (r *Run) SolveCompleted(objective float64, elapsed time.Duration) error {
	return r.emit(SolveCompletedEvent, SolveCompleted{
		Status:    model.StatusOptimal.String(),
		Objective: objective,
		Elapsed:   elapsed,
	})
}

func (r *Run) SolveFailed(status model.Status, cause error, elapsed time.Duration) error {
	data := SolveFailed{Status: status.String(), Elapsed: elapsed}
	if cause != nil {
		data.Reason = cause.Error()
	}
	return r.emit(SolveFailedEvent, data)
}
