// Package planning runs a blending plan end to end: it builds the task
// from the repositories, assembles and solves the model, and reports the
// plan together with its money breakdown.
package planning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/vsinha/blendplan/pkg/application/dto"
	"github.com/vsinha/blendplan/pkg/domain/constraints"
	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/domain/linear"
	"github.com/vsinha/blendplan/pkg/domain/repositories"
	"github.com/vsinha/blendplan/pkg/domain/services"
	"github.com/vsinha/blendplan/pkg/infrastructure/events"
	"github.com/vsinha/blendplan/pkg/infrastructure/export/mps"
	"github.com/vsinha/blendplan/pkg/infrastructure/logging"
	"github.com/vsinha/blendplan/pkg/infrastructure/metrics"
	"github.com/vsinha/blendplan/pkg/infrastructure/solver/gonumlp"
	"github.com/vsinha/blendplan/pkg/optimization/model"
)

// DefaultVerifyTolerance bounds the rule violations tolerated when a
// solution is re-checked
const DefaultVerifyTolerance = 1e-6

// EngineFactory returns a fresh engine for each run
type EngineFactory func() model.Engine

// ServiceConfig holds the collaborators of a Service. Zero fields get
// defaults: the gonum engine, an in-memory event store, no metrics and a
// discarding logger.
type ServiceConfig struct {
	EngineFactory EngineFactory
	Store         events.Store
	Recorder      *metrics.Recorder
	Logger        logr.Logger
}

// Request describes one planning run
type Request struct {
	First, Last entities.Period
	Parameters  entities.Parameters
	// Generators are the constraint rules to apply; nil selects every rule
	Generators []constraints.Generator
	// Timeout bounds the solve; zero means no limit beyond ctx
	Timeout time.Duration
	// StrictBigM turns an unsound big-M into an error instead of a warning
	StrictBigM      bool
	VerifyTolerance float64
	// ExportMPS receives the assembled model before it is solved
	ExportMPS io.Writer
}

// Service runs planning requests against material and price repositories
type Service struct {
	materials repositories.MaterialRepository
	prices    repositories.PriceRepository
	config    ServiceConfig
}

// NewService creates a planning service with the default configuration
func NewService(materials repositories.MaterialRepository, prices repositories.PriceRepository) (*Service, error) {
	return NewServiceWithConfig(materials, prices, ServiceConfig{})
}

// NewServiceWithConfig creates a planning service with custom collaborators
func NewServiceWithConfig(
	materials repositories.MaterialRepository,
	prices repositories.PriceRepository,
	config ServiceConfig,
) (*Service, error) {
	if materials == nil || prices == nil {
		return nil, fmt.Errorf("material and price repositories are required")
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}
	if config.EngineFactory == nil {
		config.EngineFactory = func() model.Engine { return gonumlp.New() }
	}
	if config.Store == nil {
		config.Store = events.NewMemoryStore(config.Logger)
	}
	return &Service{materials: materials, prices: prices, config: config}, nil
}

// Store returns the event store the service records runs in
func (s *Service) Store() events.Store {
	return s.config.Store
}

// Run plans req. A solve that ends without an optimal plan returns a
// result carrying only the run id, status and statistics together with a
// *model.EngineStatusError, or the engine error itself.
func (s *Service) Run(ctx context.Context, req Request) (*dto.PlanResult, error) {
	run := events.NewRun(s.config.Store)
	logger := s.config.Logger.WithValues("run", run.ID())
	result := &dto.PlanResult{RunID: run.ID(), Status: model.StatusNotSolved.String()}

	task, warnings, err := s.buildTask(req, logger)
	if err != nil {
		return nil, err
	}
	result.Warnings = warnings

	m, err := s.assemble(ctx, task, req, run, logger)
	if err != nil {
		return nil, err
	}
	result.Stats = toStats(m.Stats())

	if req.ExportMPS != nil {
		if err := mps.Write(req.ExportMPS, m.Program()); err != nil {
			return nil, fmt.Errorf("failed to export model: %w", err)
		}
	}

	solveCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	logger.Info("Solving model", "variables", result.Stats.Variables, "constraints", result.Stats.Constraints)
	start := time.Now()
	status, solveErr := m.Solve(solveCtx)
	elapsed := time.Since(start)

	result.Status = status.String()
	result.SolveTime = elapsed
	if s.config.Recorder != nil {
		s.config.Recorder.ObserveSolve(status, elapsed)
	}

	if solveErr != nil || status != model.StatusOptimal {
		s.record(logger, run.SolveFailed(status, solveErr, elapsed))
		if solveErr != nil {
			logger.Error(solveErr, "Solve failed", "status", status)
			return result, solveErr
		}
		logger.Info("Solve finished without a plan", "status", status, "elapsed", elapsed)
		return result, &model.EngineStatusError{Status: status}
	}

	solution, err := m.Solution()
	if err != nil {
		return result, err
	}

	tol := req.VerifyTolerance
	if tol <= 0 {
		tol = DefaultVerifyTolerance
	}
	for _, v := range solution.Verify(task, tol, m.RuleNames()) {
		logger.Info("Plan violates rule", "violation", v.String())
		result.Violations = append(result.Violations, v.String())
	}

	breakdown, err := newBreakdown(task, solution)
	if err != nil {
		return result, err
	}
	if profit := breakdown.Profit.InexactFloat64(); math.Abs(profit-solution.Objective) > 1e-6*math.Max(1, math.Abs(solution.Objective)) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("money breakdown profit %s differs from objective %g", breakdown.Profit, solution.Objective))
	}

	objective := solution.Objective
	result.Objective = &objective
	result.Breakdown = &breakdown
	result.Rows = newRows(task, solution)

	s.record(logger, run.SolveCompleted(objective, elapsed))
	if s.config.Recorder != nil {
		s.config.Recorder.ObserveObjective(objective)
	}
	logger.Info("Plan found", "objective", objective, "elapsed", elapsed)
	return result, nil
}

// Export assembles the model of req and writes it to w without solving
func (s *Service) Export(ctx context.Context, req Request, w io.Writer) error {
	if w == nil {
		return fmt.Errorf("writer cannot be nil")
	}
	run := events.NewRun(s.config.Store)
	logger := s.config.Logger.WithValues("run", run.ID())

	task, _, err := s.buildTask(req, logger)
	if err != nil {
		return err
	}
	m, err := s.assemble(ctx, task, req, run, logger)
	if err != nil {
		return err
	}
	if err := mps.Write(w, m.Program()); err != nil {
		return fmt.Errorf("failed to export model: %w", err)
	}
	return nil
}

func (s *Service) buildTask(req Request, logger logr.Logger) (*entities.Task, []string, error) {
	materials, err := s.materials.GetAllMaterials()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load materials: %w", err)
	}
	prices, err := s.prices.GetMarketPrices()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load market prices: %w", err)
	}

	task, err := entities.BuildTask(req.First, req.Last, materials, prices, entities.WithParameters(req.Parameters))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build planning task: %w", err)
	}

	check := services.NewDatasetValidator().Validate(task, prices)
	if !check.Valid() {
		missing := check.MissingPrices[0]
		return nil, nil, fmt.Errorf("%s: %w", strings.Join(check.Errors, "; "),
			&entities.LookupError{Period: missing.Period, Material: missing.Material})
	}
	for _, w := range check.Warnings {
		logger.Info("Dataset warning", "warning", w)
	}
	warnings := check.Warnings

	if err := task.CheckBigM(); err != nil {
		var unsound *entities.UnsoundBigMWarning
		if req.StrictBigM || !errors.As(err, &unsound) {
			return nil, nil, err
		}
		logger.Info("Big-M is below a refine capacity, the linkage may cut off feasible plans",
			"bigM", unsound.BigM, "category", unsound.Category, "capacity", unsound.Capacity)
		warnings = append(warnings, err.Error())
	}
	return task, warnings, nil
}

func (s *Service) assemble(ctx context.Context, task *entities.Task, req Request, run *events.Run, logger logr.Logger) (*model.Model, error) {
	m, err := model.Build(task, s.config.EngineFactory())
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}
	s.record(logger, run.ModelBuilt(task, m.Stats()))
	logger.V(logging.DEBUG).Info("Model built",
		"periods", len(task.Horizon()), "materials", len(task.Materials()), "variables", m.Stats().Variables)

	gens := req.Generators
	if gens == nil {
		gens = constraints.All(constraints.DefaultEps)
	}
	if err := m.AddConstraints(ctx, gens...); err != nil {
		return nil, fmt.Errorf("failed to add constraints: %w", err)
	}
	stats := m.Stats()
	s.record(logger, run.ConstraintsAdded(stats))
	for _, rc := range stats.Rules {
		logger.V(logging.DEBUG).Info("Constraints added", "rule", rc.Rule, "count", rc.Constraints)
	}

	if err := m.SetObjective(model.ProfitObjective{}); err != nil {
		return nil, err
	}
	s.record(logger, run.ObjectiveSet("profit", linear.Maximize))

	if s.config.Recorder != nil {
		s.config.Recorder.ObserveModel(stats)
	}
	return m, nil
}

// record logs a failed event append; the audit trail never fails a run
func (s *Service) record(logger logr.Logger, err error) {
	if err != nil {
		logger.Error(err, "Failed to record planning event")
	}
}

func toStats(stats model.Stats) dto.ModelStats {
	out := dto.ModelStats{
		Variables:   stats.Variables,
		Binaries:    stats.Binaries,
		Constraints: stats.Constraints,
		Rules:       make([]dto.RuleStat, len(stats.Rules)),
	}
	for i, rc := range stats.Rules {
		out.Rules[i] = dto.RuleStat{Rule: rc.Rule, Constraints: rc.Constraints}
	}
	return out
}
