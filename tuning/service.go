package tuning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/tuneflow/balance"
	"github.com/BaSui01/tuneflow/control"
	"github.com/BaSui01/tuneflow/types"
)

const instrumentationName = "github.com/BaSui01/tuneflow/tuning"

// MetricsRecorder receives service-level observations.
type MetricsRecorder interface {
	RecordAdjustment(scope string, algorithm Algorithm, changes, skipped int)
	RecordConflict(operation string)
	RecordSelection(strategyID string, score float64)
	RecordFeedback(status FeedbackStatus, gap float64)
	RecordControlState(state control.State)
}

type nopRecorder struct{}

func (nopRecorder) RecordAdjustment(string, Algorithm, int, int) {}
func (nopRecorder) RecordConflict(string)                        {}
func (nopRecorder) RecordSelection(string, float64)              {}
func (nopRecorder) RecordFeedback(FeedbackStatus, float64)       {}
func (nopRecorder) RecordControlState(control.State)             {}

// ServiceConfig configures Service.
type ServiceConfig struct {
	Policy  Policy
	Control control.Policy
	Balance balance.Policy
	// ConflictRetries is how many times a catalog write is recomputed after
	// losing an optimistic version race.
	ConflictRetries int
	RetryBackoff    time.Duration
	// FeedbackLimit caps stored feedback records read per agent for bias.
	FeedbackLimit int
}

// DefaultServiceConfig returns the stock service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Policy:          DefaultPolicy(),
		Control:         control.DefaultPolicy(),
		Balance:         balance.DefaultPolicy(),
		ConflictRetries: 3,
		RetryBackoff:    20 * time.Millisecond,
		FeedbackLimit:   10,
	}
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithRandomSource replaces the seeded source used by the adjuster.
func WithRandomSource(src RandomSource) ServiceOption {
	return func(s *Service) { s.rng = src }
}

// WithServiceClock overrides the service clock.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithTracerProvider uses tp instead of the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) ServiceOption {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// Service orchestrates requests: identity check, validation, lookups, the
// pure computation, and the optimistic catalog write.
type Service struct {
	store    Store
	cfg      ServiceConfig
	rng      RandomSource
	now      func() time.Time
	metrics  MetricsRecorder
	validate *validator.Validate
	tracer   trace.Tracer
	logger   *zap.Logger

	adjuster  *Adjuster
	selector  *Selector
	analyzer  *SensitivityAnalyzer
	evaluator *FeedbackEvaluator
	auditor   *balance.Auditor
}

// NewService creates a Service. metrics may be nil.
func NewService(store Store, cfg ServiceConfig, metrics MetricsRecorder, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	s := &Service{
		store:    store,
		cfg:      cfg,
		rng:      NewRand(cfg.Policy.Adjustment.Seed),
		now:      time.Now,
		metrics:  metrics,
		validate: validator.New(),
		tracer:   otel.Tracer(instrumentationName),
		logger:   logger.With(zap.String("component", "tuning_service")),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.adjuster = NewAdjuster(&lockedSource{src: s.rng}, logger).WithClock(s.now)
	s.selector = NewSelector(cfg.Policy.Scoring, logger)
	s.analyzer = NewSensitivityAnalyzer(cfg.Policy.Sensitivity).WithClock(s.now)
	s.evaluator = NewFeedbackEvaluator(cfg.Policy.Feedback).WithClock(s.now)
	s.auditor = balance.NewAuditor(cfg.Balance, logger)
	return s
}

// =============================================================================
// 🎯 Tuning operations
// =============================================================================

// Adjust runs a scoped adjustment over the strategy's associated parameters.
func (s *Service) Adjust(ctx context.Context, req *AdjustRequest) (*AdjustmentResult, error) {
	ctx, span, err := s.begin(ctx, "adjust", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	strategy, err := s.store.GetStrategy(ctx, req.StrategyID)
	if err != nil {
		return nil, s.fail(span, lookupError(err, "strategy", req.StrategyID))
	}
	sample, err := s.store.GetPerformance(ctx, req.PerformanceID)
	if err != nil {
		return nil, s.fail(span, lookupError(err, "performance record", req.PerformanceID))
	}

	c := s.coefficients(sample, req.LearningRate, req.ExplorationRate)
	res, err := s.commit(ctx, "adjust", func(catalog []*Parameter) (*AdjustmentResult, error) {
		return s.adjuster.AdjustScoped(catalog, strategy, req.Algorithm, c)
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.metrics.RecordAdjustment("scoped", req.Algorithm, len(res.Changes), len(res.Skipped))
	span.SetAttributes(attribute.Int("tuning.changes", len(res.Changes)))
	return res, nil
}

// AdjustAll runs an unscoped adjustment over every unlocked parameter.
func (s *Service) AdjustAll(ctx context.Context, req *AdjustAllRequest) (*AdjustmentResult, error) {
	ctx, span, err := s.begin(ctx, "adjust_all", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	sample, err := s.store.GetPerformance(ctx, req.PerformanceID)
	if err != nil {
		return nil, s.fail(span, lookupError(err, "performance record", req.PerformanceID))
	}

	c := s.coefficients(sample, req.LearningRate, req.ExplorationRate)
	res, err := s.commit(ctx, "adjust_all", func(catalog []*Parameter) (*AdjustmentResult, error) {
		return s.adjuster.AdjustAll(catalog, req.Algorithm, c)
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.metrics.RecordAdjustment("all", req.Algorithm, len(res.Changes), len(res.Skipped))
	span.SetAttributes(attribute.Int("tuning.changes", len(res.Changes)))
	return res, nil
}

// SelectStrategy ranks the active strategies.
func (s *Service) SelectStrategy(ctx context.Context, req *SelectRequest) (*Selection, error) {
	ctx, span, err := s.begin(ctx, "select_strategy", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	sel, err := s.selectStrategy(ctx, req.Performance, req.Iteration)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return sel, nil
}

func (s *Service) selectStrategy(ctx context.Context, performance float64, iteration int) (*Selection, error) {
	strategies, err := s.store.ListStrategies(ctx)
	if err != nil {
		return nil, internalError("list strategies", err)
	}
	sel, err := s.selector.Select(strategies, performance, iteration)
	if errors.Is(err, ErrNoActiveStrategy) {
		return nil, types.NewError(types.ErrNotFound, "no active strategies").WithCause(err)
	}
	if err != nil {
		return nil, internalError("select strategy", err)
	}
	s.metrics.RecordSelection(sel.Strategy.ID, sel.Score)
	return sel, nil
}

// Sensitivity ranks parameters by recent impact.
func (s *Service) Sensitivity(ctx context.Context, req *SensitivityRequest) (*SensitivityReport, error) {
	ctx, span, err := s.begin(ctx, "sensitivity", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	catalog, err := s.store.ListParameters(ctx)
	if err != nil {
		return nil, s.fail(span, internalError("list parameters", err))
	}
	return s.analyzer.Analyze(catalog, req.LookbackDays), nil
}

// Evaluate compares a score against the target.
func (s *Service) Evaluate(ctx context.Context, req *FeedbackRequest) (*FeedbackResult, error) {
	ctx, span, err := s.begin(ctx, "evaluate", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	in := FeedbackInput{
		Score:        req.Score,
		LatencyMS:    req.LatencyMS,
		QualityScore: req.QualityScore,
		UserRating:   req.UserRating,
	}
	if req.PerformanceID != "" {
		sample, err := s.store.GetPerformance(ctx, req.PerformanceID)
		if err != nil {
			return nil, s.fail(span, lookupError(err, "performance record", req.PerformanceID))
		}
		in.Score, in.LatencyMS, in.QualityScore = sample.Score, sample.LatencyMS, sample.QualityScore
	}

	res := s.evaluator.Evaluate(in)
	s.metrics.RecordFeedback(res.Status, res.Gap)
	return res, nil
}

// RunCycle selects a strategy for a recorded sample, applies it scoped, and
// evaluates the sample.
func (s *Service) RunCycle(ctx context.Context, req *CycleRequest) (*CycleResult, error) {
	ctx, span, err := s.begin(ctx, "cycle", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	sample, err := s.store.GetPerformance(ctx, req.PerformanceID)
	if err != nil {
		return nil, s.fail(span, lookupError(err, "performance record", req.PerformanceID))
	}
	sel, err := s.selectStrategy(ctx, sample.Score, sample.Iteration)
	if err != nil {
		return nil, s.fail(span, err)
	}

	c := s.coefficients(sample, req.LearningRate, req.ExplorationRate)
	adj, err := s.commit(ctx, "cycle", func(catalog []*Parameter) (*AdjustmentResult, error) {
		return s.adjuster.AdjustScoped(catalog, sel.Strategy, req.Algorithm, c)
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.metrics.RecordAdjustment("scoped", req.Algorithm, len(adj.Changes), len(adj.Skipped))

	fb := s.evaluator.Evaluate(FeedbackInput{
		Score:        sample.Score,
		LatencyMS:    sample.LatencyMS,
		QualityScore: sample.QualityScore,
	})
	s.metrics.RecordFeedback(fb.Status, fb.Gap)

	s.logger.Info("tuning cycle completed",
		zap.String("performance_id", sample.ID),
		zap.String("strategy_id", sel.Strategy.ID),
		zap.Int("changes", len(adj.Changes)),
		zap.String("status", string(fb.Status)))

	return &CycleResult{Selection: sel, Adjustment: adj, Feedback: fb}, nil
}

// =============================================================================
// 📚 Catalog operations
// =============================================================================

// ListParameters returns the catalog.
func (s *Service) ListParameters(ctx context.Context) ([]*Parameter, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	params, err := s.store.ListParameters(ctx)
	if err != nil {
		return nil, internalError("list parameters", err)
	}
	return params, nil
}

// GetParameter returns one parameter with its history.
func (s *Service) GetParameter(ctx context.Context, name string) (*Parameter, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, types.NewValidationError("parameter name is required")
	}
	p, err := s.store.GetParameter(ctx, name)
	if err != nil {
		return nil, lookupError(err, "parameter", name)
	}
	return p, nil
}

// ListStrategies returns the strategy catalog in creation order.
func (s *Service) ListStrategies(ctx context.Context) ([]*Strategy, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	list, err := s.store.ListStrategies(ctx)
	if err != nil {
		return nil, internalError("list strategies", err)
	}
	return list, nil
}

// RecordPerformance stores a benchmark sample and returns it with its ID.
func (s *Service) RecordPerformance(ctx context.Context, req *RecordPerformanceRequest) (*PerformanceSample, error) {
	ctx, span, err := s.begin(ctx, "record_performance", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	sample := &PerformanceSample{
		ID:           uuid.NewString(),
		Score:        req.Score,
		Delta:        req.Delta,
		LatencyMS:    req.LatencyMS,
		QualityScore: req.QualityScore,
		Iteration:    req.Iteration,
		RecordedAt:   s.now(),
	}
	if err := s.store.RecordPerformance(ctx, sample); err != nil {
		return nil, s.fail(span, internalError("record performance", err))
	}
	return sample, nil
}

// RecordAgentFeedback stores a feedback score used as bias reward.
func (s *Service) RecordAgentFeedback(ctx context.Context, req *RecordAgentFeedbackRequest) (*AgentFeedback, error) {
	ctx, span, err := s.begin(ctx, "record_agent_feedback", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	fb := &AgentFeedback{
		ID:         uuid.NewString(),
		AgentID:    req.AgentID,
		Score:      req.Score,
		RecordedAt: s.now(),
	}
	if err := s.store.RecordFeedback(ctx, fb); err != nil {
		return nil, s.fail(span, internalError("record agent feedback", err))
	}
	return fb, nil
}

// =============================================================================
// ⚙️ Control operations
// =============================================================================

// Drive advances the drive signal.
func (s *Service) Drive(ctx context.Context, req *DriveRequest) (*control.DriveResult, error) {
	_, span, err := s.begin(ctx, "drive", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	p := s.cfg.Control.Drive
	if req.Params != nil {
		p = *req.Params
	}
	res := control.UpdateDrive(p, req.Events, req.Now, req.History, s.cfg.Control.HistoryCapacity)
	span.SetAttributes(attribute.Float64("control.drive", res.Drive))
	return &res, nil
}

// Bias computes the bias aggregate.
func (s *Service) Bias(ctx context.Context, req *BiasRequest) (*control.BiasResult, error) {
	ctx, span, err := s.begin(ctx, "bias", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	feedback, err := s.resolveFeedback(ctx, req.Feedback, req.Contributions)
	if err != nil {
		return nil, s.fail(span, err)
	}
	res := control.UpdateBias(req.Contributions, control.NewProfileMap(req.Profiles), feedback, s.cfg.Control.Bias)
	s.logSkippedAgents(res.Skipped)
	return &res, nil
}

// Global integrates the blend weight and returns G(t).
func (s *Service) Global(ctx context.Context, req *GlobalRequest) (*control.GlobalResult, error) {
	_, span, err := s.begin(ctx, "global", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	p := s.cfg.Control.Global
	if req.Params != nil {
		p = *req.Params
	}
	res := control.UpdateGlobal(req.GlobalInput, p)
	return &res, nil
}

// Tick advances drive, bias, and global state together. Drive and the
// feedback-dependent bias are computed concurrently.
func (s *Service) Tick(ctx context.Context, req *TickRequest) (*control.TickResult, error) {
	ctx, span, err := s.begin(ctx, "tick", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	pol := s.cfg.Control
	in := control.TickInput{
		Prior:         req.Prior,
		Now:           req.Now,
		Events:        req.Events,
		Contributions: req.Contributions,
		Profiles:      control.NewProfileMap(req.Profiles),
		Left:          req.Left,
		Right:         req.Right,
		Perturbation:  req.Perturbation,
	}

	var (
		drive control.DriveResult
		bias  control.BiasResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		drive = control.UpdateDrive(pol.Drive, in.Events, in.Now, in.Prior.DriveHistory, pol.HistoryCapacity)
		return nil
	})
	g.Go(func() error {
		feedback, err := s.resolveFeedback(gctx, req.Feedback, req.Contributions)
		if err != nil {
			return err
		}
		in.Feedback = feedback
		bias = control.UpdateBias(in.Contributions, in.Profiles, feedback, pol.Bias)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, s.fail(span, err)
	}
	s.logSkippedAgents(bias.Skipped)

	res := control.Combine(in, drive, bias, pol)
	s.metrics.RecordControlState(res.State)
	s.logger.Debug("control tick",
		zap.Float64("drive", res.State.Drive),
		zap.Float64("bias", res.State.Bias),
		zap.Float64("blend_weight", res.State.BlendWeight),
		zap.Float64("global_state", res.State.Global))
	return &res, nil
}

// Audit runs the post-hoc balance check on a synthesized output.
func (s *Service) Audit(ctx context.Context, req *AuditRequest) (*balance.Report, error) {
	_, span, err := s.begin(ctx, "audit", req)
	if err != nil {
		return nil, err
	}
	defer span.End()

	report, err := s.auditor.Audit(req.Text, req.Statements, req.BlendWeight)
	if err != nil {
		return nil, s.fail(span, types.NewValidationError(err.Error()).WithCause(err))
	}
	return report, nil
}

// =============================================================================
// 🔧 Helpers
// =============================================================================

func (s *Service) authorize(ctx context.Context) error {
	if _, ok := types.CallerID(ctx); !ok {
		return types.NewUnauthorizedError("caller identity required")
	}
	return nil
}

func (s *Service) precheck(ctx context.Context, req any) error {
	if err := s.authorize(ctx); err != nil {
		return err
	}
	if err := s.validate.Struct(req); err != nil {
		return types.NewValidationError(err.Error()).WithCause(err)
	}
	return nil
}

func (s *Service) begin(ctx context.Context, op string, req any) (context.Context, trace.Span, error) {
	if err := s.precheck(ctx, req); err != nil {
		return ctx, nil, err
	}
	caller, _ := types.CallerID(ctx)
	ctx, span := s.tracer.Start(ctx, "tuning."+op,
		trace.WithAttributes(attribute.String("caller.id", caller)))
	return ctx, span, nil
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) coefficients(sample *PerformanceSample, lr, er *float64) Coefficients {
	c := Coefficients{
		Performance:      sample.Score,
		LearningRate:     s.cfg.Policy.Adjustment.LearningRate,
		ExplorationRate:  s.cfg.Policy.Adjustment.ExplorationRate,
		PerformanceDelta: sample.Delta,
	}
	if lr != nil {
		c.LearningRate = *lr
	}
	if er != nil {
		c.ExplorationRate = *er
	}
	return c
}

// commit reads the catalog, computes changes, and writes them with a version
// check, recomputing from a fresh read after each lost race.
func (s *Service) commit(ctx context.Context, op string, compute func([]*Parameter) (*AdjustmentResult, error)) (*AdjustmentResult, error) {
	attempts := max(s.cfg.ConflictRetries, 0) + 1

	for i := 0; i < attempts; i++ {
		catalog, err := s.store.ListParameters(ctx)
		if err != nil {
			return nil, internalError("list parameters", err)
		}
		res, err := compute(catalog)
		if err != nil {
			return nil, types.NewValidationError(err.Error()).WithCause(err)
		}
		if len(res.Changes) == 0 {
			return res, nil
		}

		err = s.store.ApplyAdjustments(ctx, commandsFor(res))
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, internalError("apply adjustments", err)
		}

		s.metrics.RecordConflict(op)
		s.logger.Warn("catalog version conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", attempts))

		// 指数退避
		backoff := time.Duration(1<<uint(i)) * s.cfg.RetryBackoff
		select {
		case <-ctx.Done():
			return nil, internalError("apply adjustments", ctx.Err())
		case <-time.After(backoff):
		}
	}
	return nil, types.NewVersionConflictError(
		fmt.Sprintf("catalog changed concurrently; gave up after %d attempts", attempts))
}

func commandsFor(res *AdjustmentResult) []AdjustmentCommand {
	index := make(map[string]*Parameter, len(res.Parameters))
	for _, p := range res.Parameters {
		index[p.Name] = p
	}
	cmds := make([]AdjustmentCommand, 0, len(res.Changes))
	for _, ch := range res.Changes {
		p := index[ch.Name]
		cmds = append(cmds, AdjustmentCommand{
			Name:            ch.Name,
			ExpectedVersion: ch.ExpectedVersion,
			Record:          p.History[len(p.History)-1],
		})
	}
	return cmds
}

func (s *Service) resolveFeedback(ctx context.Context, supplied []control.FeedbackRecord, contributions []control.Contribution) ([]control.FeedbackRecord, error) {
	if supplied != nil {
		return supplied, nil
	}
	ids := make([]string, 0, len(contributions))
	seen := make(map[string]struct{}, len(contributions))
	for _, c := range contributions {
		if _, ok := seen[c.AgentID]; ok {
			continue
		}
		seen[c.AgentID] = struct{}{}
		ids = append(ids, c.AgentID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	stored, err := s.store.RecentFeedback(ctx, ids, s.cfg.FeedbackLimit)
	if err != nil {
		return nil, internalError("load agent feedback", err)
	}
	out := make([]control.FeedbackRecord, len(stored))
	for i, f := range stored {
		out[i] = control.FeedbackRecord{AgentID: f.AgentID, Score: f.Score}
	}
	return out, nil
}

func (s *Service) logSkippedAgents(ids []string) {
	for _, id := range ids {
		s.logger.Warn("agent profile not found, skipping contribution", zap.String("agent_id", id))
	}
}

func lookupError(err error, kind, id string) error {
	if errors.Is(err, ErrNotFound) {
		return types.NewNotFoundError(kind, id).WithCause(err)
	}
	return internalError("load "+kind, err)
}

func internalError(msg string, err error) error {
	if e, ok := types.AsError(err); ok {
		return e
	}
	return types.NewError(types.ErrInternalError, msg).WithCause(err)
}
