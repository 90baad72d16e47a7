package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/curricula-backend/internal/agents"
	"github.com/yungbote/curricula-backend/internal/curriculum"
	"github.com/yungbote/curricula-backend/internal/observability"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
)

// State is the phase of one generation cycle.
type State string

const (
	StateIdle             State = "idle"
	StateParallelDispatch State = "parallel_dispatch"
	StateAwaitingParallel State = "awaiting_parallel"
	StateSequentialAudit  State = "sequential_audit"
	StateCommitting       State = "committing"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Persister saves the committed graph. The cycle is not done until it
// returns.
type Persister interface {
	Save(ctx context.Context, userID uuid.UUID, graph *curriculum.Graph) error
}

// LTM reads the learner's recent quiz history for a topic.
type LTM interface {
	FetchRecentAttempts(ctx context.Context, userID uuid.UUID, topic string, limit int) ([]agents.AttemptSummary, error)
}

// Deps are the collaborators one Orchestrator drives.
type Deps struct {
	Professor agents.Agent
	Proctor   agents.Agent
	LaTeX     agents.Agent
	Verifier  agents.Agent
	Evaluator *agents.Evaluator
	LTM       LTM
	Store     Persister
	Latency   *observability.LatencyRecorder
	Log       *logger.Logger

	// OnState, when set, observes every state transition. Used to push
	// progress events, never to influence the cycle.
	OnState func(state State, nodeID string)
}

// CycleResult reports what a finished cycle committed.
type CycleResult struct {
	State           State
	NodeID          string
	FinalLabel      string
	Flagged         bool
	RiskScore       float64
	MissingQuiz     bool
	MissingEquation bool
	Elapsed         time.Duration
}

// Orchestrator runs the multi-agent generation cycle for one curriculum
// node: professor, proctor and latex in parallel, then verifier and
// evaluator in sequence, then a single atomic commit plus save.
type Orchestrator struct {
	cfg  Config
	deps Deps
	log  *logger.Logger
}

func New(cfg Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		cfg:  cfg,
		deps: deps,
		log:  deps.Log.With("service", "Orchestrator"),
	}
}

func (o *Orchestrator) setState(s State, nodeID string) {
	o.log.Debug("cycle state", "state", string(s), "node_id", nodeID)
	if o.deps.OnState != nil {
		o.deps.OnState(s, nodeID)
	}
}

// RunCycle generates content for nodeID and commits it to g. A failed cycle
// leaves g identical to its pre-cycle snapshot.
func (o *Orchestrator) RunCycle(ctx context.Context, g *curriculum.Graph, userID uuid.UUID, nodeID string) (*CycleResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.cfg.CycleTimeout)
	defer cancel()

	ctx, span := observability.Tracer().Start(ctx, "orchestrator.RunCycle")
	span.SetAttributes(
		attribute.String("node_id", nodeID),
		attribute.String("user_id", userID.String()),
	)
	defer span.End()

	o.setState(StateIdle, nodeID)

	node, err := g.Node(nodeID)
	if err != nil {
		o.setState(StateFailed, nodeID)
		return nil, err
	}
	preCycle := g.Snapshot()

	history, err := o.deps.LTM.FetchRecentAttempts(ctx, userID, g.Topic(), o.cfg.LTMLimit)
	if err != nil {
		// History only personalizes; a read failure never blocks generation.
		o.log.Warn("ltm fetch failed, generating without history", "error", err)
		history = nil
	}

	req := agents.Request{
		Topic:          g.Topic(),
		NodeID:         node.ID,
		NodeLabel:      node.Label,
		LearnerContext: g.Context(),
		History:        history,
	}

	// Parallel stage. Each closure settles into its own slot and returns
	// nil, so one agent's failure never cancels the others.
	o.setState(StateParallelDispatch, nodeID)
	parallel := []agents.Agent{o.deps.Professor, o.deps.Proctor, o.deps.LaTeX}
	outs := make([]*agents.Output, len(parallel))
	errs := make([]error, len(parallel))

	var eg errgroup.Group
	for i, ag := range parallel {
		i, ag := i, ag
		eg.Go(func() error {
			outs[i], errs[i] = o.runAgent(ctx, ag, req)
			return nil
		})
	}
	o.setState(StateAwaitingParallel, nodeID)
	_ = eg.Wait()

	var draft *agents.ContentDraft
	var quiz *agents.QuizDraft
	var equation *agents.RenderedEquation
	for i, out := range outs {
		if errs[i] != nil {
			o.log.Warn("parallel agent failed", "agent", string(parallel[i].Kind()), "error", errs[i])
			continue
		}
		switch {
		case out.Content != nil:
			draft = out.Content
		case out.Quiz != nil:
			quiz = out.Quiz
		case out.Equation != nil:
			equation = out.Equation
		}
	}

	if draft == nil {
		o.setState(StateFailed, nodeID)
		abort := &StageAbortedError{
			State:   StateAwaitingParallel,
			Missing: []agents.Kind{agents.KindProfessor},
			Err:     errs[0],
		}
		span.RecordError(abort)
		return nil, abort
	}
	missingQuiz := quiz == nil
	missingEquation := equation == nil

	// Sequential audit. The verifier hands its result to the evaluator over
	// the one-shot risk channel; if it fails the evaluator sees no signal
	// and assumes maximum risk.
	o.setState(StateSequentialAudit, nodeID)
	auditCtx, auditCancel := context.WithTimeout(ctx, o.cfg.AuditTimeout)
	defer auditCancel()

	riskCh := agents.NewRiskChannel()
	go func() {
		verifyReq := req
		verifyReq.Draft = draft
		out, verr := o.runAgent(auditCtx, o.deps.Verifier, verifyReq)
		if verr != nil || out.Verification == nil {
			o.log.Warn("verifier failed, evaluator will assume max risk", "error", verr)
			riskCh.Fail()
			return
		}
		riskCh.Send(out.Verification)
	}()

	// Receive yields ErrNoSignal on failure or expiry; Decide treats a nil
	// result as the conservative risk 1.0 default.
	verification, _ := riskCh.Receive(auditCtx)
	decision := o.deps.Evaluator.Decide(verification, node.Label)

	// Commit: label decision plus generated content land on the node in one
	// mutation, then the graph is persisted. A failed save rolls the commit
	// back so callers never observe a half-applied cycle.
	o.setState(StateCommitting, nodeID)
	content := curriculum.CycleContent{
		Label:              decision.FinalLabel,
		Content:            draft.Text,
		RiskScore:          decision.RiskScore,
		NeedsQuizRegen:     missingQuiz,
		NeedsEquationRegen: missingEquation,
	}
	if quiz != nil {
		content.Quiz = quiz.Items
	}
	if equation != nil && !equation.Artifact.Empty() {
		content.Equation = &curriculum.Equation{
			Markup:   equation.Artifact.Markup,
			PNG:      equation.Artifact.PNG,
			MimeType: equation.Artifact.MimeType,
			Width:    equation.Artifact.Width,
			Height:   equation.Artifact.Height,
		}
	}
	if err := g.CommitCycle(nodeID, content); err != nil {
		o.setState(StateFailed, nodeID)
		return nil, err
	}
	if err := o.deps.Store.Save(ctx, userID, g); err != nil {
		if rerr := g.Restore(preCycle); rerr != nil {
			o.log.Error("rollback after failed save also failed", "error", rerr)
		}
		o.setState(StateFailed, nodeID)
		return nil, fmt.Errorf("persist cycle: %w", err)
	}

	elapsed := time.Since(start)
	if o.deps.Latency != nil {
		o.deps.Latency.Record(node.Label, elapsed)
	}
	o.setState(StateDone, nodeID)
	o.log.Info("cycle done",
		"node_id", nodeID,
		"flagged", decision.ShouldFlag,
		"risk", decision.RiskScore,
		"missing_quiz", missingQuiz,
		"missing_equation", missingEquation,
		"elapsed", elapsed,
	)

	return &CycleResult{
		State:           StateDone,
		NodeID:          nodeID,
		FinalLabel:      decision.FinalLabel,
		Flagged:         decision.ShouldFlag,
		RiskScore:       decision.RiskScore,
		MissingQuiz:     missingQuiz,
		MissingEquation: missingEquation,
		Elapsed:         elapsed,
	}, nil
}

// runAgent invokes one agent with a per-attempt timeout. Generation failures
// retry with doubling backoff up to MaxAgentRetries; timeouts do not retry,
// the cycle budget is already spent.
func (o *Orchestrator) runAgent(ctx context.Context, ag agents.Agent, req agents.Request) (*agents.Output, error) {
	var lastErr error
	for attempt := 0; attempt <= o.cfg.MaxAgentRetries; attempt++ {
		if attempt > 0 {
			backoff := o.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, &agents.TimeoutError{Agent: ag.Kind(), Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AgentTimeout)
		out, err := ag.Run(attemptCtx, req)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err

		var genErr *agents.GenerationError
		if !errors.As(err, &genErr) {
			return nil, err
		}
		o.log.Warn("agent attempt failed", "agent", string(ag.Kind()), "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}
