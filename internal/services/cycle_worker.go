package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/curricula-backend/internal/agents"
	"github.com/yungbote/curricula-backend/internal/observability"
	"github.com/yungbote/curricula-backend/internal/orchestrator"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/realtime"
	"github.com/yungbote/curricula-backend/internal/realtime/bus"
	"github.com/yungbote/curricula-backend/internal/repos"
	"github.com/yungbote/curricula-backend/internal/types"
)

// stageProgress maps orchestrator states to a coarse percentage for clients.
var stageProgress = map[orchestrator.State]int{
	orchestrator.StateIdle:             5,
	orchestrator.StateParallelDispatch: 15,
	orchestrator.StateAwaitingParallel: 40,
	orchestrator.StateSequentialAudit:  70,
	orchestrator.StateCommitting:       90,
	orchestrator.StateDone:             100,
}

// CycleWorkerService claims queued generation cycles and drives the
// orchestrator for each one.
type CycleWorkerService interface {
	StartWorker(ctx context.Context)
}

type cycleWorkerService struct {
	db        *gorm.DB
	log       *logger.Logger
	cycleRepo repos.GenerationCycleRepo
	store     CurriculumStore
	ltm       LTMService
	eventBus  bus.Bus
	latency   *observability.LatencyRecorder

	cfg       orchestrator.Config
	professor agents.Agent
	proctor   agents.Agent
	latex     agents.Agent
	verifier  agents.Agent
	evaluator *agents.Evaluator
}

func NewCycleWorkerService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cycleRepo repos.GenerationCycleRepo,
	store CurriculumStore,
	ltm LTMService,
	eventBus bus.Bus,
	latency *observability.LatencyRecorder,
	cfg orchestrator.Config,
	professor agents.Agent,
	proctor agents.Agent,
	latex agents.Agent,
	verifier agents.Agent,
	evaluator *agents.Evaluator,
) CycleWorkerService {
	return &cycleWorkerService{
		db:        db,
		log:       baseLog.With("service", "CycleWorkerService"),
		cycleRepo: cycleRepo,
		store:     store,
		ltm:       ltm,
		eventBus:  eventBus,
		latency:   latency,
		cfg:       cfg,
		professor: professor,
		proctor:   proctor,
		latex:     latex,
		verifier:  verifier,
		evaluator: evaluator,
	}
}

func (s *cycleWorkerService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		// Worker policy
		const maxAttempts = 5
		retryDelay := 30 * time.Second
		staleRunning := 2 * time.Minute

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cycle, err := s.cycleRepo.ClaimNextRunnable(ctx, nil, maxAttempts, retryDelay, staleRunning)
				if err != nil {
					s.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if cycle == nil {
					continue
				}
				s.processCycle(ctx, cycle)
			}
		}
	}()
}

func (s *cycleWorkerService) broadcast(userID uuid.UUID, event string, data map[string]any) {
	if s.eventBus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.eventBus.Publish(ctx, realtime.CycleEvent{
		Channel: userID.String(),
		Event:   event,
		Data:    data,
	}); err != nil {
		s.log.Warn("event publish failed", "event", event, "error", err)
	}
}

func (s *cycleWorkerService) processCycle(ctx context.Context, cycle *types.GenerationCycle) {
	userID := cycle.UserID
	cycleID := cycle.ID

	fail := func(stage string, err error) {
		now := time.Now()
		_ = s.cycleRepo.UpdateFields(ctx, nil, cycleID, map[string]any{
			"status":        types.CycleStatusFailed,
			"stage":         stage,
			"error":         err.Error(),
			"last_error_at": now,
			"locked_at":     nil,
		})
		s.broadcast(userID, realtime.EventCycleFailed, map[string]any{
			"cycle_id": cycleID,
			"node_id":  cycle.NodeID,
			"stage":    stage,
			"error":    err.Error(),
		})
	}

	progress := func(stage string, pct int) {
		now := time.Now()
		_ = s.cycleRepo.UpdateFields(ctx, nil, cycleID, map[string]any{
			"stage":        stage,
			"progress":     pct,
			"heartbeat_at": now,
		})
		s.broadcast(userID, realtime.EventCycleProgress, map[string]any{
			"cycle_id": cycleID,
			"node_id":  cycle.NodeID,
			"stage":    stage,
			"progress": pct,
		})
	}

	// Background heartbeat so a crash mid-cycle is recoverable by another
	// worker once the heartbeat goes stale.
	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-t.C:
				_ = s.cycleRepo.Heartbeat(hbCtx, nil, cycleID)
			}
		}
	}()

	g, _, err := s.store.LoadByID(ctx, cycle.SessionID)
	if err != nil {
		fail("load", err)
		return
	}

	o := orchestrator.New(s.cfg, orchestrator.Deps{
		Professor: s.professor,
		Proctor:   s.proctor,
		LaTeX:     s.latex,
		Verifier:  s.verifier,
		Evaluator: s.evaluator,
		LTM:       s.ltm,
		Store:     s.store,
		Latency:   s.latency,
		Log:       s.log,
		OnState: func(state orchestrator.State, nodeID string) {
			if pct, ok := stageProgress[state]; ok {
				progress(string(state), pct)
			}
		},
	})

	res, err := o.RunCycle(ctx, g, userID, cycle.NodeID)
	if err != nil {
		fail("cycle", err)
		return
	}

	rawResult, mErr := json.Marshal(res)
	if mErr != nil {
		rawResult = []byte(`{}`)
	}
	if err := s.cycleRepo.UpdateFields(ctx, nil, cycleID, map[string]any{
		"status":    types.CycleStatusSucceeded,
		"stage":     string(orchestrator.StateDone),
		"progress":  100,
		"error":     "",
		"locked_at": nil,
		"result":    rawResult,
	}); err != nil {
		s.log.Warn("record cycle success failed", "cycle_id", cycleID, "error", err)
	}

	s.broadcast(userID, realtime.EventCycleSucceeded, map[string]any{
		"cycle_id":    cycleID,
		"node_id":     res.NodeID,
		"final_label": res.FinalLabel,
		"flagged":     res.Flagged,
	})
	s.broadcast(userID, realtime.EventCurriculumUpdated, map[string]any{
		"session_id": cycle.SessionID,
		"node_id":    res.NodeID,
	})
}
