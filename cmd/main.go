package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/curricula-backend/internal/agents"
	"github.com/yungbote/curricula-backend/internal/db"
	"github.com/yungbote/curricula-backend/internal/handlers"
	"github.com/yungbote/curricula-backend/internal/middleware"
	"github.com/yungbote/curricula-backend/internal/observability"
	"github.com/yungbote/curricula-backend/internal/orchestrator"
	"github.com/yungbote/curricula-backend/internal/platform/envutil"
	"github.com/yungbote/curricula-backend/internal/platform/logger"
	"github.com/yungbote/curricula-backend/internal/platform/neo4jdb"
	"github.com/yungbote/curricula-backend/internal/platform/openai"
	"github.com/yungbote/curricula-backend/internal/platform/texrender"
	"github.com/yungbote/curricula-backend/internal/realtime/bus"
	"github.com/yungbote/curricula-backend/internal/repos"
	"github.com/yungbote/curricula-backend/internal/server"
	"github.com/yungbote/curricula-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Tracing
	shutdownTracing := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "curricula-backend",
		Environment: logMode,
	})
	defer shutdownTracing(ctx)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	sessionRepo := repos.NewCurriculumSessionRepo(thePG, log)
	attemptRepo := repos.NewQuizAttemptRepo(thePG, log)
	cycleRepo := repos.NewGenerationCycleRepo(thePG, log)

	// Optional graph mirror
	graphMirror, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j init failed, mirroring disabled", "error", err)
		graphMirror = nil
	}

	// Event bus
	var eventBus bus.Bus
	if os.Getenv("REDIS_ADDR") != "" {
		eventBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis bus init failed, events disabled", "error", err)
			eventBus = bus.NewNopBus()
		}
	} else {
		eventBus = bus.NewNopBus()
	}
	defer eventBus.Close()

	// Agents
	log.Info("Setting up agents...")
	aiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}
	renderer, err := texrender.NewRenderer(log)
	if err != nil {
		log.Error("Could not init formula renderer", "error", err)
		os.Exit(1)
	}
	architect := agents.NewArchitect(aiClient, log)
	professor := agents.NewProfessor(aiClient, log)
	proctor := agents.NewProctor(aiClient, log)
	latex := agents.NewLaTeX(aiClient, renderer, log)
	verifier := agents.NewVerifier(aiClient, log)
	evaluator := agents.NewEvaluator(aiClient, log)

	// Services
	log.Info("Setting up services...")
	latency := observability.NewLatencyRecorder()
	store := services.NewCurriculumStore(thePG, sessionRepo, graphMirror, log)
	ltmService := services.NewLTMService(attemptRepo, log)
	authService, err := services.NewAuthService(thePG, log, userRepo)
	if err != nil {
		log.Error("Could not init AuthService", "error", err)
		os.Exit(1)
	}
	curriculumService := services.NewCurriculumService(store, cycleRepo, architect, log)
	gradingService := services.NewGradingService(store, attemptRepo, cycleRepo, evaluator, log)

	cycleCfg, err := orchestrator.LoadConfig(log)
	if err != nil {
		log.Error("Could not load orchestrator config", "error", err)
		os.Exit(1)
	}
	worker := services.NewCycleWorkerService(
		thePG,
		log,
		cycleRepo,
		store,
		ltmService,
		eventBus,
		latency,
		cycleCfg,
		professor,
		proctor,
		latex,
		verifier,
		evaluator,
	)
	worker.StartWorker(ctx)

	// Handlers
	log.Info("Setting up handlers...")
	authHandler := handlers.NewAuthHandler(log, authService)
	curriculumHandler := handlers.NewCurriculumHandler(log, curriculumService, gradingService)
	cycleHandler := handlers.NewCycleHandler(log, cycleRepo, latency)
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		CurriculumHandler: curriculumHandler,
		CycleHandler:      cycleHandler,
	})

	port := envutil.String("PORT", "8080")
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
