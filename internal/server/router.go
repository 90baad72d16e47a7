package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/curricula-backend/internal/handlers"
	"github.com/yungbote/curricula-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	CurriculumHandler *handlers.CurriculumHandler
	CycleHandler      *handlers.CycleHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	api.POST("/curricula", cfg.CurriculumHandler.Create)
	api.GET("/curricula", cfg.CurriculumHandler.List)
	api.GET("/curricula/:topic", cfg.CurriculumHandler.Get)
	api.GET("/curricula/:topic/dot", cfg.CurriculumHandler.GetDOT)
	api.POST("/curricula/:topic/modules/:nodeId/start", cfg.CurriculumHandler.StartModule)
	api.POST("/curricula/:topic/quiz", cfg.CurriculumHandler.SubmitQuiz)

	api.GET("/cycles/:id", cfg.CycleHandler.Get)
	api.GET("/metrics/latencies", cfg.CycleHandler.Latencies)

	return router
}
