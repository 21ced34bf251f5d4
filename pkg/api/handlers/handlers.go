// Package handlers implements the request handlers of the indexopt API.
package handlers

import (
	"context"
	"time"

	"github.com/ethpandaops/indexopt/pkg/scheduler"
	"github.com/ethpandaops/indexopt/pkg/selector"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// StatusProvider exposes the scheduler state
type StatusProvider interface {
	IsRunning() bool
	IsLeader() bool
	NextRun() *time.Time
	LastRun() *scheduler.RunRecord
}

// Planner computes the decisions a run would make right now
type Planner interface {
	Plan(ctx context.Context) ([]selector.Decision, error)
}

// Server serves the API routes
type Server struct {
	status  StatusProvider
	planner Planner
	log     logrus.FieldLogger
}

// NewServer creates a new API server instance
func NewServer(status StatusProvider, planner Planner, log logrus.FieldLogger) *Server {
	return &Server{
		status:  status,
		planner: planner,
		log:     log.WithField("component", "api.handlers"),
	}
}

// Register mounts every route on router
func (s *Server) Register(router fiber.Router) {
	router.Get("/status", s.GetStatus)
	router.Get("/plan", s.GetPlan)
}
