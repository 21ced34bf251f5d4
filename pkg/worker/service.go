package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethpandaops/indexopt/pkg/tasks"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Service consumes force-merge tasks until stopped
type Service struct {
	config   *Config
	log      logrus.FieldLogger
	redisOpt asynq.RedisConnOpt
	handler  *tasks.TaskHandler

	mu      sync.Mutex
	server  *asynq.Server
	running bool
}

// NewService creates a new worker service
func NewService(log logrus.FieldLogger, cfg *Config, redisOpt asynq.RedisConnOpt, handler *tasks.TaskHandler) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Service{
		log:      log.WithField("component", "worker"),
		config:   cfg,
		redisOpt: redisOpt,
		handler:  handler,
	}, nil
}

// Start starts processing tasks in the background
func (s *Service) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	srv := asynq.NewServer(s.redisOpt, asynq.Config{
		Concurrency: s.config.Concurrency,
		Queues:      map[string]int{s.config.Queue: 1},
		Logger:      s.log,
		LogLevel:    asynq.WarnLevel,
	})

	mux := asynq.NewServeMux()
	for taskType, handlerFunc := range s.handler.Routes() {
		mux.HandleFunc(taskType, handlerFunc)
	}

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	s.server = srv
	s.running = true

	s.log.WithFields(logrus.Fields{
		"queue":       s.config.Queue,
		"concurrency": s.config.Concurrency,
	}).Info("Worker service started")

	return nil
}

// Stop waits for in-flight tasks and shuts the worker down
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.server.Shutdown()
	s.running = false

	s.log.Info("Worker service stopped")
}

// IsRunning returns true if the worker is processing tasks
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
