package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// GetStatus handles GET /api/v1/status
func (s *Server) GetStatus(c fiber.Ctx) error {
	response := StatusResponse{
		Running: s.status.IsRunning(),
		Leader:  s.status.IsLeader(),
		NextRun: s.status.NextRun(),
	}

	if last := s.status.LastRun(); last != nil {
		run := &RunResponse{FinishedAt: last.FinishedAt}

		if last.Err != nil {
			run.Error = last.Err.Error()
		}

		if summary := last.Summary; summary != nil {
			run.RunID = summary.RunID
			run.Considered = summary.Considered
			run.Selected = summary.Selected
			run.Optimized = summary.Optimized
			run.Enqueued = summary.Enqueued
			run.Failed = summary.Failed
			run.Skipped = summary.Skipped
			run.DryRun = summary.DryRun
			run.FailedIndices = summary.FailedIndices
			run.DurationSeconds = summary.Duration.Seconds()
		}

		response.LastRun = run
	}

	return c.Status(fiber.StatusOK).JSON(response)
}
