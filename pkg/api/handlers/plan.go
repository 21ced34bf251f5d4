package handlers

import (
	"github.com/ethpandaops/indexopt/pkg/selector"
	"github.com/gofiber/fiber/v3"
)

//nolint:gochecknoglobals // fixed lookup table
var outcomes = []selector.Outcome{
	selector.OutcomeSelected,
	selector.OutcomeMissingPrefix,
	selector.OutcomeInvalidTimestamp,
	selector.OutcomeUnconfiguredGranularity,
	selector.OutcomeAboveCutoff,
}

// GetPlan handles GET /api/v1/plan. The optional outcome query parameter
// restricts the response to one outcome, e.g. ?outcome=selected.
func (s *Server) GetPlan(c fiber.Ctx) error {
	filter, err := parseOutcome(c.Query("outcome"))
	if err != nil {
		return err
	}

	decisions, err := s.planner.Plan(c.Context())
	if err != nil {
		s.log.WithError(err).Warn("Failed to compute plan")

		return ErrPlanUnavailable
	}

	items := make([]DecisionResponse, 0, len(decisions))

	for _, d := range decisions {
		if filter != nil && d.Outcome != *filter {
			continue
		}

		items = append(items, decisionResponse(d))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"decisions": items,
		"total":     len(items),
	})
}

func parseOutcome(value string) (*selector.Outcome, error) {
	if value == "" {
		return nil, nil
	}

	for _, o := range outcomes {
		if o.String() == value {
			return &o, nil
		}
	}

	return nil, ErrInvalidOutcome
}

func decisionResponse(d selector.Decision) DecisionResponse {
	response := DecisionResponse{
		Index:   d.Index,
		Outcome: d.Outcome.String(),
		Message: d.Message(),
	}

	if d.Outcome == selector.OutcomeMissingPrefix || d.Outcome == selector.OutcomeInvalidTimestamp {
		return response
	}

	response.Granularity = d.Granularity.String()

	if d.Outcome == selector.OutcomeUnconfiguredGranularity {
		return response
	}

	ts, cutoff := d.Timestamp, d.Cutoff
	offset := d.Offset.Seconds()

	response.Timestamp = &ts
	response.Cutoff = &cutoff
	response.OffsetSeconds = &offset

	return response
}
