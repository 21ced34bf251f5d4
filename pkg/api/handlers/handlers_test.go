package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethpandaops/indexopt/pkg/optimizer"
	"github.com/ethpandaops/indexopt/pkg/scheduler"
	"github.com/ethpandaops/indexopt/pkg/selector"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errClusterDown = errors.New("cluster down")

type mockStatus struct {
	running bool
	leader  bool
	next    *time.Time
	last    *scheduler.RunRecord
}

func (m *mockStatus) IsRunning() bool               { return m.running }
func (m *mockStatus) IsLeader() bool                { return m.leader }
func (m *mockStatus) NextRun() *time.Time           { return m.next }
func (m *mockStatus) LastRun() *scheduler.RunRecord { return m.last }

type mockPlanner struct {
	decisions []selector.Decision
	err       error
}

func (m *mockPlanner) Plan(_ context.Context) ([]selector.Decision, error) {
	return m.decisions, m.err
}

func newTestApp(status StatusProvider, planner Planner) *fiber.App {
	log := logrus.New()
	log.SetOutput(io.Discard)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	NewServer(status, planner, log).Register(app.Group("/api/v1"))

	return app
}

func doRequest(t *testing.T, app *fiber.App, target string, out any) int {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, http.NoBody))
	require.NoError(t, err)

	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func testDecisions() []selector.Decision {
	cfg := selector.Config{Prefix: "logstash-", Separator: ".", DaysToOptimize: 2}
	now := time.Date(2014, time.January, 11, 12, 0, 0, 0, time.UTC)

	var decisions []selector.Decision
	for d := range selector.Select([]string{"logstash-2014.01.10", "logstash-2014.01.01", ".kibana"}, cfg, now) {
		decisions = append(decisions, d)
	}

	return decisions
}

func TestGetStatus(t *testing.T) {
	next := time.Date(2014, time.January, 11, 13, 0, 0, 0, time.UTC)
	finished := time.Date(2014, time.January, 11, 12, 0, 5, 0, time.UTC)

	tests := []struct {
		name   string
		status *mockStatus
		check  func(t *testing.T, body StatusResponse)
	}{
		{
			name:   "no run yet",
			status: &mockStatus{running: true, leader: true, next: &next},
			check: func(t *testing.T, body StatusResponse) {
				assert.True(t, body.Running)
				assert.True(t, body.Leader)
				require.NotNil(t, body.NextRun)
				assert.True(t, next.Equal(*body.NextRun))
				assert.Nil(t, body.LastRun)
			},
		},
		{
			name: "successful run",
			status: &mockStatus{running: true, leader: true, last: &scheduler.RunRecord{
				FinishedAt: finished,
				Summary: &optimizer.Summary{
					RunID:         "run-1",
					Considered:    3,
					Selected:      2,
					Optimized:     1,
					Failed:        1,
					FailedIndices: []string{"logstash-2014.01.10"},
					Duration:      1500 * time.Millisecond,
				},
			}},
			check: func(t *testing.T, body StatusResponse) {
				require.NotNil(t, body.LastRun)
				assert.Equal(t, "run-1", body.LastRun.RunID)
				assert.Equal(t, 3, body.LastRun.Considered)
				assert.Equal(t, 1, body.LastRun.Failed)
				assert.Equal(t, []string{"logstash-2014.01.10"}, body.LastRun.FailedIndices)
				assert.InDelta(t, 1.5, body.LastRun.DurationSeconds, 0.001)
				assert.Empty(t, body.LastRun.Error)
			},
		},
		{
			name: "failed run",
			status: &mockStatus{running: true, last: &scheduler.RunRecord{
				FinishedAt: finished,
				Err:        errClusterDown,
			}},
			check: func(t *testing.T, body StatusResponse) {
				assert.False(t, body.Leader)
				require.NotNil(t, body.LastRun)
				assert.Equal(t, "cluster down", body.LastRun.Error)
				assert.Empty(t, body.LastRun.RunID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.status, &mockPlanner{})

			var body StatusResponse
			code := doRequest(t, app, "/api/v1/status", &body)

			assert.Equal(t, http.StatusOK, code)
			tt.check(t, body)
		})
	}
}

type planBody struct {
	Decisions []DecisionResponse `json:"decisions"`
	Total     int                `json:"total"`
	Error     string             `json:"error"`
}

func TestGetPlan(t *testing.T) {
	t.Run("all decisions", func(t *testing.T) {
		app := newTestApp(&mockStatus{}, &mockPlanner{decisions: testDecisions()})

		var body planBody
		code := doRequest(t, app, "/api/v1/plan", &body)

		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, 3, body.Total)

		byIndex := make(map[string]DecisionResponse, len(body.Decisions))
		for _, d := range body.Decisions {
			byIndex[d.Index] = d
		}

		kibana := byIndex[".kibana"]
		assert.Equal(t, selector.OutcomeMissingPrefix.String(), kibana.Outcome)
		assert.Empty(t, kibana.Granularity)
		assert.Nil(t, kibana.OffsetSeconds)

		selected := byIndex["logstash-2014.01.10"]
		assert.Equal(t, selector.OutcomeSelected.String(), selected.Outcome)
		assert.Equal(t, "daily", selected.Granularity)
		require.NotNil(t, selected.OffsetSeconds)
		assert.InDelta(t, (-15 * time.Hour).Seconds(), *selected.OffsetSeconds, 0.001)
		assert.NotEmpty(t, selected.Message)
	})

	t.Run("outcome filter", func(t *testing.T) {
		app := newTestApp(&mockStatus{}, &mockPlanner{decisions: testDecisions()})

		var body planBody
		code := doRequest(t, app, "/api/v1/plan?outcome=selected", &body)

		require.Equal(t, http.StatusOK, code)
		require.Equal(t, 1, body.Total)
		assert.Equal(t, "logstash-2014.01.10", body.Decisions[0].Index)
	})

	t.Run("unknown outcome", func(t *testing.T) {
		app := newTestApp(&mockStatus{}, &mockPlanner{decisions: testDecisions()})

		var body planBody
		code := doRequest(t, app, "/api/v1/plan?outcome=bogus", &body)

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, ErrInvalidOutcome.Message, body.Error)
	})

	t.Run("cluster unavailable", func(t *testing.T) {
		app := newTestApp(&mockStatus{}, &mockPlanner{err: errClusterDown})

		var body planBody
		code := doRequest(t, app, "/api/v1/plan", &body)

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, ErrPlanUnavailable.Message, body.Error)
	})

	t.Run("empty cluster", func(t *testing.T) {
		app := newTestApp(&mockStatus{}, &mockPlanner{})

		var body planBody
		code := doRequest(t, app, "/api/v1/plan", &body)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, 0, body.Total)
		assert.NotNil(t, body.Decisions)
	})
}
