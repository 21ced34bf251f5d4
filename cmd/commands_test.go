package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethpandaops/indexopt/internal/testutil"
	"github.com/ethpandaops/indexopt/pkg/selector"
	"github.com/ethpandaops/indexopt/pkg/timestamp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recentIndex names today's daily index, which any positive window selects
func recentIndex() string {
	return "logstash-" + time.Now().Format("2006.01.02")
}

func newTestConfig(t *testing.T, cluster *testutil.ElasticsearchCluster) *Config {
	t.Helper()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	cfg.Elasticsearch.URL = cluster.Start(t)
	cfg.Selector.DaysToOptimize = 2
	cfg.Server.MetricsAddr = ""

	require.NoError(t, cfg.Validate())

	return cfg
}

func TestOptimizeOnce(t *testing.T) {
	cluster := testutil.NewElasticsearchCluster(recentIndex(), "logstash-2014.01.01", ".kibana")
	cfg := newTestConfig(t, cluster)
	log, _ := test.NewNullLogger()

	summary, err := optimizeOnce(context.Background(), log, cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Considered)
	assert.Equal(t, 1, summary.Optimized)
	assert.Equal(t, []string{recentIndex()}, cluster.Merged())
}

func TestOptimizeOnce_DryRun(t *testing.T) {
	cluster := testutil.NewElasticsearchCluster(recentIndex())
	cfg := newTestConfig(t, cluster)
	cfg.DryRun = true
	log, _ := test.NewNullLogger()

	summary, err := optimizeOnce(context.Background(), log, cfg)
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Selected)
	assert.Empty(t, cluster.Merged())
}

func TestOptimizeOnce_ClusterDown(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	cfg.Elasticsearch.URL = "http://127.0.0.1:1"
	cfg.Selector.DaysToOptimize = 1

	log, _ := test.NewNullLogger()

	_, err = optimizeOnce(context.Background(), log, cfg)
	require.Error(t, err)
}

func TestPrintDecisions(t *testing.T) {
	cfg := selector.Config{Prefix: "logstash-", Separator: ".", DaysToOptimize: 2}
	now := time.Date(2014, time.January, 11, 12, 0, 0, 0, time.UTC)

	names := []string{"logstash-2014.01.10", "logstash-2014.01.01", "logstash-2014.01.10.05", "logstash-bogus", ".kibana"}
	decisions := make([]selector.Decision, 0, len(names))

	for d := range selector.Select(names, cfg, now) {
		decisions = append(decisions, d)
	}

	var out bytes.Buffer
	require.NoError(t, printDecisions(&out, decisions))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)

	assert.Equal(t, []string{"INDEX", "GRANULARITY", "OUTCOME", "OFFSET"}, strings.Fields(lines[0]))

	rows := make(map[string][]string, len(lines)-1)
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		rows[fields[0]] = fields
	}

	assert.Equal(t, []string{".kibana", "-", selector.OutcomeMissingPrefix.String(), "-"}, rows[".kibana"])
	assert.Equal(t, []string{"logstash-bogus", "-", selector.OutcomeInvalidTimestamp.String(), "-"}, rows["logstash-bogus"])
	assert.Equal(t, []string{"logstash-2014.01.10.05", timestamp.Hourly.String(), selector.OutcomeUnconfiguredGranularity.String(), "-"}, rows["logstash-2014.01.10.05"])
	assert.Equal(t, []string{"logstash-2014.01.10", timestamp.Daily.String(), selector.OutcomeSelected.String(), "-15h0m0s"}, rows["logstash-2014.01.10"])
	assert.Equal(t, []string{"logstash-2014.01.01", timestamp.Daily.String(), selector.OutcomeAboveCutoff.String(), "201h0m0s"}, rows["logstash-2014.01.01"])
}

func TestServeSchedule(t *testing.T) {
	cluster := testutil.NewElasticsearchCluster(recentIndex())
	cfg := newTestConfig(t, cluster)
	cfg.Scheduler.Schedule = "0 0 1 1 *"
	cfg.Scheduler.RunOnStart = true
	cfg.Server.ShutdownTimeout = time.Second

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- serveSchedule(ctx, log, cfg)
	}()

	require.Eventually(t, func() bool {
		return len(cluster.Merged()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not shut down")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

func TestServeSchedule_API(t *testing.T) {
	cluster := testutil.NewElasticsearchCluster(recentIndex(), ".kibana")
	cfg := newTestConfig(t, cluster)
	cfg.Scheduler.Schedule = "0 0 1 1 *"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.API.Enabled = true
	cfg.API.Addr = freeAddr(t)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- serveSchedule(ctx, log, cfg)
	}()

	base := "http://" + cfg.API.Addr + "/api/v1"

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/status") //nolint:noctx // test request
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/plan?outcome=selected") //nolint:noctx // test request
	require.NoError(t, err)

	var plan struct {
		Decisions []struct {
			Index string `json:"index"`
		} `json:"decisions"`
		Total int `json:"total"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plan))
	require.NoError(t, resp.Body.Close())

	require.Equal(t, 1, plan.Total)
	assert.Equal(t, recentIndex(), plan.Decisions[0].Index)
	assert.Empty(t, cluster.Merged(), "planning must not merge")

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not shut down")
	}
}

func TestServeSchedule_LeaderElection(t *testing.T) {
	mr, redisURL := testutil.NewMiniredisURL(t)

	cluster := testutil.NewElasticsearchCluster(recentIndex())
	cfg := newTestConfig(t, cluster)
	cfg.Scheduler.Schedule = "0 0 1 1 *"
	cfg.Redis.URL = redisURL

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- serveSchedule(ctx, log, cfg)
	}()

	require.Eventually(t, func() bool {
		return mr.Exists(cfg.Redis.PrefixKey(leaderKey))
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not shut down")
	}

	assert.False(t, mr.Exists(cfg.Redis.PrefixKey(leaderKey)), "leader lock should be released on shutdown")
}

func TestDispatchAndWorker(t *testing.T) {
	_, redisURL := testutil.NewMiniredisURL(t)

	cluster := testutil.NewElasticsearchCluster(recentIndex(), "logstash-2014.01.01")
	cfg := newTestConfig(t, cluster)
	cfg.Redis.URL = redisURL
	cfg.Worker.Dispatch = true
	cfg.Server.ShutdownTimeout = time.Second
	require.NoError(t, cfg.Validate())

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	summary, err := optimizeOnce(context.Background(), log, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Enqueued)
	assert.Empty(t, cluster.Merged(), "dispatching must leave the merge to a worker")

	require.NoError(t, validateWorkerConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- serveWorker(ctx, log, cfg)
	}()

	require.Eventually(t, func() bool {
		return len(cluster.Merged()) == 1
	}, 10*time.Second, 50*time.Millisecond)

	assert.Equal(t, []string{recentIndex()}, cluster.Merged())

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("worker did not shut down")
	}
}

func TestValidateWorkerConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	// no retention window is needed, but Redis is
	require.ErrorIs(t, validateWorkerConfig(cfg), ErrRedisRequired)

	cfg.Redis.URL = "redis://localhost:6379"
	require.NoError(t, validateWorkerConfig(cfg))

	cfg.Worker.Concurrency = 0
	require.Error(t, validateWorkerConfig(cfg))
}
