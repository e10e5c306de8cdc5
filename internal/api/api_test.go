package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/analyst/internal/engine"
	"github.com/leapstack-labs/analyst/internal/llm"
	"github.com/leapstack-labs/analyst/internal/notifier"
	"github.com/leapstack-labs/analyst/internal/store"
	"github.com/leapstack-labs/analyst/pkg/core"
)

type stubConnector struct {
	mu       sync.Mutex
	res      *core.Result
	err      error
	executed []string
}

func (c *stubConnector) Execute(_ context.Context, sql string, _ time.Duration) (*core.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executed = append(c.executed, sql)
	if c.err != nil {
		return nil, c.err
	}
	out := *c.res
	out.SQL = sql
	return &out, nil
}

func (c *stubConnector) IntrospectSchema(context.Context) (*core.SchemaProfile, error) {
	return &core.SchemaProfile{Tables: []core.TableProfile{
		{Name: "orders", RowCount: 100, Columns: []core.ColumnProfile{
			{Name: "region", Type: "text"},
			{Name: "revenue", Type: "numeric"},
		}},
	}}, nil
}

func (c *stubConnector) Dialect() core.Dialect { return core.DialectPostgres }
func (c *stubConnector) Close() error          { return nil }

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	st := store.NewSQLiteStore(nil)
	require.NoError(t, st.Open(":memory:"))
	t.Cleanup(func() { st.Close() })

	conn := &stubConnector{res: &core.Result{
		Columns:  []string{"region", "revenue"},
		Rows:     [][]any{{"emea", 120.0}, {"apac", 80.0}},
		RowCount: 2,
	}}
	client := &llm.Mock{
		Generations: []llm.MockGeneration{{SQL: "SELECT region, SUM(revenue) AS revenue FROM orders GROUP BY region"}},
		Answer:      "EMEA leads with 120.",
	}

	notif := notifier.New()
	eng, err := engine.New(engine.Config{
		LLM:       client,
		Connector: conn,
		Observer:  ProgressObserver(notif),
	})
	require.NoError(t, err)

	srv := NewServer(Config{
		Engine:   eng,
		Store:    st,
		Notifier: notif,
		Workers:  1,
	})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func submitJob(t *testing.T, ts *httptest.Server, spec core.QuerySpec) submitResponse {
	t.Helper()
	body, err := json.Marshal(spec)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/jobs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out submitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.JobID)
	return out
}

func waitForTerminal(t *testing.T, ts *httptest.Server, jobID string) jobResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/api/jobs/" + jobID)
		require.NoError(t, err)
		var job jobResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
		resp.Body.Close()
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal status", jobID)
	return jobResponse{}
}

func TestSubmitJob_RunsToCompletion(t *testing.T) {
	_, ts := newTestServer(t)

	sub := submitJob(t, ts, core.QuerySpec{
		Question: "revenue by region",
		Dialect:  core.DialectPostgres,
	})
	assert.Equal(t, core.JobQueued, sub.Status)

	job := waitForTerminal(t, ts, sub.JobID)
	assert.Equal(t, core.JobCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "EMEA leads with 120.", job.Result.Answer)
	assert.True(t, job.Result.Quality.Passed)
	assert.NotEmpty(t, job.Result.ExecutionSteps)
	assert.NotEmpty(t, job.Result.Tables)
}

func TestSubmitJob_RejectsInvalidSpecs(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty question", `{"dialect": "postgres"}`},
		{"unknown dialect", `{"question": "revenue by region", "dialect": "oracle"}`},
		{"malformed json", `{"question":`},
	}
	_, ts := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/jobs", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var out errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.NotEmpty(t, out.Error)
		})
	}
}

func TestGetJob_NotFound(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/jobs/no-such-job")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelJob_ConflictWhenTerminal(t *testing.T) {
	_, ts := newTestServer(t)

	sub := submitJob(t, ts, core.QuerySpec{
		Question: "revenue by region",
		Dialect:  core.DialectPostgres,
	})
	waitForTerminal(t, ts, sub.JobID)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/jobs/"+sub.JobID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestJobEvents_ReplaysTerminalJob(t *testing.T) {
	_, ts := newTestServer(t)

	sub := submitJob(t, ts, core.QuerySpec{
		Question: "revenue by region",
		Dialect:  core.DialectPostgres,
	})
	waitForTerminal(t, ts, sub.JobID)

	resp, err := http.Get(ts.URL + "/api/jobs/" + sub.JobID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	body := buf.String()
	assert.Contains(t, body, "event: status")
	assert.Contains(t, body, "event: completion")
	assert.Contains(t, body, sub.JobID)
}

func TestListJobs(t *testing.T) {
	_, ts := newTestServer(t)

	sub := submitJob(t, ts, core.QuerySpec{
		Question: "revenue by region",
		Dialect:  core.DialectPostgres,
	})
	waitForTerminal(t, ts, sub.JobID)

	resp, err := http.Get(ts.URL + "/api/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var jobs []jobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, sub.JobID, jobs[0].ID)
}

func TestDialects(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/dialects")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []dialectInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out, 9)
	names := make([]string, 0, len(out))
	for _, d := range out {
		names = append(names, string(d.Name))
	}
	assert.Contains(t, names, "postgres")
	assert.Contains(t, names, "snowflake")
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProgressObserver_PublishesStepAndProgress(t *testing.T) {
	notif := notifier.New()
	ch := notif.Subscribe("job-1")
	defer notif.Unsubscribe("job-1", ch)

	state := core.NewAnalystState("job-1", core.QuerySpec{Question: "q", Dialect: core.DialectPostgres})
	state.Budget.QueriesUsed = 2
	ProgressObserver(notif)(state, core.ExecutionStep{Node: core.NodeMVQ, Status: core.StepCompleted})

	step := <-ch
	require.Equal(t, notifier.EventStep, step.Type)
	require.NotNil(t, step.Step)
	assert.Equal(t, core.NodeMVQ, step.Step.Node)

	progress := <-ch
	require.Equal(t, notifier.EventProgress, progress.Type)
	require.NotNil(t, progress.Progress)
	assert.Equal(t, 2, progress.Progress.QueriesUsed)
}
