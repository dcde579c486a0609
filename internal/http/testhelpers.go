package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/target/verifyd/internal/data"
	"github.com/target/verifyd/internal/mocks"
	"github.com/target/verifyd/internal/service"
	"go.uber.org/mock/gomock"
)

const testOpenAIKey = "sk-test-openai"

// testAPI wires the router against the in-memory backend and a mocked engine.
type testAPI struct {
	handler  http.Handler
	store    *data.MemoryJobStore
	jobs     *service.JobService
	runner   *service.JobRunner
	verifier *mocks.MockVerifier
}

type testAPIOptions struct {
	env          map[string]string
	baseURL      string
	maxBodyBytes int64
	corsOrigins  []string
}

func newTestAPI(t *testing.T, opts testAPIOptions) *testAPI {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := data.NewMemoryJobStore(data.MemoryJobStoreConfig{})
	jobs := service.MustNewJobService(service.JobServiceOptions{Store: store, Backend: "memory"})
	verifier := mocks.NewMockVerifier(ctrl)
	runner, err := service.NewJobRunner(service.JobRunnerOptions{Jobs: jobs, Verifier: verifier})
	require.NoError(t, err)

	env := opts.env
	if env == nil {
		env = map[string]string{"OPENAI_API_KEY": testOpenAIKey}
	}

	api := &testAPI{store: store, jobs: jobs, runner: runner, verifier: verifier}
	api.handler = NewRouter(RouterServices{
		Jobs:            jobs,
		Runner:          runner,
		Verifier:        verifier,
		PrimaryProvider: service.ProviderOpenAI,
		EnvLookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
		BaseURL:            opts.baseURL,
		MaxBodyBytes:       opts.maxBodyBytes,
		CORSAllowedOrigins: opts.corsOrigins,
	})

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Wait(ctx)
	})
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) waitIdle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.runner.Wait(ctx))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func eiffelRequest() map[string]any {
	return map[string]any{
		"output":   "The Eiffel Tower is 330m tall.",
		"question": "How tall is the Eiffel Tower?",
		"tier":     "basic",
	}
}
