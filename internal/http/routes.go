package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/verifyd/internal/core"
	"github.com/target/verifyd/internal/http/validation"
	"github.com/target/verifyd/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs     *service.JobService
	Runner   *service.JobRunner
	Verifier core.Verifier
	// PrimaryProvider must have an API key for a request to be accepted.
	PrimaryProvider string
	// EnvLookup resolves provider keys; nil means os.LookupEnv.
	EnvLookup service.EnvLookup
	// BaseURL prefixes poll URLs when set.
	BaseURL            string
	MaxBodyBytes       int64
	CORSAllowedOrigins []string
	Logger             *slog.Logger // Optional
}

// NewRouter creates and configures the HTTP API router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	mux := http.NewServeMux()

	verifyHandlers := &VerifyHandlers{
		Jobs:            services.Jobs,
		Runner:          services.Runner,
		Verifier:        services.Verifier,
		Validator:       validation.Default(),
		PrimaryProvider: services.PrimaryProvider,
		EnvLookup:       services.EnvLookup,
		BaseURL:         services.BaseURL,
		Logger:          logger,
	}
	jobHandlers := &JobHandlers{Svc: services.Jobs, Logger: logger}

	registerVerifyRoutes(mux, verifyHandlers)
	registerJobRoutes(mux, jobHandlers)

	health := healthHandler(services.Jobs.Backend())
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	return Chain(mux,
		Recover(logger),
		Logging(logger),
		CORS(services.CORSAllowedOrigins),
		LimitBody(services.MaxBodyBytes),
	)
}

func registerVerifyRoutes(mux *http.ServeMux, h *VerifyHandlers) {
	mux.HandleFunc("POST /v1/verify", h.Verify)
	mux.HandleFunc("POST /v1/verify/async", h.VerifyAsync)
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("GET /v1/jobs/{id}", h.GetByID)
}
