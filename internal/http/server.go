package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"fincycle/internal/core"
	applog "fincycle/internal/log"
	"fincycle/internal/middleware/ratelimit"
	"fincycle/internal/middleware/security"
	"fincycle/internal/middleware/trace"
	"fincycle/internal/services"
	"fincycle/internal/storage"
)

// Services are the application services the API dispatches to.
type Services struct {
	Store        storage.Store
	Workspaces   *services.WorkspaceService
	Cycles       *services.CycleService
	Materializer *services.Materializer
	Status       *services.StatusService
	Expenses     *services.ExpenseService
	Ledger       *services.LedgerService
	Exchange     *services.ExchangeService
	Publisher    services.SyncPublisher
}

// Options configure the HTTP surface.
type Options struct {
	Addr               string
	ServiceKey         string
	RateLimitPerMinute int
	Logger             *applog.Logger
}

// Server wraps http.Server with the API's handlers and middleware.
type Server struct {
	http.Server

	store        storage.Store
	workspaces   *services.WorkspaceService
	cycles       *services.CycleService
	materializer *services.Materializer
	status       *services.StatusService
	expenses     *services.ExpenseService
	ledger       *services.LedgerService
	exchange     *services.ExchangeService
	publisher    services.SyncPublisher

	serviceKey string
	limiter    *ratelimit.Limiter
	tracer     *trace.Middleware
	events     *applog.StructuredLogger
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Shutdown releases the rate limiter.
func NewServer(opts Options, svc Services) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	events := applog.NewStructuredLogger(logger)
	detector := security.NewDetector()

	s := &Server{
		store:        svc.Store,
		workspaces:   svc.Workspaces,
		cycles:       svc.Cycles,
		materializer: svc.Materializer,
		status:       svc.Status,
		expenses:     svc.Expenses,
		ledger:       svc.Ledger,
		exchange:     svc.Exchange,
		publisher:    svc.Publisher,
		serviceKey:   opts.ServiceKey,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:       trace.NewMiddleware(detector.ExtractClientIP, events),
		events:       events,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = applog.Middleware(logger, trace.FromRequest)(h)
	h = s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimit)(h)
	h = detector.Middleware(h)
	h = s.tracer.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	auth := func(h http.HandlerFunc) http.HandlerFunc { return requireMember(s.workspaces, h) }
	internal := func(h http.HandlerFunc) http.HandlerFunc { return requireServiceKey(s.serviceKey, h) }

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /internal/signup", internal(s.handleSignup))
	mux.HandleFunc("POST /hooks/sync", internal(s.handleSyncHook))

	mux.HandleFunc("GET /cycles/{month}", auth(s.handleMonth))
	mux.HandleFunc("POST /cycles/kickstart", auth(s.handleKickstart))
	mux.HandleFunc("POST /cycles/{id}/groups/status", auth(s.handleGroupStatus))
	mux.HandleFunc("GET /cycles/{id}/expenses", auth(s.handleListExpenses))
	mux.HandleFunc("POST /cycles/{id}/expenses", auth(s.handleAddExpense))
	mux.HandleFunc("DELETE /expenses/{id}", auth(s.handleDeleteExpense))
	mux.HandleFunc("PATCH /line-items/{id}/status", auth(s.handleLineItemStatus))
	mux.HandleFunc("PATCH /line-items/{id}/amount", auth(s.handleLineItemAmount))

	mux.HandleFunc("GET /debts", auth(s.handleListDebts))
	mux.HandleFunc("POST /debts", auth(s.handleCreateDebt))
	mux.HandleFunc("GET /debts/{id}", auth(s.handleGetDebt))
	mux.HandleFunc("PUT /debts/{id}", auth(s.handleUpdateDebt))
	mux.HandleFunc("DELETE /debts/{id}", auth(s.handleDeleteDebt))

	mux.HandleFunc("GET /incomes", auth(s.handleListIncomes))
	mux.HandleFunc("POST /incomes", auth(s.handleCreateIncome))
	mux.HandleFunc("GET /incomes/{id}", auth(s.handleGetIncome))
	mux.HandleFunc("PUT /incomes/{id}", auth(s.handleUpdateIncome))
	mux.HandleFunc("DELETE /incomes/{id}", auth(s.handleDeleteIncome))

	mux.HandleFunc("GET /owners", auth(s.handleListCounterparties(core.KindDebt)))
	mux.HandleFunc("POST /owners", auth(s.handleCreateCounterparty(core.KindDebt)))
	mux.HandleFunc("DELETE /owners/{id}", auth(s.handleDeleteCounterparty(core.KindDebt)))
	mux.HandleFunc("GET /payers", auth(s.handleListCounterparties(core.KindIncome)))
	mux.HandleFunc("POST /payers", auth(s.handleCreateCounterparty(core.KindIncome)))
	mux.HandleFunc("DELETE /payers/{id}", auth(s.handleDeleteCounterparty(core.KindIncome)))

	mux.HandleFunc("POST /exchange/convert", auth(s.handleConvert))
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldComponent, applog.ComponentRateLimit,
		applog.FieldPath, r.URL.Path,
		applog.FieldRequestID, trace.GetRequestID(r.Context()))
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// currency returns the base currency of the caller's workspace, used to
// format amounts. It is empty when the workspace cannot be read.
func (s *Server) currency(r *http.Request) string {
	ws, err := s.store.GetWorkspace(r.Context(), workspaceID(r))
	if err != nil {
		return ""
	}
	return ws.DefaultCurrency
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// Metrics exposes request and rejection counters.
func (s *Server) Metrics() (trace.Metrics, int64) {
	return s.tracer.GetMetrics(), s.limiter.Rejected()
}
