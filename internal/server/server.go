package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/example/go-lerp/internal/config"
	"github.com/example/go-lerp/internal/grid"
	"github.com/example/go-lerp/internal/lookup"
	"github.com/example/go-lerp/internal/mesh"
	"github.com/example/go-lerp/internal/query"
	"github.com/prometheus/client_golang/prometheus"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxPoints      int
	maxBodyBytes   int64
	workers        int
	requestTimeout time.Duration
	interp         lookup.Interp
	extrap         lookup.Extrap
	logger         *slog.Logger
	registry       *prometheus.Registry
}

func defaultOptions() options {
	return options{
		maxPoints:      1_000_000,
		maxBodyBytes:   64 << 20,
		workers:        2,
		requestTimeout: 30 * time.Second,
		interp:         lookup.Linear,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxPoints caps the query points of /eval and /derivative and the
// output size of /resample.
func WithMaxPoints(n int) Option {
	return func(o *options) { o.maxPoints = n }
}

// WithMaxBodyBytes caps the request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

// WithWorkers sets the maximum number of concurrent evaluations. Zero
// disables throttling.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request evaluation deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithDefaultInterp sets the method used when a request names none.
func WithDefaultInterp(m lookup.Interp) Option {
	return func(o *options) { o.interp = m }
}

// WithDefaultExtrap sets the policy used when a request names none. When
// unset the mesh options decide.
func WithDefaultExtrap(e lookup.Extrap) Option {
	return func(o *options) { o.extrap = e }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry registers the handler metrics on reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// errUnknownGrid is reported for grid names missing from the catalog.
var errUnknownGrid = errors.New("unknown grid")

// errTooLarge is reported when a request exceeds the point limit.
var errTooLarge = errors.New("request too large")

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	catalog *Catalog
	opts    options
	sem     chan struct{} // semaphore for worker pool
	log     *slog.Logger
	metrics *metrics
}

// NewHandler returns an http.Handler that serves /health, /grids, /metrics
// and the POST evaluation endpoints.
func NewHandler(catalog *Catalog, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if catalog == nil {
		catalog = NewCatalog(nil)
	}

	if opts.registry == nil {
		opts.registry = prometheus.NewRegistry()
	}

	h := &handler{
		catalog: catalog,
		opts:    opts,
		log:     opts.logger,
		metrics: newMetrics(opts.registry),
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/grids", h.handleGrids)
	mux.HandleFunc("/grids/{name}", h.handleGrid)
	mux.HandleFunc("/eval", h.instrument("eval", h.handleEval))
	mux.HandleFunc("/derivative", h.instrument("derivative", h.handleDerivative))
	mux.HandleFunc("/resample", h.instrument("resample", h.handleResample))
	mux.Handle("/metrics", h.metrics.handler)

	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

func (h *handler) handleGrids(w http.ResponseWriter, _ *http.Request) {
	out := make([]GridInfo, 0, h.catalog.Len())
	for _, name := range h.catalog.Names() {
		m, _ := h.catalog.Get(name)
		out = append(out, describe(name, m.Grid()))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *handler) handleGrid(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	m, ok := h.catalog.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v %q", errUnknownGrid, name))
		return
	}

	writeJSON(w, http.StatusOK, gridJSON(m.Grid()))
}

// instrument records metrics for an evaluation endpoint. fn returns the
// number of points it evaluated.
func (h *handler) instrument(endpoint string, fn func(http.ResponseWriter, *http.Request) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()
		points := fn(rec, r)
		h.metrics.observe(endpoint, rec.code, points, time.Since(start))
	}
}

// decode reads a POST body into v and resolves the named grid.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, v any, gridName func() string) (*mesh.Mesh, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}

	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return nil, false
	}

	body := http.MaxBytesReader(w, r.Body, h.opts.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}

		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())

		return nil, false
	}

	name := gridName()
	if name == "" {
		writeError(w, http.StatusBadRequest, "grid field is required")
		return nil, false
	}

	m, ok := h.catalog.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v %q", errUnknownGrid, name))
		return nil, false
	}

	return m, true
}

// callOptions resolves the request policies against the handler defaults.
func (h *handler) callOptions(interpName, extrapName string) ([]mesh.CallOption, error) {
	interp := h.opts.interp
	if interpName != "" {
		var err error
		if interp, err = lookup.ParseInterp(interpName); err != nil {
			return nil, err
		}
	}

	opts := []mesh.CallOption{mesh.WithInterp(interp)}

	switch {
	case extrapName != "":
		extrap, err := lookup.ParseExtrap(extrapName)
		if err != nil {
			return nil, err
		}

		opts = append(opts, mesh.WithExtrap(extrap))
	case h.opts.extrap.Valid():
		opts = append(opts, mesh.WithExtrap(h.opts.extrap))
	}

	return opts, nil
}

func buildQuery(m *mesh.Mesh, points map[string]query.Arg) (query.Query, error) {
	b := m.Query()
	for name, a := range points {
		b.Set(name, a)
	}

	return b.Build()
}

func (h *handler) checkPoints(n int) error {
	if h.opts.maxPoints > 0 && n > h.opts.maxPoints {
		return fmt.Errorf("%w: %d points exceed the limit of %d", errTooLarge, n, h.opts.maxPoints)
	}

	return nil
}

// run executes fn on a worker slot under the request deadline. Evaluation is
// not interruptible; on timeout its result is discarded.
func (h *handler) run(ctx context.Context, fn func() error) error {
	// Acquire a worker slot, honouring context cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, h.opts.requestTimeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		if h.sem != nil {
			defer func() { <-h.sem }()
		}

		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fail writes the response for err and logs it.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, endpoint, gridName string, err error) {
	status := statusFor(err)

	attrs := []any{
		slog.String("endpoint", endpoint),
		slog.String("grid", gridName),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	}

	switch status {
	case http.StatusGatewayTimeout, http.StatusServiceUnavailable:
		h.log.WarnContext(r.Context(), "evaluation aborted", attrs...)
		writeError(w, status, "evaluation timed out")
	case http.StatusInternalServerError:
		h.log.ErrorContext(r.Context(), "evaluation failed", attrs...)
		writeError(w, status, err.Error())
	default:
		h.log.DebugContext(r.Context(), "request rejected", attrs...)
		writeError(w, status, err.Error())
	}
}

// statusFor maps contract violations to 400, the point limit to 413 and
// deadlines to 504.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}

	for _, target := range []error{
		grid.ErrShapeMismatch,
		grid.ErrNonMonotonicBreakpoints,
		grid.ErrRank,
		grid.ErrDuplicateName,
		query.ErrArityMismatch,
		query.ErrBroadcastMismatch,
		lookup.ErrUnknownMethod,
		lookup.ErrDimensionMismatch,
		lookup.ErrInvalidStep,
	} {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}

	return http.StatusInternalServerError
}

func (h *handler) handleEval(w http.ResponseWriter, r *http.Request) int {
	var req EvalRequest

	m, ok := h.decode(w, r, &req, func() string { return req.Grid })
	if !ok {
		return 0
	}

	opts, err := h.callOptions(req.Interp, req.Extrap)
	if err != nil {
		h.fail(w, r, "eval", req.Grid, err)
		return 0
	}

	q, err := buildQuery(m, req.Points)
	if err == nil {
		err = h.checkPoints(q.N)
	}

	if err != nil {
		h.fail(w, r, "eval", req.Grid, err)
		return 0
	}

	start := time.Now()

	var res mesh.Result

	err = h.run(r.Context(), func() error {
		var err error
		res, err = m.Interpolate(q, opts...)

		return err
	})
	if err != nil {
		h.fail(w, r, "eval", req.Grid, err)
		return 0
	}

	interp, extrap := m.Methods(opts...)

	h.log.InfoContext(r.Context(), "eval complete",
		slog.String("grid", req.Grid),
		slog.Int("points", q.N),
		slog.String("interp", interp.String()),
		slog.String("extrap", extrap.String()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	writeJSON(w, http.StatusOK, EvalResponse{
		Grid:       req.Grid,
		Interp:     interp.String(),
		Extrap:     extrap.String(),
		Values:     res.Values,
		OutOfRange: res.OutOfRange,
	})

	return q.N
}

// alignSteps broadcasts the named steps to n points per dimension. Missing
// dimensions step by one.
func alignSteps(names []string, steps map[string]query.Arg, n int) ([][]float64, error) {
	if len(steps) == 0 || n == 0 {
		return nil, nil
	}

	for name := range steps {
		if !slices.Contains(names, name) {
			return nil, fmt.Errorf("%w: %w %q in steps (dimensions: %v)", query.ErrArityMismatch, query.ErrUnknownDimension, name, names)
		}
	}

	out := make([][]float64, len(names))

	for d, name := range names {
		a, ok := steps[name]
		if !ok {
			a = query.Scalar(1)
		}

		cols, got, err := query.Broadcast(a, query.Vector(make([]float64, n)))
		if err != nil {
			return nil, fmt.Errorf("steps %q: %w", name, err)
		}

		if got != n {
			return nil, fmt.Errorf("%w: steps %q have %d values for %d points", query.ErrBroadcastMismatch, name, got, n)
		}

		out[d] = cols[0]
	}

	return out, nil
}

func (h *handler) handleDerivative(w http.ResponseWriter, r *http.Request) int {
	var req DerivativeRequest

	m, ok := h.decode(w, r, &req, func() string { return req.Grid })
	if !ok {
		return 0
	}

	opts, err := h.callOptions(req.Interp, req.Extrap)
	if err != nil {
		h.fail(w, r, "derivative", req.Grid, err)
		return 0
	}

	q, err := buildQuery(m, req.Points)
	if err == nil {
		err = h.checkPoints(q.N)
	}

	var steps [][]float64
	if err == nil {
		steps, err = alignSteps(m.Names(), req.Steps, q.N)
	}

	if err != nil {
		h.fail(w, r, "derivative", req.Grid, err)
		return 0
	}

	if steps != nil {
		opts = append(opts, mesh.WithSteps(steps))
	}

	start := time.Now()

	var grad map[string][]float64

	err = h.run(r.Context(), func() error {
		var err error
		grad, err = m.Gradient(q, opts...)

		return err
	})
	if err != nil {
		h.fail(w, r, "derivative", req.Grid, err)
		return 0
	}

	resp := DerivativeResponse{
		Grid:     req.Grid,
		Values:   make(Floats, q.N),
		Gradient: make(map[string]Floats, len(grad)),
	}

	for _, name := range m.Names() {
		part := grad[name]
		for j, v := range part {
			resp.Values[j] += v
		}

		resp.Gradient[name] = part
	}

	h.log.InfoContext(r.Context(), "derivative complete",
		slog.String("grid", req.Grid),
		slog.Int("points", q.N),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	writeJSON(w, http.StatusOK, resp)

	return q.N
}

func (h *handler) handleResample(w http.ResponseWriter, r *http.Request) int {
	var req ResampleRequest

	m, ok := h.decode(w, r, &req, func() string { return req.Grid })
	if !ok {
		return 0
	}

	opts, err := h.callOptions(req.Interp, req.Extrap)
	if err != nil {
		h.fail(w, r, "resample", req.Grid, err)
		return 0
	}

	g := m.Grid()

	// A null axis keeps its breakpoints.
	shape := g.Shape()
	for name, c := range req.Axes {
		if d, ok := g.DimIndex(name); ok && c != nil {
			shape[d] = len(c)
		}
	}

	size, err := grid.SizeOf(shape)
	if err == nil {
		err = h.checkPoints(size)
	}

	if err != nil {
		h.fail(w, r, "resample", req.Grid, err)
		return 0
	}

	start := time.Now()

	var out *mesh.Mesh

	err = h.run(r.Context(), func() error {
		var err error
		out, err = m.Resample(req.Axes, opts...)

		return err
	})
	if err != nil {
		h.fail(w, r, "resample", req.Grid, err)
		return 0
	}

	h.log.InfoContext(r.Context(), "resample complete",
		slog.String("grid", req.Grid),
		slog.String("result", out.String()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	writeJSON(w, http.StatusOK, gridJSON(out.Grid()))

	return size
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server wires the handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	catalog         *Catalog
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New returns a server for cfg. A nil catalog is loaded from
// cfg.Paths.GridDir when the server starts.
func New(cfg config.Config, catalog *Catalog) *Server {
	return &Server{
		cfg:             cfg,
		catalog:         catalog,
		logger:          slog.Default(),
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

func (s *Server) Start(ctx context.Context) error {
	interp, extrap, err := s.cfg.Lookup.Methods()
	if err != nil {
		return err
	}

	catalog := s.catalog
	if catalog == nil {
		catalog, err = LoadCatalog(s.cfg.Paths.GridDir, s.cfg.Lookup.MeshOptions(), s.cfg.Runtime.RunOptions()...)
		if err != nil {
			return err
		}
	}

	s.logger.Info("grids loaded",
		slog.String("dir", s.cfg.Paths.GridDir),
		slog.Int("count", catalog.Len()),
		slog.Any("names", catalog.Names()),
	)

	handlerOpts := []Option{
		WithWorkers(s.cfg.Server.MaxConcurrent),
		WithMaxPoints(s.cfg.Server.MaxPoints),
		WithRequestTimeout(s.cfg.Server.RequestTimeout),
		WithDefaultInterp(interp),
		WithLogger(s.logger),
	}
	if !s.cfg.Lookup.Extrapolate {
		handlerOpts = append(handlerOpts, WithDefaultExtrap(extrap))
	}

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           NewHandler(catalog, handlerOpts...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}

		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}

	return nil
}
