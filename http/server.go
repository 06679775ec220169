package http

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/freekieb7/tinyhttp/http"

var ErrServerClosed = errors.New("http: server closed")

type Server struct {
	Name  string
	Chain *Chain

	logger         *slog.Logger
	pool           *WorkerPool
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	readTimeout    time.Duration
	maxHeaderBytes int
	maxBodyBytes   uint64

	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram

	mu       sync.Mutex
	listener net.Listener
	closing  atomic.Bool
}

type Option func(server *Server)

func WithLogger(logger *slog.Logger) Option {
	return func(server *Server) {
		server.logger = logger
	}
}

func WithWorkerPool(pool *WorkerPool) Option {
	return func(server *Server) {
		server.pool = pool
	}
}

func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(server *Server) {
		server.tracerProvider = provider
	}
}

func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(server *Server) {
		server.meterProvider = provider
	}
}

// WithReadTimeout bounds the time a client may take to send its request.
func WithReadTimeout(timeout time.Duration) Option {
	return func(server *Server) {
		server.readTimeout = timeout
	}
}

// WithMaxHeaderBytes bounds the request line plus header block.
func WithMaxHeaderBytes(n int) Option {
	return func(server *Server) {
		server.maxHeaderBytes = n
	}
}

func WithMaxBodyBytes(n uint64) Option {
	return func(server *Server) {
		server.maxBodyBytes = n
	}
}

func NewServer(name string, chain *Chain, options ...Option) *Server {
	server := Server{
		Name:           name,
		Chain:          chain,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}

	for _, option := range options {
		option(&server)
	}

	if server.logger == nil {
		server.logger = otelslog.NewLogger(name)
	}
	if server.pool == nil {
		server.pool = NewDefaultWorkerPool(server.logger)
	}

	server.tracer = server.tracerProvider.Tracer(instrumentationName)

	meter := server.meterProvider.Meter(instrumentationName)

	var err error
	server.requests, err = meter.Int64Counter("tinyhttp.requests",
		metric.WithDescription("Requests answered, by middleware and status"),
		metric.WithUnit("{request}"))
	if err != nil {
		server.logger.Warn("creating request counter failed", "error", err)
		server.requests = noop.Int64Counter{}
	}

	server.duration, err = meter.Float64Histogram("tinyhttp.request.duration",
		metric.WithDescription("Time from accept to the response being flushed"),
		metric.WithUnit("ms"))
	if err != nil {
		server.logger.Warn("creating duration histogram failed", "error", err)
		server.duration = noop.Float64Histogram{}
	}

	return &server
}

func (server *Server) ListenAndServe(ctx context.Context, addr string) error {
	config := net.ListenConfig{Control: reuseAddr}

	listener, err := config.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	return server.Serve(ctx, listener)
}

// Serve accepts connections on listener and hands each one to the worker pool. It
// returns ErrServerClosed after Shutdown or once ctx is done.
func (server *Server) Serve(ctx context.Context, listener net.Listener) error {
	server.mu.Lock()
	server.listener = listener
	closing := server.closing.Load()
	server.mu.Unlock()

	if closing {
		listener.Close()
		return ErrServerClosed
	}

	stop := context.AfterFunc(ctx, func() {
		server.closing.Store(true)
		listener.Close()
	})
	defer stop()

	server.logger.Info("listening", "server", server.Name, "addr", listener.Addr().String(), "workers", server.pool.Size())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if server.closing.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			server.logger.Warn("failed to accept connection", "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := server.pool.Execute(func() { server.ServeConn(conn) }); err != nil {
			server.logger.Error("failed to queue connection", "error", err)
			conn.Close()
		}
	}
}

// Shutdown stops accepting connections and waits for queued connections to be served.
func (server *Server) Shutdown(ctx context.Context) error {
	server.closing.Store(true)

	server.mu.Lock()
	listener := server.listener
	server.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	done := make(chan struct{})
	go func() {
		server.pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeConn answers exactly one request on conn and closes it.
func (server *Server) ServeConn(conn net.Conn) {
	defer conn.Close()

	start := time.Now()
	id := NewConnID()

	ctx, span := server.tracer.Start(context.Background(), "tinyhttp.conn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("tinyhttp.conn.id", id.String()),
			attribute.String("network.peer.address", remoteAddr(conn)),
		))
	defer span.End()

	if server.readTimeout > 0 {
		conn.SetReadDeadline(start.Add(server.readTimeout))
	}

	res, by, err := server.handle(ctx, conn, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		server.logger.ErrorContext(ctx, "request failed", "conn", id.String(), "error", err)

		res = errorResponse(errorStatus(err), err)
		if sendErr := res.Write(conn); sendErr != nil {
			server.logger.ErrorContext(ctx, "failed sending an error response",
				"conn", id.String(), "error", err, "send_error", sendErr)
		}
	} else if sendErr := res.Write(conn); sendErr != nil {
		span.RecordError(sendErr)
		span.SetStatus(codes.Error, sendErr.Error())
		server.logger.ErrorContext(ctx, "failed sending response", "conn", id.String(), "error", sendErr)
	}

	if by == "" {
		by = "none"
	}
	attrs := metric.WithAttributes(
		attribute.String("tinyhttp.middleware", by),
		attribute.Int("http.response.status_code", int(res.Status)),
	)
	server.requests.Add(ctx, 1, attrs)
	server.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)

	span.SetAttributes(
		attribute.String("tinyhttp.middleware", by),
		attribute.Int("http.response.status_code", int(res.Status)),
	)
}

func (server *Server) handle(ctx context.Context, conn net.Conn, span trace.Span) (*Response, string, error) {
	reader := RequestReader{
		BR:             bufio.NewReaderSize(conn, DefaultReadBufferSize),
		MaxHeaderBytes: server.maxHeaderBytes,
		MaxBodyBytes:   server.maxBodyBytes,
	}

	req, err := reader.Read()
	if err != nil {
		return nil, "", err
	}

	span.SetAttributes(
		attribute.String("http.request.method", req.Method.String()),
		attribute.String("url.path", req.URI.Endpoint),
	)

	res, by, err := server.Chain.Dispatch(req)
	if err != nil {
		return nil, by, err
	}
	if res == nil {
		server.logger.InfoContext(ctx, "request unhandled", "endpoint", req.URI.Endpoint)
		return notFoundResponse(), "", nil
	}

	server.logger.InfoContext(ctx, "request handled", "endpoint", req.URI.Endpoint, "middleware", by)

	return res, by, nil
}

func errorStatus(err error) uint16 {
	switch {
	case errors.Is(err, ErrHeaderTooLarge):
		return StatusRequestHeaderFieldsTooLarge
	case errors.Is(err, ErrBodyTooLarge):
		return StatusRequestEntityTooLarge
	default:
		return StatusInternalServerError
	}
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}

	return ""
}
