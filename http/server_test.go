package http

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/freekieb7/tinyhttp/test"
)

func helloMiddleware() Middleware {
	return MiddlewareFunc(func(req *Request) (*Response, error) {
		if req.URI.Endpoint != "/hello" {
			return nil, nil
		}

		return NewResponse().
			WithHeader("Content-Type", "text/plain").
			WithText("Hello, World!").
			WithContentLength(), nil
	})
}

func newTestServer(t *testing.T, options ...Option) *Server {
	t.Helper()

	pool, err := NewWorkerPool(1, discardLogger())
	test.NoError(t, err)
	t.Cleanup(pool.Stop)

	options = append([]Option{WithLogger(discardLogger()), WithWorkerPool(pool)}, options...)

	return NewServer("test", NewChain(helloMiddleware()), options...)
}

// roundTrip sends raw over an in-memory connection served by server and returns
// everything written back before the connection closed.
func roundTrip(server *Server, raw string) string {
	client, conn := net.Pipe()

	done := make(chan struct{})
	go func() {
		server.ServeConn(conn)
		close(done)
	}()

	go func() {
		client.Write([]byte(raw))
	}()

	out, _ := io.ReadAll(client)
	client.Close()
	<-done

	return string(out)
}

func TestServeConnClaimed(t *testing.T) {
	server := newTestServer(t)

	out := roundTrip(server, "GET /hello HTTP/1.1\r\nHost: localhost\r\n\r\n")

	expected := "HTTP/1.1 200 OK\r\n" +
		"server: tinyhttp\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 13\r\n" +
		"\r\n" +
		"Hello, World!"
	test.Equal(t, expected, out)
}

func TestServeConnUnhandled(t *testing.T) {
	server := newTestServer(t)

	out := roundTrip(server, "GET /nope HTTP/1.1\r\n\r\n")

	res, err := http.ReadResponse(bufio.NewReader(strings.NewReader(out)), nil)
	test.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	test.NoError(t, err)

	test.Equal(t, 404, res.StatusCode)
	test.Equal(t, "This URI was not handled by any middleware.", string(body))
}

func TestServeConnMalformedRequest(t *testing.T) {
	server := newTestServer(t)

	out := roundTrip(server, "GET /nope\r\n\r\n")

	res, err := http.ReadResponse(bufio.NewReader(strings.NewReader(out)), nil)
	test.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	test.NoError(t, err)

	test.Equal(t, 500, res.StatusCode)
	test.Equal(t, ErrMalformedFirstLine.Error(), string(body))
}

func TestServeConnMiddlewareFailure(t *testing.T) {
	failing := MiddlewareFunc(func(req *Request) (*Response, error) {
		return nil, errors.New("disk on fire")
	})
	server := newTestServer(t)
	server.Chain = NewChain(failing, helloMiddleware())

	out := roundTrip(server, "GET /hello HTTP/1.1\r\n\r\n")

	if !strings.HasPrefix(out, "HTTP/1.1 500 Internal Server Error\r\n") {
		t.Fatalf("unexpected response %q", out)
	}
	if !strings.HasSuffix(out, "disk on fire") {
		t.Errorf("response %q must carry the failure", out)
	}
}

func TestServeConnMiddlewarePanic(t *testing.T) {
	panicking := MiddlewareFunc(func(req *Request) (*Response, error) {
		panic("index out of range")
	})
	server := newTestServer(t)
	server.Chain = NewChain(panicking)

	out := roundTrip(server, "GET /hello HTTP/1.1\r\n\r\n")

	if !strings.HasPrefix(out, "HTTP/1.1 500 Internal Server Error\r\n") {
		t.Fatalf("unexpected response %q", out)
	}
	if !strings.HasSuffix(out, "index out of range") {
		t.Errorf("response %q must carry the panic value", out)
	}
}

func TestServeConnLimits(t *testing.T) {
	server := newTestServer(t, WithMaxHeaderBytes(32))

	out := roundTrip(server, "GET /hello HTTP/1.1\r\nX-Padding: "+strings.Repeat("a", 64)+"\r\n\r\n")
	if !strings.HasPrefix(out, "HTTP/1.1 431 ") {
		t.Errorf("expected 431, got %q", out)
	}

	server = newTestServer(t, WithMaxBodyBytes(4))

	out = roundTrip(server, "POST /hello HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")
	if !strings.HasPrefix(out, "HTTP/1.1 413 ") {
		t.Errorf("expected 413, got %q", out)
	}
}

func TestServeConnTelemetry(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	server := newTestServer(t, WithTracerProvider(tracerProvider), WithMeterProvider(meterProvider))

	roundTrip(server, "GET /hello HTTP/1.1\r\n\r\n")
	roundTrip(server, "GET /hello HTTP/1.1\r\n\r\n")
	roundTrip(server, "garbage\r\n\r\n")

	spans := recorder.Ended()
	test.Equal(t, 3, len(spans))
	test.Equal(t, "tinyhttp.conn", spans[0].Name())
	test.Equal(t, codes.Unset, spans[0].Status().Code)
	test.Equal(t, codes.Error, spans[2].Status().Code)

	var rm metricdata.ResourceMetrics
	test.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "tinyhttp.requests" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, point := range sum.DataPoints {
				by, _ := point.Attributes.Value(attribute.Key("tinyhttp.middleware"))
				counts[by.AsString()] += point.Value
			}
		}
	}

	test.Equal(t, int64(2), counts["http.MiddlewareFunc"])
	test.Equal(t, int64(1), counts["none"])
}

func TestServeAndShutdown(t *testing.T) {
	server := newTestServer(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(context.Background(), listener)
	}()

	conn, err := net.Dial("tcp", listener.Addr().String())
	test.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: localhost\r\n\r\n"))
	test.NoError(t, err)

	res, err := http.ReadResponse(bufio.NewReader(conn), nil)
	test.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	test.NoError(t, err)
	res.Body.Close()

	test.Equal(t, 200, res.StatusCode)
	test.Equal(t, "Hello, World!", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	test.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-errCh:
		test.ErrorIs(t, err, ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeAfterShutdown(t *testing.T) {
	server := newTestServer(t)
	test.NoError(t, server.Shutdown(context.Background()))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(context.Background(), listener)
	}()

	select {
	case err := <-errCh:
		test.ErrorIs(t, err, ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("server kept accepting after shutdown")
	}

	if _, err := listener.Accept(); !errors.Is(err, net.ErrClosed) {
		t.Errorf("expected the listener to be closed, got %v", err)
	}
}

func TestServeStopsWithContext(t *testing.T) {
	server := newTestServer(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ctx, listener)
	}()

	cancel()

	select {
	case err := <-errCh:
		test.ErrorIs(t, err, ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func BenchmarkServeConn(b *testing.B) {
	pool, err := NewWorkerPool(1, discardLogger())
	if err != nil {
		b.Fatal(err)
	}
	defer pool.Stop()

	server := NewServer("bench", NewChain(helloMiddleware()), WithLogger(discardLogger()), WithWorkerPool(pool))
	raw := "GET /hello HTTP/1.1\r\nHost: localhost\r\nUser-Agent: bench\r\n\r\n"

	b.ReportAllocs()
	b.ResetTimer()
	for iter := 0; iter < b.N; iter++ {
		roundTrip(server, raw)
	}
}
