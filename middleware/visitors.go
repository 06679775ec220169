package middleware

import (
	"strconv"
	"sync"

	"github.com/freekieb7/tinyhttp/http"
)

// Visitors counts the requests made to /visitors since startup.
type Visitors struct {
	mu    sync.Mutex
	count uint64
}

func NewVisitors() *Visitors {
	return &Visitors{}
}

func (m *Visitors) Name() string {
	return "visitors"
}

func (m *Visitors) Handle(req *http.Request) (*http.Response, error) {
	if req.URI.Endpoint != "/visitors" {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.count++

	return http.NewResponse().
		WithText("This page has been requested " + strconv.FormatUint(m.count, 10) + " times since the server started!").
		WithHeader(headerContentType, mimeHTML).
		WithContentLength(), nil
}
