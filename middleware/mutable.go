package middleware

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/freekieb7/tinyhttp/http"
)

var ErrInvalidUTF8 = errors.New("body is not valid utf-8")

// Mutable holds a single unsigned value at /mutable. POST replaces it with the decimal
// number in the body, any other method reads it.
type Mutable struct {
	mu    sync.Mutex
	value uint64
}

func NewMutable() *Mutable {
	return &Mutable{value: math.MaxUint64}
}

func (m *Mutable) Name() string {
	return "mutable"
}

func (m *Mutable) Handle(req *http.Request) (*http.Response, error) {
	if req.URI.Endpoint != "/mutable" {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Method != http.MethodPost {
		return http.NewResponse().
			WithText("Currently at " + strconv.FormatUint(m.value, 10)).
			WithContentLength(), nil
	}

	if !utf8.Valid(req.Body) {
		return nil, ErrInvalidUTF8
	}

	value, err := strconv.ParseUint(strings.TrimPrefix(string(req.Body), "+"), 10, 64)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	m.value = value

	return http.NewResponse().
		WithText("Updated to " + strconv.FormatUint(m.value, 10)).
		WithContentLength(), nil
}
