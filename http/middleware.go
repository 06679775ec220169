package http

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrMiddlewarePanic = errors.New("http: middleware panicked")

// Middleware is offered each request in chain order. Returning a response claims the
// request, returning (nil, nil) declines it and returning an error aborts dispatch.
type Middleware interface {
	Handle(req *Request) (*Response, error)
}

// Initializer is implemented by middleware that must prepare before the server accepts
// connections.
type Initializer interface {
	Init() error
}

// Named is implemented by middleware that want a stable name in logs and metrics.
type Named interface {
	Name() string
}

type MiddlewareFunc func(req *Request) (*Response, error)

func (f MiddlewareFunc) Handle(req *Request) (*Response, error) {
	return f(req)
}

type link struct {
	name       string
	middleware Middleware
}

// Chain is a fixed, ordered list of middleware. It is read-only after NewChain and may be
// shared by all workers.
type Chain struct {
	links []link
}

func NewChain(middleware ...Middleware) *Chain {
	chain := Chain{
		links: make([]link, 0, len(middleware)),
	}

	for _, m := range middleware {
		chain.links = append(chain.links, link{
			name:       middlewareName(m),
			middleware: m,
		})
	}

	return &chain
}

func middlewareName(m Middleware) string {
	if named, ok := m.(Named); ok {
		return named.Name()
	}

	return fmt.Sprintf("%T", m)
}

// Len returns the number of middleware in the chain.
func (chain *Chain) Len() int {
	return len(chain.links)
}

// Names returns the middleware names in dispatch order.
func (chain *Chain) Names() []string {
	names := make([]string, len(chain.links))
	for i, l := range chain.links {
		names[i] = l.name
	}

	return names
}

// Init runs every Initializer in order and stops at the first failure.
func (chain *Chain) Init() error {
	for _, l := range chain.links {
		initializer, ok := l.middleware.(Initializer)
		if !ok {
			continue
		}

		if err := initializer.Init(); err != nil {
			return errors.Wrapf(err, "init %s", l.name)
		}
	}

	return nil
}

// handle turns a panic in the middleware into an error, so the request still gets a
// response.
func (l link) handle(req *Request) (res *Response, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			res, err = nil, fmt.Errorf("%w: %v", ErrMiddlewarePanic, recovered)
		}
	}()

	return l.middleware.Handle(req)
}

// Dispatch offers req to each middleware until one claims it. The name of the claiming
// middleware is returned with its response. A nil response and nil error mean no
// middleware handled the request. A panicking middleware fails with ErrMiddlewarePanic.
func (chain *Chain) Dispatch(req *Request) (*Response, string, error) {
	for _, l := range chain.links {
		res, err := l.handle(req)
		if err != nil {
			return nil, l.name, errors.Wrap(err, l.name)
		}
		if res != nil {
			return res, l.name, nil
		}
	}

	return nil, "", nil
}
