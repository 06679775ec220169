package middleware

import "github.com/freekieb7/tinyhttp/http"

// IgnoreFavicon answers /favicon.ico with an empty response.
type IgnoreFavicon struct{}

func NewIgnoreFavicon() *IgnoreFavicon {
	return &IgnoreFavicon{}
}

func (m *IgnoreFavicon) Name() string {
	return "favicon"
}

func (m *IgnoreFavicon) Handle(req *http.Request) (*http.Response, error) {
	if req.URI.Endpoint != "/favicon.ico" {
		return nil, nil
	}

	return http.NewResponse(), nil
}
