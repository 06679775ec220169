package middleware

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/freekieb7/tinyhttp/http"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Echo answers /echo with the parsed request encoded as JSON.
type Echo struct{}

func NewEcho() *Echo {
	return &Echo{}
}

func (m *Echo) Name() string {
	return "echo"
}

func (m *Echo) Handle(req *http.Request) (*http.Response, error) {
	if req.URI.Endpoint != "/echo" {
		return nil, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	return http.NewResponse().
		WithBody(body).
		WithHeader(headerContentType, mimeJSON).
		WithContentLength(), nil
}
