package middleware

import (
	"errors"
	"path"

	"github.com/freekieb7/tinyhttp/filesystem"
	"github.com/freekieb7/tinyhttp/http"
)

const indexFile = "index.html"

// Static serves files below the filesystem root. A directory is served through its
// index.html when it has one.
type Static struct {
	fs filesystem.Filesystem
}

func NewStatic(fs filesystem.Filesystem) *Static {
	return &Static{fs: fs}
}

func (m *Static) Name() string {
	return "static"
}

func (m *Static) Handle(req *http.Request) (*http.Response, error) {
	target, err := m.target(req.URI.Endpoint)
	if errors.Is(err, filesystem.ErrOutsideRoot) || errors.Is(err, filesystem.ErrInvalidPath) {
		return nil, nil
	}
	if err != nil || target == "" {
		return nil, err
	}

	content, err := m.fs.ReadFile(target)
	if err != nil {
		return nil, err
	}

	return http.NewResponse().
		WithBody(content).
		WithHeaderIfPresent(headerContentType, filesystem.ContentType(target)).
		WithContentLength(), nil
}

// target returns the endpoint of the file to serve, or an empty string if there is none.
func (m *Static) target(endpoint string) (string, error) {
	isFile, err := m.fs.IsFile(endpoint)
	if err != nil {
		return "", err
	}
	if isFile {
		return endpoint, nil
	}

	index := path.Join("/", endpoint, indexFile)
	isFile, err = m.fs.IsFile(index)
	if err != nil {
		return "", err
	}
	if isFile {
		return index, nil
	}

	return "", nil
}
