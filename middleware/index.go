package middleware

import (
	"bytes"
	_ "embed"
	"errors"
	"html/template"
	"os"
	"path"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"

	"github.com/freekieb7/tinyhttp/filesystem"
	"github.com/freekieb7/tinyhttp/http"
)

//go:embed templates/indexof.html
var defaultIndexTemplate string

var ErrTemplateNotLoaded = errors.New("index: template not loaded")

type IndexItem struct {
	URL      string
	Name     string
	IsFolder bool
}

type IndexPage struct {
	Dirname string
	Items   []IndexItem
}

// Index renders a listing for directories. The template is compiled once by Init.
type Index struct {
	fs           filesystem.Filesystem
	templatePath string
	template     *template.Template
}

func NewIndex(fs filesystem.Filesystem, templatePath string) *Index {
	return &Index{
		fs:           fs,
		templatePath: templatePath,
	}
}

func (m *Index) Name() string {
	return "index"
}

func (m *Index) Init() error {
	source := defaultIndexTemplate
	if m.templatePath != "" {
		content, err := os.ReadFile(m.templatePath)
		if err != nil {
			return pkgerrors.Wrap(err, "read template")
		}
		source = string(content)
	}

	tmpl, err := template.New("indexof").Parse(source)
	if err != nil {
		return pkgerrors.Wrap(err, "parse template")
	}

	m.template = tmpl
	return nil
}

func (m *Index) Handle(req *http.Request) (*http.Response, error) {
	isDirectory, err := m.fs.IsDirectory(req.URI.Endpoint)
	if errors.Is(err, filesystem.ErrOutsideRoot) || errors.Is(err, filesystem.ErrInvalidPath) {
		return nil, nil
	}
	if err != nil || !isDirectory {
		return nil, err
	}

	if m.template == nil {
		return nil, ErrTemplateNotLoaded
	}

	page, err := m.page(req.URI.Endpoint)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := m.template.Execute(&buf, page); err != nil {
		return nil, pkgerrors.Wrap(err, "render listing")
	}

	return http.NewResponse().
		WithBody(buf.Bytes()).
		WithContentLength(), nil
}

func (m *Index) page(endpoint string) (IndexPage, error) {
	dir, err := m.fs.Canonical(endpoint)
	if err != nil {
		return IndexPage{}, err
	}

	entries, err := m.fs.ListDirectory(dir)
	if err != nil {
		return IndexPage{}, err
	}

	page := IndexPage{
		Dirname: path.Base(dir),
		Items:   make([]IndexItem, 0, len(entries)),
	}
	if dir == "/" {
		page.Dirname = filepath.Base(m.fs.Root())
	}

	for _, entry := range entries {
		page.Items = append(page.Items, IndexItem{
			URL:      path.Join(dir, entry.Name()),
			Name:     entry.Name(),
			IsFolder: entry.IsDir(),
		})
	}

	return page, nil
}
