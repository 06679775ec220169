// Package middleware holds the request handlers the server offers each request to.
package middleware

import (
	"github.com/freekieb7/tinyhttp/filesystem"
	"github.com/freekieb7/tinyhttp/http"
)

const (
	headerContentType = "Content-Type"

	mimeHTML = "text/html"
	mimeJSON = "application/json"
)

// Default returns the standard middleware in dispatch order. An empty templatePath
// selects the embedded directory listing template.
func Default(fs filesystem.Filesystem, templatePath string) []http.Middleware {
	return []http.Middleware{
		NewStatic(fs),
		NewIndex(fs, templatePath),
		NewVisitors(),
		NewMutable(),
		NewEcho(),
		NewIgnoreFavicon(),
	}
}
