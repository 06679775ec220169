package http

import (
	"errors"
	"fmt"
)

type ParseErrorKind int

const (
	MalformedFirstLine ParseErrorKind = iota + 1
	MalformedHeader
	MalformedContentLength
)

// ParseError reports a request that could not be parsed. It is terminal for the connection.
type ParseError struct {
	Kind ParseErrorKind
	// Line holds the offending header line for MalformedHeader.
	Line string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case MalformedFirstLine:
		return "malformed request line"
	case MalformedHeader:
		return fmt.Sprintf("malformed header line: %q", e.Line)
	case MalformedContentLength:
		return "could not determine content length"
	default:
		return "malformed request"
	}
}

// Is matches any ParseError of the same kind, so errors.Is(err, ErrMalformedHeader)
// holds whatever the offending line was.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

var (
	ErrMalformedFirstLine     = &ParseError{Kind: MalformedFirstLine}
	ErrMalformedHeader        = &ParseError{Kind: MalformedHeader}
	ErrMalformedContentLength = &ParseError{Kind: MalformedContentLength}

	ErrHeaderTooLarge = errors.New("http: request header too large")
	ErrBodyTooLarge   = errors.New("http: request body too large")
)
