package http

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
)

type Method uint8

const (
	MethodGet Method = iota + 1
	MethodPost
)

func (method Method) String() string {
	switch method {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	default:
		return "UNKNOWN"
	}
}

func (method Method) MarshalText() ([]byte, error) {
	return []byte(method.String()), nil
}

func parseMethod(token string) (Method, bool) {
	switch token {
	case "GET":
		return MethodGet, true
	case "POST":
		return MethodPost, true
	default:
		return 0, false
	}
}

// URI is a request target split into its path and query parameters.
type URI struct {
	Endpoint string            `json:"endpoint"`
	Params   map[string]string `json:"params"`
}

// ParseURI splits raw on the first '?'. The endpoint is kept verbatim; query pairs without
// '=' are skipped and a repeated key keeps its last value.
func ParseURI(raw string) URI {
	endpoint, query, _ := strings.Cut(raw, "?")

	params := make(map[string]string)
	for _, pair := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		params[key] = value
	}

	return URI{
		Endpoint: endpoint,
		Params:   params,
	}
}

// Request is a parsed request. It is not modified after ReadRequest returns.
type Request struct {
	Method  Method            `json:"method"`
	URI     URI               `json:"uri"`
	Headers map[string]string `json:"headers"`
	Body    []byte            `json:"body"`
}

// ContentLength returns the value of the Content-Length header. Only the two spellings
// "Content-Length" and "content-length" are recognised.
func (req *Request) ContentLength() (uint64, error) {
	value, found := req.Headers["Content-Length"]
	if !found {
		value, found = req.Headers["content-length"]
	}
	if !found {
		return 0, ErrMalformedContentLength
	}

	n, err := atou(value)
	if err != nil {
		return 0, ErrMalformedContentLength
	}

	return n, nil
}

// RequestReader reads a single request from BR. Zero limits mean unbounded.
type RequestReader struct {
	BR             *bufio.Reader
	MaxHeaderBytes int
	MaxBodyBytes   uint64

	headerBytes int
}

// ReadRequest reads one request from br without any size limits.
func ReadRequest(br *bufio.Reader) (*Request, error) {
	reader := RequestReader{BR: br}
	return reader.Read()
}

func (reader *RequestReader) Read() (*Request, error) {
	reader.headerBytes = 0

	requestLine, err := reader.readLine()
	if err != nil {
		return nil, fmt.Errorf("http: reading request line: %w", err)
	}

	token, rest, ok := strings.Cut(requestLine, " ")
	if !ok {
		return nil, ErrMalformedFirstLine
	}
	target, _, ok := strings.Cut(rest, " ")
	if !ok {
		return nil, ErrMalformedFirstLine
	}
	method, ok := parseMethod(token)
	if !ok {
		return nil, ErrMalformedFirstLine
	}

	req := Request{
		Method:  method,
		URI:     ParseURI(target),
		Headers: make(map[string]string),
		Body:    []byte{},
	}

	for {
		line, err := reader.readLine()
		if err != nil {
			return nil, fmt.Errorf("http: reading header: %w", err)
		}
		if line == "\r\n" {
			break
		}

		line = strings.TrimRight(line, "\r\n")
		name, value, ok := strings.Cut(line, headerSep)
		if !ok {
			return nil, &ParseError{Kind: MalformedHeader, Line: line}
		}
		req.Headers[name] = value
	}

	if req.Method == MethodGet {
		return &req, nil
	}

	length, err := req.ContentLength()
	if err != nil {
		return nil, err
	}
	if length > math.MaxInt64 {
		return nil, ErrMalformedContentLength
	}
	if reader.MaxBodyBytes > 0 && length > reader.MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}

	var body bytes.Buffer
	if _, err := io.CopyN(&body, reader.BR, int64(length)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("http: reading body: %w", err)
	}
	req.Body = body.Bytes()

	return &req, nil
}

// readLine returns the next line including its terminating '\n'. A stream that ends
// before the terminator is an I/O failure.
func (reader *RequestReader) readLine() (string, error) {
	var line []byte
	for {
		chunk, err := reader.BR.ReadSlice('\n')
		if reader.MaxHeaderBytes > 0 {
			reader.headerBytes += len(chunk)
			if reader.headerBytes > reader.MaxHeaderBytes {
				return "", ErrHeaderTooLarge
			}
		}
		line = append(line, chunk...)

		switch err {
		case nil:
			return string(line), nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if len(line) > 0 {
				return "", io.ErrUnexpectedEOF
			}
			return "", io.EOF
		default:
			return "", err
		}
	}
}
