package http

import (
	"bufio"
	"io"
	"strconv"
)

const headerContentLength = "Content-Length"

// Response is built by chaining With* calls and sent once with Write.
type Response struct {
	Status  uint16
	Message string
	Headers Headers
	Body    []byte

	contentLength bool
}

// NewResponse returns an empty 200 OK response carrying the server header.
func NewResponse() *Response {
	return &Response{
		Status:  StatusOK,
		Message: "OK",
		Headers: Headers{{Name: "server", Value: ServerName}},
		Body:    []byte{},
	}
}

func (res *Response) WithStatus(code uint16) *Response {
	res.Status = code
	return res
}

func (res *Response) WithStatusMessage(message string) *Response {
	res.Message = message
	return res
}

func (res *Response) WithHeader(name, value string) *Response {
	res.Headers.Set(name, value)
	return res
}

// WithHeaderIfPresent sets the header only when value is not empty.
func (res *Response) WithHeaderIfPresent(name, value string) *Response {
	if value == "" {
		return res
	}

	return res.WithHeader(name, value)
}

// WithContentLength sets Content-Length from the body. Write keeps it in sync if the
// body changes afterwards.
func (res *Response) WithContentLength() *Response {
	res.contentLength = true
	return res.WithHeader(headerContentLength, strconv.Itoa(len(res.Body)))
}

func (res *Response) WithBody(body []byte) *Response {
	res.Body = body
	return res
}

func (res *Response) WithText(text string) *Response {
	return res.WithBody([]byte(text))
}

// Write serializes the response onto w and flushes it.
func (res *Response) Write(w io.Writer) error {
	if res.contentLength {
		res.Headers.Set(headerContentLength, strconv.Itoa(len(res.Body)))
	}

	bw := bufio.NewWriterSize(w, DefaultWriteBufferSize)

	bw.WriteString(protocolHttp11)
	bw.WriteByte(' ')
	bw.WriteString(strconv.FormatUint(uint64(res.Status), 10))
	bw.WriteByte(' ')
	bw.WriteString(res.Message)
	bw.Write(crlf)

	for _, header := range res.Headers {
		bw.WriteString(header.Name)
		bw.WriteString(headerSep)
		bw.WriteString(header.Value)
		bw.Write(crlf)
	}
	bw.Write(crlf)

	if _, err := bw.Write(res.Body); err != nil {
		return err
	}

	return bw.Flush()
}

func notFoundResponse() *Response {
	return NewResponse().
		WithStatus(StatusNotFound).
		WithStatusMessage(StatusText(StatusNotFound)).
		WithText("This URI was not handled by any middleware.").
		WithContentLength()
}

func errorResponse(status uint16, err error) *Response {
	return NewResponse().
		WithStatus(status).
		WithStatusMessage(StatusText(status)).
		WithText(err.Error()).
		WithContentLength()
}
