package http

const (
	DefaultReadBufferSize  = 4096 // 4kB
	DefaultWriteBufferSize = 4096 // 4kB
)

// ServerName is the value of the server header every default response carries.
var ServerName = "tinyhttp"

var (
	crlf           = []byte("\r\n")
	protocolHttp11 = "HTTP/1.1"
	headerSep      = ": "
)

// Header is a single response header line.
type Header struct {
	Name  string
	Value string
}

// Headers keeps response headers in insertion order. Setting an existing name
// replaces its value in place.
type Headers []Header

func (headers *Headers) Set(name, value string) {
	for i := range *headers {
		if (*headers)[i].Name == name {
			(*headers)[i].Value = value
			return
		}
	}

	*headers = append(*headers, Header{Name: name, Value: value})
}

func (headers Headers) Get(name string) (string, bool) {
	for _, header := range headers {
		if header.Name == name {
			return header.Value, true
		}
	}

	return "", false
}

func (headers *Headers) Del(name string) {
	for i := range *headers {
		if (*headers)[i].Name == name {
			*headers = append((*headers)[:i], (*headers)[i+1:]...)
			return
		}
	}
}
