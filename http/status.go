package http

const (
	StatusOK uint16 = 200 // RFC 7231, 6.3.1

	StatusNotFound              uint16 = 404 // RFC 7231, 6.5.4
	StatusRequestEntityTooLarge uint16 = 413 // RFC 7231, 6.5.11

	StatusRequestHeaderFieldsTooLarge uint16 = 431 // RFC 6585, 5

	StatusInternalServerError uint16 = 500 // RFC 7231, 6.6.1
)

var statusMessages = map[uint16]string{
	StatusOK: "OK",

	StatusNotFound:              "Not Found",
	StatusRequestEntityTooLarge: "Request Entity Too Large",

	StatusRequestHeaderFieldsTooLarge: "Request Header Fields Too Large",

	StatusInternalServerError: "Internal Server Error",
}

// StatusText returns the reason phrase for code, or an empty string if it is unknown.
func StatusText(code uint16) string {
	return statusMessages[code]
}
