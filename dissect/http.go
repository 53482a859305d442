package dissect

import (
	"bytes"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

// httpRequestPrefixes are the literal request-line prefixes spec.md §4.4
// recognizes, each including the trailing space so "GET/" is rejected
// while "GET " is accepted.
var httpRequestPrefixes = [][]byte{
	[]byte("GET "),
	[]byte("POST "),
	[]byte("PUT "),
	[]byte("DELETE "),
	[]byte("HEAD "),
	[]byte("OPTIONS "),
	[]byte("PATCH "),
}

var httpResponsePrefix = []byte("HTTP/")

// HTTP classifies payload as an HTTP request or response per spec.md
// §4.4. ok is false when neither pattern matches.
func HTTP(payload []byte) (data netwatchtypes.HTTPData, ok bool) {
	for _, p := range httpRequestPrefixes {
		if bytes.HasPrefix(payload, p) {
			method := bytes.TrimSpace(p)
			return netwatchtypes.HTTPData{IsRequest: true, Method: string(method)}, true
		}
	}

	if bytes.HasPrefix(payload, httpResponsePrefix) {
		code := parseStatusCode(payload)
		return netwatchtypes.HTTPData{IsRequest: false, StatusCode: code}, true
	}

	return netwatchtypes.HTTPData{}, false
}

// parseStatusCode extracts the 3-digit status code following "HTTP/x.y ".
func parseStatusCode(payload []byte) int {
	sp := bytes.IndexByte(payload, ' ')
	if sp < 0 || sp+4 > len(payload) {
		return 0
	}
	digits := payload[sp+1 : sp+4]
	code := 0
	for _, d := range digits {
		if d < '0' || d > '9' {
			return 0
		}
		code = code*10 + int(d-'0')
	}
	return code
}
