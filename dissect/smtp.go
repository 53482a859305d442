package dissect

import (
	"bytes"

	"github.com/dreadl0ck/netwatch/netwatchtypes"
)

var smtpCommandPrefixes = [][]byte{
	[]byte("EHLO "),
	[]byte("HELO "),
	[]byte("MAIL "),
	[]byte("RCPT "),
	[]byte("DATA"),
	[]byte("QUIT"),
}

// SMTP classifies payload as an SMTP command or response per spec.md
// §4.4: a 3-digit-status-then-space response, or one of the exact command
// prefixes.
func SMTP(payload []byte) bool {
	for _, p := range smtpCommandPrefixes {
		if bytes.HasPrefix(payload, p) {
			return true
		}
	}

	if len(payload) < 4 {
		return false
	}
	for i := 0; i < 3; i++ {
		if payload[i] < '0' || payload[i] > '9' {
			return false
		}
	}
	return payload[3] == ' '
}
