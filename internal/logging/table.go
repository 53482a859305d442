package logging

import (
	"io"
	"strconv"

	"github.com/evilsocket/islazy/tui"
)

// StatsTable renders a flat set of label/value pairs as a table, the way
// the teacher dumps reassembly and HTTP stats via tui.Table in
// encoder/tcpConnection.go and encoder/http.go.
func StatsTable(w io.Writer, title string, rows [][2]string) {
	header := []string{title, "Value"}
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{r[0], r[1]})
	}
	tui.Table(w, header, data)
}

// U64Row is a small helper for building StatsTable rows from uint64
// counters without repeating strconv.FormatUint at every call site.
func U64Row(label string, v uint64) [2]string {
	return [2]string{label, strconv.FormatUint(v, 10)}
}

// I64Row is the int64 equivalent of U64Row.
func I64Row(label string, v int64) [2]string {
	return [2]string{label, strconv.FormatInt(v, 10)}
}
