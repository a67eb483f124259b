package output

import (
	"bufio"
	"io"
	"strconv"

	"github.com/tidwall/resp"
)

// RawFormatter writes bare reply payloads, one element per line, for use
// in shell pipelines.
type RawFormatter struct{}

// Format writes data without decoration.
func (f *RawFormatter) Format(w io.Writer, data any) error {
	v, ok := data.(resp.Value)
	if !ok {
		return (&TableFormatter{NoHeaders: true}).Format(w, data)
	}
	bw := bufio.NewWriter(w)
	writeRaw(bw, v)
	return bw.Flush()
}

func writeRaw(w *bufio.Writer, v resp.Value) {
	switch {
	case v.IsNull():
		w.WriteString("\n")
	case v.Type() == resp.Integer:
		w.WriteString(strconv.Itoa(v.Integer()) + "\n")
	case v.Type() == resp.Array:
		for _, e := range v.Array() {
			writeRaw(w, e)
		}
	default:
		w.WriteString(v.String() + "\n")
	}
}
