package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/resp"
)

// TextFormatter renders replies the way an interactive client shows
// them: quoted strings, typed integers, numbered nested arrays.
type TextFormatter struct{}

// Format writes data in human-readable form.
func (f *TextFormatter) Format(w io.Writer, data any) error {
	if v, ok := data.(resp.Value); ok {
		var b strings.Builder
		writeText(&b, v, "")
		_, err := io.WriteString(w, b.String())
		return err
	}
	return (&TableFormatter{}).Format(w, data)
}

func writeText(b *strings.Builder, v resp.Value, indent string) {
	switch {
	case v.IsNull():
		b.WriteString("(nil)\n")
	case v.Type() == resp.Error:
		b.WriteString("(error) " + v.String() + "\n")
	case v.Type() == resp.Integer:
		b.WriteString("(integer) " + strconv.Itoa(v.Integer()) + "\n")
	case v.Type() == resp.SimpleString:
		b.WriteString(v.String() + "\n")
	case v.Type() == resp.Array:
		elems := v.Array()
		if len(elems) == 0 {
			b.WriteString("(empty array)\n")
			return
		}
		width := len(strconv.Itoa(len(elems)))
		for i, e := range elems {
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			if i > 0 {
				b.WriteString(indent)
			}
			b.WriteString(prefix)
			writeText(b, e, indent+strings.Repeat(" ", len(prefix)))
		}
	default:
		b.WriteString(strconv.Quote(v.String()) + "\n")
	}
}
