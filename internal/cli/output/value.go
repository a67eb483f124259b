package output

import "github.com/tidwall/resp"

// ToNative converts a reply into plain Go values for the structured
// encoders: strings, int64, nil, []any, and {"error": msg} for errors.
func ToNative(v resp.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Type() {
	case resp.Integer:
		return int64(v.Integer())
	case resp.Error:
		return map[string]string{"error": v.String()}
	case resp.Array:
		elems := v.Array()
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = ToNative(e)
		}
		return out
	default:
		return v.String()
	}
}

// native converts data for the structured encoders.
func native(data any) any {
	switch v := data.(type) {
	case resp.Value:
		return ToNative(v)
	case *Table:
		return v.Records()
	default:
		return data
	}
}
