package engine

import (
	"math"
	"strconv"
	"strings"

	"github.com/yndnr/sidermem-go/internal/core/domain"
	"github.com/yndnr/sidermem-go/pkg/glob"
)

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, domain.ErrNotInteger
	}
	return n, nil
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// formatFloat renders v with at most 15 significant digits and no
// trailing zeros, so that 5.2 + -2.1 prints as 3.1.
func formatFloat(v float64) string {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', 15, 64), 64)
	if err != nil {
		r = v
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// addInt adds delta to cur, reporting overflow.
func addInt(cur, delta int64) (int64, error) {
	if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
		return 0, domain.ErrIncrOverflow
	}
	return cur + delta, nil
}

// toMillis converts n units of unit milliseconds, rejecting overflow.
func toMillis(cmd string, n, unit int64) (int64, error) {
	if n > math.MaxInt64/unit || n < math.MinInt64/unit {
		return 0, domain.ErrInvalidExpire(cmd)
	}
	return n * unit, nil
}

// ============================================================================
// Expiry options
// ============================================================================

// expireCond is the NX|XX|GT|LT modifier of the EXPIRE family.
type expireCond string

const (
	condNone expireCond = ""
	condNX   expireCond = "NX"
	condXX   expireCond = "XX"
	condGT   expireCond = "GT"
	condLT   expireCond = "LT"
)

func parseExpireCond(args []string) (expireCond, error) {
	switch len(args) {
	case 0:
		return condNone, nil
	case 1:
		switch c := expireCond(strings.ToUpper(args[0])); c {
		case condNX, condXX, condGT, condLT:
			return c, nil
		}
	}
	return condNone, domain.ErrSyntax
}

// expiryOption parses one of EX, PX, EXAT or PXAT at args[i] into an
// absolute millisecond timestamp. ok is false when args[i] is none of them.
// The amount must be positive.
func expiryOption(cmd string, args []string, i int, nowMs int64) (at int64, ok bool, err error) {
	var unit int64 = 1
	relative := true
	switch strings.ToUpper(args[i]) {
	case "EX":
		unit = 1000
	case "PX":
	case "EXAT":
		unit, relative = 1000, false
	case "PXAT":
		relative = false
	default:
		return 0, false, nil
	}
	if i+1 >= len(args) {
		return 0, true, domain.ErrSyntax
	}
	n, err := parseInt(args[i+1])
	if err != nil {
		return 0, true, err
	}
	if n <= 0 {
		return 0, true, domain.ErrInvalidExpire(cmd)
	}
	ms, err := toMillis(cmd, n, unit)
	if err != nil {
		return 0, true, err
	}
	if relative {
		if ms > 0 && nowMs > math.MaxInt64-ms {
			return 0, true, domain.ErrInvalidExpire(cmd)
		}
		ms += nowMs
	}
	return ms, true, nil
}

// ============================================================================
// Scan options
// ============================================================================

const defaultScanCount = 10

type scanOptions struct {
	match   *glob.Matcher
	count   int
	typ     domain.Type
	typed   bool
	noValue bool
}

func (o *scanOptions) matches(s string) bool {
	return o.match == nil || o.match.Match(s)
}

// parseScanOptions reads MATCH, COUNT and, when allowType is set, TYPE.
func parseScanOptions(args []string, allowType bool) (*scanOptions, error) {
	opts := &scanOptions{count: defaultScanCount}
	for i := 0; i < len(args); i++ {
		opt := strings.ToUpper(args[i])
		if opt == "NOVALUES" && !allowType {
			opts.noValue = true
			continue
		}
		if i+1 >= len(args) {
			return nil, domain.ErrSyntax
		}
		i++
		val := args[i]
		switch {
		case opt == "MATCH":
			opts.match = glob.Compile(val)
		case opt == "COUNT":
			n, err := parseInt(val)
			if err != nil {
				return nil, err
			}
			if n < 1 {
				return nil, domain.ErrSyntax
			}
			opts.count = int(min(n, math.MaxInt32))
		case opt == "TYPE" && allowType:
			t, _ := domain.ParseType(val)
			opts.typ, opts.typed = t, true
		default:
			return nil, domain.ErrSyntax
		}
	}
	return opts, nil
}

func parseCursor(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidCursor
	}
	return n, nil
}
