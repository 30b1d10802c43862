package remediation

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/TFMV/reconcile/pkg/core"
)

// Literal renders a value as a SQL literal.
func Literal(v core.Value) string {
	switch v.Kind() {
	case core.KindNull:
		return "NULL"
	case core.KindInt:
		n, _ := v.AsInt()
		return strconv.FormatInt(n, 10)
	case core.KindFloat:
		f, _ := v.AsFloat()
		switch {
		case math.IsNaN(f):
			return "'NaN'"
		case math.IsInf(f, 1):
			return "'Infinity'"
		case math.IsInf(f, -1):
			return "'-Infinity'"
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case core.KindDecimal:
		s, _ := v.AsString()
		return s
	case core.KindBool:
		if b, _ := v.AsBool(); b {
			return "1"
		}
		return "0"
	case core.KindTime:
		t, _ := v.AsTime()
		layout := "2006-01-02 15:04:05.9999999"
		if t.Location() != time.UTC {
			layout += " -07:00"
		}
		return quote(t.Format(layout))
	case core.KindBytes:
		b, _ := v.AsBytes()
		return "0x" + strings.ToUpper(hex.EncodeToString(b))
	default:
		// strings and arrays
		return quote(v.String())
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// guard keeps rendered text from closing the comment block it is placed in.
func guard(s string) string {
	return strings.ReplaceAll(s, "*/", "* /")
}
