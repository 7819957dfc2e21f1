package core

// format.go turns raw source values into the strings the table shows.
//
// Sources that already deliver a formatted string (the host's formatted value)
// keep theirs; database and file sources call NewCell, which normalizes the raw
// value to one of the supported Go types and renders it:
//   - numbers with English thousands separators (1500 -> "1,500")
//   - dates as YYYY-MM-DD, date-times as YYYY-MM-DD HH:MM:SS
//   - missing values as "Null"

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NullDisplay is shown for missing values.
const NullDisplay = "Null"

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

var printer = message.NewPrinter(language.English)

// NewCell builds a cell from a raw source value.
func NewCell(t DataType, raw any) Cell {
	raw = NormalizeRaw(raw)
	return Cell{Raw: raw, Display: FormatValue(t, raw)}
}

// NormalizeRaw maps driver-specific Go values onto the types a Cell carries:
// float64, int64, string, time.Time, bool or nil.
func NormalizeRaw(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return normalizeUint(x)
	case float32:
		return float64(x)
	case float64, string, bool, time.Time:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// normalizeUint keeps values above MaxInt64 as float64 instead of wrapping.
func normalizeUint(x uint64) any {
	if x > math.MaxInt64 {
		return float64(x)
	}
	return int64(x)
}

// FormatValue renders a normalized raw value for display.
func FormatValue(t DataType, raw any) string {
	switch x := raw.(type) {
	case nil:
		return NullDisplay
	case float64:
		return printer.Sprint(number.Decimal(x))
	case int64:
		return printer.Sprint(number.Decimal(x))
	case time.Time:
		if t == TypeDate {
			return x.Format(dateLayout)
		}
		return x.Format(dateTimeLayout)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// NumericValue returns the raw value of a numeric cell as a number.
// Numeric strings are parsed. ok is false for nil, unparseable and
// non-finite values, which a workbook cannot store as numbers.
func NumericValue(raw any) (v any, ok bool) {
	switch x := raw.(type) {
	case float64:
		if isFinite(x) {
			return x, true
		}
	case int64:
		return x, true
	case string:
		if i, err := strconv.ParseInt(x, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil && isFinite(f) {
			return f, true
		}
	}
	return nil, false
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
