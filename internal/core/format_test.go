package core

import (
	"errors"
	"math"
	"strconv"
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	day := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		typ  DataType
		raw  any
		want string
	}{
		{"nil", TypeFloat, nil, "Null"},
		{"float thousands", TypeFloat, 1500.0, "1,500"},
		{"int thousands", TypeInt, int64(1234567), "1,234,567"},
		{"small int", TypeInt, int64(900), "900"},
		{"negative", TypeInt, int64(-2500), "-2,500"},
		{"date", TypeDate, day, "2024-01-15"},
		{"date-time", TypeDateTime, day, "2024-01-15 09:30:00"},
		{"bool", TypeBool, true, "true"},
		{"string", TypeString, "East", "East"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.typ, tt.raw); got != tt.want {
				t.Errorf("FormatValue(%v, %v) = %q, want %q", tt.typ, tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeRaw(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 7, int64(7)},
		{"int32", int32(7), int64(7)},
		{"uint8", uint8(7), int64(7)},
		{"uint64 in range", uint64(math.MaxInt64), int64(math.MaxInt64)},
		{"uint64 overflow", uint64(math.MaxUint64), float64(math.MaxUint64)},
		{"float32", float32(1.5), float64(1.5)},
		{"bytes", []byte("abc"), "abc"},
		{"nil", nil, nil},
		{"string", "x", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeRaw(tt.in); got != tt.want {
				t.Errorf("NormalizeRaw(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}

	if strconv.IntSize == 64 {
		if got := NormalizeRaw(^uint(0)); got != float64(math.MaxUint64) {
			t.Errorf("NormalizeRaw(max uint) = %#v, want float64", got)
		}
	}
}

func TestNumericValue(t *testing.T) {
	tests := []struct {
		raw    any
		want   any
		wantOK bool
	}{
		{1500.0, 1500.0, true},
		{int64(1234), int64(1234), true},
		{"42", int64(42), true},
		{"3.5", 3.5, true},
		{"1,234", nil, false},
		{math.NaN(), nil, false},
		{math.Inf(1), nil, false},
		{math.Inf(-1), nil, false},
		{"NaN", nil, false},
		{"-Inf", nil, false},
		{"Infinity", nil, false},
		{nil, nil, false},
		{true, nil, false},
	}

	for _, tt := range tests {
		got, ok := NumericValue(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("NumericValue(%#v) = (%#v, %v), want (%#v, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseDataType(t *testing.T) {
	tests := map[string]DataType{
		"float":     TypeFloat,
		"INT":       TypeInt,
		"date-time": TypeDateTime,
		"boolean":   TypeBool,
		" string ":  TypeString,
		"geography": TypeUnknown,
	}
	for in, want := range tests {
		if got := ParseDataType(in); got != want {
			t.Errorf("ParseDataType(%q) = %q, want %q", in, got, want)
		}
	}
	if !TypeInt.IsNumeric() || !TypeFloat.IsNumeric() || TypeDate.IsNumeric() {
		t.Error("IsNumeric must be true for int and float only")
	}
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		in      string
		want    ChangeSignal
		wantErr bool
	}{
		{"filter_changed", ChangeSignal{Kind: FilterChanged}, false},
		{"parameter_changed:Region", ChangeSignal{Kind: ParameterChanged, Param: "Region"}, false},
		{" MANUAL_REFRESH ", ChangeSignal{Kind: ManualRefresh}, false},
		{"summary_data_changed:ignored", ChangeSignal{Kind: SummaryDataChanged}, false},
		{"mark_selection_changed", ChangeSignal{}, true},
		{"", ChangeSignal{}, true},
	}

	for _, tt := range tests {
		got, err := ParseSignal(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownSignal) {
				t.Errorf("ParseSignal(%q) error = %v, want ErrUnknownSignal", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSignal(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSignal(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}

	if !(ChangeSignal{Kind: ParameterChanged}).Debounced() {
		t.Error("ParameterChanged must be debounced")
	}
	if (ChangeSignal{Kind: FilterChanged}).Debounced() {
		t.Error("FilterChanged must render directly")
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&TransportError{Op: "fetch snapshot", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("TransportError must unwrap to its cause")
	}
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "fetch snapshot" {
		t.Errorf("errors.As failed: %v", err)
	}
}
