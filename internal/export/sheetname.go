package export

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSheetNameLength is the longest sheet name a workbook accepts.
const MaxSheetNameLength = 31

// ErrEmptyTable is returned when there is nothing to export.
var ErrEmptyTable = errors.New("table has no columns")

// InvalidSheetNameError reports a sheet name that is unusable even after
// sanitizing.
type InvalidSheetNameError struct {
	Name   string
	Reason string
}

func (e *InvalidSheetNameError) Error() string {
	return fmt.Sprintf("invalid sheet name %q: %s", e.Name, e.Reason)
}

var sheetNameReplacer = strings.NewReplacer(
	":", "", `\`, "", "/", "", "?", "", "*", "", "[", "", "]", "",
)

// SanitizeSheetName strips characters a worksheet name may not contain,
// control characters included, and truncates it to MaxSheetNameLength runes.
func SanitizeSheetName(name string) (string, error) {
	clean := strings.Map(dropControl, sheetNameReplacer.Replace(name))
	clean = strings.Trim(clean, "' ")

	if utf8.RuneCountInString(clean) > MaxSheetNameLength {
		clean = string([]rune(clean)[:MaxSheetNameLength])
		clean = strings.TrimRight(clean, "' ")
	}

	switch {
	case clean == "":
		return "", &InvalidSheetNameError{Name: name, Reason: "empty after removing forbidden characters"}
	case strings.EqualFold(clean, "History"):
		return "", &InvalidSheetNameError{Name: name, Reason: "reserved name"}
	}
	return clean, nil
}

func dropControl(r rune) rune {
	if unicode.IsControl(r) {
		return -1
	}
	return r
}

// NormalizeExtension returns ext with a leading dot, or def when ext is blank.
func NormalizeExtension(ext, def string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		ext = def
	}
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
