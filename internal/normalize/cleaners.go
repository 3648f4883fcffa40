package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The cleaners are total: any input shape yields a defined default ("" or
// zero) rather than an error, so downstream stages never branch on
// malformed values.

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	digitRunRe   = regexp.MustCompile(`\d+`)
	isoPrefixRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// yearTokens holds digit runs that look like calendar years, financial-year
// codes ("2425" for 2024-25) or bare 2-digit year codes, for 2020 through
// 2030. The invoice-number cleaner skips these when picking the run that
// identifies the invoice.
var yearTokens = buildYearTokens()

func buildYearTokens() map[string]struct{} {
	tokens := make(map[string]struct{})
	for y := 2020; y <= 2030; y++ {
		tokens[strconv.Itoa(y)] = struct{}{}
	}
	for y := 20; y < 30; y++ {
		tokens[strconv.Itoa(y*100+y+1)] = struct{}{} // "2021", "2122", ... "2930"
	}
	for y := 20; y <= 30; y++ {
		tokens[strconv.Itoa(y)] = struct{}{}
	}
	return tokens
}

// stringify renders a raw cell value for cleaning. Floats that hold whole
// numbers print without an exponent or trailing fraction, matching how
// spreadsheet cells round-trip through JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// CleanGstin strips all whitespace and uppercases. Absent input yields "".
func CleanGstin(v any) string {
	s := stringify(v)
	if s == "" {
		return ""
	}
	return strings.ToUpper(whitespaceRe.ReplaceAllString(s, ""))
}

// CleanNumeric parses an amount, tolerating thousands-separator commas and
// surrounding whitespace. Absent or unparseable input yields zero.
func CleanNumeric(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case float32:
		return decimal.NewFromFloat32(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	}
	s := strings.TrimSpace(strings.ReplaceAll(stringify(v), ",", ""))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CleanInvoiceNumber reduces an invoice number to the digit run that most
// likely identifies the invoice, stripping filing-period noise such as
// embedded financial years ("INV/2425/001" -> "1"). It scans digit runs
// right to left, skipping year-like tokens, and integer-normalizes the
// chosen run. A biased heuristic, not exact parsing.
func CleanInvoiceNumber(v any) string {
	s := strings.TrimSpace(stringify(v))
	if s == "" || strings.EqualFold(s, "nan") {
		return ""
	}

	runs := digitRunRe.FindAllString(s, -1)
	if len(runs) == 0 {
		return s
	}

	if len(runs) > 1 {
		for i := len(runs) - 1; i >= 0; i-- {
			if _, excluded := yearTokens[runs[i]]; !excluded {
				return stripLeadingZeros(runs[i])
			}
		}
	}

	// Single run, or every run looked like a year token.
	return stripLeadingZeros(runs[len(runs)-1])
}

func stripLeadingZeros(digits string) string {
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// excelEpochOffsetDays is the distance between the spreadsheet serial-date
// epoch (1899-12-30) and 1970-01-01.
const excelEpochOffsetDays = 25569

// NormalizeDate renders a date-ish value as YYYY-MM-DD. It accepts a
// spreadsheet numeric serial, an ISO-prefixed string (truncated at 'T'),
// or a three-part string with '-', '/' or '.' separators where the 4-digit
// part decides between DD-MM-YYYY and YYYY-MM-DD order. Anything else is
// passed through unchanged; absent input yields "".
func NormalizeDate(v any) string {
	if serial, ok := numericValue(v); ok {
		if serial == 0 {
			return ""
		}
		secs := int64(serial*86400) - excelEpochOffsetDays*86400
		return time.Unix(secs, 0).UTC().Format(time.DateOnly)
	}

	s := strings.TrimSpace(stringify(v))
	if s == "" {
		return ""
	}

	if isoPrefixRe.MatchString(s) {
		if i := strings.IndexByte(s, 'T'); i >= 0 {
			return s[:i]
		}
		return s
	}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '/' || r == '.'
	})
	if len(parts) == 3 {
		if len(parts[2]) == 4 { // DD-MM-YYYY
			return parts[2] + "-" + pad2(parts[1]) + "-" + pad2(parts[0])
		}
		if len(parts[0]) == 4 { // YYYY-MM-DD
			return parts[0] + "-" + pad2(parts[1]) + "-" + pad2(parts[2])
		}
	}

	return s
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
