package normalize

import (
	"fmt"
	"strings"
)

// Canonical field names resolvable from source column headers.
const (
	FieldGstin         = "gstin"
	FieldPartyName     = "partyName"
	FieldInvoiceNumber = "invoiceNumber"
	FieldInvoiceDate   = "invoiceDate"
	FieldTaxableValue  = "taxableValue"
	FieldIgst          = "igst"
	FieldCgst          = "cgst"
	FieldSgst          = "sgst"
	FieldInvoiceValue  = "invoiceValue"
)

// RequiredFields must resolve to a source header before normalization may
// proceed; the remaining fields default to cleaner zero values when absent.
var RequiredFields = []string{FieldGstin, FieldInvoiceNumber, FieldInvoiceDate, FieldInvoiceValue}

// fieldRule is one priority-ordered keyword list for a canonical field.
// Headers containing any exclude term never match the rule.
type fieldRule struct {
	field    string
	keywords []string
	excludes []string
}

// Rules are evaluated keyword-by-keyword: the first keyword contained in
// any header wins, and among headers the first in source order is taken.
// GSTR-2B portal abbreviations (ctin, inum, txval, iamt, trdnm, ...) sit
// alongside the spellings common in purchase-register exports.
var fieldRules = []fieldRule{
	{field: FieldGstin, keywords: []string{"gstin", "ctin", "tin"}},
	{field: FieldPartyName, keywords: []string{"party name", "trade name", "supplier name", "name", "party", "trdnm"}},
	{field: FieldInvoiceNumber, keywords: []string{"invoice no", "invoice number", "inv no", "inum", "bill no", "document no"}},
	{
		field:    FieldInvoiceDate,
		keywords: []string{"invoice date", "document date", "bill date", "date", "dt"},
		excludes: []string{"supfildt", "filing"},
	},
	{field: FieldTaxableValue, keywords: []string{"taxable value", "taxable", "txval"}},
	{field: FieldIgst, keywords: []string{"igst", "integrated tax", "iamt"}},
	{field: FieldCgst, keywords: []string{"cgst", "central tax", "camt"}},
	{field: FieldSgst, keywords: []string{"sgst", "state tax", "utgst", "samt"}},
	{
		field: FieldInvoiceValue,
		keywords: []string{
			"invoice value", "total invoice value", "total invoice amount", "invoice total",
			"grand total", "total payable", "total tax", "gross total",
			"bill amount", "invoice amount", "total value", "total", "val",
		},
		excludes: []string{"taxable", "net", "assessable", "amount before", "tax val", "rate"},
	},
}

// ColumnMapping maps canonical field names to source header names. A field
// absent from the map is unmapped.
type ColumnMapping map[string]string

// MissingRequired returns the required canonical fields this mapping does
// not resolve, in declaration order.
func (m ColumnMapping) MissingRequired() []string {
	var missing []string
	for _, f := range RequiredFields {
		if m[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// UnmappedColumnsError signals that normalization cannot proceed until the
// caller supplies an explicit mapping for the named fields. It is a
// control-flow condition, not a fault: the run is retryable with a mapping.
type UnmappedColumnsError struct {
	Source string
	Fields []string
}

func (e *UnmappedColumnsError) Error() string {
	return fmt.Sprintf("cannot auto-detect required columns for %s: %s", e.Source, strings.Join(e.Fields, ", "))
}

// ResolveColumns applies the keyword heuristic to the detected headers.
// Matching is case-insensitive substring containment. The same resolver
// serves every call site so the heuristic cannot drift.
func ResolveColumns(headers []string) ColumnMapping {
	lower := make([]string, len(headers))
	for i, h := range headers {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	mapping := make(ColumnMapping)
	for _, rule := range fieldRules {
		if header, ok := findHeader(headers, lower, rule); ok {
			mapping[rule.field] = header
		}
	}
	return mapping
}

func findHeader(headers, lower []string, rule fieldRule) (string, bool) {
	for _, kw := range rule.keywords {
		for i, h := range lower {
			if containsAny(h, rule.excludes) {
				continue
			}
			// The bare "val" keyword only matches the portal's literal
			// "val" column; as a substring it would swallow "txval".
			if kw == "val" && h != "val" {
				continue
			}
			if strings.Contains(h, kw) {
				return headers[i], true
			}
		}
	}
	return "", false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// MergeMapping overlays an explicit user-confirmed mapping on top of the
// heuristic result; the explicit entries win per field.
func MergeMapping(auto, explicit ColumnMapping) ColumnMapping {
	merged := make(ColumnMapping, len(auto)+len(explicit))
	for f, h := range auto {
		merged[f] = h
	}
	for f, h := range explicit {
		if h != "" {
			merged[f] = h
		}
	}
	return merged
}
