package domain

import "github.com/shopspring/decimal"

// Source identifies which side of the reconciliation a record belongs to.
type Source string

const (
	SourceBooks  Source = "BOOKS"
	SourceGstr2b Source = "GSTR2B"
)

// RawRow is one flattened input row as produced by a file gateway:
// source column header -> cell value (string, number or nil).
type RawRow map[string]any

// CanonicalRecord is the unit of comparison between Books and GSTR-2B.
// Identifying fields are cleaned at normalization time; the five amount
// fields are summed during aggregation.
type CanonicalRecord struct {
	ID                    string          `json:"id"`
	BatchID               string          `json:"batch_id"`
	Source                Source          `json:"source"`
	Gstin                 string          `json:"gstin"`
	SupplierName          string          `json:"supplier_name"`
	InvoiceNumber         string          `json:"invoice_number"`
	OriginalInvoiceNumber string          `json:"original_invoice_number"`
	InvoiceDate           string          `json:"invoice_date"` // YYYY-MM-DD, or "" if unparseable
	TaxableValue          decimal.Decimal `json:"taxable_value"`
	Igst                  decimal.Decimal `json:"igst"`
	Cgst                  decimal.Decimal `json:"cgst"`
	Sgst                  decimal.Decimal `json:"sgst"`
	InvoiceValue          decimal.Decimal `json:"invoice_value"`
	MatchKey              string          `json:"match_key"`
}

// BuildMatchKey derives the composite join key from a cleaned GSTIN and
// invoice number. It is recomputed from its inputs, never set independently.
func BuildMatchKey(gstin, invoiceNumber string) string {
	return gstin + "_" + invoiceNumber
}

// HasCompleteKey reports whether both components of the match key are
// present. Records with an incomplete key carry no matching information:
// they are never aggregated together and never exact-matched.
func (r CanonicalRecord) HasCompleteKey() bool {
	return r.Gstin != "" && r.InvoiceNumber != ""
}
