package usecase

import (
	"gstr2b-reconciler/internal/domain"
)

// aggregate collapses records sharing a complete match key into one record
// per key: identifying fields from the first member seen, the five amount
// fields summed across the group. Output preserves first-seen order.
//
// Summing is deliberate: source files split one invoice across tax-rate
// lines, and multiple uploads (monthly statements) contribute additively
// to the same invoice total. The policy is always-additive, so re-uploading
// a corrected copy of the same file double-counts its amounts.
//
// Records missing GSTIN or invoice number have an incomplete key that
// carries no matching information; each stays its own singleton group.
func aggregate(records []domain.CanonicalRecord) []domain.CanonicalRecord {
	out := make([]domain.CanonicalRecord, 0, len(records))
	indexByKey := make(map[string]int)

	for _, r := range records {
		if !r.HasCompleteKey() {
			out = append(out, r)
			continue
		}
		i, seen := indexByKey[r.MatchKey]
		if !seen {
			indexByKey[r.MatchKey] = len(out)
			out = append(out, r)
			continue
		}
		out[i].TaxableValue = out[i].TaxableValue.Add(r.TaxableValue)
		out[i].Igst = out[i].Igst.Add(r.Igst)
		out[i].Cgst = out[i].Cgst.Add(r.Cgst)
		out[i].Sgst = out[i].Sgst.Add(r.Sgst)
		out[i].InvoiceValue = out[i].InvoiceValue.Add(r.InvoiceValue)
	}
	return out
}
