package domain

// MatchStatus classifies one reconciliation result.
type MatchStatus string

const (
	StatusMatched        MatchStatus = "MATCHED"
	StatusAmountMismatch MatchStatus = "AMOUNT_MISMATCH"
	StatusInferredMatch  MatchStatus = "INFERRED_MATCH"
	StatusMissingIn2b    MatchStatus = "MISSING_IN_2B"
	StatusMissingInBooks MatchStatus = "MISSING_IN_BOOKS"
)

// ReconciliationResult pairs (or fails to pair) one aggregated Books record
// with one aggregated GSTR-2B record. Matched variants carry both records,
// missing variants carry exactly one.
type ReconciliationResult struct {
	ID           string           `json:"id"`
	Status       MatchStatus      `json:"status"`
	Remarks      string           `json:"remarks"`
	BooksRecord  *CanonicalRecord `json:"books_record,omitempty"`
	Gstr2bRecord *CanonicalRecord `json:"gstr2b_record,omitempty"`
}

// Summary provides high-level statistics of a reconciliation run.
type Summary struct {
	TotalBooksRecords  int `json:"total_books_records"`
	TotalGstr2bRecords int `json:"total_gstr2b_records"`
	Matched            int `json:"matched"`
	AmountMismatch     int `json:"amount_mismatch"`
	InferredMatch      int `json:"inferred_match"`
	MissingIn2b        int `json:"missing_in_2b"`
	MissingInBooks     int `json:"missing_in_books"`
}

// ReconciliationReport is the top-level structure for the final output.
type ReconciliationReport struct {
	ReconciliationSummary Summary                `json:"reconciliation_summary"`
	Results               []ReconciliationResult `json:"results"`
}

// Tally recomputes the per-status counters from the result list. Record
// totals are set by the engine, which knows the aggregated input sizes.
func (r *ReconciliationReport) Tally() {
	for _, res := range r.Results {
		switch res.Status {
		case StatusMatched:
			r.ReconciliationSummary.Matched++
		case StatusAmountMismatch:
			r.ReconciliationSummary.AmountMismatch++
		case StatusInferredMatch:
			r.ReconciliationSummary.InferredMatch++
		case StatusMissingIn2b:
			r.ReconciliationSummary.MissingIn2b++
		case StatusMissingInBooks:
			r.ReconciliationSummary.MissingInBooks++
		}
	}
}
