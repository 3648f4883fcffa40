package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"gstr2b-reconciler/internal/domain"
	"gstr2b-reconciler/internal/normalize"
)

// AmountTolerance is the business tolerance, in currency units, under which
// two invoice totals are considered equal. It absorbs rounding drift between
// a purchase register and the GSTR-2B statement, not float noise.
var AmountTolerance = decimal.NewFromFloat(2.0)

// ReconciliationUseCase orchestrates one reconciliation run: load rows,
// resolve column mappings, normalize, match, and summarize.
type ReconciliationUseCase struct {
	rows RowSource
	log  *logrus.Logger
}

// NewReconciliationUseCase creates a new instance of the usecase.
func NewReconciliationUseCase(rows RowSource, log *logrus.Logger) *ReconciliationUseCase {
	if log == nil {
		log = logrus.New()
	}
	return &ReconciliationUseCase{rows: rows, log: log}
}

// Reconcile reads the books and GSTR-2B files, normalizes both sides and
// matches them. Explicit mappings override the keyword heuristic per field;
// when neither resolves a required column the run stops with an
// *normalize.UnmappedColumnsError so the caller can supply a mapping.
func (uc *ReconciliationUseCase) Reconcile(
	ctx context.Context,
	booksPaths, gstr2bPaths []string,
	booksMapping, gstr2bMapping normalize.ColumnMapping,
) (*domain.ReconciliationReport, error) {
	books, err := uc.loadRecords(ctx, booksPaths, domain.SourceBooks, booksMapping)
	if err != nil {
		return nil, fmt.Errorf("could not load books records: %w", err)
	}

	gstr2b, err := uc.loadRecords(ctx, gstr2bPaths, domain.SourceGstr2b, gstr2bMapping)
	if err != nil {
		return nil, fmt.Errorf("could not load GSTR-2B records: %w", err)
	}

	results := Match(books, gstr2b)

	report := &domain.ReconciliationReport{Results: results}
	for _, res := range results {
		if res.BooksRecord != nil {
			report.ReconciliationSummary.TotalBooksRecords++
		}
		if res.Gstr2bRecord != nil {
			report.ReconciliationSummary.TotalGstr2bRecords++
		}
	}
	report.Tally()

	uc.log.WithFields(logrus.Fields{
		"books_raw":    len(books),
		"gstr2b_raw":   len(gstr2b),
		"books_agg":    report.ReconciliationSummary.TotalBooksRecords,
		"gstr2b_agg":   report.ReconciliationSummary.TotalGstr2bRecords,
		"matched":      report.ReconciliationSummary.Matched,
		"mismatched":   report.ReconciliationSummary.AmountMismatch,
		"inferred":     report.ReconciliationSummary.InferredMatch,
		"missing_2b":   report.ReconciliationSummary.MissingIn2b,
		"missing_book": report.ReconciliationSummary.MissingInBooks,
	}).Info("reconciliation complete")

	return report, nil
}

func (uc *ReconciliationUseCase) loadRecords(
	ctx context.Context,
	paths []string,
	source domain.Source,
	explicit normalize.ColumnMapping,
) ([]domain.CanonicalRecord, error) {
	var records []domain.CanonicalRecord
	for _, path := range paths {
		headers, rows, err := uc.rows.GetRows(ctx, path)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			uc.log.WithField("file", path).Warn("no rows found")
			continue
		}

		mapping := normalize.MergeMapping(normalize.ResolveColumns(headers), explicit)
		if missing := mapping.MissingRequired(); len(missing) > 0 {
			return nil, &normalize.UnmappedColumnsError{Source: path, Fields: missing}
		}

		batch := normalize.NormalizeRows(rows, mapping, source, uuid.NewString())
		uc.log.WithFields(logrus.Fields{"file": path, "rows": len(batch)}).Debug("file normalized")
		records = append(records, batch...)
	}
	return records, nil
}

// Match aggregates both sides once and pairs them in three phases:
//
//  1. exact match-key lookup, closest invoice total wins; within tolerance
//     MATCHED, beyond it AMOUNT_MISMATCH — a same-key pairing is consumed
//     either way;
//  2. inferred match over the remainder by GSTIN alone, first candidate
//     within tolerance, for invoice numbers the cleaning heuristic
//     normalized differently on the two sides;
//  3. whatever is left is missing on the opposite side.
//
// Every aggregated record lands in exactly one result, enforced by the two
// exclusion sets local to the run.
func Match(books, gstr2b []domain.CanonicalRecord) []domain.ReconciliationResult {
	aggBooks := aggregate(books)
	aggGstr := aggregate(gstr2b)

	results := make([]domain.ReconciliationResult, 0, len(aggBooks)+len(aggGstr))
	matchedBooks := make(map[string]bool)
	matchedGstr := make(map[string]bool)

	// Phase 1: exact key match.
	gstrByKey := make(map[string][]domain.CanonicalRecord)
	for _, g := range aggGstr {
		if g.HasCompleteKey() {
			gstrByKey[g.MatchKey] = append(gstrByKey[g.MatchKey], g)
		}
	}

	for i := range aggBooks {
		b := aggBooks[i]
		if !b.HasCompleteKey() {
			continue
		}
		best, ok := closestByValue(gstrByKey[b.MatchKey], matchedGstr, b.InvoiceValue)
		if !ok {
			continue
		}

		diff := best.InvoiceValue.Sub(b.InvoiceValue).Abs()
		status := domain.StatusMatched
		if diff.GreaterThan(AmountTolerance) {
			status = domain.StatusAmountMismatch
		}
		results = append(results, domain.ReconciliationResult{
			ID:           uuid.NewString(),
			Status:       status,
			Remarks:      fmt.Sprintf("Diff: %s", diff.StringFixed(2)),
			BooksRecord:  &aggBooks[i],
			Gstr2bRecord: best,
		})
		matchedBooks[b.ID] = true
		matchedGstr[best.ID] = true
	}

	// Phase 2: inferred match by GSTIN and amount over the remainder.
	gstrByGstin := make(map[string][]domain.CanonicalRecord)
	for _, g := range aggGstr {
		if !matchedGstr[g.ID] && g.Gstin != "" {
			gstrByGstin[g.Gstin] = append(gstrByGstin[g.Gstin], g)
		}
	}

	for i := range aggBooks {
		b := aggBooks[i]
		if matchedBooks[b.ID] || b.Gstin == "" {
			continue
		}
		for _, g := range gstrByGstin[b.Gstin] {
			if matchedGstr[g.ID] {
				continue
			}
			if g.InvoiceValue.Sub(b.InvoiceValue).Abs().LessThanOrEqual(AmountTolerance) {
				g := g
				results = append(results, domain.ReconciliationResult{
					ID:           uuid.NewString(),
					Status:       domain.StatusInferredMatch,
					Remarks:      "Matched by GSTIN & Amount",
					BooksRecord:  &aggBooks[i],
					Gstr2bRecord: &g,
				})
				matchedBooks[b.ID] = true
				matchedGstr[g.ID] = true
				break
			}
		}
	}

	// Phase 3: missing on either side.
	for i := range aggBooks {
		if !matchedBooks[aggBooks[i].ID] {
			results = append(results, domain.ReconciliationResult{
				ID:          uuid.NewString(),
				Status:      domain.StatusMissingIn2b,
				Remarks:     "Not found in GSTR-2B",
				BooksRecord: &aggBooks[i],
			})
		}
	}
	for i := range aggGstr {
		if !matchedGstr[aggGstr[i].ID] {
			results = append(results, domain.ReconciliationResult{
				ID:           uuid.NewString(),
				Status:       domain.StatusMissingInBooks,
				Remarks:      "Not found in Books",
				Gstr2bRecord: &aggGstr[i],
			})
		}
	}

	return results
}

// closestByValue picks the unmatched candidate minimizing the absolute
// invoice-value difference; ties keep the earliest candidate in group order.
func closestByValue(candidates []domain.CanonicalRecord, taken map[string]bool, value decimal.Decimal) (*domain.CanonicalRecord, bool) {
	var best *domain.CanonicalRecord
	var bestDiff decimal.Decimal
	for i := range candidates {
		if taken[candidates[i].ID] {
			continue
		}
		diff := candidates[i].InvoiceValue.Sub(value).Abs()
		if best == nil || diff.LessThan(bestDiff) {
			best = &candidates[i]
			bestDiff = diff
		}
	}
	return best, best != nil
}
