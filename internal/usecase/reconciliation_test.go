package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"gstr2b-reconciler/internal/domain"
	"gstr2b-reconciler/internal/normalize"
	"gstr2b-reconciler/internal/usecase"
	mock_usecase "gstr2b-reconciler/internal/usecase/mocks"
)

func rec(id string, source domain.Source, gstin, inv string, value float64) domain.CanonicalRecord {
	return domain.CanonicalRecord{
		ID:            id,
		Source:        source,
		Gstin:         gstin,
		InvoiceNumber: inv,
		InvoiceValue:  decimal.NewFromFloat(value),
		MatchKey:      domain.BuildMatchKey(gstin, inv),
	}
}

func TestMatch(t *testing.T) {
	const gstin = "27AAAAA0000A1Z5"

	tests := []struct {
		name       string
		books      []domain.CanonicalRecord
		gstr2b     []domain.CanonicalRecord
		wantStatus []domain.MatchStatus
		wantRemark []string
	}{
		{
			name:       "exact match within tolerance",
			books:      []domain.CanonicalRecord{rec("b1", domain.SourceBooks, gstin, "12", 1180)},
			gstr2b:     []domain.CanonicalRecord{rec("g1", domain.SourceGstr2b, gstin, "12", 1180)},
			wantStatus: []domain.MatchStatus{domain.StatusMatched},
			wantRemark: []string{"Diff: 0.00"},
		},
		{
			name:       "difference at exactly the tolerance still matches",
			books:      []domain.CanonicalRecord{rec("b1", domain.SourceBooks, gstin, "12", 1180)},
			gstr2b:     []domain.CanonicalRecord{rec("g1", domain.SourceGstr2b, gstin, "12", 1182)},
			wantStatus: []domain.MatchStatus{domain.StatusMatched},
			wantRemark: []string{"Diff: 2.00"},
		},
		{
			name:       "just past tolerance is a mismatch and still consumes the pair",
			books:      []domain.CanonicalRecord{rec("b1", domain.SourceBooks, gstin, "12", 1180)},
			gstr2b:     []domain.CanonicalRecord{rec("g1", domain.SourceGstr2b, gstin, "12", 1182.01)},
			wantStatus: []domain.MatchStatus{domain.StatusAmountMismatch},
			wantRemark: []string{"Diff: 2.01"},
		},
		{
			name:  "closest candidate wins on shared key",
			books: []domain.CanonicalRecord{rec("b1", domain.SourceBooks, gstin, "12", 1000)},
			gstr2b: []domain.CanonicalRecord{
				rec("g1", domain.SourceGstr2b, gstin, "12", 1500),
				rec("g2", domain.SourceGstr2b, gstin, "12", 1001),
			},
			wantStatus: []domain.MatchStatus{domain.StatusMatched, domain.StatusMissingInBooks},
			wantRemark: []string{"Diff: 1.00", "Not found in Books"},
		},
		{
			name:       "inferred match by gstin and amount",
			books:      []domain.CanonicalRecord{rec("b1", domain.SourceBooks, gstin, "5", 500)},
			gstr2b:     []domain.CanonicalRecord{rec("g1", domain.SourceGstr2b, gstin, "9", 501)},
			wantStatus: []domain.MatchStatus{domain.StatusInferredMatch},
			wantRemark: []string{"Matched by GSTIN & Amount"},
		},
		{
			name:       "missing in 2b",
			books:      []domain.CanonicalRecord{rec("b1", domain.SourceBooks, "X", "1", 100)},
			gstr2b:     nil,
			wantStatus: []domain.MatchStatus{domain.StatusMissingIn2b},
			wantRemark: []string{"Not found in GSTR-2B"},
		},
		{
			name:       "missing in books",
			books:      nil,
			gstr2b:     []domain.CanonicalRecord{rec("g1", domain.SourceGstr2b, "X", "1", 100)},
			wantStatus: []domain.MatchStatus{domain.StatusMissingInBooks},
			wantRemark: []string{"Not found in Books"},
		},
		{
			name: "degenerate keys never match each other",
			books: []domain.CanonicalRecord{
				rec("b1", domain.SourceBooks, "", "", 100),
			},
			gstr2b: []domain.CanonicalRecord{
				rec("g1", domain.SourceGstr2b, "", "", 100),
			},
			wantStatus: []domain.MatchStatus{domain.StatusMissingIn2b, domain.StatusMissingInBooks},
			wantRemark: []string{"Not found in GSTR-2B", "Not found in Books"},
		},
		{
			name: "gstin without invoice number can still be inferred",
			books: []domain.CanonicalRecord{
				rec("b1", domain.SourceBooks, gstin, "", 750),
			},
			gstr2b: []domain.CanonicalRecord{
				rec("g1", domain.SourceGstr2b, gstin, "77", 750),
			},
			wantStatus: []domain.MatchStatus{domain.StatusInferredMatch},
			wantRemark: []string{"Matched by GSTIN & Amount"},
		},
		{
			name: "phase ordering groups results",
			books: []domain.CanonicalRecord{
				rec("b1", domain.SourceBooks, "G1", "1", 100), // missing
				rec("b2", domain.SourceBooks, "G2", "2", 200), // exact
				rec("b3", domain.SourceBooks, "G3", "5", 300), // inferred
			},
			gstr2b: []domain.CanonicalRecord{
				rec("g1", domain.SourceGstr2b, "G2", "2", 200),
				rec("g2", domain.SourceGstr2b, "G3", "9", 300.5),
				rec("g3", domain.SourceGstr2b, "G4", "4", 400), // missing
			},
			wantStatus: []domain.MatchStatus{
				domain.StatusMatched,
				domain.StatusInferredMatch,
				domain.StatusMissingIn2b,
				domain.StatusMissingInBooks,
			},
			wantRemark: []string{
				"Diff: 0.00",
				"Matched by GSTIN & Amount",
				"Not found in GSTR-2B",
				"Not found in Books",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecase.Match(tt.books, tt.gstr2b)

			statuses := make([]domain.MatchStatus, len(got))
			remarks := make([]string, len(got))
			for i, r := range got {
				statuses[i] = r.Status
				remarks[i] = r.Remarks
			}
			assert.Equal(t, tt.wantStatus, statuses)
			assert.Equal(t, tt.wantRemark, remarks)

			assertOneToOneAndComplete(t, tt.books, tt.gstr2b, got)
		})
	}
}

// assertOneToOneAndComplete checks the structural invariants: every
// aggregated input record lands in exactly one result, matched variants
// carry both sides, missing variants exactly one.
func assertOneToOneAndComplete(t *testing.T, books, gstr2b []domain.CanonicalRecord, results []domain.ReconciliationResult) {
	t.Helper()

	seenBooks := make(map[string]int)
	seenGstr := make(map[string]int)
	for _, r := range results {
		missing := r.Status == domain.StatusMissingIn2b || r.Status == domain.StatusMissingInBooks
		if missing {
			assert.True(t, (r.BooksRecord == nil) != (r.Gstr2bRecord == nil))
		} else {
			assert.NotNil(t, r.BooksRecord)
			assert.NotNil(t, r.Gstr2bRecord)
		}
		if r.BooksRecord != nil {
			seenBooks[r.BooksRecord.ID]++
		}
		if r.Gstr2bRecord != nil {
			seenGstr[r.Gstr2bRecord.ID]++
		}
	}
	for id, n := range seenBooks {
		assert.Equal(t, 1, n, "books record %s appears %d times", id, n)
	}
	for id, n := range seenGstr {
		assert.Equal(t, 1, n, "gstr2b record %s appears %d times", id, n)
	}
}

func TestMatch_AggregatesBeforeMatching(t *testing.T) {
	const gstin = "27AAAAA0000A1Z5"

	// Two split tax lines in books sum to the one statement line.
	books := []domain.CanonicalRecord{
		rec("b1", domain.SourceBooks, gstin, "100", 590),
		rec("b2", domain.SourceBooks, gstin, "100", 590),
	}
	gstr2b := []domain.CanonicalRecord{rec("g1", domain.SourceGstr2b, gstin, "100", 1180)}

	got := usecase.Match(books, gstr2b)
	assert.Len(t, got, 1)
	assert.Equal(t, domain.StatusMatched, got[0].Status)
	assert.Equal(t, "Diff: 0.00", got[0].Remarks)
}

func TestMatch_TieBreakKeepsFirstCandidate(t *testing.T) {
	books := []domain.CanonicalRecord{rec("b1", domain.SourceBooks, "G", "1", 100)}
	gstr2b := []domain.CanonicalRecord{
		rec("g1", domain.SourceGstr2b, "G", "1", 101),
		rec("g2", domain.SourceGstr2b, "G", "1", 99),
	}

	got := usecase.Match(books, gstr2b)
	assert.Equal(t, "g1", got[0].Gstr2bRecord.ID) // equal |diff|, first in group order
}

func TestReconciliationUseCase_Reconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	headers := []string{"GSTIN", "Invoice No", "Invoice Date", "Invoice Value"}
	booksRow := domain.RawRow{"GSTIN": "27AAAAA0000A1Z5", "Invoice No": "12", "Invoice Date": "31-03-2024", "Invoice Value": "1180"}
	gstrRow := domain.RawRow{"GSTIN": "27AAAAA0000A1Z5", "Invoice No": "12", "Invoice Date": "31-03-2024", "Invoice Value": "1180"}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	t.Run("end to end match", func(t *testing.T) {
		mRows := mock_usecase.NewMockRowSource(ctrl)
		mRows.EXPECT().GetRows(gomock.Any(), "books.xlsx").Return(headers, []domain.RawRow{booksRow}, nil)
		mRows.EXPECT().GetRows(gomock.Any(), "gstr2b.json").Return(headers, []domain.RawRow{gstrRow}, nil)

		uc := usecase.NewReconciliationUseCase(mRows, log)
		report, err := uc.Reconcile(context.Background(), []string{"books.xlsx"}, []string{"gstr2b.json"}, nil, nil)

		assert.NoError(t, err)
		assert.Len(t, report.Results, 1)
		assert.Equal(t, domain.StatusMatched, report.Results[0].Status)
		assert.Equal(t, "Diff: 0.00", report.Results[0].Remarks)
		assert.Equal(t, domain.Summary{
			TotalBooksRecords:  1,
			TotalGstr2bRecords: 1,
			Matched:            1,
		}, report.ReconciliationSummary)
	})

	t.Run("explicit mapping overrides heuristic", func(t *testing.T) {
		oddHeaders := []string{"col_a", "col_b", "col_c", "col_d"}
		oddRow := domain.RawRow{"col_a": "27AAAAA0000A1Z5", "col_b": "12", "col_c": "31-03-2024", "col_d": "1180"}
		mapping := normalize.ColumnMapping{
			normalize.FieldGstin:         "col_a",
			normalize.FieldInvoiceNumber: "col_b",
			normalize.FieldInvoiceDate:   "col_c",
			normalize.FieldInvoiceValue:  "col_d",
		}

		mRows := mock_usecase.NewMockRowSource(ctrl)
		mRows.EXPECT().GetRows(gomock.Any(), "books.csv").Return(oddHeaders, []domain.RawRow{oddRow}, nil)
		mRows.EXPECT().GetRows(gomock.Any(), "gstr2b.json").Return(headers, []domain.RawRow{gstrRow}, nil)

		uc := usecase.NewReconciliationUseCase(mRows, log)
		report, err := uc.Reconcile(context.Background(), []string{"books.csv"}, []string{"gstr2b.json"}, mapping, nil)

		assert.NoError(t, err)
		assert.Len(t, report.Results, 1)
		assert.Equal(t, domain.StatusMatched, report.Results[0].Status)
	})

	t.Run("unresolvable required columns surface as typed error", func(t *testing.T) {
		mRows := mock_usecase.NewMockRowSource(ctrl)
		mRows.EXPECT().GetRows(gomock.Any(), "books.csv").
			Return([]string{"alpha", "beta"}, []domain.RawRow{{"alpha": "1"}}, nil)

		uc := usecase.NewReconciliationUseCase(mRows, log)
		_, err := uc.Reconcile(context.Background(), []string{"books.csv"}, []string{"gstr2b.json"}, nil, nil)

		var unmapped *normalize.UnmappedColumnsError
		assert.ErrorAs(t, err, &unmapped)
		assert.Equal(t, "books.csv", unmapped.Source)
		assert.Contains(t, unmapped.Fields, normalize.FieldGstin)
	})

	t.Run("row source error propagates", func(t *testing.T) {
		mRows := mock_usecase.NewMockRowSource(ctrl)
		mRows.EXPECT().GetRows(gomock.Any(), "books.csv").Return(nil, nil, errors.New("boom"))

		uc := usecase.NewReconciliationUseCase(mRows, log)
		report, err := uc.Reconcile(context.Background(), []string{"books.csv"}, []string{"gstr2b.json"}, nil, nil)

		assert.Error(t, err)
		assert.Nil(t, report)
	})

	t.Run("empty files produce an empty report", func(t *testing.T) {
		mRows := mock_usecase.NewMockRowSource(ctrl)
		mRows.EXPECT().GetRows(gomock.Any(), "books.csv").Return(nil, nil, nil)
		mRows.EXPECT().GetRows(gomock.Any(), "gstr2b.json").Return(nil, nil, nil)

		uc := usecase.NewReconciliationUseCase(mRows, log)
		report, err := uc.Reconcile(context.Background(), []string{"books.csv"}, []string{"gstr2b.json"}, nil, nil)

		assert.NoError(t, err)
		assert.Empty(t, report.Results)
		assert.Equal(t, domain.Summary{}, report.ReconciliationSummary)
	})
}
