package usecase

import (
	"context"

	"gstr2b-reconciler/internal/domain"
)

// RowSource defines the interface for reading raw rows out of an uploaded
// file. The usecase layer depends on this interface, not on a concrete
// implementation.
//
//go:generate mockgen -destination=mocks/mock_row_source.go -source=interface.go RowSource
type RowSource interface {
	// GetRows returns the column headers in source order and one flat row
	// per data line of the file at path.
	GetRows(ctx context.Context, path string) ([]string, []domain.RawRow, error)
}
