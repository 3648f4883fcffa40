package normalize

import (
	"github.com/google/uuid"

	"gstr2b-reconciler/internal/domain"
)

// NormalizeRows turns raw rows into canonical records by applying the
// resolved column mapping and the field cleaners. It is total: rows with
// missing or malformed cells produce records with cleaner defaults rather
// than errors.
func NormalizeRows(rows []domain.RawRow, mapping ColumnMapping, source domain.Source, batchID string) []domain.CanonicalRecord {
	records := make([]domain.CanonicalRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, normalizeRow(row, mapping, source, batchID))
	}
	return records
}

func normalizeRow(row domain.RawRow, mapping ColumnMapping, source domain.Source, batchID string) domain.CanonicalRecord {
	rawInvoice := cell(row, mapping, FieldInvoiceNumber)

	gstin := CleanGstin(cell(row, mapping, FieldGstin))
	invoiceNumber := CleanInvoiceNumber(rawInvoice)

	return domain.CanonicalRecord{
		ID:                    uuid.NewString(),
		BatchID:               batchID,
		Source:                source,
		Gstin:                 gstin,
		SupplierName:          stringify(cell(row, mapping, FieldPartyName)),
		InvoiceNumber:         invoiceNumber,
		OriginalInvoiceNumber: stringify(rawInvoice),
		InvoiceDate:           NormalizeDate(cell(row, mapping, FieldInvoiceDate)),
		TaxableValue:          CleanNumeric(cell(row, mapping, FieldTaxableValue)),
		Igst:                  CleanNumeric(cell(row, mapping, FieldIgst)),
		Cgst:                  CleanNumeric(cell(row, mapping, FieldCgst)),
		Sgst:                  CleanNumeric(cell(row, mapping, FieldSgst)),
		InvoiceValue:          CleanNumeric(cell(row, mapping, FieldInvoiceValue)),
		MatchKey:              domain.BuildMatchKey(gstin, invoiceNumber),
	}
}

func cell(row domain.RawRow, mapping ColumnMapping, field string) any {
	header, ok := mapping[field]
	if !ok {
		return nil
	}
	return row[header]
}
