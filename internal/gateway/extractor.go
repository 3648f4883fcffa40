package gateway

import (
	"gstr2b-reconciler/internal/domain"
)

// GSTR-2B statement documents nest B2B invoices two levels deep: a list of
// suppliers, each carrying its invoices under "inv". FlattenStatement
// merges supplier-level fields into every invoice row so the rest of the
// pipeline only ever sees flat rows. Recognized shapes, in order:
//
//   - {"data": {"docdata": {"b2b": [...]}}}  (portal download)
//   - {"b2b": [...]}                          (bare section)
//   - [...]                                   (already flat rows)
//   - any object: first array-valued property (best effort)
//
// Malformed documents flatten to zero rows, never an error.
func FlattenStatement(doc any) []domain.RawRow {
	if suppliers, ok := b2bSection(doc); ok {
		return flattenSuppliers(suppliers)
	}

	switch t := doc.(type) {
	case []any:
		return toRawRows(t)
	case map[string]any:
		for _, v := range t {
			if arr, ok := v.([]any); ok {
				return toRawRows(arr)
			}
		}
	}
	return []domain.RawRow{}
}

func b2bSection(doc any) ([]any, bool) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, false
	}
	if data, ok := obj["data"].(map[string]any); ok {
		if docdata, ok := data["docdata"].(map[string]any); ok {
			if b2b, ok := docdata["b2b"].([]any); ok {
				return b2b, true
			}
		}
	}
	if b2b, ok := obj["b2b"].([]any); ok {
		return b2b, true
	}
	return nil, false
}

func flattenSuppliers(suppliers []any) []domain.RawRow {
	rows := []domain.RawRow{}
	for _, s := range suppliers {
		supplier, ok := s.(map[string]any)
		if !ok {
			continue
		}
		invoices, ok := supplier["inv"].([]any)
		if !ok {
			continue
		}
		for _, i := range invoices {
			invoice, ok := i.(map[string]any)
			if !ok {
				continue
			}
			row := make(domain.RawRow, len(supplier)+len(invoice))
			for k, v := range supplier {
				if k == "inv" {
					continue
				}
				row[k] = v
			}
			for k, v := range invoice {
				row[k] = v
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func toRawRows(arr []any) []domain.RawRow {
	rows := []domain.RawRow{}
	for _, v := range arr {
		if obj, ok := v.(map[string]any); ok {
			rows = append(rows, domain.RawRow(obj))
		}
	}
	return rows
}
