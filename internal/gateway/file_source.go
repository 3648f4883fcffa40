package gateway

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"gstr2b-reconciler/internal/domain"
)

// FileRowSource reads raw rows from xlsx, csv or GSTR-2B json files,
// dispatching on the file extension. It implements usecase.RowSource.
type FileRowSource struct{}

// NewFileRowSource creates a new row source instance.
func NewFileRowSource() *FileRowSource {
	return &FileRowSource{}
}

// GetRows reads one input file and returns its column headers in source
// order plus one flat row per data line. A file the reader cannot find any
// rows in yields empty headers and rows, not an error.
func (s *FileRowSource) GetRows(ctx context.Context, path string) ([]string, []domain.RawRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return readJSONRows(path)
	case ".csv":
		return readCSVRows(path)
	case ".xlsx", ".xlsm":
		return readExcelRows(path)
	default:
		return nil, nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func readJSONRows(path string) ([]string, []domain.RawRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open statement file %s: %w", path, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse statement file %s: %w", path, err)
	}

	rows := FlattenStatement(doc)
	if len(rows) == 0 {
		return nil, rows, nil
	}

	// JSON objects carry no column order; sort keys so header-order
	// dependent resolution stays deterministic.
	headers := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		headers = append(headers, k)
	}
	sort.Strings(headers)
	return headers, rows, nil
}

func readCSVRows(path string) ([]string, []domain.RawRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open csv file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, []domain.RawRow{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	var rows []domain.RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading record from %s: %w", path, err)
		}
		rows = append(rows, rowFromCells(headers, record))
	}
	return headers, rows, nil
}

func readExcelRows(path string) ([]string, []domain.RawRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open excel file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, []domain.RawRow{}, nil
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read sheet %q from %s: %w", sheets[0], path, err)
	}
	if len(cells) == 0 {
		return nil, []domain.RawRow{}, nil
	}

	headers := make([]string, len(cells[0]))
	for i, h := range cells[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]domain.RawRow, 0, len(cells)-1)
	for _, record := range cells[1:] {
		rows = append(rows, rowFromCells(headers, record))
	}
	return headers, rows, nil
}

func rowFromCells(headers, cells []string) domain.RawRow {
	row := make(domain.RawRow, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(cells) {
			row[h] = cells[i]
		}
	}
	return row
}
