// Package snapshot reads stock level snapshots exported from the shop
// system and writes them into a ledger.
package snapshot

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
	"github.com/andresuchdata/autopo-reorder/internal/repository"
	"github.com/xuri/excelize/v2"
)

const (
	colSKU       = "sku"
	colWarehouse = "warehouse"
	colOnHand    = "on_hand"
	colOnOrder   = "on_order"
)

// ReadCSV parses a CSV snapshot. The header row is required.
func ReadCSV(r io.Reader) ([]domain.StockLevel, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return decode(reader.Read)
}

// ReadXLSX parses the first sheet of an XLSX snapshot.
func ReadXLSX(path string) ([]domain.StockLevel, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", path)
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}
	defer rows.Close()

	next := func() ([]string, error) {
		if !rows.Next() {
			if err := rows.Error(); err != nil {
				return nil, fmt.Errorf("error iterating rows in %s: %w", path, err)
			}
			return nil, io.EOF
		}
		return rows.Columns()
	}
	return decode(next)
}

// ReadFile picks the parser from the file extension.
func ReadFile(path string) ([]domain.StockLevel, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot: %w", err)
		}
		defer f.Close()
		levels, err := ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return levels, nil
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", filepath.Ext(path))
	}
}

// Import writes every level to the ledger and stops on the first error.
func Import(ctx context.Context, writer repository.StockWriter, levels []domain.StockLevel) error {
	for i, level := range levels {
		if err := writer.SetStock(ctx, level); err != nil {
			return fmt.Errorf("level %d (%s@%s): %w", i+1, level.SKU, level.Warehouse, err)
		}
	}
	return nil
}

func decode(next func() ([]string, error)) ([]domain.StockLevel, error) {
	header, err := next()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("snapshot is empty: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colSKU, colOnHand} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column: %s", required)
		}
	}

	levels := make([]domain.StockLevel, 0)
	seen := make(map[string]int)
	for line := 2; ; line++ {
		record, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		level, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		key := level.SKU + "@" + level.Warehouse.String()
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("row %d: %s already listed on row %d", line, key, prev)
		}
		seen[key] = line
		levels = append(levels, level)
	}
	return levels, nil
}

func parseRow(record []string, cols map[string]int) (domain.StockLevel, error) {
	sku := field(record, cols, colSKU)
	if sku == "" {
		return domain.StockLevel{}, fmt.Errorf("empty sku")
	}

	onHand, err := quantity(record, cols, colOnHand)
	if err != nil {
		return domain.StockLevel{}, err
	}
	onOrder, err := quantity(record, cols, colOnOrder)
	if err != nil {
		return domain.StockLevel{}, err
	}

	return domain.StockLevel{
		SKU:       sku,
		Warehouse: domain.ParseWarehouse(field(record, cols, colWarehouse)),
		OnHand:    onHand,
		OnOrder:   onOrder,
	}, nil
}

// field returns the trimmed cell for a column. Missing columns and cells
// past the end of a short row read as empty.
func field(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func quantity(record []string, cols map[string]int, name string) (int, error) {
	raw := field(record, cols, name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", name, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s %d", domain.ErrInvalidQuantity, name, n)
	}
	return n, nil
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
