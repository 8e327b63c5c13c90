// Package export renders plans for downstream purchasing tools.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/andresuchdata/autopo-reorder/internal/domain"
)

var header = []string{"sku", "warehouse", "quantity"}

// WriteCSV writes one row per order after a sku,warehouse,quantity header.
func WriteCSV(w io.Writer, orders []domain.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, order := range orders {
		record := []string{order.Item.SKU, order.Warehouse.String(), strconv.Itoa(order.Quantity)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", order.Item.SKU, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV renders the orders into memory.
func CSV(orders []domain.Order) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, orders); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
