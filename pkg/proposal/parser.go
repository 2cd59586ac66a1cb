// Package proposal converts the external proposal CSV feed into parsed
// equipment rows. The feed re-emits a project's full equipment list with no
// persistent identifiers; this package only normalizes rows, it never
// touches the store. Unknown columns are dropped at this boundary rather
// than threaded through as dynamic shapes.
package proposal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sitewire-io/sitewire-engine/pkg/models"
)

// Recognized header names, matched case-insensitively after trimming.
const (
	colRoom     = "room"
	colSide     = "side"
	colPart     = "part_number"
	colName     = "name"
	colQuantity = "quantity"
	colUnitCost = "unit_cost"
	colSupplier = "supplier"
	colLabor    = "is_labor"
)

// Parse reads a proposal CSV and returns the usable rows plus per-row errors
// for rows that could not be used. Malformed rows never abort the parse; a
// missing name column or unreadable input does.
func Parse(r io.Reader) ([]models.ParsedRow, []models.RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read proposal header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols[colName]; !ok {
		return nil, nil, fmt.Errorf("proposal feed has no %q column", colName)
	}

	var rows []models.ParsedRow
	var rowErrors []models.RowError
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read proposal line %d: %w", line, err)
		}

		row, rowErr := parseRecord(record, cols, line)
		if rowErr != nil {
			rowErrors = append(rowErrors, *rowErr)
			continue
		}
		rows = append(rows, row)
	}

	return rows, rowErrors, nil
}

func parseRecord(record []string, cols map[string]int, line int) (models.ParsedRow, *models.RowError) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := models.ParsedRow{
		RoomName:         field(colRoom),
		InstallationSide: field(colSide),
		PartNumber:       field(colPart),
		Name:             field(colName),
		SupplierName:     field(colSupplier),
		IsLabor:          parseBool(field(colLabor)),
		Quantity:         1,
	}

	if qty := field(colQuantity); qty != "" {
		n, err := strconv.Atoi(qty)
		if err != nil {
			return row, &models.RowError{
				Line: line, Name: row.Name,
				Reason: fmt.Sprintf("unreadable quantity %q", qty),
			}
		}
		row.Quantity = n
	}

	if cost := field(colUnitCost); cost != "" {
		d, err := decimal.NewFromString(strings.TrimPrefix(cost, "$"))
		if err != nil {
			return row, &models.RowError{
				Line: line, Name: row.Name,
				Reason: fmt.Sprintf("unreadable unit cost %q", cost),
			}
		}
		row.UnitCost = d
	}

	if err := row.Validate(); err != nil {
		return row, &models.RowError{Line: line, Name: row.Name, Reason: err.Error()}
	}

	return row, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1", "labor":
		return true
	default:
		return false
	}
}
