// internal/workers/workbook.go
package workers

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
)

// SalesWorkbookContentType is the MIME type of generated workbooks
const SalesWorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var salesHeaders = []string{"Sale ID", "Date", "Customer", "Phone", "Operator", "Lines", "Total"}

// WriteSalesWorkbook renders sales as a single sheet workbook
func WriteSalesWorkbook(w io.Writer, sales []domain.SaleSummary) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales")
	if err != nil {
		return fmt.Errorf("failed to add worksheet: %w", err)
	}

	header := sheet.AddRow()
	for _, title := range salesHeaders {
		cell := header.AddCell()
		cell.Value = title
		cell.GetStyle().Font.Bold = true
		cell.GetStyle().Fill.PatternType = "solid"
		cell.GetStyle().Fill.FgColor = "CCCCCC"
	}

	for _, s := range sales {
		row := sheet.AddRow()
		row.AddCell().SetInt64(s.ID)
		row.AddCell().SetString(s.CreatedAt.UTC().Format(time.DateTime))
		row.AddCell().SetString(s.CustomerName)
		row.AddCell().SetString(s.CustomerPhone)
		row.AddCell().SetString(s.OperatorID)
		row.AddCell().SetInt(s.LineCount)
		row.AddCell().SetString(s.Total.StringFixed(domain.CurrencyPlaces))
	}

	for i := range salesHeaders {
		sheet.SetColWidth(i+1, i+1, 18)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// RestockLine is one parsed line of a supplier delivery
type RestockLine struct {
	Source   string `json:"source"`
	ItemID   int64  `json:"item_id"`
	Name     string `json:"name,omitempty"`
	Quantity int    `json:"quantity"`
}

// ReadRestockSheet reads restock lines from the first sheet of a workbook.
// Columns are item id, item name and quantity; the first row is a header.
func ReadRestockSheet(path string) ([]RestockLine, []string, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if len(file.Sheets) == 0 {
		return nil, nil, nil
	}

	var (
		lines    []RestockLine
		problems []string
		rowNum   int
	)
	err = file.Sheets[0].ForEachRow(func(r *xlsx.Row) error {
		rowNum++
		if rowNum == 1 {
			return nil
		}

		get := func(i int) string {
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			return strings.TrimSpace(c.String())
		}

		idText, name, qtyText := get(0), get(1), get(2)
		if idText == "" && name == "" && qtyText == "" {
			return nil
		}

		source := fmt.Sprintf("row %d", rowNum)
		line, perr := parseRestockFields(source, idText, name, qtyText)
		if perr != nil {
			problems = append(problems, perr.Error())
			return nil
		}
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read workbook rows: %w", err)
	}
	return lines, problems, nil
}

func parseRestockFields(source, idText, name, qtyText string) (RestockLine, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(idText, "#"), 10, 64)
	if err != nil || id <= 0 {
		return RestockLine{}, fmt.Errorf("%s: invalid item id %q", source, idText)
	}
	qty, err := strconv.Atoi(strings.ReplaceAll(qtyText, ",", ""))
	if err != nil || qty <= 0 {
		return RestockLine{}, fmt.Errorf("%s: invalid quantity %q", source, qtyText)
	}
	return RestockLine{Source: source, ItemID: id, Name: name, Quantity: qty}, nil
}
