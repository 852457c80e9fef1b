// Package export renders conversion reports as spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const sheetName = "Conversions"

var headers = []string{
	"ID", "Link ID", "Partner ID", "Offer ID", "Order ID", "Sale Amount", "Total Commission",
	"Partner Commission", "Platform Fee", "Status", "Created At", "Approved At", "Paid At",
}

// ErrUnsupportedFormat is returned for formats other than xlsx and csv
var ErrUnsupportedFormat = domain.NewValidationError("format must be xlsx or csv")

// ParseFormat reads a format query value. Empty means xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// ContentType is the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename names a report generated at t
func (f Format) Filename(t time.Time) string {
	return fmt.Sprintf("conversions_%s.%s", t.UTC().Format("20060102_150405"), f)
}

// WriteConversions writes conversions to w in the given format
func WriteConversions(w io.Writer, format Format, conversions []*models.Conversion) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, conversions)
	case FormatXLSX:
		return writeExcel(w, conversions)
	default:
		return ErrUnsupportedFormat
	}
}

func row(c *models.Conversion) []string {
	order := ""
	if c.OrderID != nil {
		order = *c.OrderID
	}
	return []string{
		strconv.Itoa(c.ID),
		strconv.Itoa(c.AffiliateLinkID),
		strconv.Itoa(c.PartnerID),
		strconv.Itoa(c.OfferID),
		order,
		c.SaleAmount.StringFixed(2),
		c.TotalCommission.StringFixed(2),
		c.CommissionAmount.StringFixed(2),
		c.PlatformFee.StringFixed(2),
		string(c.Status),
		c.CreatedAt.UTC().Format(time.RFC3339),
		formatTime(c.ApprovedAt),
		formatTime(c.PaidAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// writeCSV generates a CSV report
func writeCSV(w io.Writer, conversions []*models.Conversion) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, c := range conversions {
		if err := writer.Write(row(c)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// writeExcel generates an Excel workbook. Money cells are numeric so they can
// be summed in the sheet.
func writeExcel(w io.Writer, conversions []*models.Conversion) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, c := range conversions {
		values := row(c)
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			switch colIdx {
			case 0, 1, 2, 3:
				n, _ := strconv.Atoi(v)
				f.SetCellValue(sheetName, cell, n)
			case 5, 6, 7, 8:
				n, _ := strconv.ParseFloat(v, 64)
				f.SetCellValue(sheetName, cell, n)
			default:
				f.SetCellValue(sheetName, cell, v)
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	f.SetColWidth(sheetName, "A", lastCol, 16)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
