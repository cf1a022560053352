package invoice

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"utility-billing/internal/billing"
)

// BuildXLSX renders the invoice as a two-sheet workbook: a summary and
// the usage breakdown.
func BuildXLSX(inv Invoice) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	usageSheet := "usage"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(usageSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Utility Invoice")
	_ = f.SetCellValue(summarySheet, "A3", "Invoice")
	_ = f.SetCellValue(summarySheet, "B3", inv.Number)
	_ = f.SetCellValue(summarySheet, "A4", "Billing period")
	_ = f.SetCellValue(summarySheet, "B4", inv.Period)
	_ = f.SetCellValue(summarySheet, "A5", "From")
	_ = f.SetCellValue(summarySheet, "B5", inv.LandlordName)
	_ = f.SetCellValue(summarySheet, "A6", "Bill to")
	_ = f.SetCellValue(summarySheet, "B6", strings.Join(inv.TenantNames, ", "))
	_ = f.SetCellValue(summarySheet, "A7", "Property")
	_ = f.SetCellValue(summarySheet, "B7", inv.PropertyAddress)
	_ = f.SetCellValue(summarySheet, "A8", "Rate ($/kWh)")
	_ = f.SetCellValue(summarySheet, "B8", inv.Rate)
	_ = f.SetCellValue(summarySheet, "A9", "Amount due")
	_ = f.SetCellValue(summarySheet, "B9", inv.BilledAmount)
	if !inv.DueDate.IsZero() {
		_ = f.SetCellValue(summarySheet, "A10", "Due date")
		_ = f.SetCellValue(summarySheet, "B10", inv.DueDate.Format("01/02/2006"))
	}

	_ = f.SetCellValue(usageSheet, "A1", "Description")
	_ = f.SetCellValue(usageSheet, "B1", "kWh")
	_ = f.SetCellValue(usageSheet, "C1", "Amount")
	row := 2
	write := func(label string, kwh, amount float64) {
		_ = f.SetCellValue(usageSheet, fmt.Sprintf("A%d", row), label)
		_ = f.SetCellValue(usageSheet, fmt.Sprintf("B%d", row), kwh)
		_ = f.SetCellValue(usageSheet, fmt.Sprintf("C%d", row), amount)
		row++
	}
	write("Total metered usage", inv.TotalKwh, inv.TotalAmount)
	if inv.Mode == billing.ModeMainHouse {
		write("Less: submetered (ADU) usage", inv.AduKwh, inv.AduKwh*inv.Rate)
	}
	write("Billed portion", inv.BilledKwh, inv.BilledAmount)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("invoice: render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
