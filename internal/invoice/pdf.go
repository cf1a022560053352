package invoice

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"utility-billing/internal/billing"
)

// BuildPDF renders the invoice as a single-page PDF.
func BuildPDF(inv Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "B", 16)
	pdf.AddPage()

	pdf.Cell(0, 10, "Utility Invoice")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	if inv.Number != "" {
		pdf.Cell(0, 5, fmt.Sprintf("Invoice: %s", inv.Number))
		pdf.Ln(5)
	}
	if inv.Period != "" {
		pdf.Cell(0, 5, fmt.Sprintf("Billing period: %s", inv.Period))
		pdf.Ln(5)
	}
	if !inv.GeneratedAt.IsZero() {
		pdf.Cell(0, 5, fmt.Sprintf("Issued: %s", inv.GeneratedAt.Format("Jan 2, 2006")))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 5, "From")
	pdf.Ln(5)
	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{inv.LandlordName, inv.LandlordAddress, inv.LandlordPhone} {
		if line != "" {
			pdf.Cell(0, 5, line)
			pdf.Ln(5)
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 5, "Bill To")
	pdf.Ln(5)
	pdf.SetFont("Arial", "", 10)
	billTo := strings.Join(inv.TenantNames, ", ")
	if billTo == "" {
		billTo = inv.PropertyName
	}
	pdf.Cell(0, 5, billTo)
	pdf.Ln(5)
	if inv.PropertyAddress != "" {
		pdf.Cell(0, 5, inv.PropertyAddress)
		pdf.Ln(5)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(110, 6, "Description", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, "kWh", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, "Amount", "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	row := func(label string, kwh, amount float64) {
		pdf.CellFormat(110, 6, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", kwh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("$%.2f", amount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	row("Total metered usage", inv.TotalKwh, inv.TotalAmount)
	if inv.Mode == billing.ModeMainHouse {
		row("Less: submetered (ADU) usage", inv.AduKwh, inv.AduKwh*inv.Rate)
	}
	row("Billed portion", inv.BilledKwh, inv.BilledAmount)
	pdf.Ln(4)

	pdf.Cell(0, 5, fmt.Sprintf("Rate: $%.4f/kWh", inv.Rate))
	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 7, fmt.Sprintf("Amount due: $%.2f", inv.BilledAmount))
	pdf.Ln(9)

	pdf.SetFont("Arial", "", 10)
	if !inv.DueDate.IsZero() {
		pdf.Cell(0, 5, fmt.Sprintf("Payment due by %s.", inv.DueDate.Format("Jan 2, 2006")))
	} else {
		pdf.Cell(0, 5, "Payment due within 14 days of issue.")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("invoice: render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
