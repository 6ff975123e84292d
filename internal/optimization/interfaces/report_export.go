package interfaces

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	optimization "github.com/Automynx/Cooling-The-Cloud/internal/optimization/domain"
)

// BuildPeriodReportPDF renders a period summary with its daily trend rows.
func BuildPeriodReportPDF(summary optimization.PeriodSummary, trends []optimization.TrendPoint) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Cooling Optimization Period Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s (%d days)",
		summary.Start.Format("2006-01-02"), summary.End.Format("2006-01-02"), summary.PeriodDays))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Days with data: %d", summary.ActualDays))
	pdf.Ln(5)
	if summary.IsProjection {
		pdf.Cell(0, 6, "Totals are projected from daily averages")
		pdf.Ln(5)
	}
	if summary.Message != "" {
		pdf.Cell(0, 6, summary.Message)
		pdf.Ln(5)
	}

	pdf.Ln(4)
	pdf.Cell(0, 6, fmt.Sprintf("Total Cost ($): %.2f", summary.TotalCost))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Savings ($): %.2f", summary.TotalSavings))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Water (gal): %.0f", summary.TotalWaterGallons))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Avg Savings (%%): %.1f", summary.AvgSavingsPercent))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Peak Demand (MW): %.2f max / %.2f avg",
		summary.MaxPeakDemandMW, summary.AvgPeakDemandMW))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Carbon Avoided (tons): %.3f", summary.CarbonAvoidedTons))
	pdf.Ln(8)

	// Daily trend table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Day", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Savings ($)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Water (gal)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, point := range trends {
		pdf.CellFormat(40, 6, point.Date.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%.2f", point.Savings), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%.0f", point.WaterGallons), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPeriodReportXLSX renders a period summary workbook with a summary
// sheet and a daily trend sheet.
func BuildPeriodReportXLSX(summary optimization.PeriodSummary, trends []optimization.TrendPoint) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	trendsSheet := "daily"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(trendsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Cooling Optimization Period Report")
	_ = f.SetCellValue(summarySheet, "A3", "Start")
	_ = f.SetCellValue(summarySheet, "B3", summary.Start.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A4", "End")
	_ = f.SetCellValue(summarySheet, "B4", summary.End.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "Period Days")
	_ = f.SetCellValue(summarySheet, "B5", summary.PeriodDays)
	_ = f.SetCellValue(summarySheet, "A6", "Days With Data")
	_ = f.SetCellValue(summarySheet, "B6", summary.ActualDays)
	_ = f.SetCellValue(summarySheet, "A7", "Projection")
	_ = f.SetCellValue(summarySheet, "B7", summary.IsProjection)
	_ = f.SetCellValue(summarySheet, "A8", "Total Cost ($)")
	_ = f.SetCellValue(summarySheet, "B8", summary.TotalCost)
	_ = f.SetCellValue(summarySheet, "A9", "Total Savings ($)")
	_ = f.SetCellValue(summarySheet, "B9", summary.TotalSavings)
	_ = f.SetCellValue(summarySheet, "A10", "Total Water (gal)")
	_ = f.SetCellValue(summarySheet, "B10", summary.TotalWaterGallons)
	_ = f.SetCellValue(summarySheet, "A11", "Avg Daily Savings ($)")
	_ = f.SetCellValue(summarySheet, "B11", summary.AvgDailySavings)
	_ = f.SetCellValue(summarySheet, "A12", "Avg Savings (%)")
	_ = f.SetCellValue(summarySheet, "B12", summary.AvgSavingsPercent)
	_ = f.SetCellValue(summarySheet, "A13", "Max Peak Demand (MW)")
	_ = f.SetCellValue(summarySheet, "B13", summary.MaxPeakDemandMW)
	_ = f.SetCellValue(summarySheet, "A14", "Avg Peak Demand (MW)")
	_ = f.SetCellValue(summarySheet, "B14", summary.AvgPeakDemandMW)
	_ = f.SetCellValue(summarySheet, "A15", "Carbon Avoided (tons)")
	_ = f.SetCellValue(summarySheet, "B15", summary.CarbonAvoidedTons)

	_ = f.SetCellValue(trendsSheet, "A1", "Day")
	_ = f.SetCellValue(trendsSheet, "B1", "Savings ($)")
	_ = f.SetCellValue(trendsSheet, "C1", "Water (gal)")
	for i, point := range trends {
		row := i + 2
		_ = f.SetCellValue(trendsSheet, fmt.Sprintf("A%d", row), point.Date.Format("2006-01-02"))
		_ = f.SetCellValue(trendsSheet, fmt.Sprintf("B%d", row), point.Savings)
		_ = f.SetCellValue(trendsSheet, fmt.Sprintf("C%d", row), point.WaterGallons)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
