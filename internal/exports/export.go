package exports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	analytics "gridpulse/internal/analytics/domain"
	"gridpulse/internal/forecast"
)

// BuildSeriesXLSX renders aggregated series as an XLSX workbook with a
// summary sheet and one data sheet.
func BuildSeriesXLSX(entity string, interval analytics.Interval, fn analytics.Func, series []analytics.Series) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	dataSheet := "data"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(dataSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Series Export")
	_ = f.SetCellValue(summarySheet, "A3", "Entity")
	_ = f.SetCellValue(summarySheet, "B3", entity)
	_ = f.SetCellValue(summarySheet, "A4", "Interval")
	_ = f.SetCellValue(summarySheet, "B4", string(interval))
	_ = f.SetCellValue(summarySheet, "A5", "Aggregation")
	_ = f.SetCellValue(summarySheet, "B5", string(fn))
	_ = f.SetCellValue(summarySheet, "A6", "Series")
	_ = f.SetCellValue(summarySheet, "B6", len(series))
	_ = f.SetCellValue(summarySheet, "A7", "Generated")
	_ = f.SetCellValue(summarySheet, "B7", time.Now().UTC().Format(time.RFC3339))

	_ = f.SetCellValue(dataSheet, "A1", "Series")
	_ = f.SetCellValue(dataSheet, "B1", "Timestamp")
	_ = f.SetCellValue(dataSheet, "C1", "Value")
	row := 2
	for _, s := range series {
		label := s.Key.Label()
		for _, point := range s.Points {
			_ = f.SetCellValue(dataSheet, fmt.Sprintf("A%d", row), label)
			_ = f.SetCellValue(dataSheet, fmt.Sprintf("B%d", row), point.TS.Format(time.RFC3339))
			_ = f.SetCellValue(dataSheet, fmt.Sprintf("C%d", row), point.Value)
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildForecastReportPDF renders a forecast accuracy report for one
// region day.
func BuildForecastReportPDF(comparison forecast.Comparison) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Forecast Accuracy Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Region: %s", comparison.Region))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", comparison.Date))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Metric: %s", comparison.Metric))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Paired Hours: %d of %d", comparison.PairedHours, len(comparison.Hours)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Mean Absolute Error: %.2f", comparison.MAE))
	pdf.Ln(5)
	if comparison.Partial {
		pdf.Cell(0, 6, "Coverage: partial (actuals incomplete)")
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, "Hour (UTC)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Forecast", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Actual", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Delta", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, hour := range comparison.Hours {
		pdf.CellFormat(45, 6, hour.TS.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", hour.Forecast), "1", 0, "R", false, 0, "")
		if hour.Actual != nil {
			pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", *hour.Actual), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, fmt.Sprintf("%+.2f", *hour.Delta), "1", 0, "R", false, 0, "")
		} else {
			pdf.CellFormat(35, 6, "-", "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, "-", "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
