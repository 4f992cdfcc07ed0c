// Package report renders link statistics as an XLSX workbook.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joshdurbin/shortlink/internal/domain"
)

const (
	summarySheet = "Summary"
	clicksSheet  = "Clicks"

	// ContentType is the MIME type of the generated workbook
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Filename returns the download name for a shortcode's report
func Filename(shortcode string) string {
	return fmt.Sprintf("shortlink_%s_stats.xlsx", shortcode)
}

// WriteStats builds a workbook with a summary sheet and one row per click, newest first
func WriteStats(stats *domain.LinkStats, shortLink string, now time.Time) ([]byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), summarySheet); err != nil {
		return nil, err
	}

	link := stats.Link
	summary := [][]any{
		{"Shortcode", link.Shortcode},
		{"Original URL", link.OriginalURL},
		{"Short link", shortLink},
		{"Created at", link.CreatedAt.UTC().Format(time.RFC3339)},
		{"Expires at", link.ExpiryDate.UTC().Format(time.RFC3339)},
		{"Expired", link.IsExpired(now)},
		{"Active", link.IsActive},
		{"Total clicks", link.ClickCount},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if _, err := xl.NewSheet(clicksSheet); err != nil {
		return nil, err
	}

	header := []string{"timestamp", "referrer", "user_agent", "ip", "location"}
	if err := xl.SetSheetRow(clicksSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, c := range stats.Clicks {
		record := []string{
			c.Timestamp.UTC().Format(time.RFC3339),
			c.Referrer,
			c.UserAgent,
			c.IP,
			c.Location,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(clicksSheet, cell, &record); err != nil {
			return nil, fmt.Errorf("failed to write click row: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := xl.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
