// Package report builds the parent-facing progress workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/taiganautcapital/thekidvault/internal/catalog"
	"github.com/taiganautcapital/thekidvault/internal/certificate"
	"github.com/taiganautcapital/thekidvault/internal/profile"
	"github.com/taiganautcapital/thekidvault/internal/progress"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	SummarySheet  = "Summary"
	ProgressSheet = "Progress"
)

var (
	summaryHeader  = []any{"Profile", "Stars", "Total", "Percent", "Certificate"}
	progressHeader = []any{"Profile", "Chapter", "Title", "Earned", "Total", "Complete"}
)

// Build creates a workbook with a summary row per profile and a progress
// row per profile and chapter. The caller must Close the file.
func Build(cat *catalog.Catalog, profiles []profile.Profile) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ProgressSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create progress sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeRow(f, SummarySheet, 1, summaryHeader); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRow(f, ProgressSheet, 1, progressHeader); err != nil {
		f.Close()
		return nil, err
	}
	for _, sheet := range []string{SummarySheet, ProgressSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			f.Close()
			return nil, fmt.Errorf("style header: %w", err)
		}
	}

	progressRow := 2
	for i, p := range profiles {
		stars := progress.Stars(p.Stars)
		snap := progress.TakeSnapshot(cat, stars)

		cert := "locked"
		if certificate.IsCourseComplete(cat, stars) {
			cert = "unlocked"
		}
		summary := []any{p.Name, snap.Earned, snap.Total, snap.Percent, cert}
		if err := writeRow(f, SummarySheet, i+2, summary); err != nil {
			f.Close()
			return nil, err
		}

		for _, ch := range snap.Chapters {
			done := "no"
			if ch.Complete {
				done = "yes"
			}
			row := []any{p.Name, ch.Chapter, ch.Title, ch.Earned, ch.Total, done}
			if err := writeRow(f, ProgressSheet, progressRow, row); err != nil {
				f.Close()
				return nil, err
			}
			progressRow++
		}
	}

	return f, nil
}

// Write builds the workbook and writes it to w.
func Write(w io.Writer, cat *catalog.Catalog, profiles []profile.Profile) error {
	f, err := Build(cat, profiles)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
