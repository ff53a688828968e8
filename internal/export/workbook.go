// Package export writes the standOff registries of an edition as a spreadsheet.
package export

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/stemmaflat/internal/models"
)

// Sheet names, one per registry.
const (
	SheetPersons     = "Persons"
	SheetPlaces      = "Places"
	SheetEvents      = "Events"
	SheetAnnotations = "Annotations"
)

var header = []interface{}{"Section", "ID", "Text"}

// Row is one registry entry with the section it came from.
type Row struct {
	Section string
	ID      string
	Text    string
}

// Workbook is the tabular form of the registries, keyed by sheet name.
type Workbook map[string][]Row

// FromSections flattens section registries in section order.
func FromSections(sections []models.SectionTEI) Workbook {
	wb := Workbook{}
	add := func(sheet, section string, entries []models.RegistryEntry) {
		for _, e := range entries {
			wb[sheet] = append(wb[sheet], Row{Section: section, ID: e.ID, Text: e.Text})
		}
	}
	for _, s := range sections {
		add(SheetPersons, s.SectionID, s.Registries.People)
		add(SheetPlaces, s.SectionID, s.Registries.Places)
		add(SheetEvents, s.SectionID, s.Registries.Events)
		add(SheetAnnotations, s.SectionID, s.Registries.Annotations)
	}
	return wb
}

// WriteRegistries writes an .xlsx with a Persons, Places, Events and
// Annotations sheet. Every sheet has a header row even when empty.
func WriteRegistries(path string, sections []models.SectionTEI) error {
	wb := FromSections(sections)

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, sheet := range []string{SheetPersons, SheetPlaces, SheetEvents, SheetAnnotations} {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return fmt.Errorf("write header for sheet %q: %w", sheet, err)
		}
		if err := f.SetCellStyle(sheet, "A1", "C1", bold); err != nil {
			return fmt.Errorf("style header for sheet %q: %w", sheet, err)
		}
		for r, row := range wb[sheet] {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			values := []interface{}{row.Section, row.ID, row.Text}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("write row %d of sheet %q: %w", r+2, sheet, err)
			}
		}
		if err := f.SetColWidth(sheet, "C", "C", 60); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// ReadRegistries reads a workbook written by WriteRegistries.
func ReadRegistries(path string) (Workbook, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	wb := Workbook{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for i, row := range rows {
			if i == 0 {
				continue
			}
			for len(row) < 3 {
				row = append(row, "")
			}
			wb[sheet] = append(wb[sheet], Row{Section: row[0], ID: row[1], Text: row[2]})
		}
	}
	return wb, nil
}
