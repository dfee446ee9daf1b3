// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package report renders Private DNS status snapshots as a text table or
// an Excel workbook.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/H0llyW00dzZ/privatedns/src/privatedns"
)

// SheetName is the worksheet [WriteXLSX] writes to.
const SheetName = "Private DNS"

// header is the column order of both renderings.
var header = []string{"NetId", "Mode", "Server", "Hostname", "Status", "Updated"}

// StatusSource is implemented by [privatedns.Coordinator].
type StatusSource interface {
	Networks() []int
	GetStatus(netID int) privatedns.Status
}

// Row is one server of one network.
type Row struct {
	NetID     int
	Mode      privatedns.PrivacyMode
	Server    string
	Hostname  string
	Status    privatedns.ValidationStatus
	UpdatedAt time.Time
}

// Collect snapshots every network of src, ordered by network and then
// server address. A network without servers yields a single row with an
// empty Server.
func Collect(src StatusSource) []Row {
	var rows []Row
	for _, netID := range src.Networks() {
		st := src.GetStatus(netID)
		addrs := st.Addresses()
		if len(addrs) == 0 {
			rows = append(rows, Row{NetID: netID, Mode: st.Mode})
			continue
		}
		for _, addr := range addrs {
			row := Row{
				NetID:  netID,
				Mode:   st.Mode,
				Server: addr.String(),
				Status: st.Servers[addr],
			}
			if id, ok := st.Identity(addr); ok {
				row.Hostname = id.Hostname
			}
			if at, ok := st.UpdatedAt(addr); ok {
				row.UpdatedAt = at
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func (r Row) cells() []string {
	status, updated := "-", "-"
	if r.Server != "" {
		status = r.Status.String()
	}
	if !r.UpdatedAt.IsZero() {
		updated = r.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		fmt.Sprint(r.NetID),
		r.Mode.String(),
		orDash(r.Server),
		orDash(r.Hostname),
		status,
		updated,
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// WriteText writes rows as an aligned plain-text table.
func WriteText(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeLine := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, c)
		}
		fmt.Fprintln(tw)
	}

	writeLine(header)
	for _, r := range rows {
		writeLine(r.cells())
	}
	return tw.Flush()
}

// WriteXLSX writes rows as a single-sheet workbook to w.
func WriteXLSX(w io.Writer, rows []Row) error {
	f, err := newWorkbook(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("report: write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes rows as a workbook file at path.
func SaveXLSX(path string, rows []Row) error {
	f, err := newWorkbook(rows)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("report: save workbook: %w", err)
	}
	return nil
}

func newWorkbook(rows []Row) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("report: %w", err)
	}

	if err := fillSheet(f, rows); err != nil {
		f.Close()
		return nil, fmt.Errorf("report: %w", err)
	}
	return f, nil
}

func fillSheet(f *excelize.File, rows []Row) error {
	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for i, r := range rows {
		if err := setRow(f, i+2, r.cells()); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, 20); err != nil {
		return err
	}
	return f.AutoFilter(SheetName, fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1), nil)
}

func setRow(f *excelize.File, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	return f.SetSheetRow(SheetName, cell, &values)
}
