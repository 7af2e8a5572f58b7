package wallet

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	ledgerSheet   = "Wallet"
	transferSheet = "Transfers"
)

// ExportXLSX 导出每日持仓表和调仓记录
func (l *Ledger) ExportXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return err
	}
	header := []any{"Date"}
	for _, m := range l.markets {
		header = append(header, m+" Close", m+" Amount", m+" Value")
	}
	header = append(header, "Wallet Value")
	if err := writeRow(f, ledgerSheet, 1, header); err != nil {
		return err
	}
	for i, r := range l.rows {
		row := []any{r.Date.Format(time.DateOnly)}
		for _, m := range l.markets {
			p, a := r.Prices[m], r.Amounts[m]
			row = append(row, p.InexactFloat64(), a.InexactFloat64(), p.Mul(a).InexactFloat64())
		}
		row = append(row, r.Value().InexactFloat64())
		if err := writeRow(f, ledgerSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(transferSheet); err != nil {
		return err
	}
	if err := writeRow(f, transferSheet, 1, []any{"Date", "From", "To", "EUR", "Ratio", "Factor", "Message"}); err != nil {
		return err
	}
	for i, t := range l.transfers {
		row := []any{t.Date.Format(time.DateOnly), t.From, t.To, t.EUR.InexactFloat64(), t.Ratio.InexactFloat64(), t.Factor, t.Message}
		if err := writeRow(f, transferSheet, i+2, row); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for _, sheet := range []string{ledgerSheet, transferSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return err
		}
		if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
