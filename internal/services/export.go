package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cartera/internal/core"
	"cartera/internal/log"
	"cartera/internal/sheets"
	"cartera/internal/storage"
)

// ExportResult reports what one export run wrote.
type ExportResult struct {
	Exported int
	Skipped  int
	Ref      string
}

// ExportMonth appends the transactions dated in the given month to the
// spreadsheet. Transactions already present in the sheet are skipped, so
// running it twice writes nothing new.
func (t *Tracker) ExportMonth(ctx context.Context, year int, month time.Month) (ExportResult, error) {
	if month < time.January || month > time.December {
		return ExportResult{}, fmt.Errorf("invalid month %d", month)
	}
	results, err := t.export(ctx, func(tx core.Transaction) bool {
		return tx.Date.Year() == year && tx.Date.Month() == month
	})
	if err != nil {
		return ExportResult{}, err
	}
	return results[year], nil
}

// ExportTransactions appends the named transactions to the sheets of the
// years they are dated in. Unknown ids are ignored, which happens when a
// transaction was deleted before the export ran.
func (t *Tracker) ExportTransactions(ctx context.Context, ids []string) (ExportResult, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	results, err := t.export(ctx, func(tx core.Transaction) bool { return want[tx.ID] })

	var total ExportResult
	for _, r := range results {
		total.Exported += r.Exported
		total.Skipped += r.Skipped
		if r.Ref != "" {
			total.Ref = r.Ref
		}
	}
	return total, err
}

// export writes the selected transactions, one append per year.
func (t *Tracker) export(ctx context.Context, selected func(core.Transaction) bool) (map[int]ExportResult, error) {
	if t.exporter == nil {
		return nil, errors.New("no spreadsheet exporter configured")
	}

	st, err := t.State(ctx)
	if err != nil {
		return nil, err
	}

	byYear := make(map[int][]core.Transaction)
	for _, tx := range st.Transactions {
		if selected(tx) {
			byYear[tx.Date.Year()] = append(byYear[tx.Date.Year()], tx)
		}
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	results := make(map[int]ExportResult, len(years))
	for _, year := range years {
		result, err := t.exportYear(ctx, year, byYear[year], st)
		results[year] = result
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (t *Tracker) exportYear(ctx context.Context, year int, txs []core.Transaction, st *storage.State) (ExportResult, error) {
	exported, err := t.exporter.ExportedIDs(ctx, year)
	if err != nil {
		return ExportResult{}, fmt.Errorf("read exported ids: %w", err)
	}

	var result ExportResult
	rows := make([]sheets.Row, 0, len(txs))
	for _, tx := range txs {
		if exported[tx.ID] {
			result.Skipped++
			continue
		}
		rows = append(rows, sheets.NewRow(tx, st.Wallets, st.Categories))
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	if len(rows) == 0 {
		return result, nil
	}
	ref, err := t.exporter.AppendRows(ctx, year, rows)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to export transactions",
			log.FieldOperation, log.OpExport, log.FieldYear, year, log.FieldError, err)
		return result, fmt.Errorf("append rows: %w", err)
	}
	result.Exported = len(rows)
	result.Ref = ref

	t.logger.InfoContext(ctx, "Transactions exported",
		log.FieldOperation, log.OpExport,
		log.FieldYear, year,
		log.FieldSheetsRef, ref,
		"rows", len(rows))
	return result, nil
}
