package repository

import (
	"context"
	"errors"
	"fmt"
	"os"

	"FinKPI/internal/domain/models"
	domrepo "FinKPI/internal/domain/repository"
	applogger "FinKPI/pkg/logger"
	"FinKPI/pkg/util"
)

const kpiIndexColumn = "period_end"

// CSVKpiStore keeps one {ticker}_kpis.csv per ticker: a period_end index column
// followed by models.KpiColumns. Empty cells are absent values.
type CSVKpiStore struct {
	dir string
	l   *applogger.Logger
}

var _ domrepo.KpiStore = (*CSVKpiStore)(nil)

func NewCSVKpiStore(dir string) *CSVKpiStore {
	return &CSVKpiStore{dir: dir}
}

// SetLogger injects a structured logger.
func (s *CSVKpiStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CSVKpiStore) Get(_ context.Context, ticker string) (*models.KpiTable, error) {
	records, err := readCSV(csvPath(s.dir, ticker, "kpis"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrKpiNotFound
		}
		return nil, fmt.Errorf("read kpis %s: %w", ticker, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read kpis %s: missing header", ticker)
	}

	// Columns are matched by name so files with reordered or extra columns still load.
	index := -1
	cols := make(map[int]int, len(models.KpiColumns))
	for i, name := range records[0] {
		if name == kpiIndexColumn {
			index = i
			continue
		}
		for k, col := range models.KpiColumns {
			if col == name {
				cols[i] = k
			}
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("read kpis %s: no %s column", ticker, kpiIndexColumn)
	}

	table := &models.KpiTable{Ticker: ticker, Records: make([]models.KpiRecord, 0, len(records)-1)}
	for n, rec := range records[1:] {
		if index >= len(rec) {
			continue
		}
		p, ok := util.ParseTime(rec[index])
		if !ok {
			return nil, fmt.Errorf("read kpis %s: line %d: bad period %q", ticker, n+2, rec[index])
		}
		r := models.KpiRecord{PeriodEnd: p}
		fields := r.Fields()
		for i, k := range cols {
			if i >= len(rec) {
				continue
			}
			v, err := parseCell(rec[i])
			if err != nil {
				return nil, fmt.Errorf("read kpis %s: line %d: %s: %w", ticker, n+2, models.KpiColumns[k], err)
			}
			*fields[k] = v
		}
		table.Records = append(table.Records, r)
	}
	table.SortByPeriod()
	return table, nil
}

func (s *CSVKpiStore) Put(_ context.Context, table *models.KpiTable) error {
	if table == nil || table.Ticker == "" {
		return fmt.Errorf("put kpis: table without ticker")
	}
	header := append([]string{kpiIndexColumn}, models.KpiColumns...)
	records := make([][]string, 0, len(table.Records)+1)
	records = append(records, header)
	for i := range table.Records {
		r := &table.Records[i]
		rec := make([]string, 0, len(header))
		rec = append(rec, util.FormatDate(r.PeriodEnd))
		for _, f := range r.Fields() {
			rec = append(rec, formatCell(*f))
		}
		records = append(records, rec)
	}

	path := csvPath(s.dir, table.Ticker, "kpis")
	if err := writeCSVAtomic(path, records); err != nil {
		s.l.Error("kpi table write failed", applogger.String("ticker", table.Ticker), applogger.Error(err))
		return fmt.Errorf("put kpis %s: %w", table.Ticker, err)
	}
	s.l.Debug("kpi table written", applogger.String("path", path), applogger.Int("periods", len(table.Records)))
	return nil
}

func (s *CSVKpiStore) Delete(_ context.Context, ticker string) error {
	err := os.Remove(csvPath(s.dir, ticker, "kpis"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete kpis %s: %w", ticker, err)
	}
	return nil
}
