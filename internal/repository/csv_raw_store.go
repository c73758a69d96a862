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

	"github.com/guregu/null/v6"
)

// CSVRawStore writes each fetched statement to {dir}/{ticker}_{type}.csv. The header
// row is an empty index cell followed by the period ends; each line item is a row of
// label then values.
type CSVRawStore struct {
	dir string
	l   *applogger.Logger
}

var _ domrepo.RawStatementStore = (*CSVRawStore)(nil)

func NewCSVRawStore(dir string) *CSVRawStore {
	return &CSVRawStore{dir: dir}
}

// SetLogger injects a structured logger.
func (s *CSVRawStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CSVRawStore) Write(_ context.Context, ticker string, kind models.StatementType, table *models.StatementTable) error {
	if table == nil {
		return fmt.Errorf("write raw %s %s: nil table", ticker, kind)
	}
	header := make([]string, 0, len(table.Periods)+1)
	header = append(header, "")
	for _, p := range table.Periods {
		header = append(header, util.FormatDate(p))
	}
	records := make([][]string, 0, len(table.Rows)+1)
	records = append(records, header)
	for _, row := range table.Rows {
		rec := make([]string, len(table.Periods)+1)
		rec[0] = row.Label
		for j := range table.Periods {
			if j < len(row.Values) {
				rec[j+1] = formatCell(row.Values[j])
			}
		}
		records = append(records, rec)
	}

	path := csvPath(s.dir, ticker, string(kind))
	if err := writeCSVAtomic(path, records); err != nil {
		s.l.Error("raw statement write failed",
			applogger.String("ticker", ticker),
			applogger.String("statement", string(kind)),
			applogger.Error(err),
		)
		return fmt.Errorf("write raw %s %s: %w", ticker, kind, err)
	}
	s.l.Debug("raw statement written",
		applogger.String("path", path),
		applogger.Int("rows", len(table.Rows)),
	)
	return nil
}

func (s *CSVRawStore) Exists(_ context.Context, ticker string, kind models.StatementType) (bool, error) {
	_, err := os.Stat(csvPath(s.dir, ticker, string(kind)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Read loads a previously written statement back into a table.
func (s *CSVRawStore) Read(_ context.Context, ticker string, kind models.StatementType) (*models.StatementTable, error) {
	records, err := readCSV(csvPath(s.dir, ticker, string(kind)))
	if err != nil {
		return nil, fmt.Errorf("read raw %s %s: %w", ticker, kind, err)
	}
	if len(records) == 0 {
		return &models.StatementTable{}, nil
	}
	t := &models.StatementTable{}
	for _, cell := range records[0][1:] {
		p, ok := util.ParseTime(cell)
		if !ok {
			return nil, fmt.Errorf("read raw %s %s: bad period %q", ticker, kind, cell)
		}
		t.Periods = append(t.Periods, p)
	}
	for _, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}
		item := models.LineItem{Label: rec[0], Values: make([]null.Float, len(t.Periods))}
		for j := range t.Periods {
			if j+1 >= len(rec) {
				break
			}
			v, err := parseCell(rec[j+1])
			if err != nil {
				return nil, fmt.Errorf("read raw %s %s: row %q: %w", ticker, kind, rec[0], err)
			}
			item.Values[j] = v
		}
		t.Rows = append(t.Rows, item)
	}
	return t, nil
}
