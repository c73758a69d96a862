package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinKPI/internal/domain/models"
	domrepo "FinKPI/internal/domain/repository"
	pkgch "FinKPI/pkg/clickhouse"
	applogger "FinKPI/pkg/logger"
)

// CHRawStore archives fetched statements in raw_statements, one row per line item
// and period.
type CHRawStore struct {
	db  *sql.DB
	dbn string
	l   *applogger.Logger
}

var _ domrepo.RawStatementStore = (*CHRawStore)(nil)

func NewCHRawStore(ch *pkgch.Client) *CHRawStore {
	return &CHRawStore{db: ch.DB(), dbn: ch.Database()}
}

// SetLogger injects a structured logger.
func (s *CHRawStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHRawStore) Write(ctx context.Context, ticker string, kind models.StatementType, table *models.StatementTable) error {
	if table == nil {
		return fmt.Errorf("write raw %s %s: nil table", ticker, kind)
	}
	version := uint64(time.Now().UnixNano())

	type cell struct {
		row   int
		label string
		p     time.Time
		v     interface{}
	}
	cells := make([]cell, 0, len(table.Rows)*len(table.Periods))
	for i, row := range table.Rows {
		for j, p := range table.Periods {
			var v interface{}
			if j < len(row.Values) {
				v = nullable(row.Values[j])
			}
			cells = append(cells, cell{row: i, label: row.Label, p: p.UTC(), v: v})
		}
	}

	// Multi-row VALUES in chunks to bound statement size.
	const chunkSize = 2000
	for start := 0; start < len(cells); start += chunkSize {
		end := start + chunkSize
		if end > len(cells) {
			end = len(cells)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, c := range cells[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, ticker, string(kind), version, uint32(c.row), c.label, c.p, c.v)
		}
		q := fmt.Sprintf("INSERT INTO %s.raw_statements (ticker, statement, version, row_idx, label, period_end, value) VALUES %s",
			s.dbn, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse raw insert error",
				applogger.String("ticker", ticker),
				applogger.String("statement", string(kind)),
				applogger.Int("rows", end-start),
				applogger.Error(err),
			)
			return fmt.Errorf("write raw %s %s: %w", ticker, kind, err)
		}
	}
	return nil
}

func (s *CHRawStore) Exists(ctx context.Context, ticker string, kind models.StatementType) (bool, error) {
	q := fmt.Sprintf("SELECT count() FROM %s.raw_statements WHERE ticker = ? AND statement = ?", s.dbn)
	var n uint64
	if err := s.db.QueryRowContext(ctx, q, ticker, string(kind)).Scan(&n); err != nil {
		return false, fmt.Errorf("raw exists %s %s: %w", ticker, kind, err)
	}
	return n > 0, nil
}
