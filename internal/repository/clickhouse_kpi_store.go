package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinKPI/internal/domain/models"
	domrepo "FinKPI/internal/domain/repository"
	pkgch "FinKPI/pkg/clickhouse"
	applogger "FinKPI/pkg/logger"

	"github.com/guregu/null/v6"
)

// CHKpiStore implements KpiStore backed by ClickHouse. Every Put writes a new
// version; Get reads the newest non-deleted one.
type CHKpiStore struct {
	db  *sql.DB
	dbn string
	l   *applogger.Logger
	now func() time.Time
}

var _ domrepo.KpiStore = (*CHKpiStore)(nil)

func NewCHKpiStore(ch *pkgch.Client) *CHKpiStore {
	return &CHKpiStore{db: ch.DB(), dbn: ch.Database(), now: time.Now}
}

// SetLogger injects a structured logger.
func (s *CHKpiStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHKpiStore) Get(ctx context.Context, ticker string) (*models.KpiTable, error) {
	start := time.Now()
	var (
		version uint64
		deleted uint8
	)
	q := fmt.Sprintf(`
        SELECT version, deleted
        FROM %s.kpi_tables
        WHERE ticker = ?
        ORDER BY version DESC
        LIMIT 1
    `, s.dbn)
	err := s.db.QueryRowContext(ctx, q, ticker).Scan(&version, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrKpiNotFound
	}
	if err != nil {
		s.l.Error("clickhouse kpi header query error", applogger.String("ticker", ticker), applogger.Error(err))
		return nil, fmt.Errorf("get kpi header: %w", err)
	}
	if deleted != 0 {
		return nil, models.ErrKpiNotFound
	}

	q = fmt.Sprintf(`
        SELECT period_end, %s
        FROM %s.kpi_records
        WHERE ticker = ? AND version = ?
        ORDER BY period_end ASC
    `, strings.Join(models.KpiColumns, ", "), s.dbn)
	rows, err := s.db.QueryContext(ctx, q, ticker, version)
	if err != nil {
		s.l.Error("clickhouse kpi records query error", applogger.String("ticker", ticker), applogger.Error(err))
		return nil, fmt.Errorf("get kpi records: %w", err)
	}
	defer rows.Close()

	table := &models.KpiTable{Ticker: ticker, Records: make([]models.KpiRecord, 0, 8)}
	for rows.Next() {
		var r models.KpiRecord
		dest := []interface{}{&r.PeriodEnd}
		for _, f := range r.Fields() {
			dest = append(dest, f)
		}
		if err := rows.Scan(dest...); err != nil {
			s.l.Error("clickhouse kpi records scan error", applogger.String("ticker", ticker), applogger.Error(err))
			return nil, fmt.Errorf("scan kpi record: %w", err)
		}
		r.PeriodEnd = r.PeriodEnd.UTC()
		table.Records = append(table.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse kpi get ok",
		applogger.String("ticker", ticker),
		applogger.Int("rows", len(table.Records)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return table, nil
}

func (s *CHKpiStore) Put(ctx context.Context, table *models.KpiTable) error {
	if table == nil || table.Ticker == "" {
		return fmt.Errorf("put kpis: table without ticker")
	}
	now := s.now().UTC()
	version := uint64(now.UnixNano())

	if len(table.Records) > 0 {
		cols := append([]string{"ticker", "version", "period_end"}, models.KpiColumns...)
		placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
		values := make([]string, 0, len(table.Records))
		args := make([]interface{}, 0, len(table.Records)*len(cols))
		for i := range table.Records {
			r := &table.Records[i]
			values = append(values, placeholder)
			args = append(args, table.Ticker, version, r.PeriodEnd.UTC())
			for _, f := range r.Fields() {
				args = append(args, nullable(*f))
			}
		}
		q := fmt.Sprintf("INSERT INTO %s.kpi_records (%s) VALUES %s",
			s.dbn, strings.Join(cols, ", "), strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse kpi records insert error", applogger.String("ticker", table.Ticker), applogger.Error(err))
			return fmt.Errorf("insert kpi records: %w", err)
		}
	}
	return s.writeHeader(ctx, table.Ticker, version, len(table.Records), false, now)
}

// Delete writes a tombstone header; older versions stay until merged away.
func (s *CHKpiStore) Delete(ctx context.Context, ticker string) error {
	now := s.now().UTC()
	return s.writeHeader(ctx, ticker, uint64(now.UnixNano()), 0, true, now)
}

func (s *CHKpiStore) writeHeader(ctx context.Context, ticker string, version uint64, periods int, deleted bool, at time.Time) error {
	var del uint8
	if deleted {
		del = 1
	}
	q := fmt.Sprintf("INSERT INTO %s.kpi_tables (ticker, version, periods, deleted, updated) VALUES (?, ?, ?, ?, ?)", s.dbn)
	if _, err := s.db.ExecContext(ctx, q, ticker, version, uint32(periods), del, at); err != nil {
		s.l.Error("clickhouse kpi header insert error",
			applogger.String("ticker", ticker),
			applogger.Bool("deleted", deleted),
			applogger.Error(err),
		)
		return fmt.Errorf("insert kpi header: %w", err)
	}
	return nil
}

// nullable maps an absent value to NULL.
func nullable(v null.Float) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Float64
}
