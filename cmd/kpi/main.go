// Command kpi computes the KPI table of one ticker and prints its last periods.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"FinKPI/internal/di"
	"FinKPI/internal/domain/models"
	"FinKPI/pkg/config"
	"FinKPI/pkg/util"
)

var defaultColumns = []string{"revenue", "net_income", "net_margin_pct", "roe_pct", "debt_to_equity"}

func main() {
	configPath := flag.String("config", "", "config file path (defaults plus environment when empty)")
	ticker := flag.String("ticker", "ULVR.L", "ticker to compute")
	last := flag.Int("last", 3, "number of most recent periods to print")
	cols := flag.String("columns", strings.Join(defaultColumns, ","), "comma separated KPI columns")
	refresh := flag.Bool("refresh", false, "recompute even when a stored table exists")
	flag.Parse()

	columns := util.SplitList(*cols)
	for _, c := range columns {
		if !models.IsMetric(c) {
			log.Fatalf("unknown column %q", c)
		}
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	cache, cleanup, err := di.InitializePipeline(cfg)
	if err != nil {
		log.Fatalf("pipeline initialization failed: %v", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sym := util.NormalizeTicker(*ticker)
	load := cache.Load
	if *refresh {
		load = cache.Refresh
	}
	table, err := load(ctx, sym)
	if err != nil {
		log.Printf("%s: %v", sym, err)
		cleanup()
		os.Exit(1)
	}
	printTail(os.Stdout, table, columns, *last)
}

func printTail(w io.Writer, t *models.KpiTable, columns []string, n int) {
	recs := t.Records
	if n > 0 && len(recs) > n {
		recs = recs[len(recs)-n:]
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "period_end\t%s\t\n", strings.Join(columns, "\t"))
	for i := range recs {
		r := &recs[i]
		cells := make([]string, len(columns))
		for j, c := range columns {
			v, _ := r.Metric(c)
			if v.Valid {
				cells[j] = fmt.Sprintf("%g", v.Float64)
			} else {
				cells[j] = "NaN"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", util.FormatDate(r.PeriodEnd), strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}
