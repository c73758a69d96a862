package finnhub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"FinKPI/internal/domain/models"
	drepo "FinKPI/internal/domain/repository"
	xhttp "FinKPI/pkg/http"
	"FinKPI/pkg/logger"
	"FinKPI/pkg/util"

	"github.com/guregu/null/v6"
)

const DefaultBaseURL = "https://finnhub.io/api/v1"

// APIError is a non-2xx answer from Finnhub.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("finnhub: status %d: %s", e.Status, e.Body)
}

// Client fetches "as reported"-style standardized statements from the
// Finnhub /stock/financials endpoint.
type Client struct {
	baseURL string
	freq    string
	http    *xhttp.Client
	log     *logger.Logger
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithFreq selects "annual" or "quarterly" statements.
func WithFreq(freq string) Option {
	return func(c *Client) { c.freq = freq }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Finnhub statement provider.
func New(apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		freq:    "annual",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = xhttp.NewClient(
		xhttp.WithTimeout(timeout),
		xhttp.WithHeader("X-Finnhub-Token", apiKey),
		xhttp.WithClientLogger(c.log),
	)
	return c
}

var _ drepo.StatementProvider = (*Client)(nil)

var statementParam = map[models.StatementType]string{
	models.StatementIncome:   "ic",
	models.StatementBalance:  "bs",
	models.StatementCashFlow: "cf",
}

type financialsResponse struct {
	Symbol     string            `json:"symbol"`
	Financials []json.RawMessage `json:"financials"`
}

// FetchStatement returns one statement for ticker. An empty Finnhub answer
// yields (nil, nil).
func (c *Client) FetchStatement(ctx context.Context, ticker string, kind models.StatementType) (*models.StatementTable, error) {
	param, ok := statementParam[kind]
	if !ok {
		return nil, fmt.Errorf("finnhub: unknown statement type %q", kind)
	}

	var resp financialsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/stock/financials",
		QueryParams: map[string][]string{
			"symbol":    {ticker},
			"statement": {param},
			"freq":      {c.freq},
		},
	}, &resp)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("fetch %s %s: %w", ticker, kind, &APIError{Status: se.Status, Body: se.Body})
		}
		return nil, fmt.Errorf("fetch %s %s: %w", ticker, kind, err)
	}

	table, err := parseFinancials(resp.Financials)
	if err != nil {
		return nil, fmt.Errorf("parse %s %s: %w", ticker, kind, err)
	}
	if table.IsEmpty() {
		c.log.Debug("finnhub returned no data",
			logger.String("ticker", ticker),
			logger.String("statement", string(kind)),
		)
		return nil, nil
	}
	return table, nil
}

// metaKeys are per-period attributes, not line items.
var metaKeys = map[string]struct{}{
	"period":  {},
	"year":    {},
	"quarter": {},
}

// parseFinancials turns Finnhub's per-period objects into a table whose rows
// follow the key order of the document.
func parseFinancials(periods []json.RawMessage) (*models.StatementTable, error) {
	table := &models.StatementTable{}
	index := make(map[string]int)
	var cols []map[string]null.Float

	for _, raw := range periods {
		values, order, err := decodeOrdered(raw)
		if err != nil {
			return nil, err
		}
		ps, _ := values["period"].(string)
		p, ok := util.ParseTime(ps)
		if !ok {
			continue
		}

		col := make(map[string]null.Float, len(order))
		for _, key := range order {
			if _, meta := metaKeys[key]; meta {
				continue
			}
			label := Humanize(key)
			if _, seen := index[label]; !seen {
				index[label] = len(table.Rows)
				table.Rows = append(table.Rows, models.LineItem{Label: label})
			}
			col[label] = toFloat(values[key])
		}
		table.Periods = append(table.Periods, p)
		cols = append(cols, col)
	}

	for i := range table.Rows {
		row := &table.Rows[i]
		row.Values = make([]null.Float, len(cols))
		for j, col := range cols {
			row.Values[j] = col[row.Label]
		}
	}
	return table, nil
}

func decodeOrdered(raw json.RawMessage) (map[string]interface{}, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	values := make(map[string]interface{})
	var order []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := tok.(string)
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := values[key]; !dup {
			order = append(order, key)
		}
		values[key] = v
	}
	return values, order, nil
}

func toFloat(v interface{}) null.Float {
	n, ok := v.(json.Number)
	if !ok {
		return null.Float{}
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// Humanize turns a camelCase key into space separated title words:
// "grossIncome" -> "Gross Income", "dilutedEPS" -> "Diluted EPS".
func Humanize(key string) string {
	rs := []rune(key)
	var b strings.Builder
	for i, r := range rs {
		if i > 0 && unicode.IsUpper(r) {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune(' ')
			}
		}
		if i == 0 {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
