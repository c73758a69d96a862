package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"FinKPI/internal/domain/models"
	"FinKPI/internal/service/finnhub"
	"FinKPI/pkg/config"
	xhttp "FinKPI/pkg/http"
	xlogger "FinKPI/pkg/logger"
	"FinKPI/pkg/util"

	"github.com/labstack/echo/v4"
)

// KpiService is what the dashboard needs from the KPI cache.
type KpiService interface {
	Load(ctx context.Context, ticker string) (*models.KpiTable, error)
	Invalidate(ctx context.Context, ticker string) error
	Refresh(ctx context.Context, ticker string) (*models.KpiTable, error)
	Peers(ctx context.Context, tickers []string, metric string) (*models.PeerComparison, error)
	SectorAverage(ctx context.Context, category string, tickers []string, metrics []string) (*models.SectorAverage, error)
}

// KpiEchoHandler serves the dashboard API.
type KpiEchoHandler struct {
	logger   *xlogger.Logger
	svc      KpiService
	universe config.Universe
	refresh  echo.MiddlewareFunc
}

func NewKpiEchoHandler(logger *xlogger.Logger, svc KpiService, universe config.Universe) *KpiEchoHandler {
	return &KpiEchoHandler{logger: logger, svc: svc, universe: universe}
}

// SetRefreshLimiter guards the refresh endpoint with m.
func (h *KpiEchoHandler) SetRefreshLimiter(m echo.MiddlewareFunc) { h.refresh = m }

func (h *KpiEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/universe", h.Universe)
	g.GET("/peers", h.Peers)
	g.GET("/sectors/:category/average", h.SectorAverage)
	g.GET("/kpis/:ticker", h.History)
	g.GET("/kpis/:ticker/latest", h.Latest)
	g.DELETE("/kpis/:ticker", h.Invalidate)
	if h.refresh != nil {
		g.POST("/kpis/:ticker/refresh", h.Refresh, h.refresh)
	} else {
		g.POST("/kpis/:ticker/refresh", h.Refresh)
	}
}

func (h *KpiEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// History returns the full table, or only the last n records with ?last=n.
func (h *KpiEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ticker := util.NormalizeTicker(req.Ticker)

	t, err := h.svc.Load(c.Request().Context(), ticker)
	if err != nil {
		return h.fail(c, "load", ticker, err)
	}
	if req.Last > 0 && len(t.Records) > req.Last {
		t = &models.KpiTable{Ticker: t.Ticker, Records: t.Records[len(t.Records)-req.Last:]}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, t)
}

func (h *KpiEchoHandler) Latest(c echo.Context) error {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ticker := util.NormalizeTicker(req.Ticker)

	t, err := h.svc.Load(c.Request().Context(), ticker)
	if err != nil {
		return h.fail(c, "latest", ticker, err)
	}
	latest := t.Latest()
	if latest == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no periods for %s", ticker))
	}
	return xhttp.SuccessResponse(c, Snapshot(ticker, latest))
}

func (h *KpiEchoHandler) Refresh(c echo.Context) error {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ticker := util.NormalizeTicker(req.Ticker)

	t, err := h.svc.Refresh(c.Request().Context(), ticker)
	if err != nil {
		return h.fail(c, "refresh", ticker, err)
	}
	h.logger.Info("kpis refreshed", xlogger.String("ticker", ticker), xlogger.Int("periods", len(t.Records)))
	return xhttp.SuccessResponse(c, t)
}

func (h *KpiEchoHandler) Invalidate(c echo.Context) error {
	req := &models.TickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ticker := util.NormalizeTicker(req.Ticker)

	if err := h.svc.Invalidate(c.Request().Context(), ticker); err != nil {
		return h.fail(c, "invalidate", ticker, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *KpiEchoHandler) Peers(c echo.Context) error {
	req := &models.PeersRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tickers := util.SplitList(strings.ToUpper(req.Tickers))
	if len(tickers) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("tickers is empty"))
	}

	res, err := h.svc.Peers(c.Request().Context(), tickers, req.Metric)
	if err != nil {
		return h.fail(c, "peers", strings.Join(tickers, ","), err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *KpiEchoHandler) SectorAverage(c echo.Context) error {
	req := &models.SectorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cat, ok := h.universe.Find(req.Category)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("unknown category %q", req.Category))
	}
	metrics := util.SplitList(req.Metrics)
	for _, m := range metrics {
		if !models.IsMetric(m) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unknown metric %q", m).WithParam("metric", m))
		}
	}
	if len(metrics) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("metrics is empty"))
	}

	res, err := h.svc.SectorAverage(c.Request().Context(), req.Category, cat.Tickers(), metrics)
	if err != nil {
		return h.fail(c, "sector", req.Category, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Universe lists categories and companies in configured order.
func (h *KpiEchoHandler) Universe(c echo.Context) error {
	out := h.universe
	if out == nil {
		out = config.Universe{}
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *KpiEchoHandler) fail(c echo.Context, op, subject string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.String("subject", subject), xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.String("subject", subject), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	var apiErr *finnhub.APIError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrDataUnavailable):
		return xhttp.UnprocessableError("ERR_DATA_UNAVAILABLE", "no statements available, try another ticker").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.BadGatewayError("upstream timed out").WithError(err)
	case errors.As(err, &apiErr):
		e := xhttp.BadGatewayError("financial data provider error").WithError(err)
		return e.WithParam("upstream_status", apiErr.Status)
	default:
		return xhttp.InternalError("something went wrong").WithError(err)
	}
}

// Snapshot renders the latest record for the dashboard summary cards.
func Snapshot(ticker string, r *models.KpiRecord) *models.Snapshot {
	d := map[string]string{"period_end": util.FormatDate(r.PeriodEnd)}
	for i, col := range models.KpiColumns {
		v := *r.Fields()[i]
		switch {
		case strings.HasSuffix(col, "_pct"), strings.HasSuffix(col, "_yoy"):
			d[col] = util.FormatPercent(v)
		case col == "debt_to_equity":
			d[col] = util.FormatRatio(v)
		default:
			d[col] = util.FormatCompact(v)
		}
	}
	return &models.Snapshot{Ticker: ticker, Record: r, Display: d}
}
