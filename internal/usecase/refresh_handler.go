package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"FinKPI/internal/domain/models"
	drepo "FinKPI/internal/domain/repository"
	xhttp "FinKPI/pkg/http"
	pkgkafka "FinKPI/pkg/kafka"
	"FinKPI/pkg/logger"
	"FinKPI/pkg/util"
)

// Refresher recomputes one ticker.
type Refresher interface {
	Refresh(ctx context.Context, ticker string) (*models.KpiTable, error)
}

// RefreshRequestHandler consumes {"ticker": "..."} messages and refreshes
// the named ticker.
type RefreshRequestHandler struct {
	topic   string
	cache   Refresher
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewRefreshRequestHandler(topic string, cache Refresher, metrics drepo.Metrics) *RefreshRequestHandler {
	return &RefreshRequestHandler{topic: topic, cache: cache, metrics: metrics}
}

func (h *RefreshRequestHandler) SetLogger(l *logger.Logger) { h.log = l }

func (h *RefreshRequestHandler) Topic() string { return h.topic }

// Handle refreshes the requested ticker. Tickers without statements are
// logged and acknowledged.
func (h *RefreshRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.RefreshRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode refresh request: %w", err)
	}
	req.Ticker = util.NormalizeTicker(req.Ticker)
	if errs := xhttp.ValidateStruct(ctx, &req); len(errs) > 0 {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("invalid refresh request: %s", errs[0].Message)
	}

	t, err := h.cache.Refresh(ctx, req.Ticker)
	if errors.Is(err, models.ErrDataUnavailable) {
		h.log.Warn("refresh request for ticker without data",
			logger.String("ticker", req.Ticker),
			logger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
		)
		return nil
	}
	if err != nil {
		return err
	}
	h.log.Info("refreshed from request",
		logger.String("ticker", req.Ticker),
		logger.Int("periods", len(t.Records)),
		logger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*RefreshRequestHandler)(nil)
