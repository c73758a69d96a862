package di

import (
	"context"
	"fmt"
	"time"

	"FinKPI/internal/domain/repository"
	"FinKPI/internal/handler/api"
	internalrepo "FinKPI/internal/repository"
	"FinKPI/internal/service/finnhub"
	"FinKPI/internal/service/ratelimit"
	"FinKPI/internal/usecase"
	"FinKPI/pkg/cache"
	pkgch "FinKPI/pkg/clickhouse"
	"FinKPI/pkg/config"
	xhttp "FinKPI/pkg/http"
	pkgkafka "FinKPI/pkg/kafka"
	"FinKPI/pkg/logger"
	"FinKPI/pkg/metrics"
	"FinKPI/pkg/server"

	kafkago "github.com/segmentio/kafka-go"
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder, or a no-op one when
// metrics are disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideClickHouseClient connects only when a store is configured to use
// ClickHouse; otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config, l *logger.Logger) (*pkgch.Client, func(), error) {
	if cfg.Store.Raw != "clickhouse" && cfg.Store.Kpi != "clickhouse" {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithLogger(l),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", logger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideKpiStore selects the processed-table backend named by store.kpi.
func ProvideKpiStore(cfg *config.Config, ch *pkgch.Client, l *logger.Logger) (repository.KpiStore, func(), error) {
	noop := func() {}
	switch cfg.Store.Kpi {
	case "csv":
		s := internalrepo.NewCSVKpiStore(cfg.Data.ProcessedDir)
		s.SetLogger(l)
		return s, noop, nil
	case "clickhouse":
		if ch == nil {
			return nil, nil, fmt.Errorf("kpi store: clickhouse client not configured")
		}
		s := internalrepo.NewCHKpiStore(ch)
		s.SetLogger(l)
		return s, noop, nil
	case "memory":
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(10_000))
		return internalrepo.NewCacheKpiStore(mc), func() { _ = mc.Close() }, nil
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.KeyPrefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("kpi store: %w", err)
		}
		var svc cache.Service = rc
		if cfg.Store.Kpi == "layered" {
			svc = cache.NewLayeredCache(rc, cache.WithMemoryMaxSize(1_000))
		}
		l.Info("kpi store on redis", logger.String("addr", cfg.Redis.Addr), logger.Bool("layered", cfg.Store.Kpi == "layered"))
		return internalrepo.NewCacheKpiStore(svc), func() { _ = svc.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("kpi store: unknown backend %q", cfg.Store.Kpi)
	}
}

// ProvideRawStore selects the raw statement backend named by store.raw.
func ProvideRawStore(cfg *config.Config, ch *pkgch.Client, l *logger.Logger) (repository.RawStatementStore, error) {
	switch cfg.Store.Raw {
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("raw store: clickhouse client not configured")
		}
		s := internalrepo.NewCHRawStore(ch)
		s.SetLogger(l)
		return s, nil
	default:
		s := internalrepo.NewCSVRawStore(cfg.Data.RawDir)
		s.SetLogger(l)
		return s, nil
	}
}

// ProvideStatementProvider creates the Finnhub REST client.
func ProvideStatementProvider(cfg *config.Config, l *logger.Logger) repository.StatementProvider {
	return finnhub.New(cfg.Finnhub.APIKey, cfg.Finnhub.Timeout,
		finnhub.WithBaseURL(cfg.Finnhub.BaseURL),
		finnhub.WithFreq(cfg.Finnhub.Freq),
		finnhub.WithLogger(l),
	)
}

// ProvideKafkaProducer returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventHub creates the websocket broadcaster.
func ProvideEventHub(l *logger.Logger) *api.EventHub {
	return api.NewEventHub(l)
}

// ProvideEventPublisher fans refresh events out to websocket clients and,
// when enabled, Kafka.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, hub *api.EventHub) repository.EventPublisher {
	pubs := []repository.EventPublisher{hub}
	if producer != nil {
		pubs = append(pubs, internalrepo.NewKafkaPublisher(producer, cfg.Kafka.EventsTopic))
	}
	return internalrepo.NewFanoutPublisher(pubs...)
}

// ProvideCLIEventPublisher publishes only to Kafka, if enabled.
func ProvideCLIEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) (repository.EventPublisher, func()) {
	var pub repository.EventPublisher = internalrepo.NewFanoutPublisher()
	if producer != nil {
		pub = internalrepo.NewKafkaPublisher(producer, cfg.Kafka.EventsTopic)
	}
	return pub, func() { _ = pub.Close() }
}

// ProvideStatementFetcher creates statement fetcher use case.
func ProvideStatementFetcher(p repository.StatementProvider, raw repository.RawStatementStore, m repository.Metrics, l *logger.Logger) *usecase.StatementFetcher {
	f := usecase.NewStatementFetcher(p, raw, m)
	f.SetLogger(l)
	return f
}

// ProvideKpiCalculator creates KPI calculator use case.
func ProvideKpiCalculator(f *usecase.StatementFetcher, store repository.KpiStore, events repository.EventPublisher, m repository.Metrics, l *logger.Logger) *usecase.KpiCalculator {
	c := usecase.NewKpiCalculator(f, store, events, m)
	c.SetLogger(l)
	return c
}

// ProvideKpiCache creates the read-through cache use case.
func ProvideKpiCache(store repository.KpiStore, calc *usecase.KpiCalculator, m repository.Metrics, l *logger.Logger) *usecase.KpiCache {
	c := usecase.NewKpiCache(store, calc, m)
	c.SetLogger(l)
	return c
}

// ProvideRefreshHandler creates the refresh-request message handler.
func ProvideRefreshHandler(cfg *config.Config, c *usecase.KpiCache, m repository.Metrics, l *logger.Logger) *usecase.RefreshRequestHandler {
	h := usecase.NewRefreshRequestHandler(cfg.Kafka.RequestTopic, c, m)
	h.SetLogger(l)
	return h
}

// ProvideKafkaConsumer returns nil unless both kafka.enabled and kafka.consume are set.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consume {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(2),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetLogger(l)
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, _ kafkago.Message, err error) {
			l.Warn("refresh request dropped", logger.String("topic", topic), logger.Error(err))
		},
	})
	return consumer, nil
}

// ProvideRateLimiter bounds refresh calls per client.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	burst := cfg.Server.RefreshPerMinute / 6
	if burst < 1 {
		burst = 1
	}
	return ratelimit.New(burst, cfg.Server.RefreshPerMinute)
}

// ProvideHTTPHandler assembles the dashboard routes.
func ProvideHTTPHandler(cfg *config.Config, l *logger.Logger, c *usecase.KpiCache, hub *api.EventHub, lim *ratelimit.Limiter) xhttp.Handler {
	h := api.NewKpiEchoHandler(l, c, cfg.Universe)
	h.SetRefreshLimiter(lim.Middleware())
	return xhttp.Handlers{h, hub}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	rh *usecase.RefreshRequestHandler,
	events repository.EventPublisher,
	lim *ratelimit.Limiter,
) *server.App {
	app := server.New(cfg, l, handler, events)
	if consumer != nil {
		app.SetConsumer(consumer, rh)
	}
	app.SetLimiter(lim)
	return app
}
