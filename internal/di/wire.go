//go:build wireinject
// +build wireinject

package di

import (
	"FinKPI/internal/usecase"
	"FinKPI/pkg/config"
	"FinKPI/pkg/server"

	"github.com/google/wire"
)

var pipelineSet = wire.NewSet(
	ProvideMetrics,
	ProvideClickHouseClient,
	ProvideKpiStore,
	ProvideRawStore,
	ProvideStatementProvider,
	ProvideKafkaProducer,
	ProvideStatementFetcher,
	ProvideKpiCalculator,
	ProvideKpiCache,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		pipelineSet,

		// Event fan-out and dashboard surface
		ProvideEventHub,
		ProvideEventPublisher,
		ProvideRateLimiter,
		ProvideHTTPHandler,

		// Refresh requests over Kafka
		ProvideRefreshHandler,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializePipeline wires the KPI cache alone, for one-shot commands.
func InitializePipeline(cfg *config.Config) (*usecase.KpiCache, func(), error) {
	wire.Build(
		ProvideLogger,
		pipelineSet,
		ProvideCLIEventPublisher,
	)
	return nil, nil, nil
}
