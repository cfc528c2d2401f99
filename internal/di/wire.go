//go:build wireinject
// +build wireinject

package di

import (
	"BarFlow/pkg/config"
	"BarFlow/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideBarStore,
		ProvideTickArchive,
		ProvideEventPublisher,
		ProvideTransport,
		ProvideHistorySource,

		// Use cases
		ProvideSubscriptionManager,
		ProvideStreamClient,
		ProvideKafkaEventsHandler,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
