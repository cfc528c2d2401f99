// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"BarFlow/pkg/config"
	"BarFlow/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	transport := ProvideTransport(cfg, logger)
	client, err := ProvidePostgresClient(cfg)
	if err != nil {
		return nil, err
	}
	metrics := ProvideMetrics()
	barStore := ProvideBarStore(client, logger, metrics)
	manager := ProvideSubscriptionManager(transport, logger)
	historySource := ProvideHistorySource(cfg, logger)
	clickhouseClient, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	tickArchive := ProvideTickArchive(clickhouseClient, cfg)
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	eventPublisher := ProvideEventPublisher(producer, cfg)
	streamClient := ProvideStreamClient(transport, barStore, manager, historySource, tickArchive, eventPublisher, logger, metrics)
	consumer, err := ProvideKafkaConsumer(cfg)
	if err != nil {
		return nil, err
	}
	kafkaEventsHandler := ProvideKafkaEventsHandler(barStore, metrics, cfg)
	service, err := ProvideCache(cfg)
	if err != nil {
		return nil, err
	}
	handler := ProvideHTTPHandler(logger, streamClient, service)
	app := ProvideApp(cfg, logger, streamClient, consumer, kafkaEventsHandler, handler, client, clickhouseClient, tickArchive, eventPublisher, service)
	return app, nil
}
