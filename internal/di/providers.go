package di

import (
	"context"
	"fmt"
	"time"

	"BarFlow/internal/domain/repository"
	"BarFlow/internal/handler/api"
	internalrepo "BarFlow/internal/repository"
	"BarFlow/internal/service/feedhist"
	"BarFlow/internal/service/marketws"
	"BarFlow/internal/subscriptions"
	"BarFlow/internal/usecase"
	"BarFlow/pkg/cache"
	pkgch "BarFlow/pkg/clickhouse"
	"BarFlow/pkg/config"
	xhttp "BarFlow/pkg/http"
	pkgkafka "BarFlow/pkg/kafka"
	"BarFlow/pkg/logger"
	"BarFlow/pkg/metrics"
	pkgpg "BarFlow/pkg/postgres"
	"BarFlow/pkg/server"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvidePostgresClient connects to the bar database and runs migrations.
// When create_db is set, the database is created first via the maintenance DB.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	if cfg.Postgres.CreateDB {
		if err := pkgpg.CreateDatabase(cfg.PostgresDSN("postgres"), cfg.Postgres.DBName); err != nil {
			return nil, fmt.Errorf("create database: %w", err)
		}
	}

	client, err := pkgpg.NewClient(cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	if err := client.Migrate(&internalrepo.BarRecord{}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return client, nil
}

// ProvideBarStore creates the Postgres-backed bar repository.
func ProvideBarStore(pg *pkgpg.Client, l *logger.Logger, m repository.Metrics) repository.BarStore {
	return internalrepo.NewBarRepository(pg.DB, l, m)
}

// ProvideClickHouseClient creates a ClickHouse client for the tick archive.
// Returns nil when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.TickArchive.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.TickArchive.Host),
		pkgch.WithPort(cfg.TickArchive.Port),
		pkgch.WithDatabase(cfg.TickArchive.Database),
		pkgch.WithCredentials(cfg.TickArchive.User, cfg.TickArchive.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.TickArchive.DialTimeout, cfg.TickArchive.ReadTimeout, cfg.TickArchive.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.TickArchive.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	table := cfg.TickArchive.Database + "." + cfg.TickArchive.Table
	if err := client.InitSchema(ctx, internalrepo.ArchiveSchema(cfg.TickArchive.Database, table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideTickArchive creates the ClickHouse tick archive, or nil when disabled.
func ProvideTickArchive(chClient *pkgch.Client, cfg *config.Config) repository.TickArchive {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseTickArchive(chClient.DB(), cfg.TickArchive.Database+"."+cfg.TickArchive.Table)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher creates the Kafka event publisher, or nil when
// Kafka is disabled.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates the replay consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}

	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaEventsHandler registers the replay handler for the event topic.
func ProvideKafkaEventsHandler(store repository.BarStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaEventsHandler {
	return usecase.NewKafkaEventsHandler(cfg.Kafka.Topic, store, m)
}

// ProvideTransport creates the WebSocket feed transport.
func ProvideTransport(cfg *config.Config, l *logger.Logger) repository.Transport {
	return marketws.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		l,
	)
}

// ProvideHistorySource creates the REST candle source for backfills.
func ProvideHistorySource(cfg *config.Config, l *logger.Logger) repository.HistorySource {
	return feedhist.New(cfg.Feed.RESTURL, cfg.Feed.APIKey, cfg.Feed.RequestTimeout, l)
}

// ProvideSubscriptionManager creates the ref-counted subscription manager.
func ProvideSubscriptionManager(t repository.Transport, l *logger.Logger) *subscriptions.Manager {
	return subscriptions.NewManager(t, l)
}

// ProvideStreamClient wires the streaming client and attaches the optional
// fan-out listeners (tick archive, Kafka publisher) and the history source.
func ProvideStreamClient(
	t repository.Transport,
	store repository.BarStore,
	subs *subscriptions.Manager,
	history repository.HistorySource,
	archive repository.TickArchive,
	pub repository.EventPublisher,
	l *logger.Logger,
	m repository.Metrics,
) *usecase.StreamClient {
	client := usecase.NewStreamClient(t, store, subs, l, m)
	client.SetHistorySource(history)
	if archive != nil {
		client.AddListener(usecase.NewTickArchiveListener(archive))
	}
	if pub != nil {
		client.AddListener(usecase.NewPublisherListener(pub))
	}
	return client
}

// ProvideCache selects the shared cache backend from config.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	maxSize := cfg.Cache.MaxSize
	if maxSize <= 0 {
		maxSize = 1024
	}
	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	if cfg.Cache.Backend == "redis" {
		c, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	}

	c, err := cache.NewSharedTTL(maxSize, ttl)
	if err != nil {
		return nil, fmt.Errorf("memory cache: %w", err)
	}
	return c, nil
}

// ProvideHTTPHandler creates the bars API handler.
func ProvideHTTPHandler(l *logger.Logger, client *usecase.StreamClient, c cache.Service) xhttp.Handler {
	return api.NewBarsEchoHandler(l, client, c)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	client *usecase.StreamClient,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaEventsHandler,
	handler xhttp.Handler,
	pgClient *pkgpg.Client,
	chClient *pkgch.Client,
	archive repository.TickArchive,
	pub repository.EventPublisher,
	cacheSvc cache.Service,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, client, consumer, kh, handler, pgClient, chClient, archive, pub, cacheSvc)
}
