package main

import (
	"net/http"
	"strings"
	"time"

	"autosnap/internal/appointments/events"
	appointmenthandler "autosnap/internal/appointments/handler"
	"autosnap/internal/appointments/joiner"
	"autosnap/internal/appointments/live"
	"autosnap/internal/appointments/reader"
	appointmentservice "autosnap/internal/appointments/service"
	appointmentvalidator "autosnap/internal/appointments/validator"
	directoryhandler "autosnap/internal/directory/handler"
	directoryservice "autosnap/internal/directory/service"
	directoryvalidator "autosnap/internal/directory/validator"
	"autosnap/pkg/app"
	"autosnap/pkg/config"
	"autosnap/pkg/docstore"
	"autosnap/pkg/kafka"
	kafka_config "autosnap/pkg/kafka/config"
	kafka_middleware "autosnap/pkg/kafka/middleware"
	"autosnap/pkg/monitoring"
)

const (
	ServiceName          = "appointments"
	reporterFlushTimeout = 2 * time.Second
)

func main() {
	cfg := config.Load(ServiceName)
	defer cfg.GracefulShutdown()

	store := openStore(cfg)
	application := app.NewApplication(cfg)

	reporter := initReporter(cfg)
	application.OnShutdown(func() { reporter.Flush(reporterFlushTimeout) })

	publisher := initPublisher(cfg, application)

	appointmentReader := reader.New(store)
	appointmentJoiner := joiner.New(appointmentReader, cfg.JoinConcurrency)
	appointmentService := appointmentservice.NewAppointmentService(
		store,
		appointmentJoiner,
		appointmentvalidator.NewAppointmentValidator(),
		publisher,
		reporter,
		cfg,
	)
	dateView := live.NewDateView(appointmentReader, appointmentJoiner, cfg.LoadingTimeout, cfg.Log)
	directoryService := directoryservice.NewDirectoryService(store, directoryvalidator.NewDirectoryValidator(), cfg)
	cfg.Log.Info("Appointment and directory services initialized")

	application.SkipTimeout(func(r *http.Request) bool {
		return strings.HasPrefix(r.URL.Path, appointmenthandler.StreamPath)
	})
	application.SetApp(store,
		appointmenthandler.NewAppointmentHandler(appointmentService, dateView, appointmentReader, cfg.Log),
		directoryhandler.NewDirectoryHandler(directoryService, cfg.Log),
	)
	application.Run()
}

type documentStore interface {
	docstore.Store
	docstore.Pinger
}

func openStore(cfg *config.Config) documentStore {
	if !cfg.UsesMongo() {
		cfg.Log.Warn("Using in-memory document store, data is lost on restart")
		return docstore.NewMemoryStore()
	}
	cfg.SetMongo()
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return docstore.NewMongoStore(db, cfg.ReadTimeout, cfg.WriteTimeout, cfg.Log)
}

func initReporter(cfg *config.Config) monitoring.Reporter {
	reporter, err := monitoring.NewReporter(cfg.SentryDSN, cfg.SentryEnvironment, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize error reporting", "error", err)
	}
	return reporter
}

func initPublisher(cfg *config.Config, application *app.Application) events.Publisher {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kafkaCfg.Enabled() {
		cfg.Log.Warn("Kafka brokers not configured, appointment events are not published")
		return events.NewNoopPublisher()
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.AppointmentsTopic, kafkaCfg.AppointmentsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	application.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	return events.NewKafkaPublisher(producer, cfg.Log)
}
