package main

import (
	"context"
	"os/signal"
	"syscall"

	"autosnap/internal/appointments/events"
	"autosnap/internal/appointments/joiner"
	"autosnap/internal/appointments/reader"
	appointmentservice "autosnap/internal/appointments/service"
	appointmentvalidator "autosnap/internal/appointments/validator"
	"autosnap/internal/reconciler"
	"autosnap/pkg/config"
	"autosnap/pkg/docstore"
	"autosnap/pkg/kafka"
	kafka_config "autosnap/pkg/kafka/config"
	kafka_middleware "autosnap/pkg/kafka/middleware"
	"autosnap/pkg/monitoring"
	"autosnap/pkg/notify"
)

const ServiceName = "reconciler"

func main() {
	cfg := config.Load(ServiceName)
	defer cfg.GracefulShutdown()

	if !cfg.UsesMongo() {
		cfg.Log.Fatal("Reconciler needs a shared store", "store_backend", cfg.StoreBackend)
	}
	cfg.SetMongo()
	store := docstore.NewMongoStore(cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.ReadTimeout, cfg.WriteTimeout, cfg.Log)

	reporter, err := monitoring.NewReporter(cfg.SentryDSN, cfg.SentryEnvironment, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize error reporting", "error", err)
	}
	defer reporter.Flush(cfg.ShutdownTimeout)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	// Re-accepts publish their outcome too, so the consumer's fixes show up
	// as regular accepted events.
	var publisher events.Publisher = events.NewNoopPublisher()
	var producer *kafka.Producer
	if kafkaCfg.Enabled() {
		kafkaCfg.LogConfiguration(cfg.Log)
		producer, err = kafka.NewProducer(kafkaCfg, kafkaCfg.AppointmentsTopic, kafkaCfg.AppointmentsDLQTopic, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		}()
		publisher = events.NewKafkaPublisher(producer, cfg.Log)
	}

	appointmentJoiner := joiner.New(reader.New(store), cfg.JoinConcurrency)
	appointmentService := appointmentservice.NewAppointmentService(
		store,
		appointmentJoiner,
		appointmentvalidator.NewAppointmentValidator(),
		publisher,
		reporter,
		cfg,
	)

	var consumer reconciler.Consumer
	if kafkaCfg.Enabled() {
		handler := reconciler.NewEventHandler(appointmentService, appointmentJoiner, initNotifier(cfg), cfg.Log)
		kc, err := kafka.NewConsumer(kafkaCfg, kafkaCfg.AppointmentsTopic, kafkaCfg.ReconcilerGroupID, kafkaCfg.AppointmentsDLQTopic, handler.Handle, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
		}
		if kafkaCfg.EnableMiddleware {
			kc.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		}
		consumer = kc
	} else {
		cfg.Log.Warn("Kafka brokers not configured, only the periodic sweep runs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := reconciler.New(consumer, reconciler.NewSweeper(store, cfg.Log), cfg.ReconcileSchedule, cfg.RequestTimeout, cfg.Log)

	cfg.Log.Info("Starting reconciler")
	if err := r.Run(ctx); err != nil {
		cfg.Log.Error("Reconciler stopped with error", "error", err)
		return
	}
	cfg.Log.Info("Reconciler stopped")
}

func initNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.TwilioEnabled() {
		cfg.Log.Warn("Twilio not configured, client notifications are only logged")
		return notify.NewNoopNotifier(cfg.Log)
	}
	return notify.NewSMSNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.Log)
}
