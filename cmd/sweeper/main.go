package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	blockedrepo "nailbook/internal/blockeddates/repository"
	"nailbook/internal/reservations/events"
	bookingrepo "nailbook/internal/reservations/repository"
	reservationservice "nailbook/internal/reservations/service"
	"nailbook/internal/reservations/sweeper"
	slotrepo "nailbook/internal/slots/repository"
	"nailbook/pkg/config"
	"nailbook/pkg/kafka"
	kafkaconfig "nailbook/pkg/kafka/config"
	kafkamiddleware "nailbook/pkg/kafka/middleware"
)

const JobName = "pending-sweeper"

func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()

	publisher := initPublisher(cfg)
	reservations := reservationservice.NewReservationService(
		slotrepo.NewMongoSlotRepository(cfg),
		bookingrepo.NewMongoBookingRepository(cfg),
		blockedrepo.NewMongoBlockedDateRepository(cfg),
		publisher,
		cfg,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := sweeper.New(reservations, cfg.SweepSchedule, cfg.PendingTTL, cfg.RequestTimeout, cfg.Location, cfg.Log)
	err := s.Run(ctx)

	if closeErr := publisher.Close(); closeErr != nil {
		cfg.Log.Error("Failed to close publisher", "error", closeErr)
	}
	cfg.GracefulShutdown()

	if err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Fatal("Sweeper failed", "error", err)
	}
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.KafkaEnabled {
		return events.NoopPublisher{}
	}
	kcfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	producer, err := kafka.NewProducer(kcfg, kcfg.EventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafkamiddleware.Logging(cfg.Log, "publish"))
	return events.NewKafkaPublisher(producer, JobName)
}
