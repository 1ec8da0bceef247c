package main

import (
	blockedhandler "nailbook/internal/blockeddates/handler"
	blockedrepo "nailbook/internal/blockeddates/repository"
	blockedservice "nailbook/internal/blockeddates/service"
	"nailbook/internal/reservations/commands"
	"nailbook/internal/reservations/events"
	reservationhandler "nailbook/internal/reservations/handler"
	bookingrepo "nailbook/internal/reservations/repository"
	reservationservice "nailbook/internal/reservations/service"
	slothandler "nailbook/internal/slots/handler"
	slotrepo "nailbook/internal/slots/repository"
	slotservice "nailbook/internal/slots/service"
	slotvalidator "nailbook/internal/slots/validator"
	"nailbook/pkg/app"
	"nailbook/pkg/config"
	"nailbook/pkg/kafka"
	kafkaconfig "nailbook/pkg/kafka/config"
	kafkamiddleware "nailbook/pkg/kafka/middleware"
)

const ServiceName = "scheduling"

type services struct {
	slots        slotservice.SlotService
	blockedDates blockedservice.BlockedDateService
	reservations reservationservice.ReservationService
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Scheduling service")
	serverApp := app.NewApplication(cfg)

	var kcfg *kafkaconfig.Config
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.KafkaEnabled {
		kcfg = loadKafka(cfg)
		publisher = initPublisher(cfg, kcfg, serverApp)
	}

	svc := initServices(cfg, publisher)
	if kcfg != nil {
		initCommandConsumer(cfg, kcfg, svc.reservations, serverApp)
	}

	serverApp.SetApp(
		slothandler.NewSlotHandler(svc.slots, cfg.Log),
		blockedhandler.NewBlockedDateHandler(svc.blockedDates, cfg.Log),
		reservationhandler.NewReservationHandler(svc.reservations, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) services {
	slotRepo := slotrepo.NewMongoSlotRepository(cfg)
	blockedRepo := blockedrepo.NewMongoBlockedDateRepository(cfg)
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)

	svc := services{
		slots:        slotservice.NewSlotService(slotRepo, bookingRepo, slotvalidator.NewSlotValidator(cfg.Log, cfg.Sequence, cfg.BulkMaxDays), cfg),
		blockedDates: blockedservice.NewBlockedDateService(blockedRepo, cfg),
		reservations: reservationservice.NewReservationService(slotRepo, bookingRepo, blockedRepo, publisher, cfg),
	}

	cfg.Log.Info("Scheduling services initialized",
		"database", cfg.MongoDatabaseName,
		"time_sequence", cfg.Sequence.String(),
		"services", cfg.Services.Names(),
	)
	return svc
}

func loadKafka(cfg *config.Config) *kafkaconfig.Config {
	kcfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	cfg.Log.Info("Kafka enabled", kcfg.LogFields()...)
	return kcfg
}

func initPublisher(cfg *config.Config, kcfg *kafkaconfig.Config, serverApp *app.Application) events.Publisher {
	producer, err := kafka.NewProducer(kcfg, kcfg.EventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafkamiddleware.Logging(cfg.Log, "publish"))

	publisher := events.NewKafkaPublisher(producer, ServiceName)
	serverApp.AddCloser("kafka-producer", publisher)
	return publisher
}

func initCommandConsumer(cfg *config.Config, kcfg *kafkaconfig.Config, reservations reservationservice.ReservationService, serverApp *app.Application) {
	handler := commands.NewHandler(reservations, cfg.Log)
	consumer, err := kafka.NewConsumer(kcfg, kcfg.CommandsTopic, kcfg.GroupID, kcfg.DLQTopic, handler.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafkamiddleware.Recover(cfg.Log))
	consumer.Use(kafkamiddleware.Logging(cfg.Log, "consume"))

	serverApp.AddWorker("booking-commands", consumer.Start)
	serverApp.AddCloser("kafka-consumer", consumer)
}
