package main

import (
	"roomly/internal/bookings/events"
	"roomly/internal/bookings/handler"
	"roomly/internal/bookings/repository"
	"roomly/internal/bookings/service"
	"roomly/internal/bookings/validator"
	"roomly/pkg/app"
	"roomly/pkg/client"
	"roomly/pkg/config"
)

func main() {
	cfg := config.Load("bookings")
	cfg.SetMongo()

	bookingRepo := repository.NewMongoBookingRepository(cfg)
	requestRepo := repository.NewMongoRequestRecordRepository(cfg)

	roomsClient := client.NewRoomsClient(
		cfg.RoomsServiceURL,
		cfg.RoomsCallTimeout,
		cfg.ServiceTokenKey,
		cfg.ServiceTokenTTL,
	)

	publisher, err := events.NewPublisher(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to create event publisher", "error", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	bookingService := service.NewBookingService(
		cfg,
		bookingRepo,
		requestRepo,
		validator.NewBookingValidator(),
		roomsClient,
		publisher,
	)

	application := app.NewApplication(cfg)
	application.SetApp(handler.NewBookingHandler(cfg, bookingService))
	application.Run()
}
