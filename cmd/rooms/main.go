package main

import (
	"roomly/internal/rooms/handler"
	"roomly/internal/rooms/repository"
	"roomly/internal/rooms/service"
	"roomly/pkg/app"
	"roomly/pkg/config"
)

func main() {
	cfg := config.Load("rooms")
	cfg.SetMongo()

	roomRepo := repository.NewMongoRoomRepository(cfg)
	reservationRepo := repository.NewMongoReservationRepository(cfg)
	lockRepo := repository.NewMongoReservationLockRepository(cfg)

	roomService := service.NewRoomService(cfg, roomRepo, reservationRepo, lockRepo)

	application := app.NewApplication(cfg)
	application.SetApp(handler.NewRoomHandler(cfg, roomService))
	application.Run()
}
