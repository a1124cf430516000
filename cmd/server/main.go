package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/cache"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/config"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/database"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/handler"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/queue"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/repository"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/router"
	"github.com/Lang-Qiu/Railway12306-CS3604-sub000/internal/service"
)

func main() {
	// .env is optional; real deployments set variables in the environment.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Redis is advisory: a nil client just means availability queries
	// always hit the database.
	redisClient := config.NewRedisClient()
	if redisClient == nil {
		log.Printf("redis unavailable; availability cache disabled")
	}
	avail := cache.NewAvailabilityCache(redisClient, cfg.CacheTTL, cfg.CachePrefix)

	stops := repository.NewStopRepo(db)
	fares := repository.NewFareRepo(db)
	seats := repository.NewSeatStatusRepo(db)
	trains := repository.NewTrainRepo(db)
	passengers := repository.NewPassengerRepo(db)
	orders := repository.NewOrderRepo(db)
	cancels := repository.NewCancellationRepo(db)

	clock := service.SystemClock{}
	route := service.NewRouteService(stops, fares, seats, avail)
	alloc := service.NewSeatAllocator(db, seats, clock)
	orderSvc := service.NewOrderService(
		db, orders, trains, passengers, cancels,
		route, alloc, avail, queue.Publisher{}, clock,
		cfg.PaymentHold, cfg.DailyCancelLimit,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reclaimer := service.NewReclaimer(orders, cancels, orderSvc, clock, cfg.ReclaimInterval, cfg.PendingHold)
	if err := reclaimer.Start(ctx); err != nil {
		log.Fatalf("reclaimer: %v", err)
	}
	defer reclaimer.Stop()

	// The consumer reconnects forever on its own; it only logs.
	go func() {
		if err := queue.StartOrderConsumer(); err != nil {
			log.Printf("order-consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterPublic(e, handler.NewHealthHandler(db), handler.NewFaresHandler(route))
	router.RegisterOrders(e, handler.NewOrderHandler(orderSvc), cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil {
			log.Printf("http server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
