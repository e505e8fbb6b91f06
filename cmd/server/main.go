package main // Entry point package

import (
	"log"  // Logging library
	"time" // Lock wait duration

	"github.com/joho/godotenv"    // Optional .env loading
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/court-booking/internal/booking"
	"github.com/iliyamo/court-booking/internal/config"
	"github.com/iliyamo/court-booking/internal/database"
	"github.com/iliyamo/court-booking/internal/handler"
	"github.com/iliyamo/court-booking/internal/middleware"
	"github.com/iliyamo/court-booking/internal/queue"
	"github.com/iliyamo/court-booking/internal/repository"
	"github.com/iliyamo/court-booking/internal/router"
	queuepublisher "github.com/iliyamo/court-booking/internal/service"
)

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the distributed slot gate, rate limiting and
	// idempotency replay.  All three degrade when it is missing: the
	// gate falls back to the in-process mutex (single-instance safety
	// only), the other two become no-ops.
	rdb := config.NewRedisClient()
	var gate booking.Gate
	if rdb != nil {
		gate = booking.NewRedisGate(rdb)
	} else {
		log.Printf("redis unavailable: slot gate degraded to in-process mutex, rate limiting and idempotency replay disabled")
		gate = booking.NewKeyedMutex()
	}

	courts := repository.NewCourtRepo(db)
	equipment := repository.NewEquipmentRepo(db)
	coaches := repository.NewCoachRepo(db)
	rules := repository.NewRuleRepo(db)
	bookings := repository.NewBookingRepo(db, courts, equipment, coaches, rules)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	ctl := booking.NewController(bookings, gate, queuepublisher.Notifier{})
	ctl.SetLockWait(time.Duration(cfg.SlotLockWaitSec) * time.Second)

	// Background consumer appends availability changes to logs/.
	go func() {
		if err := queue.StartAvailabilityConsumer(); err != nil {
			log.Printf("availability consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(courts, equipment, coaches, rules, bookings))
	router.RegisterCustomer(e, handler.NewBookingHandler(ctl, bookings, booking.NewIdempotencyCache(rdb)), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(courts, equipment, coaches, rules), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
