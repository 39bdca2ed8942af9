package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/oakinyemi/staff-event-attendance/internal/config"
	"github.com/oakinyemi/staff-event-attendance/internal/database"
	"github.com/oakinyemi/staff-event-attendance/internal/handler"
	"github.com/oakinyemi/staff-event-attendance/internal/middleware"
	"github.com/oakinyemi/staff-event-attendance/internal/queue"
	"github.com/oakinyemi/staff-event-attendance/internal/repository"
	"github.com/oakinyemi/staff-event-attendance/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded, using environment")
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and OTP store. A nil client degrades
	// both: limiting becomes a no-op and OTP issuance fails loudly.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	roles := repository.NewRoleRepo(db)
	participants := repository.NewParticipantRepo(db)
	attendance := repository.NewAttendanceRepo(db)
	qrCodes := repository.NewQRCodeRepo(db)
	overrides := repository.NewOverrideRepo(db)
	otp := repository.NewOTPStore(rdb, time.Duration(cfg.OTPTTLMin)*time.Minute)

	h := router.Handlers{
		Auth:   &handler.AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, OTP: otp},
		Events: &handler.EventHandler{Events: events, Roles: roles},
		Participants: &handler.ParticipantHandler{
			Events: events, Roles: roles, Participants: participants, Attendance: attendance,
		},
		Staff: &handler.StaffAttendanceHandler{
			Cfg: cfg, Events: events, Participants: participants, Attendance: attendance, QRCodes: qrCodes,
		},
		Admin: &handler.AdminAttendanceHandler{
			Events: events, Participants: participants, Attendance: attendance, Overrides: overrides,
		},
		QR: &handler.QRHandler{Cfg: cfg, Events: events, QRCodes: qrCodes},
	}

	rlCfg := config.LoadRateLimitConfig()
	scanLimiter := middleware.NewTokenBucket(rlCfg, rdb)
	authLimiter := middleware.NewTokenBucket(rlCfg, rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, h, scanLimiter, authLimiter)

	// The payment feed consumer runs alongside the API. Its reconnect
	// loop owns retries, so a broker outage never takes the API down.
	go func() {
		if err := queue.StartAttendanceConsumer(); err != nil {
			log.Printf("attendance consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
