package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/ankunda/credit-engine/internal/config"
	"github.com/ankunda/credit-engine/internal/events"
	"github.com/ankunda/credit-engine/internal/ledger"
	"github.com/ankunda/credit-engine/internal/repository"
	"github.com/ankunda/credit-engine/internal/scoring"
	"github.com/ankunda/credit-engine/internal/service"
	"github.com/ankunda/credit-engine/internal/tariff"
)

const eventsChannel = "credit-engine:events"

func main() {
	log.Println("Starting credit scheduler...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	uow := repository.NewUnitOfWork(db)
	meterRepo := repository.NewMeterRepository()
	loanService := service.NewLoanService(
		db, uow,
		repository.NewLoanRepository(),
		meterRepo,
		repository.NewTariffRepository(),
		repository.NewTransactionRepository(),
		scoring.NewDefaultPointSumScorer(),
		tariff.NewConverter(cfg.GetDefaultUnitRate()),
		ledger.New(cfg.GetLatePenaltyRate()),
		events.NewRedisPublisher(redisClient, eventsChannel),
		redisClient, cfg,
	)

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(loc))
	setupCronJobs(c, loanService, uow, meterRepo)

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	ctx := c.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, loanService *service.LoanService, uow repository.UnitOfWork, meters repository.MeterRepository) {
	// Daily default marking (runs at midnight)
	mustSchedule(c, "0 0 0 * * *", func() {
		ctx, cancel := jobContext()
		defer cancel()

		n, err := loanService.MarkDefaults(ctx)
		if err != nil {
			log.Printf("Default marking job failed: %v", err)
			return
		}
		log.Printf("Default marking job done, %d loan(s) defaulted", n)
	})

	// Daily token expiry (runs at 00:30)
	mustSchedule(c, "0 30 0 * * *", func() {
		ctx, cancel := jobContext()
		defer cancel()

		var expired int64
		err := uow.Within(ctx, func(q repository.DBTX) error {
			var err error
			expired, err = meters.ExpireTokens(ctx, q, time.Now())
			return err
		})
		if err != nil {
			log.Printf("Token expiry job failed: %v", err)
			return
		}
		log.Printf("Token expiry job done, %d token(s) expired", expired)
	})

	// Hourly sweep for mobile-money repayments stuck PENDING, e.g. after a
	// server restart dropped their in-memory confirmation timers.
	mustSchedule(c, "0 0 * * * *", func() {
		ctx, cancel := jobContext()
		defer cancel()

		n, err := loanService.SweepPendingPayments(ctx)
		if err != nil {
			log.Printf("Pending payment sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("Pending payment sweep confirmed %d repayment(s)", n)
		}
	})

	log.Println("Cron jobs scheduled successfully")
}

func mustSchedule(c *cron.Cron, spec string, job func()) {
	if _, err := c.AddFunc(spec, job); err != nil {
		log.Fatalf("Error scheduling job %q: %v", spec, err)
	}
}

func jobContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Minute)
}
