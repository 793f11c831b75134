package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ankunda/credit-engine/internal/config"
	"github.com/ankunda/credit-engine/internal/events"
	"github.com/ankunda/credit-engine/internal/handler"
	"github.com/ankunda/credit-engine/internal/ledger"
	"github.com/ankunda/credit-engine/internal/repository"
	"github.com/ankunda/credit-engine/internal/scoring"
	"github.com/ankunda/credit-engine/internal/service"
	"github.com/ankunda/credit-engine/internal/tariff"
	"github.com/ankunda/credit-engine/pkg/response"
)

const eventsChannel = "credit-engine:events"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	uow := repository.NewUnitOfWork(db)
	tariffRepo := repository.NewTariffRepository()
	loanRepo := repository.NewLoanRepository()
	meterRepo := repository.NewMeterRepository()
	transactionRepo := repository.NewTransactionRepository()

	// Initialize services
	publisher := events.NewRedisPublisher(redisClient, eventsChannel)
	converter := tariff.NewConverter(cfg.GetDefaultUnitRate())
	loanLedger := ledger.New(cfg.GetLatePenaltyRate())
	scorer := buildScorer(cfg)

	loanService := service.NewLoanService(
		db, uow, loanRepo, meterRepo, tariffRepo, transactionRepo,
		scorer, converter, loanLedger, publisher, redisClient, cfg,
	)
	simulator := service.NewPaymentSimulator(loanService, cfg.Business.SandboxPaymentDelay)
	loanService.SetPaymentScheduler(simulator)
	defer simulator.Stop()

	transferService := service.NewTransferService(uow, meterRepo, tariffRepo, transactionRepo, converter, publisher)

	loanHandler := handler.NewLoanHandler(loanService)
	meterHandler := handler.NewMeterHandler(transferService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(loanHandler, meterHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func buildScorer(cfg *config.Config) scoring.Scorer {
	if cfg.Business.ScoringStrategy == config.ScoringStrategyWeighted {
		return scoring.NewDefaultWeightedScorer()
	}
	return scoring.NewDefaultPointSumScorer()
}

func setupRoutes(loanHandler *handler.LoanHandler, meterHandler *handler.MeterHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", loanHandler.Apply).Methods("POST")
	api.HandleFunc("/loans/{loanId}/disburse", loanHandler.Disburse).Methods("POST")
	api.HandleFunc("/loans/{loanId}/repayment", loanHandler.Repay).Methods("POST")
	api.HandleFunc("/loans/{loanId}/outstanding", loanHandler.GetOutstanding).Methods("GET")
	api.HandleFunc("/accounts/{accountId}/loans/stats", loanHandler.GetStats).Methods("GET")
	api.HandleFunc("/tariffs", loanHandler.GetTariffs).Methods("GET")

	api.HandleFunc("/units/purchase", meterHandler.Purchase).Methods("POST")
	api.HandleFunc("/units/transfer", meterHandler.Transfer).Methods("POST")
	api.HandleFunc("/meters/migrate", meterHandler.Migrate).Methods("POST")

	return router
}
