package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/lucasvidela94/wallet-service/internal/config"
	"github.com/lucasvidela94/wallet-service/internal/handler"
	"github.com/lucasvidela94/wallet-service/internal/integrations/clearing"
	"github.com/lucasvidela94/wallet-service/internal/integrations/scoring"
	"github.com/lucasvidela94/wallet-service/internal/middleware"
	"github.com/lucasvidela94/wallet-service/internal/repository"
	"github.com/lucasvidela94/wallet-service/internal/scheduler"
	"github.com/lucasvidela94/wallet-service/internal/service"
	"github.com/lucasvidela94/wallet-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	_ = godotenv.Load()
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	clearingClient := clearing.NewClient(cfg, logger)
	scoreProvider := scoring.NewProvider(cfg, logger)
	mailer := email.NewSender(cfg, logger)
	svc := service.NewService(repo, clearingClient, scoreProvider, mailer, logger, cfg)
	h := handler.NewHandler(svc, logger)

	// Installment reminder cron
	reminders := scheduler.New(repo, mailer, logger)
	if err := reminders.Start(cfg.ReminderSpec); err != nil {
		logger.Fatalf("Failed to start reminder scheduler: %v", err)
	}
	defer reminders.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/password-reset", h.RequestPasswordReset).Methods("POST")
	r.HandleFunc("/password-reset/confirm", h.ConfirmPasswordReset).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/accounts/{id}", h.AccountStatus).Methods("GET")
	authRouter.HandleFunc("/accounts/{id}/transfer-limit", h.SetTransferLimit).Methods("PUT")
	authRouter.HandleFunc("/credits/simulate", h.SimulateCredit).Methods("POST")
	authRouter.HandleFunc("/credits", h.CreateCredit).Methods("POST")
	authRouter.HandleFunc("/credits/{id}/disburse", h.DisburseCredit).Methods("POST")
	authRouter.HandleFunc("/credits/{id}/cancel", h.CancelCredit).Methods("POST")
	authRouter.HandleFunc("/credits/{id}/status", h.OverrideCreditStatus).Methods("PUT")
	authRouter.HandleFunc("/transfers", h.Settle).Methods("POST")
	authRouter.HandleFunc("/transfers/score", h.ScoreTransfer).Methods("POST")
	authRouter.HandleFunc("/kyc/documents", h.SubmitKYCDocument).Methods("POST")
	authRouter.HandleFunc("/kyc/documents/{id}/validation", h.ReviewKYCDocument).Methods("PUT")
	authRouter.HandleFunc("/kyc/{accountID}/approve", h.ApproveKYC).Methods("POST")
	authRouter.HandleFunc("/kyc/{accountID}/reject", h.RejectKYC).Methods("POST")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
