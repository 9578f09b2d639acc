package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kdadks/eyogi/core"
	"github.com/kdadks/eyogi/core/compliance"
	"github.com/kdadks/eyogi/core/notification"

	echoapi "github.com/kdadks/eyogi/apps/api/echo"
	emailsvc "github.com/kdadks/eyogi/services/email"
	"github.com/kdadks/eyogi/services/filestore"
	logsvc "github.com/kdadks/eyogi/services/logger"
	"github.com/kdadks/eyogi/storage/database"
	sqlxrepos "github.com/kdadks/eyogi/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("getting working directory: %v", err)
	}
	conf, err := core.NewConfig(wd)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var files core.FileStore
	if conf.Storage.Endpoint != "" {
		if files, err = filestore.NewOSSStore(conf); err != nil {
			logger.Fatal(fmt.Sprintf("setting up file store: %v", err), err)
		}
	} else {
		if files, err = filestore.NewLocalStore(conf.Storage.LocalDir, conf.FrontendBaseURL+"/uploads"); err != nil {
			logger.Fatal(fmt.Sprintf("setting up file store: %v", err), err)
		}
	}

	validate, translator := core.NewValidator()
	compliance.RegisterValidators(validate, translator)

	users := sqlxrepos.NewUserDirectory(db)
	ntfSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), mailSvc, users, logger)
	dispatcher := notification.NewDispatcher(ntfSvc)
	cplSvc := compliance.NewService(sqlxrepos.NewComplianceRepository(db), files, dispatcher, logger, validate)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{
			Conf:            conf,
			Logger:          logger,
			ComplianceSvc:   cplSvc,
			NotificationSvc: ntfSvc,
			Validate:        validate,
			Translator:      translator,
			SignalShutdown:  func() { shutdown <- syscall.SIGTERM },
		},
	)

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err = server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("graceful shutdown failed: %v", err), err)
	}
}
