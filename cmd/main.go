package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/smart-clean/internal/auth"
	"github.com/ukydev/smart-clean/internal/catalog"
	"github.com/ukydev/smart-clean/internal/config"
	"github.com/ukydev/smart-clean/internal/db"
	"github.com/ukydev/smart-clean/internal/export"
	"github.com/ukydev/smart-clean/internal/geo"
	"github.com/ukydev/smart-clean/internal/handlers"
	"github.com/ukydev/smart-clean/internal/middleware"
	"github.com/ukydev/smart-clean/internal/models"
	"github.com/ukydev/smart-clean/internal/report"
)

// routes bundles what the router needs.
type routes struct {
	Locator *handlers.LocatorHandler
	Reports *handlers.ReportHandler
	Auth    *handlers.AuthHandler
	Guard   *middleware.AuthMiddleware
	Limit   func(http.Handler) http.Handler
}

func newRouter(rt routes) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/bins", rt.Locator.ListBins)
	mux.HandleFunc("POST /api/nearest", rt.Locator.Nearest)
	mux.HandleFunc("POST /api/auth/login", rt.Auth.Login)

	mux.Handle("POST /api/reports", rt.Limit(http.HandlerFunc(rt.Reports.Create)))

	mux.Handle("GET /api/reports", rt.Guard.Protect(models.PermViewReports, http.HandlerFunc(rt.Reports.List)))
	mux.Handle("GET /api/reports/export.xlsx", rt.Guard.Protect(models.PermExportReports, http.HandlerFunc(rt.Reports.Export)))
	mux.Handle("GET /api/reports/{id}", rt.Guard.Protect(models.PermViewReports, http.HandlerFunc(rt.Reports.Get)))
	mux.Handle("GET /api/reports/{id}/share", rt.Guard.Protect(models.PermViewReports, http.HandlerFunc(rt.Reports.Share)))
	mux.Handle("PATCH /api/reports/{id}/status", rt.Guard.Protect(models.PermUpdateReports, http.HandlerFunc(rt.Reports.UpdateStatus)))

	return middleware.Recover(middleware.RequestLogger(mux))
}

// buildExporters assembles the delivery chain: messaging first, then the
// download directory, then the log as a copy-paste sink.
func buildExporters(cfg *config.Config) (*export.Fallback, func(), error) {
	var chain []report.ReportExporter
	cleanup := func() {}

	if cfg.MQTTBroker != "" {
		client, err := export.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID, 10*time.Second)
		if err != nil {
			log.WithError(err).Warn("MQTT unavailable, skipping messaging channel")
		} else {
			chain = append(chain, &export.MQTTExporter{Client: client, Topic: cfg.MQTTTopic, QoS: 1})
			cleanup = func() { disconnectMQTT(client) }
			log.WithFields(log.Fields{"broker": cfg.MQTTBroker, "topic": cfg.MQTTTopic}).Info("MQTT export enabled")
		}
	}

	files, err := export.NewFileExporter(cfg.ExportDir)
	if err != nil {
		return nil, cleanup, err
	}
	chain = append(chain, files)
	chain = append(chain, &export.LogExporter{Label: "clipboard"})

	return &export.Fallback{Exporters: chain}, cleanup, nil
}

func disconnectMQTT(client mqtt.Client) {
	client.Disconnect(250)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bins, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.WithError(err).WithField("path", cfg.CatalogPath).Fatal("Failed to load bin catalog")
	}
	locator := geo.NewLocator(bins)
	log.WithField("bins", len(bins)).Info("Bin catalog loaded")

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())
	store := &db.MongoReportCollection{Collection: client.Database(cfg.MongoDB).Collection("reports")}
	if err := store.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("Failed to create report indexes")
	}
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	exporters, closeExporters, err := buildExporters(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up report export")
	}
	defer closeExporters()

	staff, err := config.LoadStaff(cfg.StaffFile)
	if err != nil {
		log.WithError(err).Fatal("Failed to load staff directory")
	}
	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry, staff)
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}
	if len(staff) == 0 {
		log.Warn("No staff accounts configured; report queue endpoints are unreachable")
	}

	reports := report.NewService(locator, cfg.TimeZone)
	limiter := middleware.NewRateLimitMiddleware(cfg.TrustedProxies)
	router := newRouter(routes{
		Locator: handlers.NewLocatorHandler(locator),
		Reports: handlers.NewReportHandler(reports, store, exporters, cfg.ReportEmail, cfg.MaxImageBytes),
		Auth:    handlers.NewAuthHandler(authService),
		Guard:   middleware.NewAuthMiddleware(authService),
		Limit:   limiter.RateLimit(cfg.RateLimit, cfg.RateWindow),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
