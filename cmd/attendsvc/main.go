package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	config "github.com/ndvlabs/attendance-services/configs"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/broker"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/db"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/device"
	handlers "github.com/ndvlabs/attendance-services/internal/attendsvc/handlers"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/service"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/store"
	"github.com/ndvlabs/attendance-services/internal/attendsvc/ws"
	mongodb "github.com/ndvlabs/attendance-services/internal/db"
	nats "github.com/ndvlabs/attendance-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "attend"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {

	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	if err := store.EnsureSchema(context.Background(), dbpool); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// mongo holds the sync-run audit trail
	mdb, cancelMongo, err := mongodb.ConnectToDB()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer cancelMongo()
	mongodb.CreateTTLIndexForCollection(mdb, "sync_runs")
	log.Printf("mongo connection established successfully")

	attendanceStore := store.NewAttendanceStore(dbpool)
	manualPunchStore := store.NewManualPunchStore(dbpool)
	employeeStore := store.NewEmployeeStore(dbpool)
	syncRunStore := store.NewSyncRunStore(mdb)

	fetcher := device.NewISAPIClient(
		os.Getenv("DEVICE_HOST"),
		os.Getenv("DEVICE_USERNAME"),
		os.Getenv("DEVICE_PASSWORD"),
	)

	syncService := service.NewSyncService(fetcher, attendanceStore, syncRunStore)
	manualPunchService := service.NewManualPunchService(employeeStore, attendanceStore, manualPunchStore)
	correctionService := service.NewCorrectionService(employeeStore, attendanceStore, manualPunchStore, manualPunchService)
	reportService := service.NewReportService(employeeStore, attendanceStore, manualPunchStore)

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// command consumer for the scheduler service
	b := broker.NewBroker(n.Conn, syncService, correctionService, manualPunchService)
	syncService.Progress = b.PublishProgress

	sub, err := b.SubscribeCommands()
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(0)
	}

	// ws hub relays attendance events to dashboards
	hub := ws.NewWs()
	evtSub, err := hub.SubscribeEvents(n.Conn, broker.EventTopic)
	if err != nil {
		log.Errorf("Error: unable to subscribe to events %v", err)
		os.Exit(0)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Minute)) // sync fetches are minutes-scale
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	r.Handle("/metrics", promhttp.Handler())

	// Init handlers and routes
	h := handlers.NewHandler(syncService, correctionService, manualPunchService, reportService, syncRunStore, employeeStore, hub)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("ATTEND_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 16 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()
	evtSub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
