package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/hksamms/samms-services/configs"
	"github.com/hksamms/samms-services/internal/apisvc/handlers"
	"github.com/hksamms/samms-services/internal/apisvc/service"
	"github.com/hksamms/samms-services/internal/apisvc/store"
	"github.com/hksamms/samms-services/internal/apisvc/store/inmem"
	"github.com/hksamms/samms-services/internal/db"
	"github.com/hksamms/samms-services/internal/geo"
	"github.com/hksamms/samms-services/internal/mail"
	natscli "github.com/hksamms/samms-services/internal/nats"
)

const SERVICE_NAME = "api"

var (
	instanceId string
	settings   config.Settings
)

func init() {
	settings = config.Load(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME+"_service_"+instanceId, settings.LogStdout)
}

type repositories struct {
	users      service.UserRepository
	scholars   service.ScholarRepository
	resets     service.ResetCodeRepository
	attendance service.AttendanceRepository
}

func openStore() (repositories, func()) {
	if settings.Store == "memory" {
		log.Warn("STORE=memory, data is lost on restart")
		m := inmem.Open()
		return repositories{
			users:      inmem.NewUserRepository(m),
			scholars:   inmem.NewScholarRepository(m),
			resets:     inmem.NewResetRepository(m),
			attendance: inmem.NewAttendanceRepository(m),
		}, func() {}
	}

	database, disconnect, err := db.ConnectToDB(settings.MongoURI, settings.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	log.Printf("mongodb connection established successfully, database %s", database.Name())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	closeDB := func() {
		if err := disconnect(context.Background()); err != nil {
			log.Errorf("mongodb disconnect: %v", err)
		}
	}
	return repositories{
		users:      store.NewUserStore(database),
		scholars:   store.NewScholarStore(database),
		resets:     store.NewResetStore(database),
		attendance: store.NewAttendanceStore(database),
	}, closeDB
}

// newSender delivers in process, or through the notify service when
// NOTIFY_MODE=nats.
func newSender() (mail.Sender, func()) {
	if settings.NotifyMode == "nats" {
		n, err := natscli.Connect(settings.NatsURL, settings.NatsToken, SERVICE_NAME+"-"+instanceId)
		if err != nil {
			log.Fatalf("Error: unable to connect to NATS server %v", err)
		}
		log.Printf("NATS connection established successfully %s", n.Url)
		return mail.NewNatsSender(n.Conn, "", settings.NotifyTimeout), n.Conn.Close
	}

	return mail.NewNotifier(
		mail.NewProvider(settings.SendGridKey, settings.MailFromName, settings.MailFrom),
		mail.WithMaxAttempts(settings.MailMaxAttempts),
		mail.WithBackoffUnit(settings.MailBackoff),
		mail.WithTimeout(settings.MailTimeout),
	), func() {}
}

func newResolver() *geo.Chain {
	var geocoders []geo.Geocoder
	if settings.GoogleAPIKey != "" {
		geocoders = append(geocoders, geo.NewGoogleGeocoder(settings.GoogleAPIKey, 5*time.Second))
	}
	if settings.NominatimURL != "" {
		geocoders = append(geocoders, geo.NewRetry(geo.NewNominatimGeocoder(settings.NominatimURL, 5*time.Second), 3, time.Second))
	}
	return geo.NewChain(settings.GeocodeFallback, geocoders...)
}

func main() {
	if settings.JWTSecret == "" {
		log.Fatalf("JWT_SECRET_KEY is required")
	}

	repos, closeStore := openStore()
	defer closeStore()

	sender, closeSender := newSender()
	defer closeSender()

	photos, err := store.NewPhotoStore(settings.UploadDir, "/uploads")
	if err != nil {
		log.Fatalf("Failed to prepare upload dir: %v", err)
	}

	authService := service.NewAuthService(repos.users, repos.resets, sender)
	scholarService := service.NewScholarService(repos.scholars, repos.users, sender)
	attendanceService := service.NewAttendanceService(repos.attendance, photos, newResolver())

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(settings.CORSOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(settings.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(handlers.Config{
		JWTSecret: settings.JWTSecret,
		TokenTTL:  settings.TokenTTL,
		UploadDir: photos.Dir(),
		Port:      settings.Port,
	}, authService, scholarService, attendanceService)
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + settings.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
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
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
