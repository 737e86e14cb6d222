package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"

	config "github.com/hksamms/samms-services/configs"
	"github.com/hksamms/samms-services/internal/scanner"
	"github.com/hksamms/samms-services/internal/scanstation/handlers"
	"github.com/hksamms/samms-services/internal/scanstation/ws"
)

const SERVICE_NAME = "scanstation"

var (
	instanceId string
	settings   config.Settings
)

func init() {
	settings = config.Load(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME+"_service_"+instanceId, settings.LogStdout)
}

func main() {
	if settings.ScanToken == "" {
		log.Fatalf("SCAN_TOKEN is required to post check-ins")
	}

	cfg := scanner.DefaultConfig()
	cfg.Cooldown = settings.ScanCooldown
	cfg.Debounce = settings.ScanDebounce

	submitter := scanner.NewHTTPSubmitter(settings.APIBaseURL, settings.ScanToken, cfg.RequestTimeout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch settings.ScanSource {
	case "stdin":
		// keyboard-wedge readers type one payload per line
		runStdin(ctx, cfg, submitter)
	case "ws":
		runWebSocket(ctx, cfg, submitter)
	default:
		log.Fatalf("Invalid SCAN_SOURCE value: %s", settings.ScanSource)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}

func runStdin(ctx context.Context, cfg scanner.Config, sub scanner.Submitter) {
	// one line is one deliberate scan
	cfg.Debounce = 0
	ctl := scanner.NewController(cfg, sub, scanner.LogReporter{})
	defer ctl.Close()

	src := scanner.NewLineSource(os.Stdin)
	defer src.Close()

	log.Infof("%s reading frames from stdin", SERVICE_NAME)
	if err := ctl.Run(ctx, src); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("scan session ended: %v", err)
	}
}

func runWebSocket(ctx context.Context, cfg scanner.Config, sub scanner.Submitter) {
	src := scanner.NewChanSource(1)
	s := ws.NewWs(src)

	ctl := scanner.NewController(cfg, sub,
		scanner.MultiReporter{scanner.LogReporter{}, s},
		scanner.WithStateListener(s.PublishState),
	)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(settings.CORSOrigins)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	handlers.NewHandler(s, settings.StationPort).SetRoutes(r)

	server := &http.Server{
		Addr:        ":" + settings.StationPort,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctl.Run(ctx, src); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("scan session ended: %v", err)
		}
	}()

	<-ctx.Done()
	ctl.Close()
	src.Close()
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
}
