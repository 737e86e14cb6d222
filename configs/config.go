package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/joho/godotenv"
)

var InstanceId string

// Settings is the typed view of the environment shared by all services.
type Settings struct {
	Port        string
	MongoURI    string
	Database    string
	Store       string
	JWTSecret   string
	TokenTTL    time.Duration
	RateLimit   int
	CORSOrigins []string
	LogStdout   bool

	NotifyMode    string
	NotifyTimeout time.Duration
	NatsURL       string
	NatsToken     string

	SendGridKey     string
	MailFrom        string
	MailFromName    string
	MailMaxAttempts int
	MailBackoff     time.Duration
	MailTimeout     time.Duration

	UploadDir       string
	GoogleAPIKey    string
	NominatimURL    string
	GeocodeFallback string

	APIBaseURL   string
	ScanToken    string
	ScanSource   string
	ScanCooldown time.Duration
	ScanDebounce time.Duration
	StationPort  string
}

func LoadEnv(service string) {
	log.Info("service configuration and env variables loading started ...")
	err := godotenv.Load("./.env")
	if err != nil {
		log.Warnf("%s: no .env file loaded, using process environment", service)
		return
	}

	log.Info(".env file loaded.")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("PORT", "5000")
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "samms")
	v.SetDefault("STORE", "mongo")
	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("TOKEN_TTL", 24*time.Hour)
	v.SetDefault("RATE_LIMIT", 100)
	v.SetDefault("CORS_ORIGINS", "http://localhost:8081,http://localhost:19006")
	v.SetDefault("LOG_STDOUT", false)

	v.SetDefault("NOTIFY_MODE", "direct")
	v.SetDefault("NOTIFY_TIMEOUT", 30*time.Second)
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("NATS_TOKEN", "")

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM", "noreply@hksamms.local")
	v.SetDefault("MAIL_FROM_NAME", "HK-SAMMS")
	v.SetDefault("MAIL_MAX_ATTEMPTS", 3)
	v.SetDefault("MAIL_BACKOFF", time.Second)
	v.SetDefault("MAIL_TIMEOUT", 10*time.Second)

	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("GOOGLE_API_KEY", "")
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("GEOCODE_FALLBACK", "Tarlac City, Tarlac, Philippines")

	v.SetDefault("API_BASE_URL", "http://localhost:5000")
	v.SetDefault("SCAN_TOKEN", "")
	v.SetDefault("SCAN_SOURCE", "ws")
	v.SetDefault("SCAN_COOLDOWN", 10*time.Second)
	v.SetDefault("SCAN_DEBOUNCE", 500*time.Millisecond)
	v.SetDefault("STATION_PORT", "5050")

	v.AutomaticEnv()
	return v
}

// Load reads .env (when present) and the process environment into Settings.
func Load(service string) Settings {
	LoadEnv(service)
	return settingsFrom(newViper())
}

func settingsFrom(v *viper.Viper) Settings {
	return Settings{
		Port:        v.GetString("PORT"),
		MongoURI:    v.GetString("MONGODB_URI"),
		Database:    v.GetString("MONGODB_DATABASE"),
		Store:       strings.ToLower(v.GetString("STORE")),
		JWTSecret:   v.GetString("JWT_SECRET_KEY"),
		TokenTTL:    v.GetDuration("TOKEN_TTL"),
		RateLimit:   v.GetInt("RATE_LIMIT"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		LogStdout:   v.GetBool("LOG_STDOUT"),

		NotifyMode:    strings.ToLower(v.GetString("NOTIFY_MODE")),
		NotifyTimeout: v.GetDuration("NOTIFY_TIMEOUT"),
		NatsURL:       v.GetString("NATS_URL"),
		NatsToken:     v.GetString("NATS_TOKEN"),

		SendGridKey:     v.GetString("SENDGRID_API_KEY"),
		MailFrom:        v.GetString("MAIL_FROM"),
		MailFromName:    v.GetString("MAIL_FROM_NAME"),
		MailMaxAttempts: v.GetInt("MAIL_MAX_ATTEMPTS"),
		MailBackoff:     v.GetDuration("MAIL_BACKOFF"),
		MailTimeout:     v.GetDuration("MAIL_TIMEOUT"),

		UploadDir:       v.GetString("UPLOAD_DIR"),
		GoogleAPIKey:    v.GetString("GOOGLE_API_KEY"),
		NominatimURL:    v.GetString("NOMINATIM_URL"),
		GeocodeFallback: v.GetString("GEOCODE_FALLBACK"),

		APIBaseURL:   v.GetString("API_BASE_URL"),
		ScanToken:    v.GetString("SCAN_TOKEN"),
		ScanSource:   strings.ToLower(v.GetString("SCAN_SOURCE")),
		ScanCooldown: v.GetDuration("SCAN_COOLDOWN"),
		ScanDebounce: v.GetDuration("SCAN_DEBOUNCE"),
		StationPort:  v.GetString("STATION_PORT"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func CreateUniqueInstance(service string) string {
	id, err := uuid.NewV4() // instance identifier
	if err != nil {
		log.Errorf("error generating instanceId: %s", err)
		os.Exit(0)
	}
	InstanceId = id.String()
	log.Infof(service+" service with Instance ID: %s is ready", id)
	return id.String()
}

func GetInstanceId() string {
	return InstanceId
}

func CORS(origins []string) *cors.Cors {
	corsOptions := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return corsOptions
}

// Logging sends the service log to .l_g/<service>.log, or to stdout when
// toStdout is set (containers).
func Logging(service string, toStdout bool) {
	log.SetFormatter(&log.TextFormatter{})
	log.SetLevel(log.InfoLevel)

	if toStdout {
		log.SetOutput(os.Stdout)
		log.Infof("log to stdout started for service: %s", service)
		return
	}

	logFolder := ".l_g"

	_, err := os.Stat(logFolder)
	if os.IsNotExist(err) {
		err = os.Mkdir(logFolder, 0755)
		if err != nil {
			log.Warnf("unable to create folder for log %s", err)
			return
		}
	}

	logFilePath := filepath.Join(logFolder, service+".log")

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}

	log.SetOutput(file)

	log.Infof("log to file started for service: %s", service)
}

func CustomLoggerMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.WithField("instance", InstanceId).Printf("%s %s %s %d %s %s",
					r.Method,
					r.RequestURI,
					r.RemoteAddr,
					ww.Status(),
					http.StatusText(ww.Status()),
					time.Since(start),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
