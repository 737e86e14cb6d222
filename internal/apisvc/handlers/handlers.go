package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/hksamms/samms-services/internal/apisvc/service"
)

type Handler struct {
	tokenAuth  *jwtauth.JWTAuth
	tokenTTL   time.Duration
	uploadDir  string
	port       string
	auth       *service.AuthService
	scholars   *service.ScholarService
	attendance *service.AttendanceService
}

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	UploadDir string
	Port      string
}

func NewHandler(cfg Config, auth *service.AuthService, scholars *service.ScholarService, attendance *service.AttendanceService) *Handler {
	h := &Handler{
		tokenTTL:   cfg.TokenTTL,
		uploadDir:  cfg.UploadDir,
		port:       cfg.Port,
		auth:       auth,
		scholars:   scholars,
		attendance: attendance,
	}
	if h.tokenTTL <= 0 {
		h.tokenTTL = 24 * time.Hour
	}
	h.InitAuth(cfg.JWTSecret)
	return h
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "api service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

// decode reads a JSON body into v and answers 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		h.CreateResponse(w, Response{
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
			Error:   err.Error(),
		})
		return false
	}
	return true
}

// fail maps service errors to a status code. fallback is the message used for
// unexpected and notification failures.
func (h *Handler) fail(w http.ResponseWriter, err error, fallback string) {
	code := http.StatusInternalServerError
	msg := fallback

	var input *service.InputError
	switch {
	case errors.As(err, &input):
		code, msg = http.StatusBadRequest, input.Message
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidPassword):
		code, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrInactive):
		code, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrEmailNotFound), errors.Is(err, service.ErrScholarNotFound):
		code, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrInvalidCode), errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrNotVerified), errors.Is(err, service.ErrScholarExists),
		errors.Is(err, service.ErrInvalidPeriod):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotification):
		log.Errorf("%s: %v", fallback, err)
	default:
		log.Errorf("%s: %+v", fallback, err)
	}

	rsp := Response{Message: msg, Code: code}
	if code == http.StatusInternalServerError {
		rsp.Error = err.Error()
	}
	h.CreateResponse(w, rsp)
}

// notifyFallback picks msg for notification failures, where the write itself
// was kept.
func notifyFallback(err error, msg string) string {
	if errors.Is(err, service.ErrNotification) {
		return msg
	}
	return "Server error"
}
