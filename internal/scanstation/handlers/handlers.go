package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/hksamms/samms-services/internal/comm"
	"github.com/hksamms/samms-services/internal/scanstation/ws"
)

type Handler struct {
	upgrader websocket.Upgrader
	ws       *ws.Ws
	port     string
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func NewHandler(s *ws.Ws, port string) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ws:   s,
		port: port,
	}
}

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/frames", h.HandleWebSocket)
		r.Get("/health", h.HealthHandler)
		r.Get("/state", h.StateHandler)
	})
}

// HandleWebSocket accepts a station page. Pages send decoded frames and
// receive alerts and state.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	h.ws.StoreConnection(socketId, conn)
	log.Infof("New WebSocket connection established: %s", socketId)

	if state := h.ws.LastState(); state != nil {
		if err := h.ws.Send(socketId, state); err != nil {
			log.Errorf("Failed to send state to %s: %v", socketId, err)
		}
	}

	go h.handleConnection(conn, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, socketId string) {
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		h.ws.HandleDisconnect(socketId)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			}
			return
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			h.sendErrorToClient(socketId, "Invalid message format")
			continue
		}

		h.ws.SocketMessage(socketId, message)
	}
}

func (h *Handler) sendErrorToClient(socketId, errorMsg string) {
	data, _ := json.Marshal(map[string]string{"error": errorMsg})
	if err := h.ws.Send(socketId, &comm.WSMessage{Type: "error", Data: data}); err != nil {
		log.Errorf("Failed to send error message to client: %v", err)
	}
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
		Message: "scan station is running at port " + h.port,
		Code:    http.StatusOK,
		Data:    map[string]int{"connections": h.ws.Count()},
	})
}

func (h *Handler) StateHandler(w http.ResponseWriter, r *http.Request) {
	var data interface{}
	if state := h.ws.LastState(); state != nil {
		data = state.Data
	}
	h.CreateResponse(w, Response{Message: "scan state", Code: http.StatusOK, Data: data})
}
