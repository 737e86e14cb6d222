package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hksamms/samms-services/internal/attendance"
	"github.com/hksamms/samms-services/internal/comm"
	"github.com/hksamms/samms-services/internal/scanner"
	"github.com/hksamms/samms-services/internal/scanstation/ws"
)

func newStation(t *testing.T) (*httptest.Server, *ws.Ws, *scanner.ChanSource) {
	t.Helper()
	src := scanner.NewChanSource(1)
	s := ws.NewWs(src)

	r := chi.NewRouter()
	NewHandler(s, "0").SetRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, s, src
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/frames"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) comm.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg comm.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitConnections(t *testing.T, s *ws.Ws, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Count() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestFramesReachSource(t *testing.T) {
	srv, s, src := newStation(t)
	conn := dial(t, srv)
	waitConnections(t, s, 1)

	data, _ := json.Marshal(comm.FrameData{Raw: `{"id":"S-1"}`})
	require.NoError(t, conn.WriteJSON(comm.WSMessage{Type: "frame", Data: data}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"S-1"}`, raw)
}

func TestInvalidMessageAnswersError(t *testing.T) {
	srv, s, _ := newStation(t)
	conn := dial(t, srv)
	waitConnections(t, s, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
}

func TestAlertsAndStateBroadcast(t *testing.T) {
	srv, s, _ := newStation(t)
	a, b := dial(t, srv), dial(t, srv)
	waitConnections(t, s, 2)

	s.Report(scanner.Alert{Kind: scanner.AlertSuccess, Title: "Attendance Recorded", Message: "Juan marked for check."})
	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		require.Equal(t, "alert", msg.Type)
		var alert comm.AlertData
		require.NoError(t, json.Unmarshal(msg.Data, &alert))
		assert.Equal(t, "success", alert.Kind)
		assert.Equal(t, "Juan marked for check.", alert.Message)
	}

	s.PublishState(scanner.Snapshot{
		State:       scanner.StateCooldown,
		Locked:      true,
		LastPayload: &attendance.QRPayload{StudentID: "S-1", StudentName: "Juan"},
	})
	msg := readMessage(t, a)
	require.Equal(t, "state", msg.Type)
	var state comm.StateData
	require.NoError(t, json.Unmarshal(msg.Data, &state))
	assert.Equal(t, "cooldown", state.State)
	assert.True(t, state.Locked)
	readMessage(t, b)

	// late joiners get the current state first
	c := dial(t, srv)
	msg = readMessage(t, c)
	assert.Equal(t, "state", msg.Type)

	rec := httptest.NewRecorder()
	r := chi.NewRouter()
	NewHandler(s, "0").SetRoutes(r)
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"connections":3`)
}

func TestDisconnectRemovesConnection(t *testing.T) {
	srv, s, _ := newStation(t)
	conn := dial(t, srv)
	waitConnections(t, s, 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	waitConnections(t, s, 0)
}
