package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"klunkaz/pkg/registry"
	"klunkaz/pkg/response"
)

type quietLogger struct{}

func (quietLogger) Debugf(string, ...interface{}) {}
func (quietLogger) Infof(string, ...interface{})  {}
func (quietLogger) Warnf(string, ...interface{})  {}
func (quietLogger) Errorf(string, ...interface{}) {}

func setupEventsServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(quietLogger{})
	router := gin.New()
	NewHandler(hub, quietLogger{}).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) registry.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e registry.Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestFeed_DeliversRegistryEvents(t *testing.T) {
	hub, srv := setupEventsServer(t)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	r := registry.New(registry.WithEventSink(hub))
	id, err := r.List(t.Context(), "0xA11CE", registry.ListInput{Price: 5})
	require.NoError(t, err)
	require.NoError(t, r.Transfer(t.Context(), "0xA11CE", id, "0xB0B"))

	e := readEvent(t, conn)
	require.Equal(t, registry.EventListed, e.Type)
	require.Equal(t, id, e.BikeID)

	e = readEvent(t, conn)
	require.Equal(t, registry.EventTransferred, e.Type)
	require.Equal(t, registry.Identity("0xB0B"), e.Counterparty)
}

func TestFeed_FiltersByBike(t *testing.T) {
	hub, srv := setupEventsServer(t)
	conn := dial(t, srv, "?bike_id=2")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(registry.Event{Type: registry.EventStolen, BikeID: 1})
	hub.Publish(registry.Event{Type: registry.EventInsured, BikeID: 2})

	e := readEvent(t, conn)
	require.Equal(t, registry.EventInsured, e.Type)
	require.Equal(t, registry.BikeID(2), e.BikeID)
}

func TestFeed_InvalidBikeID(t *testing.T) {
	_, srv := setupEventsServer(t)

	resp, err := http.Get(srv.URL + "/ws/events?bike_id=abc")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeed_DisconnectRemovesSubscriber(t *testing.T) {
	hub, srv := setupEventsServer(t)
	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestGetStatus(t *testing.T) {
	hub, srv := setupEventsServer(t)
	dial(t, srv, "")
	dial(t, srv, "?bike_id=9")
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/events/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body response.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(2), data["subscribers"])
}

func TestHub_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(quietLogger{})
	sub := hub.AddSubscriber(nil, 0)

	for i := 0; i < cap(sub.Send)+5; i++ {
		hub.Publish(registry.Event{Type: registry.EventReviewLiked, BikeID: 1})
	}

	require.Len(t, sub.Send, cap(sub.Send))
	require.Equal(t, int64(5), hub.Dropped())

	hub.RemoveSubscriber(sub.ID)
	hub.RemoveSubscriber(sub.ID)
	require.Zero(t, hub.Count())
}
