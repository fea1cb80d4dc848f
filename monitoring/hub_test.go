package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// give the hub loop a moment to register the client
	time.Sleep(100 * time.Millisecond)

	hub.Publish(RunCompleted, map[string]int{"cells_replaced": 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != RunCompleted {
		t.Errorf("type = %s, want %s", msg.Type, RunCompleted)
	}
	var data map[string]int
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["cells_replaced"] != 3 {
		t.Errorf("data = %v", data)
	}
}

func TestPublishWithoutClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Start()
	defer hub.Stop()

	// must not block or panic with nobody listening
	for i := 0; i < 10; i++ {
		hub.Publish(RunStarted, map[string]string{"path": "out.txt"})
	}
}

func TestMessageEnvelope(t *testing.T) {
	raw, err := json.Marshal(Message{
		Type:      Heartbeat,
		Timestamp: time.Unix(1700000000, 0).UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"type":"heartbeat"`) {
		t.Errorf("envelope = %s", raw)
	}
}
