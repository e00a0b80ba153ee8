package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"elevator-dispatch/pkg/elevator"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	d, err := elevator.New(elevator.Config{
		ID:             "test",
		TopFloor:       20,
		ForbiddenFloor: 13,
		MaxCapacity:    5,
		MaxWeight:      1000,
	})
	if err != nil {
		t.Fatal(err)
	}
	s := New(d, zerolog.Nop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || body["message"] != "Elevator is Online" {
		t.Errorf("Unexpected health response %d %v", resp.StatusCode, body)
	}
}

func TestStaticIndex(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for index, got %d", resp.StatusCode)
	}
}

func TestRequestEndpoint(t *testing.T) {
	s, ts := newTestServer(t)

	tests := []struct {
		body string
		want int
	}{
		{`{"source": "car", "button": 7}`, http.StatusAccepted},
		{`{"source": 4, "button": "down"}`, http.StatusAccepted},
		{`{"source": "car", "button": ["close", 9]}`, http.StatusAccepted},
		{`{"source": "car", "button": 13}`, http.StatusBadRequest},
		{`{"source": "car", "button": "up"}`, http.StatusBadRequest},
		{`{"source": "lobby", "button": 3}`, http.StatusBadRequest},
		{`{"source": 3, "button": ["close", "close", 3]}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		resp := post(t, ts.URL+"/request", tc.body)
		if resp.StatusCode != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.body, tc.want, resp.StatusCode)
		}
	}

	if got := s.dispatcher.UpQueue(); !slices.Equal(got, []int{4, 7}) {
		t.Errorf("Expected up queue [4 7], got %v", got)
	}
	if got := s.dispatcher.PriorityQueue(); !slices.Equal(got, []int{9}) {
		t.Errorf("Expected priority queue [9], got %v", got)
	}
}

func TestPassengerEndpoint(t *testing.T) {
	s, ts := newTestServer(t)

	resp := post(t, ts.URL+"/passengers", `{"origin": 3, "destination": 9, "weight": 80, "cargo": 5}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var p elevator.Passenger
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Weight != 80 || p.Cargo != 5 || p.Location != 3 {
		t.Errorf("Unexpected passenger %+v", p)
	}
	if w := s.dispatcher.Passengers()[3]; len(w) != 1 {
		t.Errorf("Expected passenger waiting on 3, got %v", w)
	}

	for _, body := range []string{
		`{"origin": 13, "destination": 9}`,
		`{"origin": 9, "destination": 9}`,
		`{"origin": "x"}`,
	} {
		if resp := post(t, ts.URL+"/passengers", body); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, resp.StatusCode)
		}
	}
}

func TestTickAndState(t *testing.T) {
	_, ts := newTestServer(t)

	post(t, ts.URL+"/request", `{"source": "car", "button": 3}`)
	resp := post(t, ts.URL+"/tick", "")
	var snap elevator.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Floor != 2 || snap.Direction != elevator.DirUp {
		t.Errorf("Expected floor 2 heading up, got %+v", snap)
	}

	get, err := http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	if err := json.NewDecoder(get.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Floor != 2 || !slices.Equal(snap.UpQueue, []int{3}) {
		t.Errorf("Unexpected state %+v", snap)
	}
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until match returns true or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, match func(ServerMessage) bool) ServerMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func TestWebSocket_Actions(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dial(t, ts)

	readUntil(t, conn, func(m ServerMessage) bool { return m.Type == "state" })

	if err := conn.WriteJSON(map[string]any{"action": "request", "source": "car", "button": 2}); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, conn, func(m ServerMessage) bool { return m.Type == "state" })
	if !slices.Equal(msg.State.UpQueue, []int{2}) {
		t.Errorf("Expected up queue [2], got %v", msg.State.UpQueue)
	}

	if err := conn.WriteJSON(map[string]any{"action": "tick"}); err != nil {
		t.Fatal(err)
	}
	msg = readUntil(t, conn, func(m ServerMessage) bool { return m.Type == "state" })
	if msg.State.Floor != 2 || !msg.State.DoorOpen {
		t.Errorf("Expected doors open at 2, got %+v", msg.State)
	}

	if err := conn.WriteJSON(map[string]any{"action": "request", "source": "car", "button": 21}); err != nil {
		t.Fatal(err)
	}
	msg = readUntil(t, conn, func(m ServerMessage) bool { return m.Type == "error" })
	if !strings.Contains(msg.Error, "invalid floor") {
		t.Errorf("Expected invalid floor error, got %q", msg.Error)
	}

	if err := conn.WriteJSON(map[string]any{"action": "addPassenger", "origin": 5, "destination": 1}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(m ServerMessage) bool { return m.Type == "passenger" })
}

func TestWebSocket_Broadcast(t *testing.T) {
	s, ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Broadcast(ctx)

	conn := dial(t, ts)
	readUntil(t, conn, func(m ServerMessage) bool { return m.Type == "state" })

	// Wait until the session is registered before producing events.
	deadline := time.Now().Add(2 * time.Second)
	for len(s.activeSessions()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never registered")
		}
		time.Sleep(time.Millisecond)
	}

	post(t, ts.URL+"/request", `{"source": "car", "button": 5}`)
	post(t, ts.URL+"/tick", "")

	msg := readUntil(t, conn, func(m ServerMessage) bool {
		return m.Type == "event" && m.EventType == string(elevator.EventFloorChange)
	})
	if msg.Payload != float64(2) {
		t.Errorf("Expected floor change to 2, got %v", msg.Payload)
	}
}
