package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cps-exam-service/internal/app"
	"cps-exam-service/internal/infra/memory"
	"cps-exam-service/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T) (*httptest.Server, *testutil.ManualScheduler) {
	t.Helper()
	sched := &testutil.ManualScheduler{}
	service := app.NewExamService(
		memory.NewSessionStore(),
		memory.NewExamRepository(memory.NewStaticExamLoader(memory.SampleExams()), time.Minute),
		memory.NewAttemptStore(),
		app.Options{Scheduler: sched, Logger: zerolog.Nop()},
	)
	server := httptest.NewServer(NewMux(service, zerolog.Nop()))
	t.Cleanup(server.Close)
	return server, sched
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketExamFlow(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server, "examId=cps-practice&userId=u1")

	_, started := readNext(conn, t, "started")
	if id, _ := started["attemptId"].(string); id == "" || started["mode"] != "inProgress" {
		t.Fatalf("unexpected started payload %v", started)
	}
	if started["timeRemaining"] != float64(1200) {
		t.Fatalf("expected full budget, got %v", started["timeRemaining"])
	}
	readNext(conn, t, "state")

	send(t, conn, "select", map[string]any{"option": 2})
	_, state := readNext(conn, t, "state")
	if state["pending"] != float64(2) {
		t.Fatalf("expected pending 2, got %v", state["pending"])
	}

	send(t, conn, "finish", map[string]any{"confirm": false})
	_, ask := readNext(conn, t, "confirm")
	if ask["action"] != "finish" || ask["unanswered"] != float64(2) {
		t.Fatalf("unexpected confirm payload %v", ask)
	}

	send(t, conn, "finish", map[string]any{"confirm": true})
	_, results := readNext(conn, t, "state")
	if results["mode"] != "results" || results["score"] != float64(33) {
		t.Fatalf("expected results with 33, got %v", results)
	}
	if results["verdict"] != "Below benchmark" {
		t.Fatalf("unexpected verdict %v", results["verdict"])
	}

	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return len(history(t, server, "u1")) == 1
	}, "attempt was not recorded")
}

func TestWebSocketExpiryAndRestart(t *testing.T) {
	server, sched := newTestServer(t)
	conn := dial(t, server, "examId=cps-practice&userId=u2")
	_, started := readNext(conn, t, "started")
	readNext(conn, t, "state")

	send(t, conn, "select", map[string]any{"option": 2})
	readNext(conn, t, "state")

	sched.Fire(1200)
	var last map[string]any
	for last == nil || last["timeUp"] != true {
		_, last = readNext(conn, t, "state")
	}
	if last["mode"] != "results" || last["score"] != float64(33) || last["timeRemaining"] != float64(0) {
		t.Fatalf("expected expired snapshot, got %v", last)
	}

	send(t, conn, "restart", nil)
	_, fresh := readNext(conn, t, "state")
	if fresh["mode"] != "inProgress" || fresh["attemptId"] == started["attemptId"] {
		t.Fatalf("expected a fresh attempt, got %v", fresh)
	}
}

func TestWebSocketErrors(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/ws?examId=cps-practice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	missing := dial(t, server, "examId=nope&userId=u1")
	_, payload := readNext(missing, t, "error")
	if payload["message"] == "" {
		t.Fatalf("expected error message")
	}

	conn := dial(t, server, "examId=cps-practice&userId=u1")
	readNext(conn, t, "started")
	readNext(conn, t, "state")
	send(t, conn, "select", map[string]any{"option": 9})
	readNext(conn, t, "error")
	send(t, conn, "dance", nil)
	_, payload = readNext(conn, t, "error")
	if payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error %v", payload)
	}
}

func TestHistoryEndpointValidatesQuery(t *testing.T) {
	server, _ := newTestServer(t)

	for _, path := range []string{"/attempts", "/attempts?userId=u1&limit=-1", "/attempts?userId=u1&limit=0"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, resp.StatusCode)
		}
	}
	if got := history(t, server, "nobody"); len(got) != 0 {
		t.Fatalf("expected empty history, got %v", got)
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

func history(t *testing.T, server *httptest.Server, userID string) []map[string]any {
	t.Helper()
	resp, err := http.Get(server.URL + "/attempts?userId=" + userID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Attempts []map[string]any `json:"attempts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	return body.Attempts
}
