package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketCommandFlow(t *testing.T) {
	srv := newTestServer(t)
	server := httptest.NewServer(srv.router)
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if !strings.HasPrefix(resp.Header.Get("Set-Cookie"), SessionCookie+"=") {
		t.Fatalf("expected session cookie on upgrade response")
	}

	// A fresh connection gets a session first.
	_, payload := readNext(conn, t, "session")
	if id, _ := payload["sessionId"].(string); id == "" {
		t.Fatalf("expected session id, got %v", payload)
	}

	send(conn, t, "setUserName", map[string]any{"name": "Bob"})
	_, payload = readNext(conn, t, "state")
	if payload["userName"] != "Bob" {
		t.Fatalf("expected userName Bob, got %v", payload["userName"])
	}

	send(conn, t, "results", nil)
	_, payload = readNext(conn, t, "redirect")
	if payload["redirect"] != "/" {
		t.Fatalf("expected redirect to /, got %v", payload)
	}

	send(conn, t, "saveAnswers", map[string]any{
		"areaId":  2,
		"answers": map[string][]string{"q2a": {"b"}, "q2c": {"a"}},
		"advance": true,
	})
	_, payload = readNext(conn, t, "state")
	if payload["currentArea"] != float64(3) {
		t.Fatalf("expected currentArea 3, got %v", payload["currentArea"])
	}

	send(conn, t, "saveAnswers", map[string]any{"areaId": 0, "answers": map[string][]string{}})
	_, payload = readNext(conn, t, "error")
	if payload["code"] != "invalid_payload" {
		t.Fatalf("expected invalid_payload, got %v", payload)
	}

	send(conn, t, "completeQuiz", nil)
	_, payload = readNext(conn, t, "report")
	if payload["totalScore"] != float64(2) || payload["strongestArea"] != float64(2) {
		t.Fatalf("unexpected report %v", payload)
	}

	send(conn, t, "dance", nil)
	_, payload = readNext(conn, t, "error")
	if payload["code"] != "unsupported_command" {
		t.Fatalf("expected unsupported_command, got %v", payload)
	}
}

func TestWebSocketResumesExistingSession(t *testing.T) {
	srv := newTestServer(t)
	sid := srv.startSession(t)
	server := httptest.NewServer(srv.router)
	defer server.Close()

	header := http.Header{}
	header.Set(SessionHeader, sid)
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, payload := readNext(conn, t, "state")
	if payload["currentArea"] != float64(1) {
		t.Fatalf("expected initial state, got %v", payload)
	}
}

func send(conn *websocket.Conn, t *testing.T, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
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
