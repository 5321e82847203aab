package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/interestconnect/realtime/internal/config"
	"github.com/interestconnect/realtime/internal/domain"
	"github.com/interestconnect/realtime/internal/hub"
	"github.com/interestconnect/realtime/internal/service"
	"github.com/interestconnect/realtime/pkg/jwt"
	"github.com/interestconnect/realtime/pkg/log"
	"github.com/interestconnect/realtime/pkg/middleware"
	"github.com/rs/zerolog"
)

func init() {
	log.SetGlobal(zerolog.New(io.Discard))
}

type memStore struct {
	mu  sync.Mutex
	seq int
}

func (s *memStore) InsertMessage(_ context.Context, d domain.MessageDraft) (*domain.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return &domain.StoredMessage{
		ID:          fmt.Sprintf("m%d", s.seq),
		SenderID:    d.SenderID,
		ReceiverID:  d.ReceiverID,
		GroupID:     d.GroupID,
		Content:     d.Content,
		MessageType: domain.MessageTypeText,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

type memDirectory struct{}

func (memDirectory) LookupUsers(_ context.Context, ids []string) (map[string]domain.UserSummary, error) {
	out := make(map[string]domain.UserSummary, len(ids))
	for _, id := range ids {
		out[id] = domain.UserSummary{ID: id, Name: strings.ToUpper(id)}
	}
	return out, nil
}

type testServer struct {
	srv    *httptest.Server
	tokens *jwt.Manager
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	h := hub.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.RunWithContext(ctx)
		close(done)
	}()

	tokens, err := jwt.NewManager("test-secret", time.Hour, "test")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	wsCfg := config.WebSocketConfig{
		PingInterval:   time.Second,
		PongWait:       5 * time.Second,
		WriteWait:      time.Second,
		MaxMessageSize: 16384,
		SendBuffer:     32,
		AllowedOrigins: []string{"*"},
	}
	svc := service.NewRealtimeService(service.Deps{
		Hub:   h,
		Store: &memStore{},
		Users: memDirectory{},
	})

	ws := NewWSHandler(h, svc, tokens, wsCfg)
	api := NewHTTPHandler(h, nil, nil)
	router := NewRouter(ws, api, middleware.NewAuthMiddleware(tokens), zerolog.New(io.Discard))

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &testServer{srv: srv, tokens: tokens}
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.tokens.Generate(userID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return token
}

func (ts *testServer) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func (ts *testServer) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL(ts.token(t, userID)), nil)
	if err != nil {
		t.Fatalf("dial %s: %v", userID, err)
	}
	t.Cleanup(func() { conn.Close() })
	// Own user_online confirms admission.
	expect(t, conn, domain.MsgTypeUserOnline)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType string, data interface{}) {
	t.Helper()
	frame, err := domain.Encode(eventType, data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// expect reads frames until one of the given type arrives.
func expect(t *testing.T, conn *websocket.Conn, eventType string) domain.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	defer conn.SetReadDeadline(time.Time{})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", eventType, err)
		}
		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if env.Type == eventType {
			return env
		}
	}
}

func TestHandshake_Rejected(t *testing.T) {
	ts := setupServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"invalid token", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(tt.token), nil)
			if err == nil {
				t.Fatal("expected handshake failure")
			}
			if resp == nil || resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected 401, got %v", resp)
			}
		})
	}
}

func TestHandshake_BearerHeader(t *testing.T) {
	ts := setupServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+ts.token(t, "alice"))
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL(""), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	expect(t, conn, domain.MsgTypeUserOnline)
}

func TestDirectMessageRoundTrip(t *testing.T) {
	ts := setupServer(t)
	alice := ts.dial(t, "alice")
	bob := ts.dial(t, "bob")

	send(t, alice, domain.MsgTypeSendMessage, map[string]string{"receiverId": "bob", "content": "hi bob"})

	env := expect(t, bob, domain.MsgTypeNewMessage)
	var msg domain.ChatMessage
	json.Unmarshal(env.Data, &msg)
	if msg.Content != "hi bob" || msg.Sender.ID != "alice" || msg.Sender.Name != "ALICE" {
		t.Errorf("unexpected message %+v", msg)
	}
	if msg.Receiver == nil || msg.Receiver.ID != "bob" {
		t.Errorf("expected receiver bob, got %+v", msg.Receiver)
	}

	env = expect(t, alice, domain.MsgTypeMessageSent)
	json.Unmarshal(env.Data, &msg)
	if msg.Content != "hi bob" {
		t.Errorf("unexpected confirmation %+v", msg)
	}
}

func TestGroupMessageWithStringJoin(t *testing.T) {
	ts := setupServer(t)
	alice := ts.dial(t, "alice")
	bob := ts.dial(t, "bob")

	send(t, alice, domain.MsgTypeJoinGroup, "g1")
	send(t, bob, domain.MsgTypeJoinGroup, map[string]string{"groupId": "g1"})
	// A ping round trip on each connection orders the joins before the send.
	send(t, alice, domain.MsgTypePing, nil)
	expect(t, alice, domain.MsgTypePong)
	send(t, bob, domain.MsgTypePing, nil)
	expect(t, bob, domain.MsgTypePong)

	send(t, alice, domain.MsgTypeSendMessage, map[string]string{"groupId": "g1", "content": "hello group"})

	for name, conn := range map[string]*websocket.Conn{"alice": alice, "bob": bob} {
		env := expect(t, conn, domain.MsgTypeNewMessage)
		var msg domain.ChatMessage
		json.Unmarshal(env.Data, &msg)
		if msg.GroupID != "g1" || msg.Content != "hello group" {
			t.Errorf("%s: unexpected message %+v", name, msg)
		}
	}
}

func TestInvalidFrames(t *testing.T) {
	ts := setupServer(t)
	alice := ts.dial(t, "alice")

	tests := []struct {
		name  string
		frame string
		code  string
	}{
		{"malformed json", `{"type":`, domain.ErrCodeBadRequest},
		{"unknown type", `{"type":"dance"}`, domain.ErrCodeUnknownType},
		{"bad payload", `{"type":"send_message","data":"oops"}`, domain.ErrCodeBadRequest},
		{"no target", `{"type":"send_message","data":{"content":"hi"}}`, domain.ErrCodeInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := alice.WriteMessage(websocket.TextMessage, []byte(tt.frame)); err != nil {
				t.Fatalf("write: %v", err)
			}
			env := expect(t, alice, domain.MsgTypeError)
			var ev domain.ErrorEvent
			json.Unmarshal(env.Data, &ev)
			if ev.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, ev.Code)
			}
		})
	}

	// The session survives every rejected frame.
	send(t, alice, domain.MsgTypePing, nil)
	expect(t, alice, domain.MsgTypePong)
}

func TestTypingAndNotificationRelay(t *testing.T) {
	ts := setupServer(t)
	alice := ts.dial(t, "alice")
	bob := ts.dial(t, "bob")

	send(t, alice, domain.MsgTypeTyping, map[string]interface{}{"receiverId": "bob", "isTyping": true})
	env := expect(t, bob, domain.MsgTypeUserTyping)
	var typing domain.TypingEvent
	json.Unmarshal(env.Data, &typing)
	if typing.UserID != "alice" || !typing.IsTyping {
		t.Errorf("unexpected typing event %+v", typing)
	}

	send(t, alice, domain.MsgTypeSendNotification, map[string]string{"recipientId": "bob", "type": "like", "content": "liked"})
	env = expect(t, bob, domain.MsgTypeNewNotification)
	var n domain.NotificationEvent
	json.Unmarshal(env.Data, &n)
	if n.Type != "like" || n.Sender == nil || n.Sender.ID != "alice" {
		t.Errorf("unexpected notification %+v", n)
	}
}

func TestDisconnectBroadcastsOffline(t *testing.T) {
	ts := setupServer(t)
	alice := ts.dial(t, "alice")
	bob := ts.dial(t, "bob")

	bob.Close()

	env := expect(t, alice, domain.MsgTypeUserOffline)
	var ev domain.PresenceEvent
	json.Unmarshal(env.Data, &ev)
	if ev.UserID != "bob" {
		t.Errorf("expected bob offline, got %+v", ev)
	}
}

func TestPresenceAPI(t *testing.T) {
	ts := setupServer(t)
	ts.dial(t, "alice")

	resp, err := http.Get(ts.srv.URL + "/api/presence/alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	get := func(path string, out interface{}) {
		t.Helper()
		req, _ := http.NewRequest(http.MethodGet, ts.srv.URL+path, nil)
		req.Header.Set("Authorization", "Bearer "+ts.token(t, "bob"))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get %s: status %d", path, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}

	var one struct {
		Data PresenceResponse `json:"data"`
	}
	get("/api/presence/alice", &one)
	if !one.Data.Online || one.Data.UserID != "alice" {
		t.Errorf("expected alice online, got %+v", one.Data)
	}
	get("/api/presence/carol", &one)
	if one.Data.Online {
		t.Error("expected carol offline")
	}

	var all struct {
		Data struct {
			Users []string `json:"users"`
			Count int      `json:"count"`
		} `json:"data"`
	}
	get("/api/presence", &all)
	if all.Data.Count != 1 || all.Data.Users[0] != "alice" {
		t.Errorf("unexpected online list %+v", all.Data)
	}
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)

	resp, err := http.Get(ts.srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"wildcard", []string{"*"}, "https://evil.example", true},
		{"exact", []string{"https://app.example"}, "https://app.example", true},
		{"trailing slash", []string{"https://app.example/"}, "https://app.example", true},
		{"mismatch", []string{"https://app.example"}, "https://evil.example", false},
		{"no origin header", []string{"https://app.example"}, "", true},
		{"empty list", nil, "https://app.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := checkOrigin(tt.allowed)(r); got != tt.want {
				t.Errorf("checkOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}
