package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/ironhand/internal/character"
	"github.com/antoniostano/ironhand/internal/config"
	"github.com/antoniostano/ironhand/internal/dice"
	"github.com/antoniostano/ironhand/internal/game"
	"github.com/antoniostano/ironhand/internal/narrator"
	"github.com/antoniostano/ironhand/internal/protocol"
	"github.com/antoniostano/ironhand/internal/registry"
	"github.com/antoniostano/ironhand/internal/session"
)

type testEnv struct {
	ts       *httptest.Server
	sessions session.Store
	orch     *game.Orchestrator
	registry *registry.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Config{
		WSWriteTimeout: 2 * time.Second,
		WSIdleTimeout:  30 * time.Second,
	}
	sessions := session.NewInMemoryStore()
	characters := character.NewInMemoryStore()
	reg := registry.New(nil, nil)
	roller := dice.NewSeededRoller(1)
	gateway := narrator.NewGateway(narrator.NewMockProvider(), "mock", narrator.GatewayConfig{Timeout: time.Second}, nil, nil, nil)
	orch := game.New(game.Dependencies{
		Sessions:    sessions,
		Characters:  characters,
		Narrator:    gateway,
		Broadcaster: reg,
		Roller:      roller,
	})
	srv := New(cfg, Dependencies{
		Sessions:     sessions,
		Characters:   characters,
		Registry:     reg,
		Orchestrator: orch,
		Roller:       roller,
		Info:         map[string]string{"storage": "memory"},
	})

	env := &testEnv{ts: httptest.NewServer(srv.Router()), sessions: sessions, orch: orch, registry: reg}
	t.Cleanup(func() {
		env.ts.Close()
		reg.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Close(ctx)
	})
	return env
}

func (e *testEnv) startSession(t *testing.T, body string) session.Session {
	t.Helper()
	res, err := http.Post(e.ts.URL+"/v1/session/start", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("start session request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	var sess session.Session
	if err := json.NewDecoder(res.Body).Decode(&sess); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	return sess
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/v1/session/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wireMessage struct {
	Type    string           `json:"type"`
	Content string           `json:"content"`
	Payload session.LogEntry `json:"payload"`
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wireMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return msg
}

func TestStartSession(t *testing.T) {
	env := newTestEnv(t)
	sess := env.startSession(t, `{"characterId":"grodni-ironhand"}`)

	if sess.ID == "" || sess.CharacterID != character.DefaultCharacterID {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if len(sess.Log) != 1 || sess.Log[0].Kind != session.KindSystem || sess.Log[0].Content != session.OpeningNarrative {
		t.Fatalf("unexpected opening log: %+v", sess.Log)
	}
	if sess.State.CurrentLocation != session.DefaultLocation {
		t.Fatalf("location = %q", sess.State.CurrentLocation)
	}

	res, err := http.Get(env.ts.URL + "/v1/session/" + sess.ID)
	if err != nil {
		t.Fatalf("get session error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", res.StatusCode)
	}
}

func TestStartSessionUnknownCharacter(t *testing.T) {
	env := newTestEnv(t)
	res, err := http.Post(env.ts.URL+"/v1/session/start", "application/json", strings.NewReader(`{"characterId":"nobody"}`))
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.StatusCode)
	}
}

func TestStartSessionBodies(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name string
		body string
		want int
	}{
		{"empty body uses default character", "", http.StatusCreated},
		{"truncated body", `{"characterId":"grodni`, http.StatusBadRequest},
		{"not json", `characterId=grodni`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := http.Post(env.ts.URL+"/v1/session/start", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("request error = %v", err)
			}
			defer res.Body.Close()
			if res.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", res.StatusCode, tc.want)
			}
		})
	}
}

func TestGetUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	res, err := http.Get(env.ts.URL + "/v1/session/missing")
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.StatusCode)
	}
}

func TestUpdateState(t *testing.T) {
	env := newTestEnv(t)
	sess := env.startSession(t, "")

	req, _ := http.NewRequest(http.MethodPut, env.ts.URL+"/v1/session/"+sess.ID+"/state", strings.NewReader(`{"currentLocation":"The Reik docks"}`))
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	got, err := env.sessions.Get(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State.CurrentLocation != "The Reik docks" {
		t.Fatalf("location = %q", got.State.CurrentLocation)
	}

	req, _ = http.NewRequest(http.MethodPut, env.ts.URL+"/v1/session/"+sess.ID+"/state", strings.NewReader(`{"currentLocation":"  "}`))
	res, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank location status = %d, want 400", res.StatusCode)
	}
}

func TestCreateAndGetCharacter(t *testing.T) {
	env := newTestEnv(t)
	res, err := http.Post(env.ts.URL+"/v1/characters", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", res.StatusCode)
	}
	var sheet character.Sheet
	if err := json.NewDecoder(res.Body).Decode(&sheet); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sheet.Name != "Grommir Stonehand" || sheet.Lookup("WS") != 30 {
		t.Fatalf("unexpected sheet: %+v", sheet)
	}

	getRes, err := http.Get(env.ts.URL + "/v1/characters/" + sheet.ID)
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer getRes.Body.Close()
	if getRes.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", getRes.StatusCode)
	}
}

func TestRollEndpoint(t *testing.T) {
	env := newTestEnv(t)
	res, err := http.Post(env.ts.URL+"/v1/dice/roll", "application/json", strings.NewReader(`{"notation":"3d6+2"}`))
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}
	var out rollResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Min != 5 || out.Max != 20 {
		t.Fatalf("range = [%d, %d], want [5, 20]", out.Min, out.Max)
	}
	if out.Total < 5 || out.Total > 20 || len(out.Rolls) != 3 || out.Notation != "3d6+2" {
		t.Fatalf("unexpected roll: %+v", out)
	}

	bad, err := http.Post(env.ts.URL+"/v1/dice/roll", "application/json", strings.NewReader(`{"notation":"3x6"}`))
	if err != nil {
		t.Fatalf("request error = %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid notation status = %d, want 400", bad.StatusCode)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(env.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, res.StatusCode)
		}
	}
}

func TestSessionChannelRejectsUnregistered(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	if err := conn.WriteJSON(protocol.Action{Type: protocol.TypeAction, Payload: protocol.ActionPayload{Action: "hello"}}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != "error" || msg.Content != NotRegisteredMessage {
		t.Fatalf("unexpected reply: %+v", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{nope")); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	msg = readMessage(t, conn)
	if msg.Type != "error" || msg.Content != InvalidFormatMessage {
		t.Fatalf("unexpected reply: %+v", msg)
	}
}

func TestSessionChannelManualRollBroadcastsToAllClients(t *testing.T) {
	env := newTestEnv(t)
	sess := env.startSession(t, "")

	first, second := env.dial(t), env.dial(t)
	for _, conn := range []*websocket.Conn{first, second} {
		if err := conn.WriteJSON(protocol.Register{Type: protocol.TypeRegister, GameID: sess.ID}); err != nil {
			t.Fatalf("register error = %v", err)
		}
		msg := readMessage(t, conn)
		if msg.Type != "system" || msg.Content != RegisteredMessage {
			t.Fatalf("unexpected ack: %+v", msg)
		}
	}

	roll := protocol.ManualRoll{Type: protocol.TypeManualRoll, Payload: protocol.ManualRollPayload{Command: "/r 1d100 WS"}}
	if err := first.WriteJSON(roll); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	for _, conn := range []*websocket.Conn{first, second} {
		player := readMessage(t, conn)
		if player.Type != "log" || player.Payload.Kind != session.KindPlayer || player.Payload.Content != "/r 1d100 WS" {
			t.Fatalf("unexpected first log: %+v", player)
		}
		rolled := readMessage(t, conn)
		if rolled.Type != "log" || rolled.Payload.Kind != session.KindRoll || !strings.Contains(rolled.Payload.Content, "against a target of 45 (WS)") {
			t.Fatalf("unexpected roll log: %+v", rolled)
		}
		if rolled.Payload.Seq != player.Payload.Seq+1 {
			t.Fatalf("seq %d does not follow %d", rolled.Payload.Seq, player.Payload.Seq)
		}
	}
}

func TestSessionChannelUnknownSessionReportsError(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	if err := conn.WriteJSON(protocol.Register{Type: protocol.TypeRegister, GameID: "ghost"}); err != nil {
		t.Fatalf("register error = %v", err)
	}
	readMessage(t, conn)

	if err := conn.WriteJSON(protocol.Action{Type: protocol.TypeAction, Payload: protocol.ActionPayload{Action: "boo"}}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != "error" || msg.Content != game.SessionNotFoundMessage {
		t.Fatalf("unexpected reply: %+v", msg)
	}
	if env.registry.Count("ghost") != 1 {
		t.Fatalf("connection should stay registered")
	}
}
