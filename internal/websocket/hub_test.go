package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivia-wave/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubActions struct {
	screen    domain.WaveScreen
	answerErr error
	answers   []domain.SubmitAnswerRequest
	boosts    []domain.ApplyBoostRequest
}

func (s *stubActions) CurrentWave(ctx context.Context, channelID, userID string) (domain.WaveScreen, error) {
	if s.screen == nil {
		return nil, domain.ErrWaveNotFound
	}
	return s.screen, nil
}

func (s *stubActions) SubmitAnswer(ctx context.Context, req domain.SubmitAnswerRequest) (*domain.PlayerAction, error) {
	s.answers = append(s.answers, req)
	if s.answerErr != nil {
		return nil, s.answerErr
	}
	return &domain.PlayerAction{UserID: req.UserID}, nil
}

func (s *stubActions) ApplyBoost(ctx context.Context, req domain.ApplyBoostRequest) (*domain.UserBoost, error) {
	s.boosts = append(s.boosts, req)
	return &domain.UserBoost{UserID: req.UserID, BoostID: req.BoostID, Amount: 2}, nil
}

type budgetLimiter struct {
	left map[string]int
}

func (l *budgetLimiter) Allow(key string) bool {
	if l.left[key] <= 0 {
		return false
	}
	l.left[key]--
	return true
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case raw := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

func TestHub_SendToUserReachesEverySocket(t *testing.T) {
	hub := startHub(t)
	first := NewClient(hub, &stubActions{}, nil, "alice", testLogger())
	second := NewClient(hub, &stubActions{}, nil, "alice", testLogger())
	other := NewClient(hub, &stubActions{}, nil, "bob", testLogger())
	hub.Register(first)
	hub.Register(second)
	hub.Register(other)

	require.Eventually(t, func() bool { return hub.GetTotalConnections() == 3 }, time.Second, 10*time.Millisecond)

	n := hub.SendToUser("alice", MessageTypeWaveScreen, map[string]string{"type": "before_wave"})
	assert.Equal(t, 2, n)
	assert.Equal(t, MessageTypeWaveScreen, receive(t, first).Type)
	assert.Equal(t, MessageTypeWaveScreen, receive(t, second).Type)
	assert.Empty(t, other.send)

	assert.Zero(t, hub.SendToUser("nobody", MessageTypeWaveScreen, nil))
}

func TestHub_ChannelUsers(t *testing.T) {
	hub := startHub(t)
	a1 := NewClient(hub, &stubActions{}, nil, "alice", testLogger())
	a2 := NewClient(hub, &stubActions{}, nil, "alice", testLogger())
	b := NewClient(hub, &stubActions{}, nil, "bob", testLogger())
	for _, c := range []*Client{a1, a2, b} {
		hub.Register(c)
		hub.Subscribe(c, "ch1")
	}

	require.Eventually(t, func() bool { return hub.GetSubscriberCount("ch1") == 3 }, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"alice", "bob"}, hub.ChannelUsers("ch1"))

	hub.Unsubscribe(b, "ch1")
	require.Eventually(t, func() bool { return hub.GetSubscriberCount("ch1") == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"alice"}, hub.ChannelUsers("ch1"))

	hub.Unregister(a1)
	hub.Unregister(a2)
	require.Eventually(t, func() bool { return hub.GetSubscriberCount("ch1") == 0 }, time.Second, 10*time.Millisecond)
	assert.Empty(t, hub.ChannelUsers("ch1"))
	assert.Equal(t, 1, hub.GetTotalConnections())

	_, open := <-a1.send
	assert.False(t, open)
}

func TestClient_SelectAnswerUsesSocketUser(t *testing.T) {
	hub := startHub(t)
	actions := &stubActions{}
	c := NewClient(hub, actions, nil, "alice", testLogger())

	c.handleMessage(&ClientMessage{
		Type:      MessageTypeSelectAnswer,
		RequestID: "mes-7",
		ChannelID: "ch1",
		Data:      json.RawMessage(`{"question_index":0,"selected_indexes":[1],"user_id":"mallory"}`),
	})

	msg := receive(t, c)
	assert.Equal(t, MessageTypeAnswerApplied, msg.Type)
	assert.Equal(t, "mes-7", msg.RequestID)
	require.Len(t, actions.answers, 1)
	assert.Equal(t, "alice", actions.answers[0].UserID)
	assert.Equal(t, "ch1", actions.answers[0].ChannelID)
}

func TestClient_ErrorsCarryRequestID(t *testing.T) {
	hub := startHub(t)
	actions := &stubActions{answerErr: domain.ErrAlreadyAnswered}
	c := NewClient(hub, actions, nil, "alice", testLogger())

	c.handleMessage(&ClientMessage{
		Type:      MessageTypeSelectAnswer,
		RequestID: "mes-8",
		ChannelID: "ch1",
		Data:      json.RawMessage(`{"question_index":0,"selected_indexes":[1]}`),
	})

	msg := receive(t, c)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, "mes-8", msg.RequestID)
	payload := msg.Data.(map[string]any)
	assert.Equal(t, domain.ErrAlreadyAnswered.Code, payload["code"])
	assert.Equal(t, string(domain.KindConflict), payload["kind"])

	c.handleMessage(&ClientMessage{Type: MessageTypeApplyBoost, RequestID: "mes-9", Data: json.RawMessage(`not json`)})
	msg = receive(t, c)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, domain.ErrInvalidRequest.Code, msg.Data.(map[string]any)["code"])
}

func TestClient_ApplyBoost(t *testing.T) {
	hub := startHub(t)
	actions := &stubActions{}
	c := NewClient(hub, actions, nil, "alice", testLogger())

	c.handleMessage(&ClientMessage{
		Type:      MessageTypeApplyBoost,
		RequestID: "mes-10",
		Data:      json.RawMessage(`{"lobby_id":"l1","boost_id":"Bomb","question_index":0,"applied_at":"2026-03-01T12:00:00Z"}`),
	})

	msg := receive(t, c)
	assert.Equal(t, MessageTypeBoostApplied, msg.Type)
	require.Len(t, actions.boosts, 1)
	assert.Equal(t, "alice", actions.boosts[0].UserID)
	assert.Equal(t, float64(2), msg.Data.(map[string]any)["amount"])
}

func TestClient_RateLimitsActions(t *testing.T) {
	hub := startHub(t)
	actions := &stubActions{}
	c := NewClient(hub, actions, nil, "alice", testLogger())
	c.limiter = &budgetLimiter{left: map[string]int{"alice": 1}}

	answer := json.RawMessage(`{"question_index":0,"selected_indexes":[1]}`)
	c.handleMessage(&ClientMessage{Type: MessageTypeSelectAnswer, RequestID: "mes-1", ChannelID: "ch1", Data: answer})
	assert.Equal(t, MessageTypeAnswerApplied, receive(t, c).Type)

	c.handleMessage(&ClientMessage{Type: MessageTypeSelectAnswer, RequestID: "mes-2", ChannelID: "ch1", Data: answer})
	msg := receive(t, c)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, "mes-2", msg.RequestID)
	assert.Equal(t, domain.ErrRateLimited.Code, msg.Data.(map[string]any)["code"])

	c.handleMessage(&ClientMessage{
		Type:      MessageTypeApplyBoost,
		RequestID: "mes-3",
		Data:      json.RawMessage(`{"lobby_id":"l1","boost_id":"Bomb","question_index":0,"applied_at":"2026-03-01T12:00:00Z"}`),
	})
	msg = receive(t, c)
	assert.Equal(t, domain.ErrRateLimited.Code, msg.Data.(map[string]any)["code"])

	assert.Len(t, actions.answers, 1)
	assert.Empty(t, actions.boosts)

	// Reads are not limited
	c.handleMessage(&ClientMessage{Type: MessageTypePing})
	assert.Equal(t, MessageTypePong, receive(t, c).Type)
}

func TestServeWs_SubscribeAndPing(t *testing.T) {
	hub := startHub(t)
	actions := &stubActions{screen: &domain.BeforeWaveScreen{Type: domain.ScreenBeforeWave}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, actions, nil, "alice", testLogger(), w, r)
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeSubscribe, RequestID: "mes-1", ChannelID: "ch1"}))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeWaveScreen, msg.Type)
	assert.Equal(t, "mes-1", msg.RequestID)
	require.Eventually(t, func() bool { return hub.GetSubscriberCount("ch1") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypePing}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypePong, msg.Type)

	hub.SendToUser("alice", MessageTypeWaveScreen, &domain.BeforeWaveScreen{Type: domain.ScreenBeforeWave})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeWaveScreen, msg.Type)
}
