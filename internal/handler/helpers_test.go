package handler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ugaemi/fragmentia-server/internal/mission"
	"github.com/ugaemi/fragmentia-server/internal/session"
	"github.com/ugaemi/fragmentia-server/internal/stealth"
	"github.com/ugaemi/fragmentia-server/internal/store"
	"github.com/ugaemi/fragmentia-server/internal/ws"
)

const (
	frame      = 1.0 / 30
	guardLevel = 2
)

type testEnv struct {
	router   *Router
	sessions *session.Manager
	profiles *store.MemoryStore
}

// setupTest builds a router over an in-memory store. Session loops tick
// hourly so tests drive frames by hand.
func setupTest(t *testing.T, opts session.Options) *testEnv {
	t.Helper()
	profiles := store.NewMemoryStore()
	if opts.Levels == nil {
		opts.Levels = stealth.LevelSet{guardLevel: {Guards: []stealth.GuardConfig{
			{X: 500, Y: 960, PatrolLeft: 300, PatrolRight: 700, Range: stealth.DefaultVisionRange},
		}}}
	}
	if opts.Stages == nil {
		opts.Stages = mission.DefaultStages()
	}
	opts.Recorder = profiles
	if opts.TickInterval == 0 {
		opts.TickInterval = time.Hour
	}

	sm := session.NewManager(opts)
	t.Cleanup(sm.StopAll)
	return &testEnv{router: NewRouter(sm, profiles), sessions: sm, profiles: profiles}
}

// mockClient creates a ws.Client with a buffered Send channel for testing.
func mockClient(id string) *ws.Client {
	return &ws.Client{
		ID:   id,
		Send: make(chan []byte, 256),
	}
}

// drainMessages reads all pending messages from a client's send channel.
func drainMessages(client *ws.Client) []ws.Message {
	var msgs []ws.Message
	for {
		select {
		case data := <-client.Send:
			var msg ws.Message
			if err := json.Unmarshal(data, &msg); err == nil {
				msgs = append(msgs, msg)
			}
		default:
			return msgs
		}
	}
}

// findMessageByType finds the first message of a given type.
func findMessageByType(msgs []ws.Message, msgType string) *ws.Message {
	for _, m := range msgs {
		if m.Type == msgType {
			return &m
		}
	}
	return nil
}

// send routes one message from client through the router.
func (e *testEnv) send(t *testing.T, client *ws.Client, msgType string, payload any) {
	t.Helper()
	msg := ws.Message{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Data = data
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	e.router.HandleMessage(&ws.ClientMessage{Client: client, Data: raw})
}

// reply sends a message and returns the first response of respType.
func (e *testEnv) reply(t *testing.T, client *ws.Client, msgType string, payload any, respType string) *ws.Message {
	t.Helper()
	drainMessages(client)
	e.send(t, client, msgType, payload)
	resp := findMessageByType(drainMessages(client), respType)
	require.NotNil(t, resp, "no %s after %s", respType, msgType)
	return resp
}

// identified returns a client bound to a fresh profile.
func (e *testEnv) identified(t *testing.T, id string) *ws.Client {
	t.Helper()
	c := mockClient(id)
	e.reply(t, c, ws.TypeIdentify, map[string]string{"nickname": id}, ws.TypeIdentifyResult)
	require.True(t, c.Identified())
	return c
}

// pilot returns an identified client piloting a new session.
func (e *testEnv) pilot(t *testing.T) (*ws.Client, *session.Session) {
	t.Helper()
	c := e.identified(t, "pilot")
	e.reply(t, c, ws.TypeCreateSession, nil, ws.TypeSessionInfo)
	s := e.sessions.FindByClientID(c.ID)
	require.NotNil(t, s)
	return c, s
}

func (e *testEnv) karma(t *testing.T, profileID string) int {
	t.Helper()
	p, err := e.profiles.FindByID(context.Background(), profileID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Karma
}

func errorText(t *testing.T, msg *ws.Message) string {
	t.Helper()
	var e ws.ErrorMessage
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	return e.Message
}
