package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ugaemi/fragmentia-server/internal/session"
	"github.com/ugaemi/fragmentia-server/internal/store"
	"github.com/ugaemi/fragmentia-server/internal/ws"
)

// SessionHandler handles session lifecycle messages.
type SessionHandler struct {
	sm       *session.Manager
	profiles store.ProfileStore
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sm *session.Manager, profiles store.ProfileStore) *SessionHandler {
	return &SessionHandler{sm: sm, profiles: profiles}
}

type joinSessionRequest struct {
	Code string `json:"code"`
}

type sessionInfoResponse struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	PilotID string `json:"pilot_id"`
	Clients int    `json:"clients"`
	Pilot   bool   `json:"pilot"`
}

// HandleCreate creates a session piloted by the client and starts its loop.
func (h *SessionHandler) HandleCreate(client *ws.Client, _ ws.Message) {
	if h.sm.FindByClientID(client.ID) != nil {
		client.SendMessage(ws.NewErrorMessage("already in a session"))
		return
	}

	s := h.sm.Create()
	s.AddClient(client)
	s.SetKarma(h.profileKarma(client.ProfileID))
	s.Start()

	h.broadcastSessionInfo(s)
	slog.Info("client created session", "client", client.ID, "profile", client.ProfileID, "session", s.Code)
}

// HandleJoin attaches the client to an existing session as a spectator.
func (h *SessionHandler) HandleJoin(client *ws.Client, msg ws.Message) {
	var req joinSessionRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Code == "" {
		client.SendMessage(ws.NewErrorMessage("code is required"))
		return
	}
	if h.sm.FindByClientID(client.ID) != nil {
		client.SendMessage(ws.NewErrorMessage("already in a session"))
		return
	}

	s := h.sm.Get(req.Code)
	if s == nil {
		client.SendMessage(ws.NewErrorMessage("session not found"))
		return
	}
	if !s.AddClient(client) {
		client.SendMessage(ws.NewErrorMessage("session is full"))
		return
	}

	h.broadcastSessionInfo(s)
	slog.Info("client joined session", "client", client.ID, "session", s.Code)
}

// HandleLeave detaches the client. The last client leaving ends the session
// and discards its snapshot.
func (h *SessionHandler) HandleLeave(client *ws.Client, _ ws.Message) {
	if !h.detach(client, true) {
		client.SendMessage(ws.NewErrorMessage("not in a session"))
	}
}

// HandleDisconnect handles client disconnection. The snapshot of an
// abandoned session stays readable until it expires.
func (h *SessionHandler) HandleDisconnect(client *ws.Client) {
	h.detach(client, false)
}

func (h *SessionHandler) detach(client *ws.Client, discard bool) bool {
	s := h.sm.FindByClientID(client.ID)
	if s == nil {
		return false
	}

	s.RemoveClient(client.ID)
	if s.IsEmpty() {
		h.sm.Remove(s.Code, discard)
	} else {
		if _, profileID := s.Pilot(); profileID != "" {
			s.SetKarma(h.profileKarma(profileID))
		}
		h.broadcastSessionInfo(s)
	}

	slog.Info("client left session", "client", client.ID, "session", s.Code)
	return true
}

func (h *SessionHandler) profileKarma(profileID string) int {
	if profileID == "" {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	p, err := h.profiles.FindByID(ctx, profileID)
	if err != nil || p == nil {
		return 0
	}
	return p.Karma
}

// broadcastSessionInfo tells each client who pilots the session and
// whether it is them.
func (h *SessionHandler) broadcastSessionInfo(s *session.Session) {
	st := s.State()
	pilot, _ := s.Pilot()
	for _, id := range s.ClientIDs() {
		resp, _ := ws.NewMessage(ws.TypeSessionInfo, sessionInfoResponse{
			ID:      st.ID,
			Code:    st.Code,
			PilotID: pilot,
			Clients: st.Clients,
			Pilot:   id == pilot,
		})
		s.SendToClient(id, resp)
	}
}
