package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ugaemi/fragmentia-server/internal/profile"
	"github.com/ugaemi/fragmentia-server/internal/store"
	"github.com/ugaemi/fragmentia-server/internal/ws"
)

const identifyTimeout = 10 * time.Second

// IdentifyHandler binds connections to persistent profiles.
type IdentifyHandler struct {
	store store.ProfileStore
}

// NewIdentifyHandler creates a new identify handler.
func NewIdentifyHandler(store store.ProfileStore) *IdentifyHandler {
	return &IdentifyHandler{store: store}
}

type identifyRequest struct {
	// ProfileID resumes an existing profile; empty creates a new one.
	ProfileID string `json:"profile_id,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
}

type identifySuccessResponse struct {
	Success   bool   `json:"success"`
	ProfileID string `json:"profile_id"`
	Nickname  string `json:"nickname"`
	Karma     int    `json:"karma"`
	Created   bool   `json:"created"`
}

type identifyFailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HandleIdentify processes an identify request.
func (h *IdentifyHandler) HandleIdentify(client *ws.Client, msg ws.Message) {
	if client.Identified() {
		client.SendMessage(ws.NewErrorMessage("already identified"))
		return
	}

	var req identifyRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.sendFailure(client, "invalid identify data")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if req.ProfileID == "" {
		h.create(ctx, client, req.Nickname)
		return
	}

	p, err := h.store.FindByID(ctx, req.ProfileID)
	if err != nil {
		slog.Error("failed to find profile", "error", err)
		h.sendFailure(client, "internal error")
		return
	}
	if p == nil {
		h.sendFailure(client, "profile not found")
		return
	}

	if req.Nickname != "" {
		if n := profile.NormalizeNickname(req.Nickname); n != p.Nickname {
			if err := h.store.UpdateNickname(ctx, p.ID, n); err != nil {
				slog.Warn("failed to update nickname", "profile", p.ID, "error", err)
			} else {
				p.Nickname = n
			}
		}
	}
	_ = h.store.UpdateLastPlayed(ctx, p.ID)
	h.identifyClient(client, p, false)
}

func (h *IdentifyHandler) create(ctx context.Context, client *ws.Client, nickname string) {
	p := profile.NewProfile(nickname)
	if err := h.store.Create(ctx, p); err != nil {
		slog.Error("failed to create profile", "error", err)
		h.sendFailure(client, "internal error")
		return
	}
	slog.Info("new profile created", "profile", p.ID, "nickname", p.Nickname)
	h.identifyClient(client, p, true)
}

func (h *IdentifyHandler) identifyClient(client *ws.Client, p *profile.Profile, created bool) {
	client.ProfileID = p.ID
	client.Nickname = p.Nickname

	resp, _ := ws.NewMessage(ws.TypeIdentifyResult, identifySuccessResponse{
		Success:   true,
		ProfileID: p.ID,
		Nickname:  p.Nickname,
		Karma:     p.Karma,
		Created:   created,
	})
	client.SendMessage(resp)

	slog.Info("client identified", "client", client.ID, "profile", p.ID)
}

func (h *IdentifyHandler) sendFailure(client *ws.Client, errMsg string) {
	resp, _ := ws.NewMessage(ws.TypeIdentifyResult, identifyFailureResponse{
		Success: false,
		Error:   errMsg,
	})
	client.SendMessage(resp)
}

// StartIdentifyTimeout closes the connection if the client doesn't identify in time.
func (h *IdentifyHandler) StartIdentifyTimeout(client *ws.Client) {
	time.AfterFunc(identifyTimeout, func() {
		if !client.Identified() {
			slog.Info("identify timeout, closing connection", "client", client.ID)
			client.SendMessage(ws.NewErrorMessage("identify timeout"))
			client.Conn.Close()
		}
	})
}
