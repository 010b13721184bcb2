package handler

import (
	"encoding/json"
	"log/slog"

	"github.com/ugaemi/fragmentia-server/internal/session"
	"github.com/ugaemi/fragmentia-server/internal/store"
	"github.com/ugaemi/fragmentia-server/internal/ws"
)

// Router dispatches incoming messages to the appropriate handler.
type Router struct {
	identify *IdentifyHandler
	sessions *SessionHandler
	gameplay *GameplayHandler
}

// NewRouter creates a new message router.
func NewRouter(sm *session.Manager, profiles store.ProfileStore) *Router {
	return &Router{
		identify: NewIdentifyHandler(profiles),
		sessions: NewSessionHandler(sm, profiles),
		gameplay: NewGameplayHandler(sm),
	}
}

// HandleMessage parses and routes an incoming client message.
func (r *Router) HandleMessage(cm *ws.ClientMessage) {
	var msg ws.Message
	if err := json.Unmarshal(cm.Data, &msg); err != nil {
		slog.Warn("invalid message format", "client", cm.Client.ID, "error", err)
		cm.Client.SendMessage(ws.NewErrorMessage("invalid message format"))
		return
	}

	// Identify is always allowed
	if msg.Type == ws.TypeIdentify {
		r.identify.HandleIdentify(cm.Client, msg)
		return
	}

	if !cm.Client.Identified() {
		cm.Client.SendMessage(ws.NewErrorMessage("identify required"))
		return
	}

	switch msg.Type {
	// Session lifecycle
	case ws.TypeCreateSession:
		r.sessions.HandleCreate(cm.Client, msg)
	case ws.TypeJoinSession:
		r.sessions.HandleJoin(cm.Client, msg)
	case ws.TypeLeaveSession:
		r.sessions.HandleLeave(cm.Client, msg)

	// Gameplay, pilot only
	case ws.TypePlayerMove:
		r.gameplay.HandlePlayerMove(cm.Client, msg)
	case ws.TypeAddScore:
		r.gameplay.HandleAddScore(cm.Client, msg)
	case ws.TypeChangeLevel:
		r.gameplay.HandleChangeLevel(cm.Client, msg)
	case ws.TypeStealthKill:
		r.gameplay.HandleStealthKill(cm.Client, msg)
	case ws.TypeHitGuard:
		r.gameplay.HandleHitGuard(cm.Client, msg)
	case ws.TypeCompleteObjective:
		r.gameplay.HandleCompleteObjective(cm.Client, msg)
	case ws.TypeTriggerChoice:
		r.gameplay.HandleTriggerChoice(cm.Client, msg)
	case ws.TypeResolveChoice:
		r.gameplay.HandleResolveChoice(cm.Client, msg)
	case ws.TypeSetFlag:
		r.gameplay.HandleSetFlag(cm.Client, msg)
	case ws.TypeIntelPickup:
		r.gameplay.HandleIntelPickup(cm.Client, msg)

	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", cm.Client.ID)
		cm.Client.SendMessage(ws.NewErrorMessage("unknown message type: " + msg.Type))
	}
}

// HandleDisconnect handles client disconnection.
func (r *Router) HandleDisconnect(client *ws.Client) {
	r.sessions.HandleDisconnect(client)
}

// StartIdentifyTimeout starts the identify timeout for a new client.
func (r *Router) StartIdentifyTimeout(client *ws.Client) {
	r.identify.StartIdentifyTimeout(client)
}
