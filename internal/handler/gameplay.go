package handler

import (
	"encoding/json"
	"log/slog"
	"math"

	"github.com/ugaemi/fragmentia-server/internal/mission"
	"github.com/ugaemi/fragmentia-server/internal/session"
	"github.com/ugaemi/fragmentia-server/internal/ws"
)

// Bounds on pilot input that no level legitimately exceeds.
const (
	maxCoordinate = 100000.0
	maxScoreDelta = 100000
	maxDamage     = 1000
)

// GameplayHandler handles pilot inputs.
type GameplayHandler struct {
	sm *session.Manager
}

// NewGameplayHandler creates a new gameplay handler.
func NewGameplayHandler(sm *session.Manager) *GameplayHandler {
	return &GameplayHandler{sm: sm}
}

// pilotSession returns the session the client pilots, replying with an
// error and returning nil otherwise.
func (h *GameplayHandler) pilotSession(client *ws.Client) *session.Session {
	s := h.sm.FindByClientID(client.ID)
	if s == nil {
		client.SendMessage(ws.NewErrorMessage("not in a session"))
		return nil
	}
	if !s.IsPilot(client.ID) {
		client.SendMessage(ws.NewErrorMessage("only the pilot can do that"))
		return nil
	}
	return s
}

type playerMoveRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func validCoordinate(v float64) bool {
	return !math.IsNaN(v) && math.Abs(v) <= maxCoordinate
}

// HandlePlayerMove handles player movement updates.
func (h *GameplayHandler) HandlePlayerMove(client *ws.Client, msg ws.Message) {
	var req playerMoveRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		client.SendMessage(ws.NewErrorMessage("invalid move data"))
		return
	}
	if !validCoordinate(req.X) || !validCoordinate(req.Y) {
		client.SendMessage(ws.NewErrorMessage("position out of bounds"))
		return
	}

	s := h.pilotSession(client)
	if s == nil {
		return
	}
	s.Move(req.X, req.Y)
}

type addScoreRequest struct {
	Points int `json:"points"`
}

// HandleAddScore adds points earned by the client-side simulation.
func (h *GameplayHandler) HandleAddScore(client *ws.Client, msg ws.Message) {
	var req addScoreRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Points <= 0 || req.Points > maxScoreDelta {
		client.SendMessage(ws.NewErrorMessage("invalid score"))
		return
	}

	s := h.pilotSession(client)
	if s == nil {
		return
	}
	s.AddScore(req.Points)
}

type changeLevelRequest struct {
	Level int `json:"level"`
}

// HandleChangeLevel rebuilds the session's stealth layout.
func (h *GameplayHandler) HandleChangeLevel(client *ws.Client, msg ws.Message) {
	var req changeLevelRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Level < 0 {
		client.SendMessage(ws.NewErrorMessage("invalid level"))
		return
	}

	s := h.pilotSession(client)
	if s == nil {
		return
	}
	s.ChangeLevel(req.Level)
	slog.Info("level changed", "session", s.Code, "level", req.Level)
}

// HandleStealthKill attempts a takedown and answers with the outcome.
func (h *GameplayHandler) HandleStealthKill(client *ws.Client, _ ws.Message) {
	s := h.pilotSession(client)
	if s == nil {
		return
	}
	res := s.StealthKill()
	resp, _ := ws.NewMessage(ws.TypeKillResult, res)
	client.SendMessage(resp)
}

type hitGuardRequest struct {
	GuardIndex int  `json:"guard_idx"`
	Damage     int  `json:"damage"`
	Lethal     bool `json:"lethal"`
}

type hitGuardResponse struct {
	GuardIndex int  `json:"guard_idx"`
	Killed     bool `json:"killed"`
}

// HandleHitGuard applies a melee or ranged hit.
func (h *GameplayHandler) HandleHitGuard(client *ws.Client, msg ws.Message) {
	var req hitGuardRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Damage < 0 || req.Damage > maxDamage {
		client.SendMessage(ws.NewErrorMessage("invalid hit"))
		return
	}

	s := h.pilotSession(client)
	if s == nil {
		return
	}
	killed := s.HitGuard(req.GuardIndex, req.Damage, req.Lethal)
	resp, _ := ws.NewMessage(ws.TypeHitResult, hitGuardResponse{GuardIndex: req.GuardIndex, Killed: killed})
	client.SendMessage(resp)
}

type objectiveRequest struct {
	ID string `json:"id"`
}

type objectiveResponse struct {
	ID        string `json:"id"`
	Completed bool   `json:"completed"`
}

// HandleCompleteObjective marks an objective done.
func (h *GameplayHandler) HandleCompleteObjective(client *ws.Client, msg ws.Message) {
	var req objectiveRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.ID == "" {
		client.SendMessage(ws.NewErrorMessage("objective id is required"))
		return
	}

	s := h.pilotSession(client)
	if s == nil {
		return
	}
	done := s.CompleteObjective(req.ID)
	resp, _ := ws.NewMessage(ws.TypeObjectiveResult, objectiveResponse{ID: req.ID, Completed: done})
	client.SendMessage(resp)
}

type choiceRequest struct {
	ID     string `json:"id"`
	Option string `json:"option,omitempty"`
}

type choiceResponse struct {
	ID      string               `json:"id"`
	Pending bool                 `json:"pending"`
	Choice  *mission.KarmaChoice `json:"choice,omitempty"`
	Option  mission.Option       `json:"option,omitempty"`
	Karma   int                  `json:"karma"`
}

// HandleTriggerChoice surfaces a karma choice.
func (h *GameplayHandler) HandleTriggerChoice(client *ws.Client, msg ws.Message) {
	var req choiceRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.ID == "" {
		client.SendMessage(ws.NewErrorMessage("choice id is required"))
		return
	}

	s := h.pilotSession(client)
	if s == nil {
		return
	}
	c, ok := s.TriggerChoice(req.ID)
	if !ok {
		client.SendMessage(ws.NewErrorMessage("choice not available: " + req.ID))
		return
	}
	resp, _ := ws.NewMessage(ws.TypeChoiceResult, choiceResponse{ID: c.ID, Pending: true, Choice: &c})
	client.SendMessage(resp)
}

// HandleResolveChoice picks an option of the pending choice.
func (h *GameplayHandler) HandleResolveChoice(client *ws.Client, msg ws.Message) {
	var req choiceRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.ID == "" {
		client.SendMessage(ws.NewErrorMessage("choice id is required"))
		return
	}
	opt, err := mission.ParseOption(req.Option)
	if err != nil {
		client.SendMessage(ws.NewErrorMessage(err.Error()))
		return
	}

	s := h.pilotSession(client)
	if s == nil {
		return
	}
	delta := s.ResolveChoice(req.ID, opt)
	slog.Info("choice resolved", "session", s.Code, "choice", req.ID, "option", opt, "karma", delta)

	resp, _ := ws.NewMessage(ws.TypeChoiceResult, choiceResponse{
		ID:      req.ID,
		Pending: s.ChoicePending(),
		Option:  opt,
		Karma:   delta,
	})
	client.SendMessage(resp)
}

type setFlagRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// HandleSetFlag stores a host signal on the mission.
func (h *GameplayHandler) HandleSetFlag(client *ws.Client, msg ws.Message) {
	var req setFlagRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.Key == "" {
		client.SendMessage(ws.NewErrorMessage("flag key is required"))
		return
	}

	s := h.pilotSession(client)
	if s == nil {
		return
	}
	s.SetFlag(req.Key, req.Value)
}

// HandleIntelPickup records the intel tablet.
func (h *GameplayHandler) HandleIntelPickup(client *ws.Client, _ ws.Message) {
	s := h.pilotSession(client)
	if s == nil {
		return
	}
	s.IntelPickup()
}
