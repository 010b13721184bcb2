package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ugaemi/fragmentia-server/internal/cache"
	"github.com/ugaemi/fragmentia-server/internal/mission"
	"github.com/ugaemi/fragmentia-server/internal/profile"
	"github.com/ugaemi/fragmentia-server/internal/stealth"
	"github.com/ugaemi/fragmentia-server/internal/ws"
)

const (
	MaxClients = 8
	StartLevel = 1

	StealthKillKarma = -10
	StealthKillScore = 500
	GuardKillKarma   = -10

	DefaultTickInterval = time.Second / 30
	snapshotInterval    = 1.0 // seconds
	recordTimeout       = 3 * time.Second
)

// ProfileRecorder persists what a session owes a profile. store.ProfileStore
// satisfies it.
type ProfileRecorder interface {
	AddKarma(ctx context.Context, id string, delta int, reason string) (int, error)
	RecordProgress(ctx context.Context, id string, pr profile.Progress) error
}

// Options configures every session a Manager creates.
type Options struct {
	Levels       stealth.LevelSet
	Stages       []mission.StageDef
	Recorder     ProfileRecorder     // nil keeps karma local to the session
	Cache        cache.SnapshotCache // nil disables snapshots
	TickInterval time.Duration
}

// Session is one running mission: a stealth system and a mission manager
// ticked together, with the pilot's inputs applied between frames and
// state fanned out to every connected client.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	PilotID   string    `json:"pilot_id"`
	ProfileID string    `json:"profile_id"`

	stealth *stealth.System
	mission *mission.Manager

	x, y      float64
	score     int
	karma     int
	level     int
	hadGuards bool

	recordedStage    int
	recordedComplete bool
	snapshotTimer    float64

	// Client mapping: client ID -> ws client
	clients map[string]*ws.Client

	recorder     ProfileRecorder
	cache        cache.SnapshotCache
	tickInterval time.Duration

	running bool
	stopCh  chan struct{}

	mu sync.RWMutex
}

// New creates a session positioned at StartLevel.
func New(code string, opts Options) *Session {
	interval := opts.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	s := &Session{
		ID:            uuid.New(),
		Code:          code,
		stealth:       stealth.NewSystem(opts.Levels),
		mission:       mission.NewManager(opts.Stages),
		recordedStage: -1,
		clients:       make(map[string]*ws.Client),
		recorder:      opts.Recorder,
		cache:         opts.Cache,
		tickInterval:  interval,
	}
	s.setupLevel(StartLevel)
	return s
}

type karmaDelta struct {
	delta  int
	reason string
}

// effects collects the side effects of a locked section so they can be
// applied after the lock is released.
type effects struct {
	profileID string
	messages  []ws.Message
	karma     []karmaDelta
	progress  *profile.Progress
	snapshot  []byte
	published [][]byte
}

type eventPayload struct {
	Kind  string `json:"kind"`
	Event any    `json:"event"`
}

// State is the JSON view of a session broadcast every frame.
type State struct {
	ID      string           `json:"id"`
	Code    string           `json:"code"`
	Level   int              `json:"level"`
	Score   int              `json:"score"`
	Karma   int              `json:"karma"`
	X       float64          `json:"x"`
	Y       float64          `json:"y"`
	Clients int              `json:"clients"`
	Stealth stealth.Snapshot `json:"stealth"`
	Mission mission.Snapshot `json:"mission"`
}

// AddClient attaches a client. The first client becomes the pilot and its
// profile receives the session's karma. Returns false if the session is full.
func (s *Session) AddClient(c *ws.Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.clients) >= MaxClients {
		return false
	}
	s.clients[c.ID] = c
	if s.PilotID == "" {
		s.PilotID = c.ID
		s.ProfileID = c.ProfileID
	}
	return true
}

// RemoveClient detaches a client. If the pilot leaves, control passes to
// another connected client.
func (s *Session) RemoveClient(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.clients, clientID)
	if s.PilotID != clientID {
		return
	}
	s.PilotID, s.ProfileID = "", ""
	for id, c := range s.clients {
		s.PilotID, s.ProfileID = id, c.ProfileID
		break
	}
}

func (s *Session) HasClient(clientID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.clients[clientID]
	return ok
}

// Pilot returns the controlling client and its profile.
func (s *Session) Pilot() (clientID, profileID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.PilotID, s.ProfileID
}

// ClientIDs lists the attached clients.
func (s *Session) ClientIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	return ids
}

func (s *Session) IsPilot(clientID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.PilotID == clientID
}

func (s *Session) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// IsEmpty returns true if no client is attached.
func (s *Session) IsEmpty() bool {
	return s.ClientCount() == 0
}

// SetKarma seeds the displayed karma total, usually from the pilot's profile.
func (s *Session) SetKarma(total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.karma = total
}

// BroadcastMessage sends a message to every client in the session.
func (s *Session) BroadcastMessage(msg ws.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		client.SendMessage(msg)
	}
}

// SendToClient sends a message to a specific client.
func (s *Session) SendToClient(clientID string, msg ws.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if client, ok := s.clients[clientID]; ok {
		client.SendMessage(msg)
	}
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{
		ID:      s.ID.String(),
		Code:    s.Code,
		Level:   s.level,
		Score:   s.score,
		Karma:   s.karma,
		X:       s.x,
		Y:       s.y,
		Clients: len(s.clients),
		Stealth: s.stealth.Snapshot(),
		Mission: s.mission.Snapshot(),
	}
}

// Step runs one frame of dt seconds.
func (s *Session) Step(dt float64) {
	s.mu.Lock()
	fx := s.stepLocked(dt)
	s.mu.Unlock()
	s.apply(fx)
}

func (s *Session) stepLocked(dt float64) effects {
	fx := effects{profileID: s.ProfileID}

	s.stealth.Update(dt, s.x, s.y)
	if s.hadGuards && s.stealth.ActiveGuardCount() == 0 && !s.mission.CombatCleared() {
		s.mission.SetCombatCleared(true)
	}
	s.mission.Update(dt, s.x, s.y, s.score, s.level)

	for _, ev := range s.stealth.PollEvents() {
		if k, ok := ev.(stealth.StealthKarmaEvent); ok {
			s.queueKarma(&fx, k.Delta, "stealth_streak")
		}
		s.queueEvent(&fx, ws.TypeStealthEvent, string(ev.Kind()), ev)
	}
	for _, ev := range s.mission.PollEvents() {
		switch e := ev.(type) {
		case mission.RewardEvent:
			s.score += e.Score
		case mission.AlertRaisedEvent:
			s.stealth.RaiseAlert(s.x, s.y)
		}
		s.queueEvent(&fx, ws.TypeMissionEvent, string(ev.Kind()), ev)
	}

	s.checkProgress(&fx)

	state := s.stateLocked()
	msg, _ := ws.NewMessage(ws.TypeSessionState, state)
	fx.messages = append([]ws.Message{msg}, fx.messages...)

	if s.cache != nil {
		s.snapshotTimer += dt
		if s.snapshotTimer >= snapshotInterval {
			s.snapshotTimer = 0
			fx.snapshot, _ = json.Marshal(state)
		}
	}
	return fx
}

func (s *Session) queueEvent(fx *effects, msgType, kind string, ev any) {
	msg, err := ws.NewMessage(msgType, eventPayload{Kind: kind, Event: ev})
	if err != nil {
		slog.Error("failed to encode event", "session", s.Code, "kind", kind, "error", err)
		return
	}
	fx.messages = append(fx.messages, msg)
	if s.cache != nil {
		if data, err := json.Marshal(msg); err == nil {
			fx.published = append(fx.published, data)
		}
	}
}

// queueKarma updates the local tally now; the store's total replaces it
// once the delta is recorded.
func (s *Session) queueKarma(fx *effects, delta int, reason string) {
	if delta == 0 {
		return
	}
	s.karma += delta
	fx.karma = append(fx.karma, karmaDelta{delta: delta, reason: reason})
}

func (s *Session) checkProgress(fx *effects) {
	stage := s.mission.ActiveStageID()
	complete := s.mission.MissionComplete()
	if stage == s.recordedStage && complete == s.recordedComplete {
		return
	}
	p := s.mission.Progress()
	fx.progress = &profile.Progress{
		Stage:           stage,
		SoulsSaved:      p.SoulsSaved,
		HasGun:          p.HasGun,
		IntelCollected:  p.IntelCollected,
		MissionComplete: complete && !s.recordedComplete,
	}
	s.recordedStage = stage
	s.recordedComplete = complete
}

// apply performs the effects of a locked section. It must be called
// without holding s.mu.
func (s *Session) apply(fx effects) {
	for _, msg := range fx.messages {
		s.BroadcastMessage(msg)
	}

	if fx.snapshot == nil && len(fx.published) == 0 && len(fx.karma) == 0 && fx.progress == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if s.cache != nil {
		if fx.snapshot != nil {
			if err := s.cache.Save(ctx, s.Code, fx.snapshot); err != nil {
				slog.Warn("snapshot save failed", "session", s.Code, "error", err)
			}
		}
		for _, data := range fx.published {
			if err := s.cache.Publish(ctx, s.Code, data); err != nil {
				slog.Warn("event publish failed", "session", s.Code, "error", err)
				break
			}
		}
	}

	if s.recorder == nil || fx.profileID == "" {
		return
	}
	for _, k := range fx.karma {
		total, err := s.recorder.AddKarma(ctx, fx.profileID, k.delta, k.reason)
		if err != nil {
			slog.Warn("karma not recorded", "session", s.Code, "profile", fx.profileID,
				"delta", k.delta, "reason", k.reason, "error", err)
			continue
		}
		s.mu.Lock()
		if s.ProfileID == fx.profileID {
			s.karma = total
		}
		s.mu.Unlock()
		slog.Debug("karma recorded", "session", s.Code, "profile", fx.profileID,
			"delta", k.delta, "reason", k.reason, "total", total)
	}
	if fx.progress != nil {
		if err := s.recorder.RecordProgress(ctx, fx.profileID, *fx.progress); err != nil {
			slog.Warn("progress not recorded", "session", s.Code, "profile", fx.profileID, "error", err)
		}
	}
}

// Start launches the frame loop. Calling Start on a running session does
// nothing.
func (s *Session) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	go s.loop(stop)
	slog.Info("session started", "session", s.Code, "tick", s.tickInterval)
}

// Stop halts the frame loop.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	slog.Info("session stopped", "session", s.Code)
}

func (s *Session) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Session) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	dt := s.tickInterval.Seconds()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Step(dt)
		}
	}
}
