package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugaemi/fragmentia-server/internal/cache"
	"github.com/ugaemi/fragmentia-server/internal/mission"
	"github.com/ugaemi/fragmentia-server/internal/profile"
	"github.com/ugaemi/fragmentia-server/internal/stealth"
	"github.com/ugaemi/fragmentia-server/internal/store"
	"github.com/ugaemi/fragmentia-server/internal/ws"
)

const frame = 1.0 / 30

const (
	hideLevel  = 1
	guardLevel = 2
)

// testLevels holds a hide spot on the start level and a single guard
// patrolling 300..700 on guardLevel.
func testLevels() stealth.LevelSet {
	return stealth.LevelSet{
		hideLevel: {HideSpots: []stealth.HideSpotConfig{{X: 100, Y: 900, W: 80, H: 100, Label: "CRATE"}}},
		guardLevel: {Guards: []stealth.GuardConfig{
			{X: 500, Y: 960, PatrolLeft: 300, PatrolRight: 700, Range: stealth.DefaultVisionRange},
		}},
	}
}

// mockClient creates a ws.Client with a buffered Send channel for testing.
func mockClient(id string) *ws.Client {
	return &ws.Client{
		ID:   id,
		Send: make(chan []byte, 1024),
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

// eventKinds lists the kinds of every event message of msgType.
func eventKinds(t *testing.T, msgs []ws.Message, msgType string) []string {
	t.Helper()
	var kinds []string
	for _, m := range msgs {
		if m.Type != msgType {
			continue
		}
		var p struct {
			Kind string `json:"kind"`
		}
		require.NoError(t, json.Unmarshal(m.Data, &p))
		kinds = append(kinds, p.Kind)
	}
	return kinds
}

// setupTestSession creates a session whose pilot is backed by a stored
// profile.
func setupTestSession(t *testing.T, opts Options) (*Session, *ws.Client, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	p := profile.NewProfile("pilot")
	require.NoError(t, st.Create(context.Background(), p))

	if opts.Levels == nil {
		opts.Levels = testLevels()
	}
	if opts.Stages == nil {
		opts.Stages = mission.DefaultStages()
	}
	opts.Recorder = st

	s := New("TEST", opts)
	c := mockClient("pilot-client")
	c.ProfileID = p.ID
	require.True(t, s.AddClient(c))
	return s, c, st
}

func storedKarma(t *testing.T, st *store.MemoryStore, id string) int {
	t.Helper()
	p, err := st.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Karma
}

func TestNew(t *testing.T) {
	s := New("ABCD", Options{})

	assert.Equal(t, "ABCD", s.Code)
	assert.NotEqual(t, uuid.Nil, s.ID)
	assert.Equal(t, DefaultTickInterval, s.tickInterval)

	st := s.State()
	assert.Equal(t, StartLevel, st.Level)
	assert.Zero(t, st.Score)
	assert.Equal(t, -1, st.Mission.StageID)
	assert.False(t, s.Running())
}

func TestSession_PilotAssignment(t *testing.T) {
	s := New("TEST", Options{})
	c1 := mockClient("c1")
	c1.ProfileID = "p1"
	c2 := mockClient("c2")
	c2.ProfileID = "p2"

	require.True(t, s.AddClient(c1))
	require.True(t, s.AddClient(c2))
	assert.True(t, s.IsPilot("c1"))
	assert.False(t, s.IsPilot("c2"))
	assert.Equal(t, "p1", s.ProfileID)

	s.RemoveClient("c2")
	assert.True(t, s.IsPilot("c1"), "spectator leaving keeps the pilot")

	require.True(t, s.AddClient(c2))
	s.RemoveClient("c1")
	assert.True(t, s.IsPilot("c2"))
	assert.Equal(t, "p2", s.ProfileID)

	s.RemoveClient("c2")
	assert.True(t, s.IsEmpty())
	assert.Empty(t, s.PilotID)
}

func TestSession_Full(t *testing.T) {
	s := New("TEST", Options{})
	for i := range MaxClients {
		require.True(t, s.AddClient(mockClient(string(rune('a'+i)))))
	}
	assert.False(t, s.AddClient(mockClient("overflow")))
	assert.Equal(t, MaxClients, s.ClientCount())
}

func TestSession_StepBroadcastsStateThenEvents(t *testing.T) {
	s, pilot, _ := setupTestSession(t, Options{})
	spectator := mockClient("spectator")
	require.True(t, s.AddClient(spectator))

	s.Step(frame)

	for _, c := range []*ws.Client{pilot, spectator} {
		msgs := drainMessages(c)
		require.NotEmpty(t, msgs)
		assert.Equal(t, ws.TypeSessionState, msgs[0].Type)

		kinds := eventKinds(t, msgs, ws.TypeMissionEvent)
		assert.Contains(t, kinds, string(mission.KindDialogue))
		assert.Contains(t, kinds, string(mission.KindObjectiveAdd))
	}

	var st State
	require.NoError(t, json.Unmarshal(drainOneState(t, s, pilot).Data, &st))
	assert.Equal(t, 0, st.Mission.StageID)
	assert.Equal(t, "TEST", st.Code)
}

func drainOneState(t *testing.T, s *Session, c *ws.Client) *ws.Message {
	t.Helper()
	s.Step(frame)
	msg := findMessageByType(drainMessages(c), ws.TypeSessionState)
	require.NotNil(t, msg)
	return msg
}

func TestSession_RewardAddsScore(t *testing.T) {
	s, _, _ := setupTestSession(t, Options{})
	s.Step(frame)
	require.Equal(t, 0, s.State().Mission.StageID)

	s.IntelPickup()
	s.Step(frame)

	assert.Equal(t, mission.IntelReward, s.State().Score)
}

func TestSession_StealthStreakCreditsProfile(t *testing.T) {
	s, pilot, st := setupTestSession(t, Options{})
	s.Move(120, 950)

	for range 16 {
		s.Step(0.5)
	}

	assert.Equal(t, 1, storedKarma(t, st, pilot.ProfileID))
	assert.Equal(t, 1, s.State().Karma)
	ledger := st.Ledger(pilot.ProfileID)
	require.Len(t, ledger, 1)
	assert.Equal(t, "stealth_streak", ledger[0].Reason)
	assert.True(t, s.State().Stealth.PlayerHidden)
}

func TestSession_ResolveChoiceCreditsProfile(t *testing.T) {
	s, pilot, st := setupTestSession(t, Options{Levels: stealth.DefaultLevels()})
	s.ChangeLevel(4)
	s.Step(frame)
	require.Equal(t, 1, s.State().Mission.StageID)

	choice, ok := s.TriggerChoice("gate_entry")
	require.True(t, ok)
	assert.Equal(t, "gate_entry", choice.ID)
	assert.True(t, s.ChoicePending())

	delta := s.ResolveChoice("gate_entry", mission.OptionB)
	assert.Equal(t, 2, delta)
	assert.False(t, s.ChoicePending())
	assert.Equal(t, 2, storedKarma(t, st, pilot.ProfileID))

	ledger := st.Ledger(pilot.ProfileID)
	require.Len(t, ledger, 1)
	assert.Equal(t, "choice:gate_entry:B", ledger[0].Reason)

	s.Step(frame)
	assert.Equal(t, mission.StealthEntryReward, s.State().Score)

	// Resolving twice pays nothing.
	assert.Zero(t, s.ResolveChoice("gate_entry", mission.OptionB))
	assert.Len(t, st.Ledger(pilot.ProfileID), 1)
}

func TestSession_RecordsStageProgress(t *testing.T) {
	s, pilot, st := setupTestSession(t, Options{Levels: stealth.DefaultLevels()})
	s.ChangeLevel(4)
	s.Step(frame)

	p, err := st.FindByID(context.Background(), pilot.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.BestStage)
	assert.Zero(t, p.MissionsCompleted)
}

func TestSession_StealthKill(t *testing.T) {
	s, pilot, st := setupTestSession(t, Options{})
	s.ChangeLevel(guardLevel)
	s.Move(450, 960)

	res := s.StealthKill()
	require.True(t, res.Success)
	assert.Equal(t, 0, res.GuardIndex)
	assert.Equal(t, StealthKillScore, s.State().Score)
	assert.Equal(t, StealthKillKarma, storedKarma(t, st, pilot.ProfileID))

	drainMessages(pilot)
	s.Step(frame)
	kinds := eventKinds(t, drainMessages(pilot), ws.TypeStealthEvent)
	assert.Equal(t, []string{string(stealth.KindStealthKill)}, kinds)

	res = s.StealthKill()
	assert.False(t, res.Success)
	assert.Equal(t, stealth.NoGuardNearby, res.Failure)
	assert.Len(t, st.Ledger(pilot.ProfileID), 1)
}

func TestSession_StealthKillFailureKeepsKarma(t *testing.T) {
	s, pilot, st := setupTestSession(t, Options{})
	s.ChangeLevel(guardLevel)
	s.Move(550, 960)

	res := s.StealthKill()
	assert.False(t, res.Success)
	assert.Equal(t, stealth.NotBehind, res.Failure)
	assert.Zero(t, s.State().Score)
	assert.Zero(t, storedKarma(t, st, pilot.ProfileID))
}

func TestSession_HitGuard(t *testing.T) {
	tests := []struct {
		name       string
		lethal     bool
		damage     int
		wantKilled bool
		wantKarma  int
		wantEvent  stealth.EventKind
	}{
		{"stun", false, 10, false, 0, stealth.KindGuardStunned},
		{"wound", true, 10, false, 0, ""},
		{"kill", true, stealth.GuardMaxHealth, true, GuardKillKarma, stealth.KindGuardKilled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, pilot, st := setupTestSession(t, Options{})
			s.ChangeLevel(guardLevel)

			assert.Equal(t, tt.wantKilled, s.HitGuard(0, tt.damage, tt.lethal))
			assert.Equal(t, tt.wantKarma, storedKarma(t, st, pilot.ProfileID))

			drainMessages(pilot)
			s.Step(frame)
			kinds := eventKinds(t, drainMessages(pilot), ws.TypeStealthEvent)
			if tt.wantEvent == "" {
				assert.Empty(t, kinds)
			} else {
				assert.Contains(t, kinds, string(tt.wantEvent))
			}
		})
	}
}

func TestSession_HitGuardOutOfRange(t *testing.T) {
	s, pilot, st := setupTestSession(t, Options{})
	s.ChangeLevel(guardLevel)

	assert.False(t, s.HitGuard(5, 100, true))
	assert.False(t, s.HitGuard(-1, 100, true))
	assert.Zero(t, storedKarma(t, st, pilot.ProfileID))
}

func TestSession_CombatClearRaisesAlert(t *testing.T) {
	stages, err := mission.LoadStages([]byte(`
- id: 0
  name: ARENA
  trigger: {level: 2, score: 0}
  exit: {condition: combat_clear, to: 1}
- id: 1
  name: AFTERMATH
  trigger: {level: 99, score: 0}
  entry_events:
    - alert_raised: {reason: "REINFORCEMENTS"}
  exit: {condition: score, score: 100000, to: -1}
`))
	require.NoError(t, err)

	s, pilot, _ := setupTestSession(t, Options{Stages: stages})
	s.ChangeLevel(guardLevel)
	s.Move(450, 960)
	s.Step(frame)
	require.Equal(t, 0, s.State().Mission.StageID)

	require.True(t, s.StealthKill().Success)
	drainMessages(pilot)
	s.Step(frame)

	assert.True(t, s.mission.CombatCleared())
	state := s.State()
	assert.Equal(t, 1, state.Mission.StageID)
	assert.Equal(t, stealth.Detected, state.Stealth.Alert)
	assert.InDelta(t, stealth.AlertCooldown, state.Stealth.AlertCooldown, 0.001)
	assert.Contains(t, eventKinds(t, drainMessages(pilot), ws.TypeMissionEvent), string(mission.KindAlertRaised))

	// The forced detection is relayed on the following frame.
	s.Step(frame)
	assert.Contains(t, eventKinds(t, drainMessages(pilot), ws.TypeStealthEvent), string(stealth.KindPlayerDetected))
}

func TestSession_ChangeLevelResetsCombatCleared(t *testing.T) {
	s := New("TEST", Options{Levels: testLevels(), Stages: mission.DefaultStages()})
	s.ChangeLevel(guardLevel)
	s.HitGuard(0, stealth.GuardMaxHealth, true)
	s.Step(frame)
	require.True(t, s.mission.CombatCleared())

	s.ChangeLevel(hideLevel)
	assert.False(t, s.mission.CombatCleared())
	s.Step(frame)
	assert.False(t, s.mission.CombatCleared(), "a level without guards never clears combat")
}

func TestSession_FlagsAndObjectives(t *testing.T) {
	s := New("TEST", Options{Levels: testLevels(), Stages: mission.DefaultStages()})
	s.Step(frame)

	assert.True(t, s.CompleteObjective("explore_junk"))
	assert.False(t, s.CompleteObjective("explore_junk"))
	assert.False(t, s.CompleteObjective("unknown"))

	s.SetFlag("area_secret_safe", true)
	assert.True(t, s.mission.AreaReached("secret_safe"))

	s.AddScore(800)
	s.Step(frame)
	assert.Equal(t, 1, s.State().Mission.StageID)
}

func TestSession_NoRecorderKeepsKarmaLocal(t *testing.T) {
	s := New("TEST", Options{Levels: testLevels(), Stages: mission.DefaultStages()})
	c := mockClient("anon")
	require.True(t, s.AddClient(c))
	s.SetKarma(7)
	s.ChangeLevel(guardLevel)
	s.Move(450, 960)

	require.True(t, s.StealthKill().Success)
	assert.Equal(t, 7+StealthKillKarma, s.State().Karma)
}

func TestSession_SnapshotsToCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(context.Background(), "redis://"+mr.Addr(), time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	s, _, _ := setupTestSession(t, Options{Cache: rc})

	sub := rc.Subscribe(context.Background(), s.Code)
	defer sub.Close()
	_, err = sub.Receive(context.Background())
	require.NoError(t, err)

	for range 3 {
		s.Step(0.25)
	}
	got, err := rc.Load(context.Background(), s.Code)
	require.NoError(t, err)
	assert.Nil(t, got, "no snapshot before a full second")

	s.Step(0.25)
	got, err = rc.Load(context.Background(), s.Code)
	require.NoError(t, err)
	require.NotNil(t, got)

	var st State
	require.NoError(t, json.Unmarshal(got, &st))
	assert.Equal(t, s.Code, st.Code)
	assert.Equal(t, s.ID.String(), st.ID)

	select {
	case msg := <-sub.Channel():
		var m ws.Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &m))
		assert.Equal(t, ws.TypeMissionEvent, m.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}

func TestSession_StartStop(t *testing.T) {
	s, pilot, _ := setupTestSession(t, Options{TickInterval: 5 * time.Millisecond})

	s.Start()
	s.Start()
	assert.True(t, s.Running())

	require.Eventually(t, func() bool {
		return findMessageByType(drainMessages(pilot), ws.TypeSessionState) != nil
	}, time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())
}

func TestSession_PilotAndClientIDs(t *testing.T) {
	s := New("TEST", Options{})
	c := mockClient("c1")
	c.ProfileID = "p1"
	require.True(t, s.AddClient(c))
	require.True(t, s.AddClient(mockClient("c2")))

	clientID, profileID := s.Pilot()
	assert.Equal(t, "c1", clientID)
	assert.Equal(t, "p1", profileID)
	assert.ElementsMatch(t, []string{"c1", "c2"}, s.ClientIDs())
}
