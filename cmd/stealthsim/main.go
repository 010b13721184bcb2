// Command stealthsim runs one level headless: the player walks a straight
// line while every stealth and mission event is logged.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/ugaemi/fragmentia-server/internal/mission"
	"github.com/ugaemi/fragmentia-server/internal/profile"
	"github.com/ugaemi/fragmentia-server/internal/session"
	"github.com/ugaemi/fragmentia-server/internal/stealth"
	"github.com/ugaemi/fragmentia-server/internal/store"
	"github.com/ugaemi/fragmentia-server/internal/ws"
)

type runStats struct {
	frames     int
	detections int
	barks      int
	kills      int
	events     map[string]int
}

func main() {
	var level int
	var from, to, y, speed float64
	var seconds float64
	var fps int
	var kill bool
	var levelsFile string

	flag.IntVar(&level, "level", 16, "level index to simulate")
	flag.Float64Var(&from, "from", 100, "starting x")
	flag.Float64Var(&to, "to", 2000, "target x")
	flag.Float64Var(&y, "y", 960, "walking height")
	flag.Float64Var(&speed, "speed", 120, "walking speed in pixels per second")
	flag.Float64Var(&seconds, "seconds", 30, "simulated duration")
	flag.IntVar(&fps, "fps", 30, "frames per second")
	flag.BoolVar(&kill, "kill", false, "attempt a stealth kill every frame")
	flag.StringVar(&levelsFile, "levels", "", "level tables file (default: embedded)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if fps <= 0 || seconds <= 0 || speed < 0 {
		fmt.Println("error: -fps and -seconds must be > 0, -speed must be >= 0")
		os.Exit(2)
	}

	levels := stealth.DefaultLevels()
	if levelsFile != "" {
		var err error
		if levels, err = stealth.LoadLevelsFile(levelsFile); err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
	}

	profiles := store.NewMemoryStore()
	p := profile.NewProfile("stealthsim")
	if err := profiles.Create(context.Background(), p); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}

	s := session.New("SIMU", session.Options{
		Levels:   levels,
		Stages:   mission.DefaultStages(),
		Recorder: profiles,
	})
	observer := &ws.Client{ID: "observer", ProfileID: p.ID, Send: make(chan []byte, 4096)}
	s.AddClient(observer)
	s.ChangeLevel(level)

	fmt.Printf("=== Stealth Run ===\n")
	fmt.Printf("level=%d from=%.0f to=%.0f y=%.0f speed=%.0f seconds=%.1f fps=%d\n\n",
		level, from, to, y, speed, seconds, fps)

	stats := run(s, observer, runParams{from: from, to: to, y: y, speed: speed, seconds: seconds, fps: fps, kill: kill})

	karma := 0
	if final, err := profiles.FindByID(context.Background(), p.ID); err == nil && final != nil {
		karma = final.Karma
	}
	st := s.State()
	active := 0
	for _, g := range st.Stealth.Guards {
		if g.Active {
			active++
		}
	}

	fmt.Printf("\nframes=%d detections=%d barks=%d kills=%d\n", stats.frames, stats.detections, stats.barks, stats.kills)
	fmt.Printf("alert=%s score=%d karma=%d guards_active=%d/%d stage=%d\n",
		st.Stealth.Alert, st.Score, karma, active, len(st.Stealth.Guards), st.Mission.StageID)
	for _, kind := range slices.Sorted(maps.Keys(stats.events)) {
		fmt.Printf("  %-16s %d\n", kind, stats.events[kind])
	}
}

type runParams struct {
	from, to, y, speed, seconds float64
	fps                         int
	kill                        bool
}

func run(s *session.Session, observer *ws.Client, rp runParams) runStats {
	stats := runStats{events: make(map[string]int)}
	dt := 1.0 / float64(rp.fps)
	dir := 1.0
	if rp.to < rp.from {
		dir = -1
	}

	x := rp.from
	frames := int(rp.seconds * float64(rp.fps))
	for i := 0; i < frames; i++ {
		if (dir > 0 && x < rp.to) || (dir < 0 && x > rp.to) {
			x += dir * rp.speed * dt
		}
		s.Move(x, rp.y)
		if rp.kill {
			if res := s.StealthKill(); res.Success {
				stats.kills++
				slog.Info("stealth kill", "frame", i, "guard", res.GuardIndex, "x", res.X)
			}
		}
		s.Step(dt)
		stats.frames++
		logEvents(observer, i, &stats)
	}
	return stats
}

func logEvents(observer *ws.Client, frame int, stats *runStats) {
	for {
		select {
		case data := <-observer.Send:
			var msg ws.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type != ws.TypeStealthEvent && msg.Type != ws.TypeMissionEvent {
				continue
			}
			var ev struct {
				Kind  string          `json:"kind"`
				Event json.RawMessage `json:"event"`
			}
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				continue
			}
			stats.events[ev.Kind]++
			switch ev.Kind {
			case string(stealth.KindPlayerDetected):
				stats.detections++
			case string(stealth.KindGuardBark):
				stats.barks++
			}
			slog.Info("event", "frame", frame, "source", msg.Type, "kind", ev.Kind, "data", string(ev.Event))
		default:
			return
		}
	}
}
