package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"seascape.ai/internal/persistence/history"
	"seascape.ai/internal/persistence/tracelog"
	"seascape.ai/internal/protocol"
	"seascape.ai/internal/sim/catalog"
	"seascape.ai/internal/sim/climate"
	"seascape.ai/internal/sim/clock"
	"seascape.ai/internal/sim/sched"
	"seascape.ai/internal/sim/tuning"
	"seascape.ai/internal/transport/observer"
)

func main() {
	var (
		addr         = flag.String("addr", "127.0.0.1:8140", "http listen address")
		eventsPath   = flag.String("events", "./configs/events.json", "event catalogue path")
		tuningPath   = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		seed         = flag.Int64("seed", 0, "scheduler seed (0 = derive from wall clock)")
		disableDB    = flag.Bool("disable_db", false, "disable the activation history index")
		disableTrace = flag.Bool("disable_trace", false, "disable the arbitration trace log")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[scened] ", log.LstdFlags|log.Lmicroseconds)

	cat, err := catalog.Load(*eventsPath)
	if err != nil {
		logger.Fatalf("load catalogue: %v", err)
	}
	for _, w := range cat.Warnings {
		logger.Printf("catalogue warning: %s", w)
	}
	if len(cat.Events) == 0 {
		logger.Printf("catalogue has no valid events; the scene will stay idle")
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Tuning{}.Normalized()
		logger.Printf("no tuning file at %s, using defaults", *tuningPath)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	logger.Printf("seed=%d tick_rate=%dhz events=%d digest=%s",
		*seed, tune.TickRateHz, len(cat.Events), cat.Digest[:12])

	schedRNG := rand.New(rand.NewSource(*seed))
	weatherRNG := rand.New(rand.NewSource(*seed + 1))

	var traceSink sched.TraceSink
	if !*disableTrace {
		tw := tracelog.NewWriter(filepath.Join(*dataDir, "trace"), "trace")
		defer tw.Close()
		traceSink = tw
	}

	var db *history.DB
	if !*disableDB {
		db, err = history.Open(filepath.Join(*dataDir, "history.db"))
		if err != nil {
			logger.Fatalf("open history db: %v", err)
		}
		defer db.Close()
	}

	timer := clock.NewSessionTimer(clock.Monotonic())
	mgr := sched.New(cat, schedRNG, timer, traceSink)
	day := climate.NewDayCycle(tune.DayLengthSeconds)
	weather := climate.NewTunedWeatherSystem(weatherRNG,
		tune.Weather.MinTransitionSeconds, tune.Weather.MaxTransitionSeconds,
		tune.Weather.MinHoldSeconds, tune.Weather.MaxHoldSeconds)

	boot := protocol.BootstrapResponse{
		ProtocolVersion: protocol.Version,
		Seed:            *seed,
		TickRateHz:      tune.TickRateHz,
		DayLengthSecs:   tune.DayLengthSeconds,
		CatalogDigest:   cat.Digest,
	}
	for _, ev := range cat.Events {
		boot.Events = append(boot.Events, protocol.EventSummary{
			Name:     ev.Name,
			Category: ev.Type,
			Weight:   ev.Weight,
			RareTier: ev.RareTier,
		})
	}

	obs := observer.NewServer(boot, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observer/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", obs.WSHandler())
	mux.HandleFunc("/v1/stats", statsHandler(db))
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})

	server := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Printf("listening on %s", *addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runLoop(ctx, loopDeps{
		logger:  logger,
		tick:    time.Second / time.Duration(tune.TickRateHz),
		timer:   timer,
		mgr:     mgr,
		day:     day,
		weather: weather,
		obs:     obs,
		db:      db,
		trace:   traceSink,
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Printf("bye")
}

type loopDeps struct {
	logger  *log.Logger
	tick    time.Duration
	timer   *clock.SessionTimer
	mgr     *sched.Manager
	day     climate.DayCycle
	weather *climate.WeatherSystem
	obs     *observer.Server
	db      *history.DB
	trace   sched.TraceSink
}

func runLoop(ctx context.Context, d loopDeps) {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	var tickN uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.timer.Tick()
		now := d.timer.SessionTime
		d.weather.Update(now)
		env := sched.Environment{
			TimeOfDay: d.day.TimeOfDay(now),
			Weather:   d.weather.Current(now),
		}

		_, wasActive := d.mgr.ActiveEvent()
		d.mgr.Update(now, env)

		if ev, ok := d.mgr.ActiveEvent(); ok && !wasActive {
			d.logger.Printf("t=%.2f activated %s (%s, %.1fs)", now, ev.Name, ev.Type, ev.Duration)
			if d.db != nil {
				d.db.RecordActivation(history.Activation{
					SessionTime: now,
					Name:        ev.Name,
					Category:    ev.Type,
					RareTier:    ev.RareTier,
					Duration:    ev.Duration,
				})
			}
			if tw, ok := d.trace.(*tracelog.Writer); ok {
				_ = tw.WriteActivation(tracelog.ActivationRecord{
					SessionTime: now,
					Name:        ev.Name,
					Category:    ev.Type,
					RareTier:    ev.RareTier,
					Duration:    ev.Duration,
				})
			}
		}

		frame, err := json.Marshal(sceneFrame(tickN, now, env, d))
		if err == nil {
			d.obs.Broadcast(frame)
		}
		tickN++
	}
}

func sceneFrame(tick uint64, now float64, env sched.Environment, d loopDeps) protocol.SceneMsg {
	msg := protocol.SceneMsg{
		Type:            protocol.TypeScene,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		SessionTime:     now,
		TimeOfDay:       env.TimeOfDay,
		Weather:         env.Weather,
		LightOverlay:    d.day.LightOverlay(now),
		WeatherTint:     d.weather.OverlayTint(now),
	}
	ev, ok := d.mgr.ActiveEvent()
	if !ok {
		return msg
	}
	start, end, _ := d.mgr.ActiveWindow()
	progress := 0.0
	if end > start {
		progress = (now - start) / (end - start)
		if progress > 1 {
			progress = 1
		}
	}
	active := &protocol.ActiveEvent{
		Name:     ev.Name,
		Category: ev.Type,
		Color:    ev.Color,
		Start:    start,
		End:      end,
		Progress: progress,
	}
	if phase, ok := d.mgr.CurrentPhase(now); ok {
		active.Phase = phase.Type
	}
	if rs, ok := d.mgr.RenderParams(); ok {
		active.Render = protocol.RenderHint{
			DriftPhase:   rs.DriftPhase,
			BobAmplitude: rs.BobAmplitude,
			Shimmer:      rs.Shimmer,
		}
	}
	msg.Active = active
	return msg
}

func statsHandler(db *history.DB) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if db == nil {
			http.Error(rw, "history index disabled", http.StatusServiceUnavailable)
			return
		}
		db.Sync()
		total, err := db.TotalActivations()
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		counts, err := db.EventCounts()
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"total_activations": total,
			"event_counts":      counts,
		})
	}
}
