package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"

	"seascape.ai/internal/sim/catalog"
	"seascape.ai/internal/sim/climate"
	"seascape.ai/internal/sim/clock"
	"seascape.ai/internal/sim/sched"
)

// burnin drives the scheduler through a long headless run on a fake clock
// and checks the pacing invariants hold over many simulated hours.

type simConfig struct {
	Hours      float64
	FPS        int
	Seed       int64
	EventsPath string
	Verbose    bool
}

type simStats struct {
	TotalFrames int
	Activations int
	Counts      map[string]int
	RareTotal   int

	CooldownViolations        int
	MinRuntimeViolations      int
	RareIntervalViolations    int
	AmbientIntervalViolations int

	AverageInterval float64
}

func (s simStats) violations() int {
	return s.CooldownViolations + s.MinRuntimeViolations +
		s.RareIntervalViolations + s.AmbientIntervalViolations
}

func main() {
	var (
		hours  = flag.Float64("hours", 8, "simulated hours")
		fps    = flag.Int("fps", 20, "fixed tick rate")
		seed   = flag.Int64("seed", 1337, "rng seed")
		events = flag.String("events", "./configs/events.json", "event catalogue path")
		debug  = flag.Bool("v", false, "log each activation")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[burnin] ", log.LstdFlags)

	stats, err := runSimulation(simConfig{
		Hours:      *hours,
		FPS:        *fps,
		Seed:       *seed,
		EventsPath: *events,
		Verbose:    *debug,
	}, logger)
	if err != nil {
		logger.Fatalf("simulation: %v", err)
	}

	printReport(*hours, stats)
	if stats.violations() > 0 {
		os.Exit(1)
	}
}

func runSimulation(cfg simConfig, logger *log.Logger) (simStats, error) {
	cat, err := catalog.Load(cfg.EventsPath)
	if err != nil {
		return simStats{}, err
	}
	for _, w := range cat.Warnings {
		logger.Printf("catalogue warning: %s", w)
	}

	dt := 1.0 / float64(cfg.FPS)
	totalFrames := int(cfg.Hours * 3600 * float64(cfg.FPS))

	// Virtual clock: the timer reads whatever the loop has advanced to.
	now := 0.0
	timer := clock.NewSessionTimer(func() float64 { return now })

	mgr := sched.New(cat, rand.New(rand.NewSource(cfg.Seed)), timer, nil)
	day := climate.NewDayCycle(climate.DefaultDayLengthSeconds)
	weather := climate.NewWeatherSystem(rand.New(rand.NewSource(cfg.Seed + 1)))

	stats := simStats{TotalFrames: totalFrames, Counts: map[string]int{}}

	lastByEvent := map[string]float64{}
	var prevTrigger, prevRare, prevAmbient float64
	var sawTrigger, sawRare, sawAmbient bool
	var intervalSum float64
	var intervalN int

	const eps = 1e-9

	for frame := 0; frame < totalFrames; frame++ {
		now += dt
		timer.Tick()

		weather.Update(timer.SessionTime)
		env := sched.Environment{
			TimeOfDay: day.TimeOfDay(timer.SessionTime),
			Weather:   weather.Current(timer.SessionTime),
		}

		_, wasActive := mgr.ActiveEvent()
		mgr.Update(timer.SessionTime, env)
		ev, isActive := mgr.ActiveEvent()

		if !isActive || wasActive {
			continue
		}

		// A fresh activation this frame.
		t := timer.SessionTime
		stats.Activations++
		stats.Counts[ev.Name]++
		if ev.Rare() {
			stats.RareTotal++
		}

		if t+eps < ev.MinRuntime {
			stats.MinRuntimeViolations++
		}
		if last, ok := lastByEvent[ev.Name]; ok && t-last+eps < ev.Cooldown {
			stats.CooldownViolations++
		}
		lastByEvent[ev.Name] = t

		if ev.Rare() {
			if sawRare && t-prevRare+eps < cat.Scheduler.RareMinInterval {
				stats.RareIntervalViolations++
			}
			prevRare, sawRare = t, true
		} else {
			if sawAmbient && t-prevAmbient+eps < cat.Scheduler.AmbientMinInterval {
				stats.AmbientIntervalViolations++
			}
			prevAmbient, sawAmbient = t, true
		}

		if sawTrigger {
			intervalSum += t - prevTrigger
			intervalN++
		}
		prevTrigger, sawTrigger = t, true

		if cfg.Verbose {
			logger.Printf("frame=%d t=%.3f triggered=%s duration=%.1f", frame, t, ev.Name, ev.Duration)
		}
	}

	if intervalN > 0 {
		stats.AverageInterval = intervalSum / float64(intervalN)
	}
	return stats, nil
}

func printReport(hours float64, s simStats) {
	fmt.Println("=== Burn-In Simulation Report ===")
	fmt.Printf("Simulated hours: %.2f\n", hours)
	fmt.Printf("Frames processed: %d\n", s.TotalFrames)
	fmt.Printf("Total activations: %d (rare: %d)\n", s.Activations, s.RareTotal)

	fmt.Println("Event distribution:")
	names := make([]string, 0, len(s.Counts))
	for name := range s.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-20s %d\n", name, s.Counts[name])
	}

	if s.AverageInterval > 0 {
		fmt.Printf("Average interval between activations: %.3fs\n", s.AverageInterval)
	}
	fmt.Printf("Violations: cooldown=%d min_runtime=%d rare_interval=%d ambient_interval=%d\n",
		s.CooldownViolations, s.MinRuntimeViolations,
		s.RareIntervalViolations, s.AmbientIntervalViolations)
}
