// trackerd is the Linux-hosted reference port of the tracker core: it
// wires the scheduler, event bus, configuration store, depth pile and the
// Argos TX/RX services into a running process, the Go counterpart of
// original_source/ports/linux/main.cpp's RamFileSystem/Scheduler/FSM
// wiring. It runs against the in-process fake radio device rather than a
// real Artic R2 transceiver, since no UART driver is in scope (SPEC_FULL.md
// §1) - the reference port exists to exercise the core under integration
// tests and as a template for a real embedded port, not to replace one.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pelagos-tag/tracker-core/cmd/trackerd/config"
	"github.com/pelagos-tag/tracker-core/internal/bus"
	"github.com/pelagos-tag/tracker-core/internal/clock"
	coreconfig "github.com/pelagos-tag/tracker-core/internal/config"
	"github.com/pelagos-tag/tracker-core/internal/depthpile"
	"github.com/pelagos-tag/tracker-core/internal/dte"
	"github.com/pelagos-tag/tracker-core/internal/logging"
	"github.com/pelagos-tag/tracker-core/internal/radio/fakeradio"
	"github.com/pelagos-tag/tracker-core/internal/sched"
	"github.com/pelagos-tag/tracker-core/internal/services/rxservice"
	"github.com/pelagos-tag/tracker-core/internal/services/txservice"
)

// staticBattery reports a fixed, healthy battery level. A real port would
// read this from the device's fuel gauge; the reference port has none.
type staticBattery struct{}

func (staticBattery) LevelPercent() int { return 100 }
func (staticBattery) Critical() bool    { return false }

func main() {
	var configFileName string
	flag.StringVar(&configFileName, "c", "", "JSON config file")
	flag.StringVar(&configFileName, "config", "", "JSON config file")
	flag.Parse()

	if configFileName == "" {
		fmt.Fprintln(os.Stderr, "missing config file: -c or --config")
		os.Exit(1)
	}

	cfg, err := config.GetConfig(configFileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.DataDirectory == "" {
		cfg.DataDirectory = "."
	}
	if err := os.MkdirAll(cfg.DataDirectory, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logDir := ""
	if cfg.LogEvents {
		logDir = cfg.LogDirectory
	}
	log := logging.New(logging.Config{Directory: logDir, Prefix: "trackerd.", Suffix: ".log"})

	jitterSeed := cfg.JitterSeed
	if jitterSeed == 0 {
		jitterSeed = time.Now().UnixNano()
	}

	run(cfg, log, jitterSeed, os.Stdin, os.Stdout)
}

// run wires up every collaborator and blocks until in is exhausted,
// pumping the scheduler between DTE commands read from in. Splitting this
// out of main lets it be exercised in integration tests with in-memory
// pipes instead of the real stdin/stdout pair.
func run(cfg *config.Config, log *slog.Logger, jitterSeed int64, in io.Reader, out io.Writer) {
	c := clock.NewSystemClock()
	sc := sched.New(c)
	eventBus := bus.New()
	store := coreconfig.New(coreconfig.NewDirFilesystem(cfg.DataDirectory), staticBattery{})
	if err := store.Init(); err != nil {
		log.Error("configuration store failed to initialise", "error", err)
		os.Exit(1)
	}

	rad := fakeradio.New()
	pile := depthpile.New(24)

	tx := txservice.New(c, sc, rad, store, pile, eventBus, logging.WithService(log, "ARGOS_TX"), jitterSeed)
	rx := rxservice.New(c, sc, rad, store, eventBus, logging.WithService(log, "ARGOS_RX"))
	tx.Init()
	rx.Init()

	dispatcher := dte.NewDispatcher(store, c)

	housekeeping := cron.New()
	housekeeping.AddFunc("*/5 * * * *", func() {
		if err := store.SaveParams(); err != nil {
			log.Error("periodic autosave failed", "error", err)
		}
	})
	housekeeping.Start()
	defer housekeeping.Stop()

	argosCfg := store.GetArgosConfiguration()
	log.Info(logging.FormatStartupBanner(argosCfg.DecID, argosCfg.HexID))

	done := make(chan struct{})
	go pumpCommands(dispatcher, in, out, done)

	runSchedulerUntil(sc, c, done)
}

// pumpCommands reads whitespace-separated "CMD arg,arg" lines from in,
// dispatches each through d, and writes the reply to out, mirroring
// apps/rtcmlogger's readAndWrite stdin/stdout pump but framed as line
// commands instead of raw RTCM bytes.
func pumpCommands(d *dte.Dispatcher, in io.Reader, out io.Writer, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		name := fields[0]
		var args []string
		if len(fields) == 2 && fields[1] != "" {
			args = strings.Split(fields[1], ",")
		}
		fmt.Fprint(out, d.Dispatch(name, args))
	}
}

// runSchedulerUntil dispatches due scheduler tasks until done is closed,
// sleeping until the next deadline (or a short poll interval if nothing is
// queued) between passes.
func runSchedulerUntil(sc *sched.Scheduler, c clock.Clock, done <-chan struct{}) {
	const idlePoll = 200 * time.Millisecond
	for {
		select {
		case <-done:
			return
		default:
		}

		sc.RunDue()

		wait := idlePoll
		if deadline, ok := sc.NextDeadlineMS(); ok {
			now := c.Millis()
			if deadline > now {
				if d := time.Duration(deadline-now) * time.Millisecond; d < wait {
					wait = d
				}
			} else {
				wait = 0
			}
		}
		if wait > 0 {
			time.Sleep(wait)
		}
	}
}
