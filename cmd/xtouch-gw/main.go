// Command xtouch-gw is the Behringer X-Touch gateway: it loads a
// config document, opens the surface's MIDI ports and each configured
// app bridge, and runs the Router until interrupted.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver

	"github.com/spf13/cobra"

	"github.com/jdginn/xtouch-gw/appkey"
	"github.com/jdginn/xtouch-gw/config"
	"github.com/jdginn/xtouch-gw/drivers/midibridge"
	"github.com/jdginn/xtouch-gw/drivers/obs"
	"github.com/jdginn/xtouch-gw/fader"
	"github.com/jdginn/xtouch-gw/logging"
	"github.com/jdginn/xtouch-gw/midi"
	"github.com/jdginn/xtouch-gw/page"
	"github.com/jdginn/xtouch-gw/persistence"
	"github.com/jdginn/xtouch-gw/router"
	"github.com/jdginn/xtouch-gw/sniffer"
	"github.com/jdginn/xtouch-gw/state"
)

const (
	exitOK          = 0
	exitConfigError = 1
	exitMidiBind    = 2
)

var log = logging.Get(logging.APP)

type flags struct {
	configPath         string
	logLevel           string
	sniff              bool
	webSniff           bool
	webPort            int
	gamepadDiagnostics bool
}

func main() {
	f := &flags{}
	root := &cobra.Command{
		Use:   "xtouch-gw",
		Short: "Behringer X-Touch gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}
	root.Flags().StringVar(&f.configPath, "config", "config.yaml", "path to the config document")
	root.Flags().StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.Flags().BoolVar(&f.sniff, "sniffer", false, "run the CLI MIDI sniffer only")
	root.Flags().BoolVar(&f.webSniff, "web-sniffer", false, "run the web MIDI sniffer only")
	root.Flags().IntVar(&f.webPort, "web-port", 8383, "port for --web-sniffer")
	root.Flags().BoolVar(&f.gamepadDiagnostics, "gamepad-diagnostics", false, "log a gamepad diagnostics notice and exit (no visualiser is wired)")

	if err := root.Execute(); err != nil {
		os.Exit(exitFromError(err))
	}
}

// exitFromError maps a run error to the process exit code spec.md §6
// defines: 1 for config errors, 2 for MIDI-bind errors, 1 otherwise.
func exitFromError(err error) int {
	switch err.(type) {
	case *configError:
		return exitConfigError
	case *midiBindError:
		return exitMidiBind
	default:
		return exitConfigError
	}
}

type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }

type midiBindError struct{ err error }

func (e *midiBindError) Error() string { return e.err.Error() }

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(f *flags) error {
	logging.SetGlobalLevel(parseLogLevel(f.logLevel))

	doc, err := config.Load(f.configPath)
	if err != nil {
		return &configError{err}
	}

	if f.gamepadDiagnostics {
		return runGamepadDiagnostics()
	}

	defer gomidi.CloseDriver()
	in, out, err := resolvePort(doc.Midi.InputPort, doc.Midi.OutputPort)
	if err != nil {
		return &midiBindError{err}
	}

	if f.sniff {
		return runCLISniffer(in)
	}
	if f.webSniff {
		return runWebSniffer(in, f.webPort)
	}

	return runGateway(doc, in, out)
}

// resolvePort opens the surface's in/out ports by substring name match,
// mirroring the teacher's fallback-chain port resolution but generalised
// to config-supplied names instead of hardcoded constants.
func resolvePort(inName, outName string) (drivers.In, drivers.Out, error) {
	in, err := gomidi.FindInPort(inName)
	if err != nil {
		return nil, nil, fmt.Errorf("midi in port %q: %w", inName, err)
	}
	out, err := gomidi.FindOutPort(outName)
	if err != nil {
		return nil, nil, fmt.Errorf("midi out port %q: %w", outName, err)
	}
	return in, out, nil
}

func runCLISniffer(in drivers.In) error {
	cli := sniffer.NewCLI(os.Stdout)
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		if m, ok := midi.Parse(msg); ok {
			cli.Observe("xtouch-in", m, time.Now())
		}
	})
	if err != nil {
		return &midiBindError{err}
	}
	defer stop()
	waitForSignal()
	return nil
}

func runWebSniffer(in drivers.In, port int) error {
	srv := sniffer.NewServer(fmt.Sprintf(":%d", port))
	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		if m, ok := midi.Parse(msg); ok {
			srv.Hub().Observe("xtouch-in", m, time.Now())
		}
	})
	if err != nil {
		return &midiBindError{err}
	}
	defer stop()
	log.Info("web sniffer listening", "port", port)
	return srv.ListenAndServe()
}

// runGamepadDiagnostics logs a single notice and returns; it opens no
// gamepad and draws no visualisation.
func runGamepadDiagnostics() error {
	log.Info("gamepad diagnostics is a visualiser-only collaborator; see drivers/gamepad")
	return nil
}

type surface struct {
	out drivers.Out
}

func (s surface) Send(m midi.Message) error {
	return s.out.Send(midi.Encode(m))
}

func runGateway(doc *config.Document, in drivers.In, out drivers.Out) error {
	hw := midi.NewXTouchHardwareMap()
	mode := midi.ModeMCU
	if doc.XTouch.Mode == "ctrl" {
		mode = midi.ModeCtrl
	}

	st := state.New()
	go st.Run()
	defer st.Shutdown()

	store, err := persistence.OpenBadgerStore(".xtouch-gw-state")
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	persist := persistence.New(store)
	go persist.Run()
	defer persist.Shutdown()

	if snap, found, err := persist.Load(); err != nil {
		log.Warn("failed to load persisted state", "error", err)
	} else if found {
		for app, entries := range snap.States {
			st.HydrateFromSnapshot(app, entries)
		}
	}

	fd := fader.New()
	model := page.NewModel(doc)
	surf := surface{out: out}

	r := router.New(hw, mode, st, persist, fd, model, surf)

	if err := wireDrivers(r, doc); err != nil {
		log.Warn("one or more drivers failed to initialise", "error", err)
	}

	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		m, ok := midi.Parse(msg)
		if !ok {
			return
		}
		if err := r.HandleXTouchInput("xtouch-in", msg, m, time.Now().UnixMilli()); err != nil {
			log.Warn("xtouch input dispatch failed", "error", err)
		}
	})
	if err != nil {
		return &midiBindError{err}
	}
	defer stop()

	if err := r.RefreshPage(time.Now().UnixMilli()); err != nil {
		log.Warn("initial refresh failed", "error", err)
	}

	log.Info("xtouch-gw running")
	waitForSignal()

	if err := r.ShutdownAllDrivers(); err != nil {
		log.Warn("driver shutdown errors", "error", err)
	}
	return nil
}

// wireDrivers registers one driver per app port configured under
// midi.apps plus the always-on OBS scene-control driver, following the
// AppKey naming convention (spec.md §9).
func wireDrivers(r *router.Router, doc *config.Document) error {
	now := time.Now().UnixMilli()

	obsDriver := obs.New("ws://localhost:4455", func(sig string, value any) {
		// Signals are only logged here: nothing in the gateway passes
		// them to indicator.Evaluate, so OBS signals light no LEDs.
		log.Debug("obs signal", "signal", sig, "value", value)
	})
	if err := r.RegisterDriver(appkey.Obs.String(), obsDriver, now); err != nil {
		log.Warn("obs driver registration failed", "error", err)
	}

	for name, ports := range doc.Midi.Apps {
		app, ok := appkey.Parse(name)
		if !ok {
			log.Warn("unknown app name under midi.apps; ignoring", "app", name)
			continue
		}
		if app == appkey.Obs {
			continue
		}
		in, out, err := resolvePort(ports.InputPort, ports.OutputPort)
		if err != nil {
			log.Warn("app bridge port resolution failed", "app", name, "error", err)
			continue
		}
		bridge := midibridge.New(app, name, in, out, func(a appkey.AppKey, portID string, frame midi.Message) {
			if err := r.HandleAppFeedback(a, portID, frame, time.Now().UnixMilli()); err != nil {
				log.Warn("app feedback dispatch failed", "app", a, "error", err)
			}
		})
		if err := r.RegisterDriver(name, bridge, now); err != nil {
			log.Warn("midi bridge registration failed", "app", name, "error", err)
		}
	}
	return nil
}

func waitForSignal() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}
