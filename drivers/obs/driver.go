// Package obs implements the Router driver for OBS Studio's WebSocket
// scene-control API. It reconnects with exponential backoff per
// spec.md §5 (step 1s, cap 30s) and reports signals (e.g.
// "obs.selectedScene") back to the router for the indicator evaluator.
package obs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jdginn/xtouch-gw/logging"
	"github.com/jdginn/xtouch-gw/router"
)

var log = logging.Get(logging.DRIVERS)

const (
	backoffStep = time.Second
	backoffCap  = 30 * time.Second
)

// SignalSink receives named driver signals for the indicator evaluator
// (spec.md §4.7), e.g. ("obs.selectedScene", "Scene 2").
type SignalSink func(signal string, value any)

// request is the minimal OBS WebSocket v5 request envelope.
type request struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

type requestData struct {
	RequestType string         `json:"requestType"`
	RequestID   string         `json:"requestId"`
	RequestData map[string]any `json:"requestData,omitempty"`
}

// Driver is the OBS WebSocket client, implementing router.Driver.
type Driver struct {
	addr string
	sink SignalSink

	mu     sync.Mutex
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	nextReqID int
}

// New constructs an OBS driver pointed at a ws:// address (e.g.
// "ws://localhost:4455").
func New(addr string, sink SignalSink) *Driver {
	return &Driver{addr: addr, sink: sink}
}

func (d *Driver) Name() string { return "obs" }

// Init starts the reconnect loop on a background goroutine and returns
// immediately -- connection failures are retried, not fatal to startup.
func (d *Driver) Init(ctx router.DriverContext) error {
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.wg.Add(1)
	go d.connectLoop()
	return nil
}

// Sync is a no-op for OBS -- there's no per-control state to push on
// config reload beyond what action invocations already do.
func (d *Driver) Sync(ctx router.DriverContext) error { return nil }

// Shutdown cancels the reconnect loop and closes any open connection.
func (d *Driver) Shutdown() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	d.wg.Wait()
	return nil
}

// InvokeAction sends a scene-control request. Supported actions:
// "setScene" (params: {"scene": "Name"}).
func (d *Driver) InvokeAction(action string, params map[string]any, actx router.ActionContext) error {
	d.mu.Lock()
	conn := d.conn
	d.nextReqID++
	id := fmt.Sprintf("%d", d.nextReqID)
	d.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("obs: not connected")
	}

	switch action {
	case "setScene":
		scene, _ := params["scene"].(string)
		req := request{Op: 6, D: requestData{
			RequestType: "SetCurrentProgramScene",
			RequestID:   id,
			RequestData: map[string]any{"sceneName": scene},
		}}
		return conn.WriteJSON(req)
	default:
		return fmt.Errorf("obs: unknown action %q", action)
	}
}

func (d *Driver) connectLoop() {
	defer d.wg.Done()
	backoff := backoffStep
	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(d.ctx, d.addr, nil)
		if err != nil {
			log.Warn("obs connect failed; backing off", "addr", d.addr, "error", err, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-d.ctx.Done():
				return
			}
			backoff *= 2
			if backoff > backoffCap {
				backoff = backoffCap
			}
			continue
		}

		backoff = backoffStep
		d.mu.Lock()
		d.conn = conn
		d.mu.Unlock()
		log.Info("obs connected", "addr", d.addr)

		d.readLoop(conn)

		d.mu.Lock()
		d.conn = nil
		d.mu.Unlock()
	}
}

func (d *Driver) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Warn("obs connection dropped", "error", err)
			return
		}
		d.handleEvent(data)
	}
}

type eventEnvelope struct {
	Op int `json:"op"`
	D  struct {
		EventType string         `json:"eventType"`
		EventData map[string]any `json:"eventData"`
	} `json:"d"`
}

func (d *Driver) handleEvent(data []byte) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Debug("obs: unparseable event", "error", err)
		return
	}
	if env.Op != 5 || d.sink == nil {
		return
	}
	if env.D.EventType == "CurrentProgramSceneChanged" {
		if name, ok := env.D.EventData["sceneName"].(string); ok {
			d.sink("obs.selectedScene", name)
		}
	}
}
