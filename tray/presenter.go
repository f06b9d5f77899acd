package tray

import (
	"fmt"

	"fyne.io/systray"

	"github.com/jdginn/xtouch-gw/logging"
)

var log = logging.Get(logging.APP)

// Presenter drives a systray icon from a Monitor's aggregate state.
// Icon assets are supplied by the caller (platform packaging owns
// actual image bytes); Presenter only owns title/tooltip text and the
// color-name menu item used for at-a-glance status.
type Presenter struct {
	monitor *Monitor
	icons   map[State][]byte

	statusItem *systray.MenuItem
	quitItem   *systray.MenuItem
	onQuit     func()
}

// NewPresenter constructs a Presenter bound to monitor. icons maps each
// State to the icon bytes systray.SetIcon expects; a nil or missing
// entry leaves the icon unchanged for that state.
func NewPresenter(monitor *Monitor, icons map[State][]byte, onQuit func()) *Presenter {
	return &Presenter{monitor: monitor, icons: icons, onQuit: onQuit}
}

// Run blocks in systray's native event loop until Quit is called. It
// must run on the main goroutine on most platforms.
func (p *Presenter) Run() {
	systray.Run(p.onReady, p.onExit)
}

func (p *Presenter) onReady() {
	systray.SetTitle("xtouch-gw")
	systray.SetTooltip("xtouch-gw: gray")

	p.statusItem = systray.AddMenuItem("Status: gray", "current driver health")
	p.statusItem.Disable()
	systray.AddSeparator()
	p.quitItem = systray.AddMenuItem("Quit", "stop xtouch-gw")

	p.applyState(p.monitor.Worst())
	p.monitor.onChange = p.applyState

	go func() {
		<-p.quitItem.ClickedCh
		systray.Quit()
	}()
}

func (p *Presenter) onExit() {
	if p.onQuit != nil {
		p.onQuit()
	}
}

func (p *Presenter) applyState(s State) {
	label := fmt.Sprintf("Status: %s", s)
	if p.statusItem != nil {
		p.statusItem.SetTitle(label)
	}
	systray.SetTooltip("xtouch-gw: " + s.String())
	if icon, ok := p.icons[s]; ok && icon != nil {
		systray.SetIcon(icon)
	}
	log.Debug("tray state changed", "state", s.String())
}
