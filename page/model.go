// Package page implements the page model and the refresh planner
// (spec.md §4.4): the ordered list of pages the user cycles through, and
// the deterministic MIDI sequence that repaints the surface on a page
// change.
package page

import (
	"sync"
	"sync/atomic"

	"github.com/jdginn/xtouch-gw/config"
	"github.com/jdginn/xtouch-gw/logging"
)

var log = logging.Get(logging.PAGE)

// Model owns the active config document, the active page index, and the
// monotonic page epoch. Config reads are cheap (RWMutex); writes only
// happen on hot reload, per spec.md §5 "Shared-resource policy".
type Model struct {
	mu    sync.RWMutex
	doc   *config.Document
	index int

	epoch atomic.Uint64
}

// NewModel constructs a Model over doc, with page 0 active.
func NewModel(doc *config.Document) *Model {
	return &Model{doc: doc}
}

// Document returns the currently active config document.
func (m *Model) Document() *config.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc
}

// SetDocument atomically replaces the config document and clamps the
// active page index into range.
func (m *Model) SetDocument(doc *config.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc
	if m.index < 0 || m.index >= len(doc.Pages) {
		log.Warn("active page index out of range after config reload; resetting to 0", "index", m.index)
		m.index = 0
	}
}

// ActiveIndex returns the current page index.
func (m *Model) ActiveIndex() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index
}

// ActivePage returns the currently active page.
func (m *Model) ActivePage() config.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc.Pages[m.index]
}

// SetActiveIndex sets the active page index. An out-of-range value resets
// the index to 0 and logs, per the page-index invariant in spec.md §3.
func (m *Model) SetActiveIndex(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.doc.Pages) {
		log.Warn("page index out of range; resetting to 0", "requested", i, "pages", len(m.doc.Pages))
		m.index = 0
		return
	}
	m.index = i
}

// NumPages returns the number of pages in the active document.
func (m *Model) NumPages() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.doc.Pages)
}

// Epoch returns the current page epoch.
func (m *Model) Epoch() uint64 {
	return m.epoch.Load()
}

// IncrementEpoch atomically increments and returns the new page epoch.
// page_epoch is monotonically non-decreasing; it is incremented exactly
// once per page change.
func (m *Model) IncrementEpoch() uint64 {
	return m.epoch.Add(1)
}

// IsEpochCurrent reports whether captured is still the live epoch.
func (m *Model) IsEpochCurrent(captured uint64) bool {
	return m.epoch.Load() == captured
}

// Next advances to the next page, wrapping around.
func (m *Model) Next() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = (m.index + 1) % len(m.doc.Pages)
}

// Prev moves to the previous page, wrapping around.
func (m *Model) Prev() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = (m.index - 1 + len(m.doc.Pages)) % len(m.doc.Pages)
}

// ResolvedControls merges the active page's controls with pages_global,
// page-local entries taking precedence, per §4.5 step 7 "page-local
// first, then globals".
func (m *Model) ResolvedControls() map[string]config.ControlMapping {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]config.ControlMapping, len(m.doc.PagesGlobal)+len(m.doc.Pages[m.index].Controls))
	for id, c := range m.doc.PagesGlobal {
		out[id] = c
	}
	for id, c := range m.doc.Pages[m.index].Controls {
		out[id] = c
	}
	return out
}
