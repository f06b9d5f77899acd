package state

import (
	"github.com/jdginn/xtouch-gw/appkey"
	"github.com/jdginn/xtouch-gw/midi"
)

// UpdateState normalises origin=App, known=true, stale=false, overwrites
// the addr-keyed slot, and notifies subscribers. Fire-and-forget.
func (a *Actor) UpdateState(app appkey.AppKey, e midi.StateEntry) {
	e.Origin = midi.OriginApp
	e.Known = true
	e.Stale = false
	a.send(func() {
		m := a.appMap(app)
		m[e.Addr.Key()] = e
		log.Debug("state updated", "app", app, "addr", e.Addr.Key(), "ts", e.TS)
		a.notify(app, e)
	})
}

// UpdateStateFromXTouch is the same as UpdateState but tags origin as
// XTouch -- used when the router records what it has sent toward the
// surface rather than what an app reported.
func (a *Actor) UpdateStateFromXTouch(app appkey.AppKey, e midi.StateEntry) {
	e.Origin = midi.OriginXTouch
	e.Known = true
	e.Stale = false
	a.send(func() {
		m := a.appMap(app)
		m[e.Addr.Key()] = e
		a.notify(app, e)
	})
}

// GetState is an exact-match lookup; returns only known entries.
func (a *Actor) GetState(app appkey.AppKey, addr midi.Addr) (midi.StateEntry, bool) {
	return query(a, func() (midi.StateEntry, bool) {
		m, ok := a.states[app]
		if !ok {
			return midi.StateEntry{}, false
		}
		e, ok := m[addr.Key()]
		if !ok || !e.Known {
			return midi.StateEntry{}, false
		}
		return e.Clone(), true
	})
}

// GetKnownLatest searches app's map for any entry matching the filter.
// Tie-break order: non-stale strictly beats stale; within the same stale
// flag, the larger ts wins. This is the reverse-transform lookup path and
// must be deterministic.
func (a *Actor) GetKnownLatest(app appkey.AppKey, status midi.Status, channel, data1 *uint8) (midi.StateEntry, bool) {
	return query(a, func() (midi.StateEntry, bool) {
		m, ok := a.states[app]
		if !ok {
			return midi.StateEntry{}, false
		}
		var best midi.StateEntry
		found := false
		for _, e := range m {
			if !e.Known || e.Addr.Status != status {
				continue
			}
			if channel != nil && e.Addr.Channel != *channel {
				continue
			}
			if data1 != nil && e.Addr.Data1 != *data1 {
				continue
			}
			if !found || better(e, best) {
				best = e
				found = true
			}
		}
		if !found {
			return midi.StateEntry{}, false
		}
		return best.Clone(), true
	})
}

// better reports whether candidate should replace current as the
// winning entry under the tie-break rule: non-stale strictly beats
// stale; within the same stale flag, larger ts wins.
func better(candidate, current midi.StateEntry) bool {
	if candidate.Stale != current.Stale {
		return !candidate.Stale // non-stale wins
	}
	return candidate.TS > current.TS
}

// UpdateShadow records (shadow_key, value, now) for future anti-echo.
func (a *Actor) UpdateShadow(e midi.StateEntry, now int64) {
	key := e.Addr.ShadowKey()
	a.send(func() {
		a.shadows[key] = shadowEntry{value: e.Value, ts: now}
	})
}

// ShouldSuppressAntiEcho returns true iff a shadow entry for the same
// shadow_key exists, its value equals the incoming value, and
// now - shadow.ts < W(status).
func (a *Actor) ShouldSuppressAntiEcho(e midi.StateEntry, now int64) bool {
	key := e.Addr.ShadowKey()
	return query(a, func() bool {
		sh, ok := a.shadows[key]
		if !ok {
			return false
		}
		if !sh.value.Equal(e.Value) {
			return false
		}
		return now-sh.ts < antiEchoWindow(e.Addr.Status)
	})
}

// ShouldSuppressLWW returns true iff a user-action timestamp exists for
// the same key and now - ts < G(status).
func (a *Actor) ShouldSuppressLWW(e midi.StateEntry, now int64) bool {
	key := e.Addr.ShadowKey()
	return query(a, func() bool {
		ts, ok := a.userActions[key]
		if !ok {
			return false
		}
		return now-ts < lwwGuard(e.Addr.Status)
	})
}

// MarkUserAction is fire-and-forget.
func (a *Actor) MarkUserAction(shadowKey string, ts int64) {
	a.send(func() {
		a.userActions[shadowKey] = ts
	})
}

// HydrateFromSnapshot inserts each entry with stale=true, known=true
// without subscriber notification.
func (a *Actor) HydrateFromSnapshot(app appkey.AppKey, entries []midi.StateEntry) {
	a.send(func() {
		m := a.appMap(app)
		for _, e := range entries {
			e.Known = true
			e.Stale = true
			m[e.Addr.Key()] = e
		}
		log.Info("hydrated state from snapshot", "app", app, "count", len(entries))
	})
}

// ClearShadows wipes all shadow entries, allowing re-emission of values
// identical to those previously sent (called on page change).
func (a *Actor) ClearShadows() {
	a.send(func() {
		a.shadows = make(map[string]shadowEntry)
	})
}

// ClearStatesForApp removes all state for a single app.
func (a *Actor) ClearStatesForApp(app appkey.AppKey) {
	a.send(func() {
		delete(a.states, app)
	})
}

// ClearAllStates removes all state for all apps (full-config reload).
func (a *Actor) ClearAllStates() {
	a.send(func() {
		a.states = make(map[appkey.AppKey]map[string]midi.StateEntry)
	})
}

// Subscribe registers a state-change observer (used by the persistence
// actor to schedule snapshots) and returns an id usable with Unsubscribe.
func (a *Actor) Subscribe(fn func(appkey.AppKey, midi.StateEntry)) int {
	return query(a, func() int {
		a.nextSubID++
		id := a.nextSubID
		a.subs = append(a.subs, subscriber{id: id, fn: fn})
		return id
	})
}

// Unsubscribe removes a previously registered observer.
func (a *Actor) Unsubscribe(id int) {
	a.send(func() {
		for i, s := range a.subs {
			if s.id == id {
				a.subs = append(a.subs[:i], a.subs[i+1:]...)
				return
			}
		}
	})
}

// Snapshot returns a deep copy of every app's state map, used by the
// persistence actor to build a Save payload.
func (a *Actor) Snapshot() map[appkey.AppKey][]midi.StateEntry {
	return query(a, func() map[appkey.AppKey][]midi.StateEntry {
		out := make(map[appkey.AppKey][]midi.StateEntry, len(a.states))
		for app, m := range a.states {
			entries := make([]midi.StateEntry, 0, len(m))
			for _, e := range m {
				entries = append(entries, e.Clone())
			}
			out[app] = entries
		}
		return out
	})
}
