// Package appkey defines the closed enumeration of downstream
// applications the router knows how to key persistence, plan priority,
// and shadow state on. See spec.md §9 "Closed AppKey enum vs open
// strings".
package appkey

// AppKey is a closed tagged union -- routing, persistence, and plan
// priorities all key on it, so it must not grow at runtime. The config
// maps arbitrary driver names onto it by convention; unknown names are
// logged and ignored rather than extending the enum.
type AppKey int

const (
	Unknown AppKey = iota
	Obs
	Lighting
	Mixer
	Bridge
)

func (k AppKey) String() string {
	switch k {
	case Obs:
		return "obs"
	case Lighting:
		return "lighting"
	case Mixer:
		return "mixer"
	case Bridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// conventionalNames maps the config's free-form driver name strings onto
// the closed enum. Unrecognised names resolve to (Unknown, false) so
// callers can log and ignore rather than silently routing to garbage.
var conventionalNames = map[string]AppKey{
	"obs":         Obs,
	"scenes":      Obs,
	"lighting":    Lighting,
	"lights":      Lighting,
	"mixer":       Mixer,
	"voicemeeter": Mixer,
	"bridge":      Bridge,
	"midi":        Bridge,
}

// Parse resolves a config driver name to its AppKey by convention.
func Parse(name string) (AppKey, bool) {
	k, ok := conventionalNames[name]
	return k, ok
}

// All enumerates every known app key, e.g. for persistence snapshot
// iteration.
func All() []AppKey {
	return []AppKey{Obs, Lighting, Mixer, Bridge}
}
