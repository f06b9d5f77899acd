package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jdginn/xtouch-gw/config"
)

func TestEvaluateInPredicateWithWhitespaceTrimming(t *testing.T) {
	assert := assert.New(t)
	controls := map[string]config.ControlMapping{
		"f2": {Indicator: &config.Indicator{
			Signal: "obs.selectedScene",
			In:     []any{"Scene 1", "Scene 2"},
		}},
	}

	result := Evaluate(controls, "obs.selectedScene", "  Scene 2  ")
	assert.Equal(map[string]bool{"f2": true}, result)

	result = Evaluate(controls, "obs.selectedScene", "Scene 3")
	assert.Equal(map[string]bool{"f2": false}, result)
}

func TestEvaluateEqualsPredicate(t *testing.T) {
	assert := assert.New(t)
	controls := map[string]config.ControlMapping{
		"mute1": {Indicator: &config.Indicator{Signal: "mixer.muted", Equals: true}},
	}

	assert.Equal(map[string]bool{"mute1": true}, Evaluate(controls, "mixer.muted", true))
	assert.Equal(map[string]bool{"mute1": false}, Evaluate(controls, "mixer.muted", false))
}

func TestEvaluateTruthyPredicate(t *testing.T) {
	assert := assert.New(t)
	truthyVal := true
	controls := map[string]config.ControlMapping{
		"rec1": {Indicator: &config.Indicator{Signal: "mixer.recording", Truthy: &truthyVal}},
	}

	assert.Equal(map[string]bool{"rec1": true}, Evaluate(controls, "mixer.recording", "active"))
	assert.Equal(map[string]bool{"rec1": false}, Evaluate(controls, "mixer.recording", ""))
	assert.Equal(map[string]bool{"rec1": false}, Evaluate(controls, "mixer.recording", nil))
	assert.Equal(map[string]bool{"rec1": false}, Evaluate(controls, "mixer.recording", float64(0)))
}

func TestEvaluateIgnoresNonMatchingSignal(t *testing.T) {
	assert := assert.New(t)
	controls := map[string]config.ControlMapping{
		"f2": {Indicator: &config.Indicator{Signal: "obs.selectedScene", Equals: "x"}},
	}

	assert.Empty(Evaluate(controls, "other.signal", "x"))
}

func TestEvaluateControlWithNoIndicatorIsSkipped(t *testing.T) {
	assert := assert.New(t)
	controls := map[string]config.ControlMapping{
		"fader1": {App: "obs"},
	}

	assert.Empty(Evaluate(controls, "obs.selectedScene", "x"))
}
