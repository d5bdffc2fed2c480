package chain

import (
	"regexp"
	"testing"

	"github.com/siphond/siphond/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWriter struct {
	calls map[string]int
}

func newStubWriter() *stubWriter { return &stubWriter{calls: make(map[string]int)} }

func (w *stubWriter) InvokeWrite(name string, ds model.DataSet, vl model.ValueList) error {
	w.calls[name]++
	return nil
}

func (w *stubWriter) InvokeAllWrites(ds model.DataSet, vl model.ValueList) []error {
	w.calls["*"]++
	return nil
}

func gaugeVL(plugin string) model.ValueList {
	return model.ValueList{
		Identifier: model.Identifier{Host: "h", Plugin: plugin, Type: "gauge"},
		Values:     []model.Value{model.NewGauge(1.0)},
	}
}

func TestEmptyChainDeliversToAllWriters(t *testing.T) {
	w := newStubWriter()
	c := &Chain{DefaultTargets: []Target{NewWriteTarget(w, nil, nil)}}

	res := c.Process(model.DataSet{}, gaugeVL("cpu"), nil)
	assert.Equal(t, Continue, res)
	assert.Equal(t, 1, w.calls["*"])
}

func TestStopTargetDropsMatchingPlugin(t *testing.T) {
	w := newStubWriter()
	c := &Chain{
		Rules: []Rule{{
			Matches: []Match{FieldMatch{Field: "plugin", Pattern: regexp.MustCompile(`^drop-me$`)}},
			Targets: []Target{StopTarget{}},
		}},
		DefaultTargets: []Target{NewWriteTarget(w, nil, nil)},
	}

	res := c.Process(model.DataSet{}, gaugeVL("drop-me"), nil)
	assert.Equal(t, Stop, res)
	assert.Equal(t, 0, w.calls["*"])

	res = c.Process(model.DataSet{}, gaugeVL("keep-me"), nil)
	assert.Equal(t, Continue, res)
	assert.Equal(t, 1, w.calls["*"])
}

func TestSelfJumpAbortsAtDepthLimit(t *testing.T) {
	w := newStubWriter()
	var logged []string
	logf := func(level int, format string, args ...interface{}) { logged = append(logged, format) }

	set := NewSet()
	self := &Chain{
		Name:           "A",
		DefaultTargets: []Target{JumpTarget{Set: set, ChainName: "A", Log: logf}, NewWriteTarget(w, nil, nil)},
	}
	set.Register(self)

	res := self.Process(model.DataSet{}, gaugeVL("cpu"), logf)
	assert.Equal(t, Continue, res)
	require.NotEmpty(t, logged)
	assert.Equal(t, 1, w.calls["*"]) // writer invoked exactly once, not recursively
}

func TestRuleWithTwoMatchesOnlyOneFires(t *testing.T) {
	w := newStubWriter()
	c := &Chain{
		Rules: []Rule{{
			Matches: []Match{
				FieldMatch{Field: "plugin", Pattern: regexp.MustCompile(`^cpu$`)},
				FieldMatch{Field: "type", Pattern: regexp.MustCompile(`^does-not-match$`)},
			},
			Targets: []Target{StopTarget{}},
		}},
		DefaultTargets: []Target{NewWriteTarget(w, nil, nil)},
	}

	res := c.Process(model.DataSet{}, gaugeVL("cpu"), nil)
	assert.Equal(t, Continue, res)
	assert.Equal(t, 1, w.calls["*"])
}

func TestWriteTargetWithNamesOnlyHitsNamedWriters(t *testing.T) {
	w := newStubWriter()
	c := &Chain{DefaultTargets: []Target{NewWriteTarget(w, []string{"writer-x"}, nil)}}

	res := c.Process(model.DataSet{}, gaugeVL("cpu"), nil)
	assert.Equal(t, Continue, res)
	assert.Equal(t, 1, w.calls["writer-x"])
	assert.Equal(t, 0, w.calls["*"])
}

func TestReturnExitsChainWithoutDropping(t *testing.T) {
	w := newStubWriter()
	c := &Chain{
		Rules: []Rule{{
			Matches: []Match{FieldMatch{Field: "plugin", Pattern: regexp.MustCompile(`^cpu$`)}},
			Targets: []Target{ReturnTarget{}},
		}},
		DefaultTargets: []Target{NewWriteTarget(w, nil, nil)},
	}

	res := c.Process(model.DataSet{}, gaugeVL("cpu"), nil)
	assert.Equal(t, Continue, res)
	assert.Equal(t, 0, w.calls["*"]) // default targets don't run after Return exits the chain early
}

func TestMissingJumpTargetIsLoggedNotFatal(t *testing.T) {
	w := newStubWriter()
	var logged bool
	logf := func(level int, format string, args ...interface{}) { logged = true }

	set := NewSet()
	c := &Chain{
		Name:           "pre",
		DefaultTargets: []Target{JumpTarget{Set: set, ChainName: "missing", Log: logf}, NewWriteTarget(w, nil, nil)},
	}

	res := c.Process(model.DataSet{}, gaugeVL("cpu"), logf)
	assert.Equal(t, Continue, res)
	assert.True(t, logged)
	assert.Equal(t, 1, w.calls["*"])
}
