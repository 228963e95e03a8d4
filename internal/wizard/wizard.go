// Package wizard is the analysis flow's state machine: one tagged step at a
// time, from text input through facet filtering to results. The machine is
// not goroutine-safe; callers serialize access (the web server holds one
// machine per browser session behind its own lock).
package wizard

import (
	"errors"

	"sentiboard/internal/entry"
	"sentiboard/internal/result"
)

// Step is the wizard's current position.
type Step int

const (
	StepIdle Step = iota
	StepInput
	StepFilter
	StepResults
	StepReplaying
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepInput:
		return "input"
	case StepFilter:
		return "filter"
	case StepResults:
		return "results"
	case StepReplaying:
		return "replaying"
	}
	return "unknown"
}

var (
	ErrNoEntries   = errors.New("wizard: no entries to analyze")
	ErrBusy        = errors.New("wizard: analysis already in flight")
	ErrEmptyFilter = errors.New("wizard: current filter excludes every entry")
)

// Machine drives one user's analysis flow.
type Machine struct {
	step      Step
	entries   []entry.Entry
	facets    entry.Facets
	selection entry.Selection
	res       *result.Result
	lastErr   string

	busy    bool
	epoch   int
	pending *result.Result
}

// New returns a machine in the idle step; Start moves it to input.
func New() *Machine {
	return &Machine{step: StepIdle}
}

// Start opens the input step, dropping whatever came before.
func (m *Machine) Start() {
	m.clear()
	m.step = StepInput
}

func (m *Machine) Step() Step                 { return m.step }
func (m *Machine) Entries() []entry.Entry     { return m.entries }
func (m *Machine) Facets() entry.Facets       { return m.facets }
func (m *Machine) Selection() entry.Selection { return m.selection }
func (m *Machine) Result() *result.Result     { return m.res }
func (m *Machine) Busy() bool                 { return m.busy }

// LastError returns the message from the most recent failed analysis or
// rejected input, empty when the last attempt succeeded.
func (m *Machine) LastError() string { return m.lastErr }

// SetError records a recoverable problem for inline display on the current
// step. New entries clear it.
func (m *Machine) SetError(err error) {
	m.lastErr = err.Error()
}

// SetEntries replaces the working set while on the input step. Facets are
// rederived and the selection resets to all-included.
func (m *Machine) SetEntries(entries []entry.Entry) {
	m.lastErr = ""
	m.entries = entries
	m.facets = entry.DeriveFacets(entries)
	m.selection = entry.AllSelected(m.facets)
}

// AddEntries appends to the working set, keeping existing selections for
// facets that survive.
func (m *Machine) AddEntries(more []entry.Entry) {
	m.lastErr = ""
	prev := m.selection
	m.entries = append(m.entries, more...)
	m.facets = entry.DeriveFacets(m.entries)
	m.selection = entry.AllSelected(m.facets)
	for c, on := range prev.Categories {
		if _, ok := m.selection.Categories[c]; ok {
			m.selection.Categories[c] = on
		}
	}
	for p, on := range prev.Products {
		if _, ok := m.selection.Products[p]; ok {
			m.selection.Products[p] = on
		}
	}
}

// Proceed leaves the input step. With facets present it moves to the filter
// step and returns false; with none to filter on it returns true and the
// caller goes straight to BeginAnalyze.
func (m *Machine) Proceed() (skipFilter bool, err error) {
	if len(m.entries) == 0 {
		return false, ErrNoEntries
	}
	if m.facets.Empty() {
		return true, nil
	}
	m.step = StepFilter
	return false, nil
}

// ToggleCategory flips a category on the filter step.
func (m *Machine) ToggleCategory(cat string) { m.selection.ToggleCategory(cat) }

// ToggleProduct flips a product on the filter step.
func (m *Machine) ToggleProduct(prod string) { m.selection.ToggleProduct(prod) }

// Filtered returns the entries the current selection admits.
func (m *Machine) Filtered() []entry.Entry {
	return entry.Apply(m.entries, m.selection)
}

// BeginAnalyze marks an analysis in flight and hands back the epoch that the
// matching FinishAnalyze must present, plus the entries to submit. At most
// one analysis runs at a time, and an empty filtered set is rejected before
// any network work starts.
func (m *Machine) BeginAnalyze() (epoch int, entries []entry.Entry, err error) {
	if m.busy {
		return 0, nil, ErrBusy
	}
	filtered := m.Filtered()
	if len(filtered) == 0 {
		return 0, nil, ErrEmptyFilter
	}
	m.busy = true
	m.epoch++
	m.lastErr = ""
	return m.epoch, filtered, nil
}

// FinishAnalyze lands an analysis outcome. A stale epoch means the user
// navigated away while the request was in flight; the outcome is dropped.
// On failure the machine stays on its pre-submission step so the user can
// retry without losing the working set.
func (m *Machine) FinishAnalyze(epoch int, res *result.Result, failure error) {
	if epoch != m.epoch {
		return
	}
	m.busy = false
	if failure != nil {
		m.lastErr = failure.Error()
		return
	}
	m.res = res
	m.step = StepResults
}

// QueueReplay stages a historical session for display. The machine parks in
// the replaying step until the next Navigate installs the result.
func (m *Machine) QueueReplay(res *result.Result) {
	m.pending = res
	m.step = StepReplaying
}

// Navigate is the route-change hook. Normally it clears the flow back to the
// input step, but a pending replay wins the race: its result is installed
// and the machine jumps to results instead of clearing. Any in-flight
// analysis is invalidated either way.
func (m *Machine) Navigate() {
	m.epoch++
	m.busy = false
	if m.pending != nil {
		m.res = m.pending
		m.pending = nil
		m.step = StepResults
		m.lastErr = ""
		return
	}
	m.clear()
	m.step = StepInput
}

// Reset discards everything, including a pending replay, and returns to the
// input step.
func (m *Machine) Reset() {
	m.pending = nil
	m.epoch++
	m.busy = false
	m.clear()
	m.step = StepInput
}

func (m *Machine) clear() {
	m.entries = nil
	m.facets = entry.Facets{}
	m.selection = entry.Selection{}
	m.res = nil
	m.lastErr = ""
}
