package scenario

import (
	"planthealth-sim/internal/config"
	"planthealth-sim/internal/events"
)

// Actions are the interventions due at a tick.
type Actions struct {
	Seeds      []config.Outbreak
	Treatments []Treatment
}

// Empty reports whether nothing is due.
func (a Actions) Empty() bool {
	return len(a.Seeds) == 0 && len(a.Treatments) == 0
}

// Runner walks a scenario tick by tick. It is not safe for concurrent use;
// the simulator drives it under its own lock.
type Runner struct {
	sc          *Scenario
	phase       string
	enteredTick int64
	counts      map[string]int
	seedsDone   map[int]bool
	treatDone   map[int]bool
}

// NewRunner starts sc in its first phase at startTick.
func NewRunner(sc *Scenario, startTick int64) *Runner {
	r := &Runner{sc: sc}
	if len(sc.Phases) > 0 {
		r.enter(sc.Phases[0].Name, startTick)
	}
	return r
}

// Scenario returns the scenario being run.
func (r *Runner) Scenario() *Scenario { return r.sc }

// Phase returns the current phase name.
func (r *Runner) Phase() string { return r.phase }

func (r *Runner) enter(name string, tick int64) {
	r.phase = name
	r.enteredTick = tick
	r.counts = make(map[string]int)
	r.seedsDone = make(map[int]bool)
	r.treatDone = make(map[int]bool)
}

// Due returns the actions of the current phase whose delay has elapsed and
// that have not fired yet.
func (r *Runner) Due(tick int64) Actions {
	var out Actions
	p, ok := r.sc.phase(r.phase)
	if !ok {
		return out
	}
	elapsed := tick - r.enteredTick
	for i, s := range p.Seeds {
		if !r.seedsDone[i] && s.DelayTicks <= elapsed {
			r.seedsDone[i] = true
			out.Seeds = append(out.Seeds, s.Outbreak)
		}
	}
	for i, t := range p.Treatments {
		if !r.treatDone[i] && t.DelayTicks <= elapsed {
			r.treatDone[i] = true
			out.Treatments = append(out.Treatments, t)
		}
	}
	return out
}

// Observe feeds the events of a finished tick into the current phase and
// applies at most one transition. The new phase starts on the next tick.
func (r *Runner) Observe(tick int64, evs []events.Event) (string, bool) {
	for _, ev := range evs {
		r.counts[ev.Type]++
	}
	p, ok := r.sc.phase(r.phase)
	if !ok {
		return "", false
	}
	// Triggers are checked in declaration order.
	for _, tr := range p.Triggers {
		ev := Event{Type: tr.Event, Value: r.counts[tr.Event]}
		if tr.Event == EventTimeElapsed {
			ev.Value = int(tick - r.enteredTick + 1)
		}
		if next, ok := r.sc.NextPhase(r.phase, ev); ok {
			r.enter(next, tick+1)
			return next, true
		}
	}
	return "", false
}
