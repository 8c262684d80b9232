package schedule

import (
	"context"
	"log/slog"

	"horizon/internal/core"
)

// Scheduler answers "what fires in this period" for one scenario run.
// Periods are calendar months identified by their first day.
type Scheduler struct {
	scenario core.Scenario
	user     core.User
	flows    []core.CashFlow
	events   []core.ScenarioEvent
}

// New builds a scheduler over a scenario snapshot. Flows and events are
// read-only inputs; the scheduler never mutates them.
func New(scenario core.Scenario, user core.User, flows []core.CashFlow, events []core.ScenarioEvent) *Scheduler {
	return &Scheduler{scenario: scenario, user: user, flows: flows, events: events}
}

// FiringFlows returns the cash flows active in the given period, in input
// order. End conditions are checked against the prior period's state.
func (s *Scheduler) FiringFlows(ctx context.Context, period core.Date, prior PriorState) []core.CashFlow {
	var firing []core.CashFlow
	for _, flow := range s.flows {
		if s.flowFires(ctx, flow, period, prior) {
			firing = append(firing, flow)
		}
	}
	return firing
}

func (s *Scheduler) flowFires(ctx context.Context, flow core.CashFlow, period core.Date, prior PriorState) bool {
	if !flow.Active {
		return false
	}

	start := s.effectiveStart(flow.StartDate)

	if flow.Frequency == core.Once {
		// Once-off flows fire in exactly the period containing their
		// start date and never again.
		return period.SameMonth(start)
	}

	if period.MonthStart().Before(start.MonthStart().Time) {
		return false
	}

	checker, err := GetEndConditionChecker(flow.End.Kind)
	if err != nil {
		slog.WarnContext(ctx, "Unknown end condition, treating flow as unbounded",
			"flow_id", flow.ID, "kind", flow.End.Kind)
		return true
	}
	return !checker.Satisfied(flow.End, period, prior)
}

// effectiveStart is max(flow start, scenario start); an unset flow start
// means the scenario start.
func (s *Scheduler) effectiveStart(flowStart core.Date) core.Date {
	if flowStart.IsEmpty() || flowStart.Before(s.scenario.StartDate.Time) {
		return s.scenario.StartDate
	}
	return flowStart
}

// FiringEvents returns the scenario events triggering in the period.
// firedOnce records events that already fired this run; once-off events
// consult and update it.
func (s *Scheduler) FiringEvents(ctx context.Context, period core.Date, prior PriorState, firedOnce map[int64]bool) []core.ScenarioEvent {
	var firing []core.ScenarioEvent
	for _, ev := range s.events {
		if ev.Once && firedOnce[ev.ID] {
			continue
		}
		if !s.eventFires(ctx, ev, period, prior) {
			continue
		}
		if ev.Once {
			firedOnce[ev.ID] = true
		}
		firing = append(firing, ev)
	}
	return firing
}

func (s *Scheduler) eventFires(ctx context.Context, ev core.ScenarioEvent, period core.Date, prior PriorState) bool {
	if period.MonthStart().Before(s.scenario.StartDate.MonthStart().Time) {
		return false
	}

	switch ev.Trigger {
	case core.TriggerDate:
		return s.dateTriggerFires(ev, period)
	case core.TriggerAge:
		return s.user.AgeAt(period) == ev.TriggerAge
	case core.TriggerCondition:
		cond, err := ParseCondition(ev.Condition)
		if err != nil {
			// Malformed user data: log and never fire rather than
			// failing the run.
			slog.WarnContext(ctx, "Malformed event condition, skipping",
				"event_id", ev.ID, "error", err)
			return false
		}
		return cond.Eval(prior, ev.AccountID)
	}
	return false
}

func (s *Scheduler) dateTriggerFires(ev core.ScenarioEvent, period core.Date) bool {
	if ev.Once {
		return period.SameMonth(ev.TriggerDate)
	}

	trigger := ev.TriggerDate.MonthStart()
	if period.MonthStart().Before(trigger.Time) {
		return false
	}
	if !ev.RecurrenceEnd.IsEmpty() && period.MonthStart().After(ev.RecurrenceEnd.MonthStart().Time) {
		return false
	}

	gap := monthsBetween(trigger, period.MonthStart())
	switch ev.Recurrence {
	case core.Monthly, core.Weekly, core.Biweekly:
		// The engine's cadence is monthly; sub-monthly recurrences fire
		// every period.
		return true
	case core.Quarterly:
		return gap%3 == 0
	case core.Annually:
		return gap%12 == 0
	}
	return false
}

// monthsBetween counts whole calendar months from a to b.
func monthsBetween(a, b core.Date) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
