package engine

import (
	"time"

	"github.com/quantra-lab/quantra/internal/strategy"
)

// isRebalanceDay reports whether the current trading day opens a new cadence
// period relative to the previous trading day. The first day of a run always
// rebalances.
func isRebalanceDay(cadence strategy.Cadence, current time.Time, previous time.Time, first bool) bool {
	if first {
		return true
	}

	switch cadence {
	case strategy.CadenceDaily:
		return true
	case strategy.CadenceWeekly:
		currentYear, currentWeek := current.ISOWeek()
		previousYear, previousWeek := previous.ISOWeek()

		return currentYear != previousYear || currentWeek != previousWeek
	case strategy.CadenceMonthly:
		return current.Year() != previous.Year() || current.Month() != previous.Month()
	default:
		return false
	}
}
