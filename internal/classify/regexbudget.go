package classify

import (
	"regexp"
	"time"
)

// DefaultRegexBudget bounds a single regex match attempt. Go's regexp is
// linear-time, so the budget guards against pathological input sizes
// rather than backtracking blowups.
const DefaultRegexBudget = 100 * time.Millisecond

// matchBounded runs re against s with a time budget. When the budget is
// exceeded the attempt is abandoned and reported as timedOut; the
// abandoned goroutine finishes on its own shortly after.
func matchBounded(re *regexp.Regexp, s string, budget time.Duration) (matched, timedOut bool) {
	if budget <= 0 {
		budget = DefaultRegexBudget
	}

	done := make(chan bool, 1)
	go func() {
		done <- re.MatchString(s)
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case ok := <-done:
		return ok, false
	case <-timer.C:
		return false, true
	}
}
