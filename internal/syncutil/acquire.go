package syncutil

import "time"

// acquirePollInterval is the retry cadence for timed acquisition.
const acquirePollInterval = time.Millisecond

// AcquireTimeout tries to lock m, polling until the budget runs out.
// Returns true when the lock was taken. A zero or negative budget degrades
// to a single TryLock.
func AcquireTimeout(m *Mutex, budget time.Duration) bool {
	if m.TryLock() {
		return true
	}
	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		time.Sleep(acquirePollInterval)
		if m.TryLock() {
			return true
		}
	}
	return false
}
