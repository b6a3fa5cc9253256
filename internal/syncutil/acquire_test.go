package syncutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAcquireTimeoutUncontended(t *testing.T) {
	t.Parallel()

	var m Mutex
	assert.True(t, AcquireTimeout(&m, 0))
	m.Unlock()
}

func TestAcquireTimeoutContended(t *testing.T) {
	t.Parallel()

	var m Mutex
	m.Lock()

	start := time.Now()
	assert.False(t, AcquireTimeout(&m, 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	m.Unlock()
	assert.True(t, AcquireTimeout(&m, 30*time.Millisecond))
	m.Unlock()
}

func TestAcquireTimeoutWaitsForRelease(t *testing.T) {
	t.Parallel()

	var m Mutex
	m.Lock()
	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Unlock()
	}()

	assert.True(t, AcquireTimeout(&m, time.Second))
	m.Unlock()
}
