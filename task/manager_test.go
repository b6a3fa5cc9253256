// Copyright 2026 The Spool Key Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package task

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	st25r "github.com/Cascalio-Studio/spool-key"
	"github.com/Cascalio-Studio/spool-key/internal/simtag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestManager starts a task manager over a simulated chip. Delays are
// trimmed so the worker loop spins fast.
func newTestManager(t *testing.T, cfg *Config) (*Manager, *simtag.Chip) {
	t.Helper()

	chip := simtag.NewChip()
	pin := st25r.NewMemPin(st25r.PinRoleIRQ)
	chip.Notify = pin.Raise

	dev, err := st25r.New(chip, pin, st25r.WithConfig(st25r.Config{
		DefaultProtocol: st25r.ProtocolISO14443A,
		ReceiveTimeout:  50 * time.Millisecond,
	}))
	require.NoError(t, err)

	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.WorkerWait = 5 * time.Millisecond

	m, err := NewManager(st25r.NewManager(dev), cfg)
	require.NoError(t, err)
	require.NoError(t, m.Start())
	t.Cleanup(m.Stop)
	return m, chip
}

// collect returns a callback feeding results into the returned channel.
func collect(size int) (Callback, chan Result) {
	ch := make(chan Result, size)
	return func(res Result) { ch <- res }, ch
}

func await(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a result")
		return Result{}
	}
}

func TestNewManagerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil, nil)
	assert.ErrorIs(t, err, st25r.ErrInvalidParam)

	dev, err := st25r.New(st25r.NewMockBus(), nil)
	require.NoError(t, err)

	_, err = NewManager(st25r.NewManager(dev), &Config{CommandQueueSize: 0, ResultQueueSize: 4})
	assert.ErrorIs(t, err, st25r.ErrInvalidParam)
}

func TestSubmitRequiresRunning(t *testing.T) {
	t.Parallel()

	dev, err := st25r.New(st25r.NewMockBus(), nil)
	require.NoError(t, err)
	m, err := NewManager(st25r.NewManager(dev), nil)
	require.NoError(t, err)

	_, err = m.GetStatus(nil)
	assert.ErrorIs(t, err, st25r.ErrNotInitialized)
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t, nil)

	assert.True(t, m.Running())
	assert.Error(t, m.Start(), "second start must fail")

	m.Stop()
	assert.False(t, m.Running())
	m.Stop() // idempotent
}

func TestInitializeThroughQueue(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t, nil)

	cb, ch := collect(1)
	id, err := m.Initialize(cb)
	require.NoError(t, err)
	assert.Positive(t, id)

	res := await(t, ch)
	require.NoError(t, res.Err)
	assert.Equal(t, KindInitialize, res.Kind)
	assert.Equal(t, OpDetect, res.Operation)
	assert.Equal(t, id, res.RequestID)
	assert.True(t, m.nfc.Device().Initialized())
}

func TestInitializeWrongChip(t *testing.T) {
	t.Parallel()
	m, chip := newTestManager(t, nil)

	chip.SetIdentity(0x1F)
	cb, ch := collect(1)
	_, err := m.Initialize(cb)
	require.NoError(t, err)

	res := await(t, ch)
	assert.ErrorIs(t, res.Err, st25r.ErrWrongChip)
	assert.False(t, res.Ok())
}

func TestCommandsExecuteInSubmissionOrder(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t, nil)

	const n = 8
	var mu sync.Mutex
	var order []uint32
	var wg sync.WaitGroup
	wg.Add(n)

	// Mixed priorities; execution must still follow submission order.
	priorities := []Priority{PriorityLow, PriorityUrgent, PriorityNormal, PriorityHigh}
	for i := 0; i < n; i++ {
		_, err := m.Submit(Command{
			Kind:     KindGetStatus,
			Priority: priorities[i%len(priorities)],
			Callback: func(res Result) {
				mu.Lock()
				order = append(order, res.RequestID)
				mu.Unlock()
				wg.Done()
			},
		})
		require.NoError(t, err)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, n)
	for i := 1; i < n; i++ {
		assert.Greater(t, order[i], order[i-1], "results out of submission order")
	}
}

func TestConcurrentSubmissions(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t, &Config{
		CommandQueueSize: 64,
		ResultQueueSize:  10,
		HardwareTimeout:  5 * time.Second,
		SubmitTimeout:    time.Second,
	})

	const n = 32
	cb, ch := collect(n)
	var wg sync.WaitGroup
	wg.Add(n)
	for j := 0; j < n; j++ {
		go func() {
			defer wg.Done()
			_, err := m.GetStatus(cb)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ids := make(map[uint32]bool, n)
	for j := 0; j < n; j++ {
		res := await(t, ch)
		require.NoError(t, res.Err)
		assert.False(t, ids[res.RequestID], "duplicate request ID")
		ids[res.RequestID] = true
	}
	assert.Len(t, ids, n)
	assert.GreaterOrEqual(t, m.Stats().Processed, uint64(n))
}

func TestSubmitTimeoutOnFullQueue(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t, &Config{
		CommandQueueSize: 1,
		ResultQueueSize:  10,
		HardwareTimeout:  5 * time.Second,
		SubmitTimeout:    20 * time.Millisecond,
	})

	started := make(chan struct{})
	release := make(chan struct{})

	// The first command parks the worker inside its callback.
	_, err := m.Submit(Command{Kind: KindGetStatus, Callback: func(Result) {
		close(started)
		<-release
	}})
	require.NoError(t, err)
	<-started

	// Fill the queue behind the parked worker.
	_, err = m.GetStatus(nil)
	require.NoError(t, err)

	// The next submission cannot be queued within the timeout.
	_, err = m.GetStatus(nil)
	assert.ErrorIs(t, err, st25r.ErrTimeout)

	close(release)
}

func TestResultQueueIsLossy(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t, &Config{
		CommandQueueSize: 10,
		ResultQueueSize:  2,
		HardwareTimeout:  5 * time.Second,
		SubmitTimeout:    time.Second,
	})

	const n = 5
	for j := 0; j < n; j++ {
		_, err := m.GetStatus(nil)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return m.Stats().Processed >= n
	}, 2*time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	// Only the first two results fit; the rest were dropped, never
	// blocking the worker.
	assert.Len(t, m.Results(), 2)
}

func TestStatsHighWaterMark(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t, &Config{
		CommandQueueSize: 8,
		ResultQueueSize:  10,
		HardwareTimeout:  5 * time.Second,
		SubmitTimeout:    time.Second,
	})

	started := make(chan struct{})
	release := make(chan struct{})
	_, err := m.Submit(Command{Kind: KindGetStatus, Callback: func(Result) {
		close(started)
		<-release
	}})
	require.NoError(t, err)
	<-started

	for j := 0; j < 3; j++ {
		_, err := m.GetStatus(nil)
		require.NoError(t, err)
	}

	stats := m.Stats()
	assert.GreaterOrEqual(t, stats.HighWaterMark, 3)
	assert.GreaterOrEqual(t, stats.Queued, 3)

	close(release)
}

func TestWriteNDEFNilMessage(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t, nil)

	cb, ch := collect(2)
	_, err := m.Initialize(cb)
	require.NoError(t, err)
	require.NoError(t, await(t, ch).Err)

	// A nil message must come back as an error result, not kill the
	// worker.
	_, err = m.WriteNDEF(nil, cb)
	require.NoError(t, err)
	res := await(t, ch)
	assert.ErrorIs(t, res.Err, st25r.ErrInvalidParam)
	assert.False(t, res.Ok())

	// The worker is still alive and the hardware mutex is free.
	_, err = m.GetStatus(cb)
	require.NoError(t, err)
	assert.NoError(t, await(t, ch).Err)
}

func TestStopDeliversEveryAcceptedCommand(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t, &Config{
		CommandQueueSize: 4,
		ResultQueueSize:  4,
		HardwareTimeout:  5 * time.Second,
		SubmitTimeout:    50 * time.Millisecond,
	})

	var accepted, delivered atomic.Int32
	var wg sync.WaitGroup
	for j := 0; j < 8; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 16; k++ {
				_, err := m.Submit(Command{
					Kind:     KindGetStatus,
					Callback: func(Result) { delivered.Add(1) },
				})
				if err != nil {
					return
				}
				accepted.Add(1)
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	m.Stop()
	wg.Wait()

	// Every command that made it past Submit got a callback, either from
	// the worker or from the shutdown drain.
	assert.Equal(t, accepted.Load(), delivered.Load())
}

func TestDetectionAndTagOperations(t *testing.T) {
	t.Parallel()
	m, chip := newTestManager(t, nil)

	chip.SetTag(simtag.NewTypeATag([]byte{0x04, 0xAA, 0xBB, 0xCC}, 512))

	cb, ch := collect(8)
	_, err := m.Initialize(cb)
	require.NoError(t, err)
	require.NoError(t, await(t, ch).Err)

	detected := make(chan *st25r.TagInfo, 4)
	_, err = m.StartDetection(st25r.MaskISO14443A, func(tag *st25r.TagInfo) {
		select {
		case detected <- tag:
		default:
		}
	}, cb)
	require.NoError(t, err)
	require.NoError(t, await(t, ch).Err)

	// The worker polls between commands and finds the tag.
	select {
	case tag := <-detected:
		assert.Equal(t, st25r.ProtocolISO14443A, tag.Protocol)
	case <-time.After(2 * time.Second):
		t.Fatal("tag never detected")
	}

	_, err = m.FormatTag(cb)
	require.NoError(t, err)
	require.NoError(t, await(t, ch).Err)

	_, err = m.WriteText("queued hello", "en", cb)
	require.NoError(t, err)
	require.NoError(t, await(t, ch).Err)

	_, err = m.ReadText(cb)
	require.NoError(t, err)
	res := await(t, ch)
	require.NoError(t, res.Err)
	assert.Equal(t, "queued hello", res.Text)
	assert.Equal(t, "en", res.Language)

	_, err = m.ReadUID(cb)
	require.NoError(t, err)
	res = await(t, ch)
	require.NoError(t, res.Err)
	assert.Equal(t, []byte{0x04, 0xAA, 0xBB, 0xCC}, res.UID)

	_, err = m.StopDetection(cb)
	require.NoError(t, err)
	require.NoError(t, await(t, ch).Err)

	_, err = m.Deinitialize(cb)
	require.NoError(t, err)
	require.NoError(t, await(t, ch).Err)
	assert.False(t, m.nfc.Device().Initialized())
}
