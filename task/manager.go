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

// Package task runs NFC operations on a single worker goroutine.
//
// Callers submit commands from any goroutine; the worker executes them in
// FIFO order against the shared hardware, guarded by a timed mutex. Results
// are delivered through per-command callbacks, or through a bounded result
// queue when no callback is given. While detection is armed the worker
// interleaves detection polls between commands.
package task

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	st25r "github.com/Cascalio-Studio/spool-key"
	"github.com/Cascalio-Studio/spool-key/internal/syncutil"
	"github.com/Cascalio-Studio/spool-key/pkg/ndef"
)

// Manager owns the worker goroutine and the command and result queues.
type Manager struct {
	cfg *Config
	nfc *st25r.Manager

	commands chan Command
	results  chan Result

	// hwMu serializes hardware access between the worker and callers that
	// hold direct references to the device.
	hwMu syncutil.Mutex

	nextRequestID atomic.Uint32
	processed     atomic.Uint64
	running       atomic.Bool
	irqSeen       atomic.Bool

	// stateMu fences submissions against Stop: Submit holds the read side
	// across its running check and enqueue, so Stop's drain cannot miss a
	// command that passed the check.
	stateMu syncutil.RWMutex

	highWaterMu sync.Mutex
	highWater   int

	lastTagMu syncutil.RWMutex
	lastTag   *st25r.TagInfo

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a task manager over nfc. A nil cfg uses DefaultConfig.
func NewManager(nfc *st25r.Manager, cfg *Config) (*Manager, error) {
	if nfc == nil {
		return nil, fmt.Errorf("nil NFC manager: %w", st25r.ErrInvalidParam)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.CommandQueueSize <= 0 || cfg.ResultQueueSize <= 0 {
		return nil, fmt.Errorf("queue sizes must be positive: %w", st25r.ErrInvalidParam)
	}

	return &Manager{
		cfg:      cfg,
		nfc:      nfc,
		commands: make(chan Command, cfg.CommandQueueSize),
		results:  make(chan Result, cfg.ResultQueueSize),
		stop:     make(chan struct{}),
	}, nil
}

// Start launches the worker goroutine. Starting twice is an error.
func (m *Manager) Start() error {
	if !m.running.CompareAndSwap(false, true) {
		return fmt.Errorf("task manager already running: %w", st25r.ErrInvalidParam)
	}
	m.stop = make(chan struct{})
	m.wg.Add(1)
	go m.worker()
	return nil
}

// Stop halts the worker and waits for it to drain. Pending commands left in
// the queue are failed with a shutdown error.
func (m *Manager) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}

	// Wait for in-flight submissions before stopping the worker, so every
	// accepted command is either executed or failed by the drain below.
	m.stateMu.Lock()
	m.stateMu.Unlock() //nolint:staticcheck // empty critical section is the barrier

	close(m.stop)
	m.wg.Wait()

	for {
		select {
		case cmd := <-m.commands:
			m.deliver(cmd, Result{
				Operation: operationFor(cmd.Kind),
				Kind:      cmd.Kind,
				RequestID: cmd.RequestID,
				Err:       fmt.Errorf("task manager stopped: %w", st25r.ErrNotInitialized),
			})
		default:
			return
		}
	}
}

// Running reports whether the worker is active.
func (m *Manager) Running() bool { return m.running.Load() }

// Results exposes the result queue for commands submitted without a
// callback.
func (m *Manager) Results() <-chan Result { return m.results }

// Stats returns a snapshot of the manager counters.
func (m *Manager) Stats() Stats {
	m.highWaterMu.Lock()
	hw := m.highWater
	m.highWaterMu.Unlock()
	return Stats{
		Processed:     m.processed.Load(),
		Queued:        len(m.commands),
		HighWaterMark: hw,
	}
}

// NotifyInterrupt flags a hardware interrupt for the worker. Safe to call
// from an interrupt watcher goroutine.
func (m *Manager) NotifyInterrupt() {
	m.irqSeen.Store(true)
}

// Submit queues cmd for the worker and returns its assigned request ID.
// A full queue fails with a timeout after SubmitTimeout.
func (m *Manager) Submit(cmd Command) (uint32, error) {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	if !m.running.Load() {
		return 0, fmt.Errorf("task manager not running: %w", st25r.ErrNotInitialized)
	}

	cmd.RequestID = m.nextRequestID.Add(1)

	if m.cfg.SubmitTimeout <= 0 {
		select {
		case m.commands <- cmd:
		default:
			return 0, fmt.Errorf("command queue full: %w", st25r.ErrTimeout)
		}
	} else {
		timer := time.NewTimer(m.cfg.SubmitTimeout)
		defer timer.Stop()
		select {
		case m.commands <- cmd:
		case <-timer.C:
			return 0, fmt.Errorf("command queue full: %w", st25r.ErrTimeout)
		}
	}

	m.noteDepth(len(m.commands))
	return cmd.RequestID, nil
}

// Initialize queues a chip bring-up command.
func (m *Manager) Initialize(cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindInitialize, Priority: PriorityHigh, Callback: cb})
}

// Deinitialize queues a chip shutdown command.
func (m *Manager) Deinitialize(cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindDeinitialize, Priority: PriorityUrgent, Callback: cb})
}

// StartDetection queues a command that arms tag detection. found is invoked
// from the worker goroutine for every detected tag.
func (m *Manager) StartDetection(mask st25r.ProtocolMask, found st25r.DetectionCallback, cb Callback) (uint32, error) {
	return m.Submit(Command{
		Kind:              KindStartDetection,
		Priority:          PriorityHigh,
		Mask:              mask,
		DetectionCallback: found,
		Callback:          cb,
	})
}

// StopDetection queues a command that disarms detection.
func (m *Manager) StopDetection(cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindStopDetection, Priority: PriorityHigh, Callback: cb})
}

// SetField queues an RF carrier switch.
func (m *Manager) SetField(on bool, cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindSetField, Priority: PriorityNormal, FieldOn: on, Callback: cb})
}

// GetStatus queues a status report.
func (m *Manager) GetStatus(cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindGetStatus, Priority: PriorityLow, Callback: cb})
}

// ReadUID queues an anticollision round against the current tag.
func (m *Manager) ReadUID(cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindReadUID, Priority: PriorityNormal, Callback: cb})
}

// ReadNDEF queues a full NDEF read.
func (m *Manager) ReadNDEF(cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindReadNDEF, Priority: PriorityNormal, Callback: cb})
}

// ReadText queues a text record read.
func (m *Manager) ReadText(cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindReadText, Priority: PriorityNormal, Callback: cb})
}

// ReadURI queues a URI record read.
func (m *Manager) ReadURI(cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindReadURI, Priority: PriorityNormal, Callback: cb})
}

// ReadWiFi queues a WiFi credential read.
func (m *Manager) ReadWiFi(cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindReadWiFi, Priority: PriorityNormal, Callback: cb})
}

// WriteNDEF queues a full NDEF message write.
func (m *Manager) WriteNDEF(msg *ndef.Message, cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindWriteNDEF, Priority: PriorityNormal, Message: msg, Callback: cb})
}

// WriteText queues a text record write.
func (m *Manager) WriteText(text, language string, cb Callback) (uint32, error) {
	return m.Submit(Command{
		Kind:     KindWriteText,
		Priority: PriorityNormal,
		Text:     text,
		Language: language,
		Callback: cb,
	})
}

// WriteURI queues a URI record write.
func (m *Manager) WriteURI(uri string, cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindWriteURI, Priority: PriorityNormal, URI: uri, Callback: cb})
}

// WriteURL queues a web address write.
func (m *Manager) WriteURL(url string, cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindWriteURL, Priority: PriorityNormal, URI: url, Callback: cb})
}

// WriteWiFi queues a WiFi credential write. security is one of "OPEN",
// "WEP", "WPA" or "WPA2".
func (m *Manager) WriteWiFi(ssid, password, security string, cb Callback) (uint32, error) {
	return m.Submit(Command{
		Kind:     KindWriteWiFi,
		Priority: PriorityNormal,
		SSID:     ssid,
		Password: password,
		Security: security,
		Callback: cb,
	})
}

// WritePhone queues a telephone number write.
func (m *Manager) WritePhone(phone string, cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindWritePhone, Priority: PriorityNormal, Phone: phone, Callback: cb})
}

// WriteEmail queues an email address write with optional subject and body.
func (m *Manager) WriteEmail(email, subject, body string, cb Callback) (uint32, error) {
	return m.Submit(Command{
		Kind:     KindWriteEmail,
		Priority: PriorityNormal,
		Email:    email,
		Subject:  subject,
		Body:     body,
		Callback: cb,
	})
}

// FormatTag queues a capability container rewrite.
func (m *Manager) FormatTag(cb Callback) (uint32, error) {
	return m.Submit(Command{Kind: KindFormatTag, Priority: PriorityNormal, Callback: cb})
}

// worker is the single goroutine touching the hardware. Each loop turn it
// drains one command or times out after WorkerWait, then runs a detection
// poll if detection is armed.
func (m *Manager) worker() {
	defer m.wg.Done()

	timer := time.NewTimer(m.cfg.WorkerWait)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(m.cfg.WorkerWait)

		select {
		case <-m.stop:
			return
		case cmd := <-m.commands:
			m.execute(cmd)
		case <-timer.C:
		}

		m.pollDetection()
	}
}

// pollDetection runs one detection round. An interrupt notification skips
// the hardware mutex wait budget down to a single try, so a stuck caller
// cannot starve detection of its polling cadence.
func (m *Manager) pollDetection() {
	if !m.nfc.DetectionActive() {
		return
	}

	budget := m.cfg.HardwareTimeout
	if !m.irqSeen.Swap(false) {
		budget = 0
	}
	if !syncutil.AcquireTimeout(&m.hwMu, budget) {
		return
	}
	defer m.hwMu.Unlock()

	tag, err := m.nfc.Poll()
	if err != nil {
		st25r.Debugf("detection poll: %v", err)
		return
	}
	if tag != nil {
		m.lastTagMu.Lock()
		m.lastTag = tag
		m.lastTagMu.Unlock()
	}
}

// execute runs one command under the hardware mutex and delivers its
// result.
func (m *Manager) execute(cmd Command) {
	res := Result{
		Operation: operationFor(cmd.Kind),
		Kind:      cmd.Kind,
		RequestID: cmd.RequestID,
	}

	if !syncutil.AcquireTimeout(&m.hwMu, m.cfg.HardwareTimeout) {
		res.Err = fmt.Errorf("hardware busy: %w", st25r.ErrTimeout)
		m.deliver(cmd, res)
		return
	}
	func() {
		// The deferred unlock releases the hardware even if a command
		// handler panics mid-run.
		defer m.hwMu.Unlock()
		m.run(cmd, &res)
	}()

	m.processed.Add(1)
	m.deliver(cmd, res)
}

func (m *Manager) run(cmd Command, res *Result) {
	switch cmd.Kind {
	case KindGetStatus:
		res.Stats = m.Stats()
		res.FieldOn, res.Err = m.nfc.Field()

	case KindInitialize:
		res.Err = m.nfc.Init()

	case KindDeinitialize:
		res.Err = m.nfc.Deinit()

	case KindStartDetection:
		res.Err = m.nfc.StartDetection(cmd.Mask, m.wrapDetection(cmd.DetectionCallback))

	case KindStopDetection:
		res.Err = m.nfc.StopDetection()

	case KindSetField:
		res.Err = m.nfc.SetField(cmd.FieldOn)
		res.FieldOn = cmd.FieldOn

	case KindReadUID:
		res.Tag = m.targetTag()
		res.UID, res.Err = m.nfc.Reader().ReadUID(res.Tag)

	case KindReadNDEF:
		res.Tag = m.targetTag()
		res.Message, res.Err = m.nfc.Reader().ReadNDEF(res.Tag)

	case KindReadText:
		res.Tag = m.targetTag()
		res.Text, res.Language, res.Err = m.nfc.Reader().ReadText(res.Tag)

	case KindReadURI:
		res.Tag = m.targetTag()
		res.URI, res.Err = m.nfc.Reader().ReadURI(res.Tag)

	case KindReadWiFi:
		res.Tag = m.targetTag()
		res.Credential, res.Err = m.nfc.Reader().ReadWiFi(res.Tag)

	case KindWriteNDEF:
		if cmd.Message == nil {
			res.Err = fmt.Errorf("nil NDEF message: %w", st25r.ErrInvalidParam)
			return
		}
		res.Tag = m.targetTag()
		res.Err = m.nfc.Writer().WriteNDEF(res.Tag, cmd.Message)

	case KindWriteText:
		res.Tag = m.targetTag()
		res.Err = m.nfc.Writer().WriteText(res.Tag, cmd.Text, cmd.Language)

	case KindWriteURI:
		res.Tag = m.targetTag()
		res.Err = m.nfc.Writer().WriteURI(res.Tag, cmd.URI)

	case KindWriteURL:
		res.Tag = m.targetTag()
		res.Err = m.nfc.Writer().WriteURL(res.Tag, cmd.URI)

	case KindWriteWiFi:
		res.Tag = m.targetTag()
		res.Err = m.nfc.Writer().WriteWiFi(res.Tag, cmd.SSID, cmd.Password, cmd.Security)

	case KindWritePhone:
		res.Tag = m.targetTag()
		res.Err = m.nfc.Writer().WritePhone(res.Tag, cmd.Phone)

	case KindWriteEmail:
		res.Tag = m.targetTag()
		res.Err = m.nfc.Writer().WriteEmail(res.Tag, cmd.Email, cmd.Subject, cmd.Body)

	case KindFormatTag:
		res.Tag = m.targetTag()
		res.Err = m.nfc.Writer().FormatTag(res.Tag)

	default:
		res.Err = fmt.Errorf("unknown command kind %d: %w", cmd.Kind, st25r.ErrInvalidParam)
	}
}

// wrapDetection caches each detected tag so read and write commands know
// their target, then forwards to the caller's callback.
func (m *Manager) wrapDetection(found st25r.DetectionCallback) st25r.DetectionCallback {
	return func(tag *st25r.TagInfo) {
		m.lastTagMu.Lock()
		m.lastTag = tag
		m.lastTagMu.Unlock()
		if found != nil {
			found(tag)
		}
	}
}

// targetTag returns the most recently detected tag, or a default Type A
// target when nothing has been detected yet.
func (m *Manager) targetTag() *st25r.TagInfo {
	m.lastTagMu.RLock()
	tag := m.lastTag
	m.lastTagMu.RUnlock()
	if tag != nil {
		return tag
	}
	return &st25r.TagInfo{Protocol: st25r.ProtocolISO14443A, DataSize: 2048}
}

// deliver hands the result to the command's callback, or to the result
// queue. A full result queue drops the delivery rather than blocking the
// worker.
func (m *Manager) deliver(cmd Command, res Result) {
	if cmd.Callback != nil {
		cmd.Callback(res)
		return
	}
	select {
	case m.results <- res:
	default:
		st25r.Debugf("result queue full, dropping result for request %d", res.RequestID)
	}
}

func (m *Manager) noteDepth(depth int) {
	m.highWaterMu.Lock()
	if depth > m.highWater {
		m.highWater = depth
	}
	m.highWaterMu.Unlock()
}

func operationFor(k Kind) Operation {
	switch k {
	case KindGetStatus:
		return OpStatus
	case KindInitialize, KindDeinitialize, KindStartDetection, KindStopDetection, KindSetField:
		return OpDetect
	case KindReadUID, KindReadNDEF, KindReadText, KindReadURI, KindReadWiFi:
		return OpRead
	case KindFormatTag:
		return OpFormat
	default:
		return OpWrite
	}
}
