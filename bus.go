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

package st25r3911b

import (
	"sync"
)

// Bus is the SPI transaction primitive the driver runs on. A single Transfer
// call covers one chip-select assertion: tx is clocked out while rx is
// filled, byte for byte. Implementations must be safe for use from a single
// goroutine at a time; serialization is the caller's job.
type Bus interface {
	// Transfer performs one full-duplex transaction. tx and rx must have
	// equal length; rx may be nil when the response does not matter.
	Transfer(tx, rx []byte) error

	// Close releases the underlying bus resources.
	Close() error
}

// MockBus is a Bus implementation for tests. Responses are keyed by the
// first byte of the transaction (the mode-encoded register address or the
// direct command code).
type MockBus struct {
	responses map[byte][]byte
	errors    map[byte]error
	calls     []MockCall
	mu        sync.Mutex
	closed    bool
}

// MockCall records a single Transfer seen by the mock.
type MockCall struct {
	TX []byte
	RX []byte
}

// NewMockBus creates a new mock bus
func NewMockBus() *MockBus {
	return &MockBus{
		responses: make(map[byte][]byte),
		errors:    make(map[byte]error),
	}
}

// SetResponse sets the response bytes clocked back for transactions whose
// first byte matches key. The response is aligned after the address byte.
func (m *MockBus) SetResponse(key byte, response []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key] = response
}

// SetError makes transactions whose first byte matches key fail with err.
func (m *MockBus) SetError(key byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[key] = err
}

// Transfer implements Bus.
func (m *MockBus) Transfer(tx, rx []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := MockCall{TX: append([]byte(nil), tx...)}
	m.calls = append(m.calls, call)

	if len(tx) == 0 {
		return ErrInvalidParam
	}

	if err, ok := m.errors[tx[0]]; ok {
		return err
	}

	if rx != nil {
		if resp, ok := m.responses[tx[0]]; ok {
			// First rx byte mirrors the address phase and stays zero.
			copy(rx[1:], resp)
		}
		m.calls[len(m.calls)-1].RX = append([]byte(nil), rx...)
	}
	return nil
}

// Close implements Bus.
func (m *MockBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns a copy of all transactions seen so far.
func (m *MockBus) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount returns the number of Transfer invocations.
func (m *MockBus) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls, responses and errors.
func (m *MockBus) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.responses = make(map[byte][]byte)
	m.errors = make(map[byte]error)
}
