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

// PinRole identifies the function a digital pin serves. The role is fixed
// when the pin is constructed; a pin never changes role at runtime.
type PinRole int

const (
	// PinRoleIRQ is the interrupt request line from the chip.
	PinRoleIRQ PinRole = iota
	// PinRoleLED is a status indicator output.
	PinRoleLED
)

func (r PinRole) String() string {
	switch r {
	case PinRoleIRQ:
		return "irq"
	case PinRoleLED:
		return "led"
	default:
		return "unknown"
	}
}

// Pin is a single digital line. Input pins support edge notification via
// Watch; output pins support Write and Toggle.
type Pin interface {
	// Role reports the function this pin was constructed for.
	Role() PinRole

	// Read returns the current logic level.
	Read() bool

	// Write drives the line. Returns ErrInvalidParam on input-only pins.
	Write(level bool) error

	// Toggle inverts the line. Returns ErrInvalidParam on input-only pins.
	Toggle() error

	// Watch registers fn to run on every rising edge. Passing nil removes
	// the current callback. Returns ErrInvalidParam on output-only pins.
	Watch(fn func()) error
}

// MemPin is an in-memory Pin for tests and simulation. Raising an IRQ-role
// pin fires the watch callback synchronously.
type MemPin struct {
	fn    func()
	role  PinRole
	level bool
	mu    sync.Mutex
}

// NewMemPin creates an in-memory pin with the given role.
func NewMemPin(role PinRole) *MemPin {
	return &MemPin{role: role}
}

// Role implements Pin.
func (p *MemPin) Role() PinRole { return p.role }

// Read implements Pin.
func (p *MemPin) Read() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Write implements Pin.
func (p *MemPin) Write(level bool) error {
	if p.role == PinRoleIRQ {
		return ErrInvalidParam
	}
	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
	return nil
}

// Toggle implements Pin.
func (p *MemPin) Toggle() error {
	if p.role == PinRoleIRQ {
		return ErrInvalidParam
	}
	p.mu.Lock()
	p.level = !p.level
	p.mu.Unlock()
	return nil
}

// Watch implements Pin.
func (p *MemPin) Watch(fn func()) error {
	if p.role != PinRoleIRQ {
		return ErrInvalidParam
	}
	p.mu.Lock()
	p.fn = fn
	p.mu.Unlock()
	return nil
}

// Raise simulates a rising edge on the line. The watch callback, if any,
// runs on the caller's goroutine.
func (p *MemPin) Raise() {
	p.mu.Lock()
	p.level = true
	fn := p.fn
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Clear simulates the line returning low.
func (p *MemPin) Clear() {
	p.mu.Lock()
	p.level = false
	p.mu.Unlock()
}
