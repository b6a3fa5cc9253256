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

// Package st25r3911b drives the ST25R3911B NFC front-end over a
// register/FIFO SPI bus. It covers register and FIFO access, the RF field
// and protocol state machine, tag identification and NDEF-level tag
// read/write operations.
package st25r3911b

import (
	"sync/atomic"
	"time"
)

// Config holds device configuration.
type Config struct {
	// DefaultProtocol is selected at the end of Init.
	DefaultProtocol Protocol

	// ReceiveTimeout bounds Receive when no explicit deadline is given.
	ReceiveTimeout time.Duration

	// FieldSettleDelay is the wait after switching the RF field, giving
	// nearby tags time to power up.
	FieldSettleDelay time.Duration

	// OscillatorStartDelay is the wait after enabling the oscillator
	// during reset.
	OscillatorStartDelay time.Duration
}

// DefaultConfig returns the default device configuration
func DefaultConfig() Config {
	return Config{
		DefaultProtocol:      ProtocolISO14443A,
		ReceiveTimeout:       100 * time.Millisecond,
		FieldSettleDelay:     5 * time.Millisecond,
		OscillatorStartDelay: 10 * time.Millisecond,
	}
}

// Option configures a Device during New
type Option func(*Device)

// WithDefaultProtocol sets the protocol selected after initialization
func WithDefaultProtocol(p Protocol) Option {
	return func(d *Device) {
		d.config.DefaultProtocol = p
	}
}

// WithReceiveTimeout sets the default Receive deadline
func WithReceiveTimeout(timeout time.Duration) Option {
	return func(d *Device) {
		d.config.ReceiveTimeout = timeout
	}
}

// WithFieldSettleDelay sets the wait applied after field changes
func WithFieldSettleDelay(delay time.Duration) Option {
	return func(d *Device) {
		d.config.FieldSettleDelay = delay
	}
}

// WithConfig replaces the whole configuration
func WithConfig(cfg Config) Option {
	return func(d *Device) {
		d.config = cfg
	}
}

// Device represents one ST25R3911B chip on an SPI bus.
//
// Thread Safety: Device is NOT thread-safe. All methods must be called from
// a single goroutine or protected with external synchronization, the way
// the task manager does. NotifyInterrupt is the one exception.
type Device struct {
	bus Bus
	irq Pin

	config   Config
	protocol Protocol

	initialized atomic.Bool
	irqPending  atomic.Bool
	fieldOn     bool
}

// New creates a Device on the given bus. The irq pin may be nil when
// interrupt signaling is handled externally; Receive then depends on
// NotifyInterrupt being called by the integration.
func New(bus Bus, irq Pin, opts ...Option) (*Device, error) {
	if bus == nil {
		return nil, ErrInvalidParam
	}
	if irq != nil && irq.Role() != PinRoleIRQ {
		return nil, ErrInvalidParam
	}

	d := &Device{
		bus:      bus,
		irq:      irq,
		config:   DefaultConfig(),
		protocol: ProtocolUnknown,
	}
	for _, opt := range opts {
		opt(d)
	}

	if irq != nil {
		if err := irq.Watch(d.NotifyInterrupt); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// NotifyInterrupt flags a pending chip interrupt. It is safe to call from
// an interrupt dispatch goroutine and does no bus traffic.
func (d *Device) NotifyInterrupt() {
	d.irqPending.Store(true)
}

// Initialized reports whether Init has completed successfully.
func (d *Device) Initialized() bool {
	return d.initialized.Load()
}

// Protocol returns the currently selected RF protocol.
func (d *Device) Protocol() Protocol {
	return d.protocol
}

// Config returns the active configuration.
func (d *Device) Config() Config {
	return d.config
}

// Close shuts the device down and releases the bus.
func (d *Device) Close() error {
	if d.initialized.Load() {
		if err := d.Deinit(); err != nil {
			Debugf("deinit during close: %v", err)
		}
	}
	return d.bus.Close()
}
