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

// Package spi connects the driver to a real ST25R3911B over a host SPI
// port and a GPIO interrupt line, using periph.io for both.
package spi

import (
	"fmt"
	"sync"
	"time"

	st25r "github.com/Cascalio-Studio/spool-key"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// defaultFreq stays well under the chip's 6 MHz ceiling.
	defaultFreq = 2 * physic.MegaHertz

	// The ST25R3911B samples MOSI on the falling clock edge.
	busMode = spi.Mode1
)

// hostInit runs periph host discovery once per process.
var hostInit sync.Once

func initHost() error {
	var err error
	hostInit.Do(func() {
		_, err = host.Init()
	})
	return err
}

// Bus implements the driver's Bus interface on a periph.io SPI port.
type Bus struct {
	port spi.PortCloser
	conn spi.Conn
	name string
	mu   sync.Mutex
}

// Option configures a Bus.
type Option func(*options)

type options struct {
	freq physic.Frequency
}

// WithFrequency overrides the SPI clock frequency.
func WithFrequency(freq physic.Frequency) Option {
	return func(o *options) { o.freq = freq }
}

// Open opens the named SPI port. An empty name selects the first port
// periph.io registered.
func Open(portName string, opts ...Option) (*Bus, error) {
	o := options{freq: defaultFreq}
	for _, opt := range opts {
		opt(&o)
	}

	if err := initHost(); err != nil {
		return nil, fmt.Errorf("initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("open SPI port %q: %w", portName, err)
	}

	conn, err := port.Connect(o.freq, busMode, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("connect SPI port %q: %w", portName, err)
	}

	return &Bus{port: port, conn: conn, name: portName}, nil
}

// Transfer implements one full-duplex chip-select cycle.
func (b *Bus) Transfer(tx, rx []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return fmt.Errorf("SPI port %q: %w", b.name, st25r.ErrNotInitialized)
	}
	if err := b.conn.Tx(tx, rx); err != nil {
		return fmt.Errorf("SPI transfer on %q: %w", b.name, err)
	}
	return nil
}

// Close releases the SPI port.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port = nil
	b.conn = nil
	if err != nil {
		return fmt.Errorf("close SPI port %q: %w", b.name, err)
	}
	return nil
}

// edgeWait bounds a single WaitForEdge call so the watcher goroutine can
// notice a removed callback.
const edgeWait = time.Second

// IRQPin adapts a periph.io GPIO line to the driver's Pin interface. The
// line is configured as a pulled-down input reporting rising edges.
type IRQPin struct {
	pin  gpio.PinIO
	stop chan struct{}
	mu   sync.Mutex
}

// OpenIRQPin opens the named GPIO line as the chip's interrupt input.
func OpenIRQPin(pinName string) (*IRQPin, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("initialize periph host: %w", err)
	}

	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("GPIO pin %q not found: %w", pinName, st25r.ErrInvalidParam)
	}
	if err := pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("configure GPIO pin %q: %w", pinName, err)
	}

	return &IRQPin{pin: pin}, nil
}

// Role implements Pin.
func (*IRQPin) Role() st25r.PinRole { return st25r.PinRoleIRQ }

// Read implements Pin.
func (p *IRQPin) Read() bool { return p.pin.Read() == gpio.High }

// Write implements Pin. The interrupt line is input only.
func (*IRQPin) Write(bool) error { return st25r.ErrInvalidParam }

// Toggle implements Pin. The interrupt line is input only.
func (*IRQPin) Toggle() error { return st25r.ErrInvalidParam }

// Watch implements Pin. fn runs on a dedicated goroutine for every rising
// edge; a nil fn stops the goroutine.
func (p *IRQPin) Watch(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	if fn == nil {
		return nil
	}

	stop := make(chan struct{})
	p.stop = stop
	go p.watch(fn, stop)
	return nil
}

func (p *IRQPin) watch(fn func(), stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if p.pin.WaitForEdge(edgeWait) {
			fn()
		}
	}
}

// LEDPin adapts a periph.io GPIO line to the driver's Pin interface as a
// status indicator output.
type LEDPin struct {
	pin   gpio.PinIO
	level bool
	mu    sync.Mutex
}

// OpenLEDPin opens the named GPIO line as an indicator output, driven low.
func OpenLEDPin(pinName string) (*LEDPin, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("initialize periph host: %w", err)
	}

	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("GPIO pin %q not found: %w", pinName, st25r.ErrInvalidParam)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configure GPIO pin %q: %w", pinName, err)
	}

	return &LEDPin{pin: pin}, nil
}

// Role implements Pin.
func (*LEDPin) Role() st25r.PinRole { return st25r.PinRoleLED }

// Read implements Pin.
func (p *LEDPin) Read() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Write implements Pin.
func (p *LEDPin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	l := gpio.Low
	if level {
		l = gpio.High
	}
	if err := p.pin.Out(l); err != nil {
		return fmt.Errorf("drive GPIO pin: %w", err)
	}
	p.level = level
	return nil
}

// Toggle implements Pin.
func (p *LEDPin) Toggle() error {
	p.mu.Lock()
	level := p.level
	p.mu.Unlock()
	return p.Write(!level)
}

// Watch implements Pin. Output pins do not report edges.
func (*LEDPin) Watch(func()) error { return st25r.ErrInvalidParam }
