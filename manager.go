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
	"errors"
	"fmt"
)

// reqaCommand is the short-frame ISO14443A request sent during detection.
var reqaCommand = []byte{0x26}

// DetectionCallback receives each tag found while detection is active.
type DetectionCallback func(*TagInfo)

// Manager coordinates detection and tag operations on one device. It owns
// a TagReader and TagWriter sharing the device.
//
// Like Device, Manager is not goroutine-safe; the task manager serializes
// access to it.
type Manager struct {
	dev    *Device
	reader *TagReader
	writer *TagWriter

	detectionCallback DetectionCallback
	detectionMask     ProtocolMask
	detectionActive   bool
}

// NewManager creates a manager with a reader and writer on dev
func NewManager(dev *Device) *Manager {
	return &Manager{
		dev:    dev,
		reader: NewTagReader(dev),
		writer: NewTagWriter(dev),
	}
}

// Device returns the underlying device.
func (m *Manager) Device() *Device { return m.dev }

// Reader returns the tag reader.
func (m *Manager) Reader() *TagReader { return m.reader }

// Writer returns the tag writer.
func (m *Manager) Writer() *TagWriter { return m.writer }

// Init initializes the underlying device.
func (m *Manager) Init() error {
	return m.dev.Init()
}

// Deinit stops detection and shuts the device down.
func (m *Manager) Deinit() error {
	if err := m.StopDetection(); err != nil {
		return err
	}
	return m.dev.Deinit()
}

// StartDetection turns the field on and arms tag detection. Detection
// polls happen through Poll, driven by the task manager worker. mask
// narrows the protocol families reported; detection always probes Type A
// first, the way the chip is configured by default.
func (m *Manager) StartDetection(mask ProtocolMask, cb DetectionCallback) error {
	if !m.dev.Initialized() {
		return ErrNotInitialized
	}
	if m.detectionActive {
		return fmt.Errorf("detection already active: %w", ErrInvalidParam)
	}
	if cb == nil {
		return fmt.Errorf("nil detection callback: %w", ErrInvalidParam)
	}

	m.detectionCallback = cb
	m.detectionMask = mask
	m.detectionActive = true

	if err := m.dev.SetField(true); err != nil {
		m.detectionActive = false
		return err
	}
	if err := m.dev.SetProtocol(ProtocolISO14443A); err != nil {
		m.detectionActive = false
		return err
	}
	return nil
}

// StopDetection disarms detection and turns the field off. Stopping idle
// detection is a no-op.
func (m *Manager) StopDetection() error {
	if !m.detectionActive {
		return nil
	}

	m.detectionActive = false
	m.detectionCallback = nil
	return m.dev.SetField(false)
}

// DetectionActive reports whether detection is armed.
func (m *Manager) DetectionActive() bool {
	return m.detectionActive
}

// SetField switches the RF carrier.
func (m *Manager) SetField(on bool) error {
	if !m.dev.Initialized() {
		return ErrNotInitialized
	}
	return m.dev.SetField(on)
}

// Field reads the carrier state.
func (m *Manager) Field() (bool, error) {
	if !m.dev.Initialized() {
		return false, nil
	}
	return m.dev.Field()
}

// Poll runs one detection round: REQA out, identify whatever answers, and
// report it through the callback. Silence in the field is not an error.
func (m *Manager) Poll() (*TagInfo, error) {
	if !m.detectionActive || m.detectionCallback == nil {
		return nil, nil
	}

	resp, err := m.dev.TransmitReceive(reqaCommand, tagExchangeTimeout)
	switch {
	case errors.Is(err, ErrNoTagFound), errors.Is(err, ErrTimeout):
		return nil, nil
	case err != nil:
		return nil, err
	}

	tag, err := IdentifyTag(resp)
	if err != nil {
		return nil, nil
	}
	if !m.maskMatches(tag.Protocol) {
		return nil, nil
	}

	m.detectionCallback(tag)
	return tag, nil
}

func (m *Manager) maskMatches(p Protocol) bool {
	switch p {
	case ProtocolISO14443A, ProtocolMifareClassic:
		return m.detectionMask&MaskISO14443A != 0
	case ProtocolISO14443B:
		return m.detectionMask&MaskISO14443B != 0
	case ProtocolFeliCa:
		return m.detectionMask&MaskFeliCa != 0
	case ProtocolISO15693:
		return m.detectionMask&MaskISO15693 != 0
	default:
		return false
	}
}
