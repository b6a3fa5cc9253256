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
	"testing"
	"time"

	"github.com/Cascalio-Studio/spool-key/internal/simtag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSimDevice wires a device to a simulated chip with delays removed, so
// state machine tests run at full speed.
func newSimDevice(t *testing.T) (*Device, *simtag.Chip) {
	t.Helper()

	chip := simtag.NewChip()
	pin := NewMemPin(PinRoleIRQ)
	chip.Notify = pin.Raise

	dev, err := New(chip, pin, WithConfig(Config{
		DefaultProtocol: ProtocolISO14443A,
		ReceiveTimeout:  50 * time.Millisecond,
	}))
	require.NoError(t, err)
	return dev, chip
}

func TestInit(t *testing.T) {
	t.Parallel()
	dev, chip := newSimDevice(t)

	require.NoError(t, dev.Init())
	assert.True(t, dev.Initialized())
	assert.Equal(t, ProtocolISO14443A, dev.Protocol())

	// Receiver enabled with Manchester coding and transmit CRC.
	assert.Equal(t, OpControlRxEn|OpControlRxMan|OpControlTxCRC, chip.Register(RegOpControl))
	// FIFO water level configured.
	assert.Equal(t, byte(FIFOWaterLevel), chip.Register(RegIOConf1))
	// Main receive and transmit interrupt sources unmasked, everything
	// else masked out.
	assert.Equal(t, byte(^(IRQMainRxs | IRQMainRxe | IRQMainTxe | IRQMainCol)),
		chip.Register(RegIRQMaskMain))

	// A second Init is a no-op.
	require.NoError(t, dev.Init())
}

func TestInitRejectsWrongChip(t *testing.T) {
	t.Parallel()
	dev, chip := newSimDevice(t)

	chip.SetIdentity(0x1F)
	err := dev.Init()
	assert.ErrorIs(t, err, ErrWrongChip)
	assert.False(t, dev.Initialized())
}

func TestDeinit(t *testing.T) {
	t.Parallel()
	dev, chip := newSimDevice(t)

	require.NoError(t, dev.Init())
	require.NoError(t, dev.SetField(true))
	require.NoError(t, dev.Deinit())

	assert.False(t, dev.Initialized())
	assert.Equal(t, ProtocolUnknown, dev.Protocol())
	// Register defaults restored by the set-default command.
	assert.Equal(t, byte(0), chip.Register(RegOpControl))

	// Deinit again is a no-op.
	require.NoError(t, dev.Deinit())
}

func TestSetFieldIdempotent(t *testing.T) {
	t.Parallel()
	dev, bus := newMockDevice(t)

	require.NoError(t, dev.SetField(true))
	on := bus.CallCount()
	assert.Positive(t, on)

	// Same state again must not touch the bus.
	require.NoError(t, dev.SetField(true))
	assert.Equal(t, on, bus.CallCount())

	require.NoError(t, dev.SetField(false))
	off := bus.CallCount()
	assert.Greater(t, off, on)

	require.NoError(t, dev.SetField(false))
	assert.Equal(t, off, bus.CallCount())
}

func TestSetFieldRegisterSequence(t *testing.T) {
	t.Parallel()
	dev, chip := newSimDevice(t)

	require.NoError(t, dev.SetField(true))
	assert.Equal(t, OpControlEn, chip.Register(RegOpControl)&OpControlEn)
	assert.Equal(t, ModeTREn, chip.Register(RegMode)&ModeTREn)

	on, err := dev.Field()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, dev.SetField(false))
	assert.Zero(t, chip.Register(RegMode)&ModeTREn)
	assert.Zero(t, chip.Register(RegOpControl)&OpControlEn)
}

func TestSetProtocol(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		protocol Protocol
		wantReg  byte
		wantVal  byte
		wantOM   byte
	}{
		{"ISO14443A", ProtocolISO14443A, RegISO14443ANfc, 0x88, ModeOMISO14443A},
		{"MIFARE rides on Type A", ProtocolMifareClassic, RegISO14443ANfc, 0x88, ModeOMISO14443A},
		{"ISO14443B", ProtocolISO14443B, RegISO14443B, 0x00, ModeOMISO14443B},
		{"FeliCa", ProtocolFeliCa, RegBitRate, 0x00, ModeOMFeliCa},
		{"ISO15693", ProtocolISO15693, RegStreamMode, 0x00, ModeOMSubc},
		{"P2P", ProtocolP2P, RegP2PRxConf, 0x00, ModeOMNfc},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dev, chip := newSimDevice(t)

			require.NoError(t, dev.SetProtocol(tt.protocol))
			assert.Equal(t, tt.protocol, dev.Protocol())
			assert.Equal(t, tt.wantVal, chip.Register(tt.wantReg))
			assert.Equal(t, tt.wantOM, chip.Register(RegMode)&ModeOMMask)
		})
	}
}

func TestSetProtocolUnknown(t *testing.T) {
	t.Parallel()
	dev, _ := newSimDevice(t)

	assert.ErrorIs(t, dev.SetProtocol(ProtocolUnknown), ErrInvalidParam)
}

func TestTransmitRequiresInit(t *testing.T) {
	t.Parallel()
	dev, _ := newSimDevice(t)

	assert.ErrorIs(t, dev.Transmit([]byte{0x26}, true), ErrNotInitialized)
	_, err := dev.Receive(0)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestTransmitRejectsEmptyFrame(t *testing.T) {
	t.Parallel()
	dev, _ := newSimDevice(t)

	require.NoError(t, dev.Init())
	assert.ErrorIs(t, dev.Transmit(nil, true), ErrInvalidParam)
}

func TestReceiveTimeoutBound(t *testing.T) {
	t.Parallel()
	dev, _ := newSimDevice(t)

	require.NoError(t, dev.Init())

	start := time.Now()
	_, err := dev.Receive(50 * time.Millisecond)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}
