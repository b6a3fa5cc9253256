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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	t.Run("nil bus rejected", func(t *testing.T) {
		t.Parallel()
		_, err := New(nil, nil)
		assert.ErrorIs(t, err, ErrInvalidParam)
	})

	t.Run("wrong pin role rejected", func(t *testing.T) {
		t.Parallel()
		_, err := New(NewMockBus(), NewMemPin(PinRoleLED))
		assert.ErrorIs(t, err, ErrInvalidParam)
	})

	t.Run("nil pin accepted", func(t *testing.T) {
		t.Parallel()
		dev, err := New(NewMockBus(), nil)
		require.NoError(t, err)
		assert.False(t, dev.Initialized())
		assert.Equal(t, ProtocolUnknown, dev.Protocol())
	})
}

func TestNewOptions(t *testing.T) {
	t.Parallel()

	dev, err := New(NewMockBus(), nil,
		WithDefaultProtocol(ProtocolFeliCa),
		WithReceiveTimeout(42*time.Millisecond),
		WithFieldSettleDelay(time.Millisecond),
	)
	require.NoError(t, err)

	cfg := dev.Config()
	assert.Equal(t, ProtocolFeliCa, cfg.DefaultProtocol)
	assert.Equal(t, 42*time.Millisecond, cfg.ReceiveTimeout)
	assert.Equal(t, time.Millisecond, cfg.FieldSettleDelay)
}

func TestIRQPinWiring(t *testing.T) {
	t.Parallel()

	pin := NewMemPin(PinRoleIRQ)
	dev, err := New(NewMockBus(), pin)
	require.NoError(t, err)

	assert.False(t, dev.irqPending.Load())
	pin.Raise()
	assert.True(t, dev.irqPending.Load())
}

func TestCloseReleasesBus(t *testing.T) {
	t.Parallel()

	bus := NewMockBus()
	dev, err := New(bus, nil)
	require.NoError(t, err)

	require.NoError(t, dev.Close())
	bus.mu.Lock()
	closed := bus.closed
	bus.mu.Unlock()
	assert.True(t, closed)
}

func TestMemPinRoles(t *testing.T) {
	t.Parallel()

	irq := NewMemPin(PinRoleIRQ)
	assert.Equal(t, PinRoleIRQ, irq.Role())
	assert.ErrorIs(t, irq.Write(true), ErrInvalidParam)
	assert.ErrorIs(t, irq.Toggle(), ErrInvalidParam)
	assert.NoError(t, irq.Watch(func() {}))

	led := NewMemPin(PinRoleLED)
	assert.Equal(t, PinRoleLED, led.Role())
	assert.ErrorIs(t, led.Watch(func() {}), ErrInvalidParam)
	require.NoError(t, led.Write(true))
	assert.True(t, led.Read())
	require.NoError(t, led.Toggle())
	assert.False(t, led.Read())
}
