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
	"context"
	"fmt"
	"time"
)

// Init brings the chip from power-up to an operational state: reset,
// identity check, default configuration and default protocol selection.
// Calling Init on an initialized device is a no-op.
func (d *Device) Init() error {
	if d.initialized.Load() {
		return nil
	}

	if err := d.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	identity, err := d.Identity()
	if err != nil {
		return fmt.Errorf("read identity: %w", err)
	}
	if identity&ICTypeMask != ICIdentityValue {
		return fmt.Errorf("identity 0x%02X: %w", identity, ErrWrongChip)
	}

	if err := d.configureDefaults(); err != nil {
		return fmt.Errorf("configure defaults: %w", err)
	}

	if err := d.SetProtocol(d.config.DefaultProtocol); err != nil {
		return fmt.Errorf("select default protocol: %w", err)
	}

	d.initialized.Store(true)
	Debugf("device initialized, identity 0x%02X", identity)
	return nil
}

// Deinit turns the field off, disables all interrupts and restores the
// power-up register defaults. Calling Deinit on an uninitialized device is
// a no-op.
func (d *Device) Deinit() error {
	if !d.initialized.Load() {
		return nil
	}

	if err := d.SetField(false); err != nil {
		return fmt.Errorf("field off: %w", err)
	}
	if err := d.SetInterruptMasks(0xFF, 0xFF, 0xFF, 0xFF); err != nil {
		return fmt.Errorf("mask interrupts: %w", err)
	}
	if err := d.ExecuteCommand(CmdSetDefault); err != nil {
		return fmt.Errorf("set default: %w", err)
	}

	d.initialized.Store(false)
	d.protocol = ProtocolUnknown
	return nil
}

// Reset restores register defaults, waits for the oscillator and drains
// FIFO and interrupt state.
func (d *Device) Reset() error {
	if err := d.ExecuteCommand(CmdSetDefault); err != nil {
		return err
	}

	time.Sleep(d.config.OscillatorStartDelay)

	if err := d.ClearFIFO(); err != nil {
		return err
	}
	return d.ClearInterrupts()
}

// Identity reads the IC identity register. The low five bits carry the
// chip type code.
func (d *Device) Identity() (byte, error) {
	return d.ReadRegister(RegICIdentity)
}

// SetField switches the RF carrier. Requesting the state the field is
// already in returns immediately without touching the bus.
func (d *Device) SetField(on bool) error {
	if d.fieldOn == on {
		return nil
	}

	if on {
		if err := d.ModifyRegister(RegOpControl, OpControlEn, OpControlEn); err != nil {
			return err
		}
		if err := d.ModifyRegister(RegMode, ModeTREn, ModeTREn); err != nil {
			return err
		}
		// Give tags in the field time to power up.
		time.Sleep(d.config.FieldSettleDelay)
	} else {
		if err := d.ModifyRegister(RegMode, ModeTREn, 0x00); err != nil {
			return err
		}
		if err := d.ModifyRegister(RegOpControl, OpControlEn, 0x00); err != nil {
			return err
		}
	}

	d.fieldOn = on
	return nil
}

// Field reads the carrier state back from the mode register and resyncs
// the cached state.
func (d *Device) Field() (bool, error) {
	mode, err := d.ReadRegister(RegMode)
	if err != nil {
		return false, err
	}
	d.fieldOn = mode&ModeTREn != 0
	return d.fieldOn, nil
}

// SetProtocol configures the RF protocol: the protocol-specific register
// first, then the operation mode field of the mode register.
func (d *Device) SetProtocol(p Protocol) error {
	var om byte
	var err error

	switch p {
	case ProtocolISO14443A, ProtocolMifareClassic:
		// MIFARE Classic rides on ISO14443A framing.
		om = ModeOMISO14443A
		err = d.WriteRegister(RegISO14443ANfc, 0x88)
	case ProtocolISO14443B:
		om = ModeOMISO14443B
		err = d.WriteRegister(RegISO14443B, 0x00)
	case ProtocolFeliCa:
		om = ModeOMFeliCa
		err = d.WriteRegister(RegBitRate, 0x00)
	case ProtocolISO15693:
		om = ModeOMSubc
		err = d.WriteRegister(RegStreamMode, 0x00)
	case ProtocolP2P:
		om = ModeOMNfc
		err = d.WriteRegister(RegP2PRxConf, 0x00)
	default:
		return fmt.Errorf("protocol %v: %w", p, ErrInvalidParam)
	}
	if err != nil {
		return err
	}

	if err := d.ModifyRegister(RegMode, ModeOMMask, om); err != nil {
		return err
	}

	d.protocol = p
	return nil
}

// Transmit clears the FIFO, loads data and fires the transmit command.
// withCRC selects whether the chip appends a CRC to the frame.
func (d *Device) Transmit(data []byte, withCRC bool) error {
	if !d.initialized.Load() {
		return ErrNotInitialized
	}
	if len(data) == 0 {
		return fmt.Errorf("transmit: %w", ErrInvalidParam)
	}

	if err := d.ClearFIFO(); err != nil {
		return err
	}
	if err := d.WriteFIFO(data); err != nil {
		return err
	}

	cmd := CmdTransmitWithoutCRC
	if withCRC {
		cmd = CmdTransmitWithCRC
	}
	return d.ExecuteCommand(cmd)
}

// Receive waits for the next chip interrupt and drains the FIFO. A zero
// timeout uses the configured ReceiveTimeout.
func (d *Device) Receive(timeout time.Duration) ([]byte, error) {
	return d.ReceiveContext(context.Background(), timeout)
}

// ReceiveContext is Receive with cancellation.
func (d *Device) ReceiveContext(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if !d.initialized.Load() {
		return nil, ErrNotInitialized
	}
	if timeout <= 0 {
		timeout = d.config.ReceiveTimeout
	}

	if err := d.waitForInterrupt(ctx, timeout); err != nil {
		return nil, err
	}

	irq, err := d.InterruptStatus()
	if err != nil {
		return nil, err
	}

	switch {
	case irq[0]&IRQMainCol != 0:
		return nil, ErrCollision
	case irq[0]&IRQMainEof != 0:
		return nil, ErrFIFOOverflow
	case irq[0]&IRQMainRxe != 0:
		count, _, err := d.FIFOStatus()
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrNoTagFound
		}
		return d.ReadFIFO(count)
	default:
		// Interrupt without a completed receive, typically transmit-end
		// with nothing answering.
		return nil, ErrNoTagFound
	}
}

// TransmitReceive performs a CRC-framed transmit followed by a receive.
func (d *Device) TransmitReceive(data []byte, timeout time.Duration) ([]byte, error) {
	if err := d.Transmit(data, true); err != nil {
		return nil, err
	}
	return d.Receive(timeout)
}

// waitForInterrupt polls the pending flag at millisecond granularity until
// it is set, the timeout expires or the context is canceled.
func (d *Device) waitForInterrupt(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if d.irqPending.CompareAndSwap(true, false) {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("receive canceled: %w", ctx.Err())
		case <-time.After(time.Millisecond):
		}
	}
}

// configureDefaults applies the post-reset baseline: receiver on with
// Manchester coding and transmit CRC, main interrupts unmasked, FIFO water
// level set.
func (d *Device) configureDefaults() error {
	err := d.WriteRegister(RegOpControl, OpControlRxEn|OpControlRxMan|OpControlTxCRC)
	if err != nil {
		return err
	}

	// Mask registers are inverted: zero enables an interrupt source. Only
	// the main receive/transmit/collision sources stay enabled.
	masks := ^(IRQMainRxs | IRQMainRxe | IRQMainTxe | IRQMainCol)
	if err := d.SetInterruptMasks(masks, 0xFF, 0xFF, 0xFF); err != nil {
		return err
	}

	return d.WriteRegister(RegIOConf1, FIFOWaterLevel)
}
