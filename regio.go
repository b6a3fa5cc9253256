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
	"fmt"
)

// Register and FIFO access. Every transaction starts with a mode-encoded
// address byte: 0x40 ORed in for reads, the bare address for writes, and
// direct commands sent as a single byte from the 0xC0-0xFF space. The chip
// auto-increments the address within one transaction, so burst access is a
// single chip-select cycle.

// ReadRegister reads a single register.
func (d *Device) ReadRegister(reg byte) (byte, error) {
	if reg > regMax {
		return 0, fmt.Errorf("read register 0x%02X: %w", reg, ErrInvalidParam)
	}

	tx := []byte{reg | spiModeRead, 0x00}
	rx := make([]byte, 2)
	if err := d.bus.Transfer(tx, rx); err != nil {
		return 0, NewBusError("read register", reg, err, ErrorTypeTransient)
	}
	return rx[1], nil
}

// ReadRegisters reads count consecutive registers starting at reg.
func (d *Device) ReadRegisters(reg byte, count int) ([]byte, error) {
	if count <= 0 || reg > regMax || int(reg)+count-1 > int(regMax) {
		return nil, fmt.Errorf("read registers 0x%02X+%d: %w", reg, count, ErrInvalidParam)
	}

	tx := make([]byte, count+1)
	tx[0] = reg | spiModeRead
	rx := make([]byte, count+1)
	if err := d.bus.Transfer(tx, rx); err != nil {
		return nil, NewBusError("read registers", reg, err, ErrorTypeTransient)
	}
	return rx[1:], nil
}

// WriteRegister writes a single register.
func (d *Device) WriteRegister(reg, value byte) error {
	if reg > regMax {
		return fmt.Errorf("write register 0x%02X: %w", reg, ErrInvalidParam)
	}

	if err := d.bus.Transfer([]byte{reg | spiModeWrite, value}, nil); err != nil {
		return NewBusError("write register", reg, err, ErrorTypeTransient)
	}
	return nil
}

// WriteRegisters writes consecutive registers starting at reg.
func (d *Device) WriteRegisters(reg byte, values []byte) error {
	if len(values) == 0 || reg > regMax || int(reg)+len(values)-1 > int(regMax) {
		return fmt.Errorf("write registers 0x%02X+%d: %w", reg, len(values), ErrInvalidParam)
	}

	tx := make([]byte, len(values)+1)
	tx[0] = reg | spiModeWrite
	copy(tx[1:], values)
	if err := d.bus.Transfer(tx, nil); err != nil {
		return NewBusError("write registers", reg, err, ErrorTypeTransient)
	}
	return nil
}

// ModifyRegister clears the bits in mask and sets the bits in value.
func (d *Device) ModifyRegister(reg, mask, value byte) error {
	current, err := d.ReadRegister(reg)
	if err != nil {
		return err
	}
	return d.WriteRegister(reg, (current&^mask)|value)
}

// ExecuteCommand issues a direct command.
func (d *Device) ExecuteCommand(cmd byte) error {
	if cmd < cmdMin {
		return fmt.Errorf("execute command 0x%02X: %w", cmd, ErrInvalidParam)
	}

	if err := d.bus.Transfer([]byte{cmd}, nil); err != nil {
		return NewBusError("execute command", cmd, err, ErrorTypeTransient)
	}
	return nil
}

// FIFOStatus returns the number of bytes in the FIFO and the raw second
// status byte. The count spans two registers: status1 carries the low seven
// bits, the top bit of status2 becomes the count's eighth bit (0x80).
func (d *Device) FIFOStatus() (int, byte, error) {
	status, err := d.ReadRegisters(RegFIFORxStatus1, 2)
	if err != nil {
		return 0, 0, err
	}

	count := int(status[0] & 0x7F)
	if status[1]&0x80 != 0 {
		count |= 0x80
	}
	return count, status[1], nil
}

// ClearFIFO resets the FIFO and collision state.
func (d *Device) ClearFIFO() error {
	return d.ExecuteCommand(CmdClearFIFO)
}

// WriteFIFO loads data into the transmit FIFO.
func (d *Device) WriteFIFO(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("write FIFO: %w", ErrInvalidParam)
	}
	if len(data) > FIFOSize {
		return fmt.Errorf("write FIFO: %d bytes: %w", len(data), ErrFIFOOverflow)
	}

	tx := make([]byte, len(data)+1)
	tx[0] = RegFIFOData | spiModeWrite
	copy(tx[1:], data)
	if err := d.bus.Transfer(tx, nil); err != nil {
		return NewBusError("write FIFO", RegFIFOData, err, ErrorTypeTransient)
	}
	return nil
}

// ReadFIFO drains count bytes from the receive FIFO.
func (d *Device) ReadFIFO(count int) ([]byte, error) {
	if count <= 0 || count > FIFOSize {
		return nil, fmt.Errorf("read FIFO: %d bytes: %w", count, ErrInvalidParam)
	}

	available, _, err := d.FIFOStatus()
	if err != nil {
		return nil, err
	}
	if available < count {
		return nil, fmt.Errorf("read FIFO: %d requested, %d available: %w",
			count, available, ErrFIFOUnderflow)
	}

	tx := make([]byte, count+1)
	tx[0] = RegFIFOData | spiModeRead
	rx := make([]byte, count+1)
	if err := d.bus.Transfer(tx, rx); err != nil {
		return nil, NewBusError("read FIFO", RegFIFOData, err, ErrorTypeTransient)
	}
	return rx[1:], nil
}

// InterruptStatus reads all four interrupt status registers in one burst.
// Reading clears the flags on the chip.
func (d *Device) InterruptStatus() ([]byte, error) {
	return d.ReadRegisters(RegIRQMain, 4)
}

// ClearInterrupts drains any latched interrupt flags.
func (d *Device) ClearInterrupts() error {
	_, err := d.InterruptStatus()
	if err == nil {
		d.irqPending.Store(false)
	}
	return err
}

// SetInterruptMasks writes the four interrupt mask registers. A set bit
// disables the corresponding interrupt source.
func (d *Device) SetInterruptMasks(main, timerNfc, errorWup, target byte) error {
	return d.WriteRegisters(RegIRQMaskMain, []byte{main, timerNfc, errorWup, target})
}
