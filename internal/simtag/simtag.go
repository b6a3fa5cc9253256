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

// Package simtag simulates an ST25R3911B reader chip with an optional tag
// in its field, behind the same SPI framing the real chip speaks. It backs
// driver and task manager tests that need full transmit/receive round trips
// without hardware.
//
// The package carries its own copies of the register and command constants
// so the driver package can use it from its tests without an import cycle.
package simtag

import (
	"fmt"
	"sync"
)

// SPI framing and chip constants, mirroring the real part.
const (
	regCount = 0x40

	modeRead   byte = 0x40
	cmdMin     byte = 0xC0
	addrMask   byte = 0x3F
	regIRQMain byte = 0x36
	regIRQMask byte = 0x3A

	regFIFOStatus1 byte = 0x28
	regFIFOStatus2 byte = 0x29
	regICIdentity  byte = 0x27
	regFIFOData    byte = 0x3F

	cmdSetDefault      byte = 0xC1
	cmdClearFIFO       byte = 0xC2
	cmdTransmitWithCRC byte = 0xC4
	cmdTransmitNoCRC   byte = 0xC5

	irqMainRxs byte = 0x20
	irqMainRxe byte = 0x10
	irqMainTxe byte = 0x08
	irqMainCol byte = 0x04

	fifoSize = 96

	// defaultIdentity is the IC type code the driver expects.
	defaultIdentity byte = 0x09
)

// Tag command bytes understood by the simulated tag.
const (
	tagCmdREQA      byte = 0x26
	tagCmdAnticoll  byte = 0x93
	tagCmdRead      byte = 0x30
	tagCmdWritePage byte = 0xA2
	tagCmdWriteBlk  byte = 0xA0
	tagCmdAuthA     byte = 0x60

	tagAck byte = 0x0A

	blockSize = 16
	pageSize  = 4
)

// defaultMifareKey is the transport key the simulated tag accepts.
var defaultMifareKey = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// Tag is a simulated ISO14443A tag with paged or block-addressed storage.
type Tag struct {
	// UID is the 4-byte single-size identifier.
	UID []byte
	// ATQA holds the answer-to-request bytes in over-the-air order,
	// least significant byte first.
	ATQA [2]byte
	// Memory is the tag storage, addressed from byte 0.
	Memory []byte
	// Mifare gates reads and writes behind key A authentication and
	// switches the write command to 16-byte blocks.
	Mifare bool

	authenticated bool
}

// NewTypeATag builds a Type 2 tag with the given storage size.
func NewTypeATag(uid []byte, size int) *Tag {
	return &Tag{
		UID:    append([]byte(nil), uid...),
		ATQA:   [2]byte{0x44, 0x00},
		Memory: make([]byte, size),
	}
}

// NewMifareTag builds a MIFARE Classic 1K tag.
func NewMifareTag(uid []byte) *Tag {
	return &Tag{
		UID:    append([]byte(nil), uid...),
		ATQA:   [2]byte{0x04, 0x00},
		Memory: make([]byte, 1024),
		Mifare: true,
	}
}

// Chip simulates the reader IC. It implements the driver's Bus interface:
// Transfer decodes the address byte the way the real part does and Close
// marks the chip unusable.
//
// All methods are safe for concurrent use.
type Chip struct {
	mu sync.Mutex

	registers [regCount]byte
	fifoTx    []byte
	fifoRx    []byte

	tag    *Tag
	closed bool

	// Notify is called, with the chip lock held, whenever an unmasked
	// interrupt fires. Wire it to the IRQ pin's Raise method.
	Notify func()

	// ForceCollision makes the next transmit end in a collision.
	ForceCollision bool

	// TransferErr, when set, fails every Transfer. It simulates a broken
	// SPI link.
	TransferErr error
}

// NewChip creates a powered-up chip with no tag in the field.
func NewChip() *Chip {
	c := &Chip{}
	c.reset()
	return c
}

// SetTag places a tag in the field, or removes it when nil.
func (c *Chip) SetTag(tag *Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tag = tag
}

// SetIdentity overrides the IC identity register, for wrong-chip scenarios.
func (c *Chip) SetIdentity(value byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registers[regICIdentity] = value
}

// Register returns the current value of a register, for assertions.
func (c *Chip) Register(reg byte) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registers[reg&addrMask]
}

// Transfer implements the SPI transaction: direct command, burst read or
// burst write depending on the first transmit byte.
func (c *Chip) Transfer(tx, rx []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("simtag: chip closed")
	}
	if c.TransferErr != nil {
		return c.TransferErr
	}
	if len(tx) == 0 {
		return fmt.Errorf("simtag: empty transaction")
	}

	switch {
	case tx[0] >= cmdMin:
		c.command(tx[0])
	case tx[0]&modeRead != 0:
		c.read(tx[0]&addrMask, rx)
	default:
		c.write(tx[0]&addrMask, tx[1:])
	}
	return nil
}

// Close implements the Bus interface.
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Chip) reset() {
	c.registers = [regCount]byte{}
	c.registers[regICIdentity] = defaultIdentity
	c.fifoTx = nil
	c.fifoRx = nil
	if c.tag != nil {
		c.tag.authenticated = false
	}
}

func (c *Chip) command(cmd byte) {
	switch cmd {
	case cmdSetDefault:
		identity := c.registers[regICIdentity]
		c.reset()
		c.registers[regICIdentity] = identity
	case cmdClearFIFO:
		c.fifoTx = nil
		c.fifoRx = nil
	case cmdTransmitWithCRC, cmdTransmitNoCRC:
		c.transmit()
	default:
		// Remaining direct commands have no observable effect here.
	}
}

// read fills rx[1:] with consecutive registers. The FIFO data register does
// not auto-increment; every byte read from it pops the receive FIFO.
func (c *Chip) read(reg byte, rx []byte) {
	addr := reg
	for i := 1; i < len(rx); i++ {
		if addr == regFIFOData {
			if len(c.fifoRx) > 0 {
				rx[i] = c.fifoRx[0]
				c.fifoRx = c.fifoRx[1:]
				c.syncFIFOStatus()
			}
			continue
		}

		rx[i] = c.registers[addr]
		if addr >= regIRQMain && addr < regIRQMain+4 {
			// Interrupt status clears on read.
			c.registers[addr] = 0
		}
		if addr < addrMask {
			addr++
		}
	}
}

// write stores consecutive register values. Bytes written to the FIFO data
// register append to the transmit FIFO instead.
func (c *Chip) write(reg byte, data []byte) {
	addr := reg
	for _, b := range data {
		if addr == regFIFOData {
			if len(c.fifoTx) < fifoSize {
				c.fifoTx = append(c.fifoTx, b)
			}
			continue
		}

		c.registers[addr] = b
		if addr < addrMask {
			addr++
		}
	}
}

// transmit takes the loaded frame to the tag and latches the resulting
// interrupt state.
func (c *Chip) transmit() {
	frame := c.fifoTx
	c.fifoTx = nil
	c.fifoRx = nil

	status := irqMainTxe

	switch {
	case c.ForceCollision:
		c.ForceCollision = false
		status |= irqMainCol
	default:
		if resp := c.answer(frame); len(resp) > 0 {
			c.fifoRx = resp
			status |= irqMainRxs | irqMainRxe
		}
	}

	c.syncFIFOStatus()
	c.registers[regIRQMain] |= status
	c.raise()
}

// syncFIFOStatus mirrors the receive FIFO depth into the status registers,
// bit 8 of the count going to bit 7 of the second register.
func (c *Chip) syncFIFOStatus() {
	n := len(c.fifoRx)
	c.registers[regFIFOStatus1] = byte(n & 0x7F)
	if n&0x80 != 0 {
		c.registers[regFIFOStatus2] = 0x80
	} else {
		c.registers[regFIFOStatus2] = 0
	}
}

// raise fires the interrupt callback when any latched status bit is not
// masked out. A set mask bit disables its source.
func (c *Chip) raise() {
	if c.Notify == nil {
		return
	}
	for i := byte(0); i < 4; i++ {
		status := c.registers[regIRQMain+i]
		mask := c.registers[regIRQMask+i]
		if status&^mask != 0 {
			c.Notify()
			return
		}
	}
}

// answer plays the tag's side of one command/response exchange. A nil
// return means the field stays silent.
func (c *Chip) answer(frame []byte) []byte {
	t := c.tag
	if t == nil || len(frame) == 0 {
		return nil
	}

	switch frame[0] {
	case tagCmdREQA:
		if len(frame) != 1 {
			return nil
		}
		return []byte{t.ATQA[0], t.ATQA[1]}

	case tagCmdAnticoll:
		if len(frame) != 2 || frame[1] != 0x20 || len(t.UID) < 4 {
			return nil
		}
		resp := append([]byte(nil), t.UID[:4]...)
		return append(resp, t.UID[0]^t.UID[1]^t.UID[2]^t.UID[3])

	case tagCmdRead:
		if len(frame) != 2 {
			return nil
		}
		if t.Mifare && !t.authenticated {
			return nil
		}
		start := int(frame[1]) * blockSize
		if start+blockSize > len(t.Memory) {
			return nil
		}
		return append([]byte(nil), t.Memory[start:start+blockSize]...)

	case tagCmdWritePage:
		if t.Mifare || len(frame) != 2+pageSize {
			return nil
		}
		start := int(frame[1]) * pageSize
		if start+pageSize > len(t.Memory) {
			return nil
		}
		copy(t.Memory[start:], frame[2:])
		return []byte{tagAck}

	case tagCmdWriteBlk:
		if !t.Mifare || !t.authenticated || len(frame) != 2+blockSize {
			return nil
		}
		start := int(frame[1]) * blockSize
		if start+blockSize > len(t.Memory) {
			return nil
		}
		copy(t.Memory[start:], frame[2:])
		return []byte{tagAck}

	case tagCmdAuthA:
		if !t.Mifare || len(frame) != 2+len(defaultMifareKey) {
			return nil
		}
		for i, b := range defaultMifareKey {
			if frame[2+i] != b {
				return nil
			}
		}
		t.authenticated = true
		return []byte{tagAck}

	default:
		return nil
	}
}
