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
	"time"

	"github.com/Cascalio-Studio/spool-key/pkg/ndef"
)

// Tag command bytes shared by reader and writer.
const (
	tagCmdAnticollision byte = 0x93 // ISO14443A SELECT cascade level 1
	tagCmdRead          byte = 0x30 // Type 2 / MIFARE block read
	tagCmdWritePage     byte = 0xA2 // Type 2 page write (4 bytes)
	tagCmdWriteBlock    byte = 0xA0 // MIFARE Classic block write (16 bytes)
	tagCmdAuthA         byte = 0x60 // MIFARE Classic key A authentication

	tagBlockSize = 16 // read granularity for Type A and MIFARE Classic
	tagPageSize  = 4  // write granularity for Type A

	// Capability container layout: magic at byte 0, NDEF message length
	// big-endian at bytes 14-15, message data from byte 16.
	ccSize       = 16
	ccMagic byte = 0xE1
	ccLenOffset  = 14
	ndefOffset   = 16
)

// tagExchangeTimeout bounds a single command/response round trip with a tag.
const tagExchangeTimeout = 100 * time.Millisecond

// mifareDefaultKey is the transport-default key A.
var mifareDefaultKey = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// TagReader reads tag storage through a Device. All methods require the
// device to be initialized and the target tag in the field.
type TagReader struct {
	dev *Device
}

// NewTagReader creates a reader on the given device
func NewTagReader(dev *Device) *TagReader {
	return &TagReader{dev: dev}
}

// ReadUID runs the first anticollision round and returns the tag UID. The
// UID is also stored on tag.
func (r *TagReader) ReadUID(tag *TagInfo) ([]byte, error) {
	if !r.dev.Initialized() {
		return nil, ErrNotInitialized
	}

	resp, err := r.dev.TransmitReceive([]byte{tagCmdAnticollision, 0x20}, tagExchangeTimeout)
	if err != nil {
		return nil, fmt.Errorf("anticollision: %w", err)
	}
	if len(resp) < 5 {
		return nil, fmt.Errorf("anticollision: %d response bytes: %w", len(resp), ErrCommunication)
	}

	uid := append([]byte(nil), resp[:4]...)
	tag.UID = uid
	return uid, nil
}

// ReadRaw reads length bytes of tag storage starting at address.
func (r *TagReader) ReadRaw(tag *TagInfo, address, length int) ([]byte, error) {
	if !r.dev.Initialized() {
		return nil, ErrNotInitialized
	}
	if address < 0 || length <= 0 {
		return nil, fmt.Errorf("read raw at %d+%d: %w", address, length, ErrInvalidParam)
	}

	switch tag.Protocol {
	case ProtocolISO14443A:
		return r.readTypeA(address, length)
	case ProtocolMifareClassic:
		return r.readMifareClassic(byte(address))
	default:
		return nil, fmt.Errorf("read %s tag: %w", tag.Protocol, ErrUnsupportedTag)
	}
}

// ReadNDEF reads and parses the tag's NDEF message. A formatted tag with
// an empty message yields a message with no records.
func (r *TagReader) ReadNDEF(tag *TagInfo) (*ndef.Message, error) {
	header, err := r.ReadRaw(tag, 0, ccSize)
	if err != nil {
		return nil, fmt.Errorf("read capability container: %w", err)
	}
	if len(header) < ccSize || header[0] != ccMagic {
		return nil, ErrNoNDEF
	}

	length := int(header[ccLenOffset])<<8 | int(header[ccLenOffset+1])
	if length == 0 {
		return &ndef.Message{}, nil
	}

	data, err := r.ReadRaw(tag, ndefOffset, length)
	if err != nil {
		return nil, fmt.Errorf("read NDEF data: %w", err)
	}

	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(data[:length]); err != nil {
		return nil, fmt.Errorf("parse NDEF: %w", err)
	}
	return msg, nil
}

// ReadText returns the content and language of the first text record.
func (r *TagReader) ReadText(tag *TagInfo) (text, language string, err error) {
	msg, err := r.ReadNDEF(tag)
	if err != nil {
		return "", "", err
	}

	rec := msg.Find(ndef.TNFWellKnown, ndef.TextRecordType)
	if rec == nil {
		return "", "", ndef.ErrRecordNotFound
	}

	parsed, err := ndef.ParseTextRecord(rec.Payload)
	if err != nil {
		return "", "", err
	}
	return parsed.Text, parsed.Language, nil
}

// ReadURI returns the URI of the first URI record.
func (r *TagReader) ReadURI(tag *TagInfo) (string, error) {
	msg, err := r.ReadNDEF(tag)
	if err != nil {
		return "", err
	}

	rec := msg.Find(ndef.TNFWellKnown, ndef.URIRecordType)
	if rec == nil {
		return "", ndef.ErrRecordNotFound
	}
	return ndef.ParseURIRecord(rec.Payload)
}

// ReadWiFi returns the credential of the first WiFi configuration record.
func (r *TagReader) ReadWiFi(tag *TagInfo) (*ndef.WiFiCredential, error) {
	msg, err := r.ReadNDEF(tag)
	if err != nil {
		return nil, err
	}

	rec := msg.Find(ndef.TNFMedia, ndef.MIMETypeWiFi)
	if rec == nil {
		return nil, ndef.ErrRecordNotFound
	}
	return ndef.ParseWiFiPayload(rec.Payload)
}

// readTypeA reads Type 2 storage in 16-byte blocks and trims each block to
// the requested window, so unaligned reads land on the right bytes.
func (r *TagReader) readTypeA(address, length int) ([]byte, error) {
	data := make([]byte, 0, length)
	pos := address

	for pos < address+length {
		block := byte(pos / tagBlockSize)
		resp, err := r.dev.TransmitReceive([]byte{tagCmdRead, block}, tagExchangeTimeout)
		if err != nil {
			return nil, fmt.Errorf("read block %d: %w", block, err)
		}
		if len(resp) < tagBlockSize {
			return nil, fmt.Errorf("read block %d: %d bytes: %w", block, len(resp), ErrCommunication)
		}

		skip := pos % tagBlockSize
		take := tagBlockSize - skip
		if remaining := address + length - pos; take > remaining {
			take = remaining
		}
		data = append(data, resp[skip:skip+take]...)
		pos += take
	}
	return data, nil
}

// readMifareClassic authenticates with the default key and reads one
// 16-byte block.
func (r *TagReader) readMifareClassic(block byte) ([]byte, error) {
	if err := r.authMifare(block); err != nil {
		return nil, err
	}

	resp, err := r.dev.TransmitReceive([]byte{tagCmdRead, block}, tagExchangeTimeout)
	if err != nil {
		return nil, fmt.Errorf("read block %d: %w", block, err)
	}
	if len(resp) < tagBlockSize {
		return nil, fmt.Errorf("read block %d: %d bytes: %w", block, len(resp), ErrCommunication)
	}
	return resp[:tagBlockSize], nil
}

// authMifare runs key A authentication for the sector holding block.
func (r *TagReader) authMifare(block byte) error {
	cmd := make([]byte, 0, 2+len(mifareDefaultKey))
	cmd = append(cmd, tagCmdAuthA, block)
	cmd = append(cmd, mifareDefaultKey...)

	if _, err := r.dev.TransmitReceive(cmd, tagExchangeTimeout); err != nil {
		return fmt.Errorf("authenticate block %d: %w", block, ErrTagAuthFailed)
	}
	return nil
}
