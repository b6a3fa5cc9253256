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

// Package ndef encodes and decodes NDEF messages as defined by the NFC
// Forum. It covers well-known text and URI records, media-type records
// including WiFi Simple Configuration credentials, and the record framing
// rules (MB/ME flags, short records, optional ID field).
package ndef

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TNF (Type Name Format) values as defined by NFC Forum.
const (
	TNFEmpty       byte = 0x00 // Empty record
	TNFWellKnown   byte = 0x01 // NFC Forum well-known type
	TNFMedia       byte = 0x02 // Media-type (RFC 2046)
	TNFAbsoluteURI byte = 0x03 // Absolute URI (RFC 3986)
	TNFExternal    byte = 0x04 // NFC Forum external type
	TNFUnknown     byte = 0x05 // Unknown
	TNFUnchanged   byte = 0x06 // Unchanged (for chunked records)
	TNFReserved    byte = 0x07 // Reserved
)

// Record header flag bits.
const (
	tnfMask           byte = 0x07
	flagMB            byte = 0x80
	flagME            byte = 0x40
	flagCF            byte = 0x20
	flagSR            byte = 0x10
	flagIL            byte = 0x08
	shortRecordMaxLen      = 255
)

// Common errors.
var (
	ErrEmptyMessage    = errors.New("ndef: empty message")
	ErrInvalidRecord   = errors.New("ndef: invalid record")
	ErrTruncatedRecord = errors.New("ndef: truncated record data")
	ErrInvalidTNF      = errors.New("ndef: invalid TNF value")
	ErrChunkedRecord   = errors.New("ndef: chunked records not supported")
	ErrRecordNotFound  = errors.New("ndef: no matching record in message")
)

// Record represents a single NDEF record.
type Record struct {
	Type    string
	ID      string
	Payload []byte
	TNF     byte
	mb      bool
	me      bool
}

// MB returns true if this record is the first in a message.
func (r *Record) MB() bool { return r.mb }

// ME returns true if this record is the last in a message.
func (r *Record) ME() bool { return r.me }

// Message represents an NDEF message containing one or more records.
type Message struct {
	Records []*Record
}

// NewMessage builds a message from records.
func NewMessage(records ...*Record) *Message {
	return &Message{Records: records}
}

// Find returns the first record with the given TNF and type, or nil.
func (m *Message) Find(tnf byte, recordType string) *Record {
	for _, rec := range m.Records {
		if rec.TNF == tnf && rec.Type == recordType {
			return rec
		}
	}
	return nil
}

// Marshal serializes the message. MB is forced on the first record and ME
// on the last, whatever flags the records carried before.
func (m *Message) Marshal() ([]byte, error) {
	if len(m.Records) == 0 {
		return nil, ErrEmptyMessage
	}

	var result []byte
	for i, rec := range m.Records {
		rec.mb = i == 0
		rec.me = i == len(m.Records)-1

		data, err := rec.Marshal()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		result = append(result, data...)
	}
	return result, nil
}

// Unmarshal parses message data and returns the number of bytes consumed.
// Parsing stops after the record carrying the ME flag; trailing bytes are
// left untouched.
func (m *Message) Unmarshal(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyMessage
	}

	m.Records = nil
	offset := 0
	for offset < len(data) {
		rec := &Record{}
		n, err := rec.Unmarshal(data[offset:])
		if err != nil {
			return offset, fmt.Errorf("record at offset %d: %w", offset, err)
		}

		if rec.mb && len(m.Records) > 0 {
			// A second MB means a new message starts here.
			break
		}

		m.Records = append(m.Records, rec)
		offset += n
		if rec.me {
			break
		}
	}

	if len(m.Records) == 0 {
		return 0, ErrEmptyMessage
	}
	return offset, nil
}

// Marshal serializes a single record.
func (r *Record) Marshal() ([]byte, error) {
	if r.TNF > TNFReserved {
		return nil, ErrInvalidTNF
	}

	flags := r.TNF & tnfMask
	if r.mb {
		flags |= flagMB
	}
	if r.me {
		flags |= flagME
	}
	short := len(r.Payload) <= shortRecordMaxLen
	if short {
		flags |= flagSR
	}
	if r.ID != "" {
		flags |= flagIL
	}

	header := []byte{flags, byte(len(r.Type))}
	if short {
		header = append(header, byte(len(r.Payload)))
	} else {
		var lenBytes [4]byte
		//nolint:gosec // len() is non-negative
		binary.BigEndian.PutUint32(lenBytes[:], uint32(len(r.Payload)))
		header = append(header, lenBytes[:]...)
	}
	if r.ID != "" {
		header = append(header, byte(len(r.ID)))
	}

	result := make([]byte, 0, len(header)+len(r.Type)+len(r.ID)+len(r.Payload))
	result = append(result, header...)
	result = append(result, r.Type...)
	result = append(result, r.ID...)
	result = append(result, r.Payload...)
	return result, nil
}

// Unmarshal parses a single record and returns the number of bytes consumed.
func (r *Record) Unmarshal(data []byte) (int, error) {
	if len(data) < 3 {
		return 0, ErrTruncatedRecord
	}

	flags := data[0]
	r.TNF = flags & tnfMask
	r.mb = flags&flagMB != 0
	r.me = flags&flagME != 0

	if flags&flagCF != 0 {
		return 0, ErrChunkedRecord
	}
	if r.TNF > TNFUnchanged {
		return 0, ErrInvalidTNF
	}

	typeLen := int(data[1])
	offset := 2

	var payloadLen int
	if flags&flagSR != 0 {
		if offset >= len(data) {
			return 0, ErrTruncatedRecord
		}
		payloadLen = int(data[offset])
		offset++
	} else {
		if offset+4 > len(data) {
			return 0, ErrTruncatedRecord
		}
		payloadLen = int(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
	}

	var idLen int
	if flags&flagIL != 0 {
		if offset >= len(data) {
			return 0, ErrTruncatedRecord
		}
		idLen = int(data[offset])
		offset++
	}

	if offset+typeLen+idLen+payloadLen > len(data) {
		return 0, ErrTruncatedRecord
	}

	r.Type = string(data[offset : offset+typeLen])
	offset += typeLen
	r.ID = string(data[offset : offset+idLen])
	offset += idLen
	r.Payload = append([]byte(nil), data[offset:offset+payloadLen]...)
	offset += payloadLen

	return offset, nil
}
