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
	"encoding/hex"
	"fmt"
)

// Protocol identifies an RF protocol family.
type Protocol int

const (
	// ProtocolUnknown is the zero value before detection.
	ProtocolUnknown Protocol = iota
	// ProtocolISO14443A is NFC Type A (NTAG, Ultralight, Type 2 tags).
	ProtocolISO14443A
	// ProtocolISO14443B is NFC Type B.
	ProtocolISO14443B
	// ProtocolFeliCa is JIS X 6319-4.
	ProtocolFeliCa
	// ProtocolISO15693 is vicinity cards via subcarrier stream mode.
	ProtocolISO15693
	// ProtocolP2P is NFCIP-1 peer mode.
	ProtocolP2P
	// ProtocolMifareClassic is MIFARE Classic over ISO14443A framing.
	ProtocolMifareClassic
)

func (p Protocol) String() string {
	switch p {
	case ProtocolISO14443A:
		return "ISO14443A"
	case ProtocolISO14443B:
		return "ISO14443B"
	case ProtocolFeliCa:
		return "FeliCa"
	case ProtocolISO15693:
		return "ISO15693"
	case ProtocolP2P:
		return "P2P"
	case ProtocolMifareClassic:
		return "MIFARE Classic"
	default:
		return "Unknown"
	}
}

// ProtocolMask selects protocol families during detection.
type ProtocolMask uint32

const (
	// MaskISO14443A selects Type A tags.
	MaskISO14443A ProtocolMask = 1 << iota
	// MaskISO14443B selects Type B tags.
	MaskISO14443B
	// MaskFeliCa selects FeliCa tags.
	MaskFeliCa
	// MaskISO15693 selects vicinity cards.
	MaskISO15693
	// MaskAll selects every supported family.
	MaskAll ProtocolMask = 0xFFFFFFFF
)

// TagInfo describes a detected tag.
type TagInfo struct {
	UID      []byte   // Tag UID, empty until anticollision ran
	ATQA     []byte   // Raw answer to request (Type A)
	SAK      byte     // Select acknowledge (Type A)
	Protocol Protocol // Detected protocol family
	DataSize int      // Usable storage in bytes
	ReadOnly bool     // Write-protect flag
}

// UIDString returns the UID as lowercase hex.
func (t *TagInfo) UIDString() string {
	return hex.EncodeToString(t.UID)
}

func (t *TagInfo) String() string {
	return fmt.Sprintf("%s tag, uid=%s, %d bytes", t.Protocol, t.UIDString(), t.DataSize)
}

// IdentifyTag classifies a tag from its ATQA answer. The answer arrives
// little-endian on the wire; byte 0 is the low half.
func IdentifyTag(answer []byte) (*TagInfo, error) {
	if len(answer) < 2 {
		return nil, fmt.Errorf("identify tag: %d answer bytes: %w", len(answer), ErrNoTagFound)
	}

	info := &TagInfo{
		ATQA:     append([]byte(nil), answer[:2]...),
		Protocol: ProtocolISO14443A,
	}

	atqa := uint16(answer[1])<<8 | uint16(answer[0])
	switch atqa {
	case 0x0004:
		info.Protocol = ProtocolMifareClassic
		info.DataSize = 1024 // MIFARE Classic 1K
	case 0x0044:
		info.DataSize = 8192 // NTAG21x family
	default:
		info.DataSize = 2048
	}

	return info, nil
}
