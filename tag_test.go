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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifyTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		answer       []byte
		wantProtocol Protocol
		wantSize     int
	}{
		{
			name:         "MIFARE Classic 1K",
			answer:       []byte{0x04, 0x00},
			wantProtocol: ProtocolMifareClassic,
			wantSize:     1024,
		},
		{
			name:         "NTAG family",
			answer:       []byte{0x44, 0x00},
			wantProtocol: ProtocolISO14443A,
			wantSize:     8192,
		},
		{
			name:         "unknown Type A",
			answer:       []byte{0x01, 0x0F},
			wantProtocol: ProtocolISO14443A,
			wantSize:     2048,
		},
		{
			name:         "extra trailing bytes ignored",
			answer:       []byte{0x04, 0x00, 0xAA, 0xBB},
			wantProtocol: ProtocolMifareClassic,
			wantSize:     1024,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info, err := IdentifyTag(tt.answer)
			require.NoError(t, err)
			assert.Equal(t, tt.wantProtocol, info.Protocol)
			assert.Equal(t, tt.wantSize, info.DataSize)
			assert.Equal(t, tt.answer[:2], info.ATQA)
		})
	}
}

func TestIdentifyTagShortAnswer(t *testing.T) {
	t.Parallel()

	_, err := IdentifyTag([]byte{0x04})
	assert.ErrorIs(t, err, ErrNoTagFound)

	_, err = IdentifyTag(nil)
	assert.ErrorIs(t, err, ErrNoTagFound)
}

func TestTagInfoUIDString(t *testing.T) {
	t.Parallel()

	tag := &TagInfo{UID: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	assert.Equal(t, "deadbeef", tag.UIDString())

	empty := &TagInfo{}
	assert.Equal(t, "", empty.UIDString())
}

func TestProtocolString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		protocol Protocol
		want     string
	}{
		{ProtocolISO14443A, "ISO14443A"},
		{ProtocolISO14443B, "ISO14443B"},
		{ProtocolFeliCa, "FeliCa"},
		{ProtocolISO15693, "ISO15693"},
		{ProtocolP2P, "P2P"},
		{ProtocolMifareClassic, "MIFARE Classic"},
		{ProtocolUnknown, "Unknown"},
		{Protocol(99), "Unknown"},
	}

	for _, tt := range tests {
		tt := tt
		assert.Equal(t, tt.want, tt.protocol.String())
	}
}
