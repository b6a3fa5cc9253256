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

package ndef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeURIPayloadPrefixSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		uri        string
		wantCode   byte
		wantSuffix string
	}{
		{
			name:       "https with www picks longer prefix",
			uri:        "https://www.example.com",
			wantCode:   0x02,
			wantSuffix: "example.com",
		},
		{
			name:       "https without www",
			uri:        "https://example.com",
			wantCode:   0x04,
			wantSuffix: "example.com",
		},
		{
			name:       "http with www",
			uri:        "http://www.example.com",
			wantCode:   0x01,
			wantSuffix: "example.com",
		},
		{
			name:       "telephone",
			uri:        "tel:+15551234567",
			wantCode:   0x05,
			wantSuffix: "+15551234567",
		},
		{
			name:       "mailto",
			uri:        "mailto:door@example.com",
			wantCode:   0x06,
			wantSuffix: "door@example.com",
		},
		{
			name:       "no known prefix",
			uri:        "spotify:track:xyz",
			wantCode:   0x00,
			wantSuffix: "spotify:track:xyz",
		},
		{
			name:       "urn epc id over urn",
			uri:        "urn:epc:id:sgtin:0614141",
			wantCode:   0x1E,
			wantSuffix: "sgtin:0614141",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			payload := EncodeURIPayload(tt.uri)
			require.NotEmpty(t, payload)
			assert.Equal(t, tt.wantCode, payload[0])
			assert.Equal(t, tt.wantSuffix, string(payload[1:]))

			// And back.
			uri, err := ParseURIRecord(payload)
			require.NoError(t, err)
			assert.Equal(t, tt.uri, uri)
		})
	}
}

func TestNewURIRecord(t *testing.T) {
	t.Parallel()

	rec := NewURIRecord("https://example.com")
	assert.Equal(t, TNFWellKnown, rec.TNF)
	assert.Equal(t, URIRecordType, rec.Type)
}

func TestParseURIRecordErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseURIRecord(nil)
	assert.ErrorIs(t, err, ErrURIPayloadTooShort)

	_, err = ParseURIRecord([]byte{0x7F, 'x'})
	assert.ErrorIs(t, err, ErrURIInvalidPrefixCode)
}

func TestURIPrefixString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://www.", URIPrefixString(0x02))
	assert.Equal(t, "", URIPrefixString(0x00))
	assert.Equal(t, "", URIPrefixString(0xFF))
}
