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

	"github.com/Cascalio-Studio/spool-key/internal/simtag"
	"github.com/Cascalio-Studio/spool-key/pkg/ndef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var simUID = []byte{0x04, 0xD3, 0x5A, 0x7F}

// newSimTagDevice initializes a device with a Type 2 tag in the field and
// returns the matching TagInfo.
func newSimTagDevice(t *testing.T) (*Device, *simtag.Chip, *TagInfo) {
	t.Helper()

	dev, chip := newSimDevice(t)
	chip.SetTag(simtag.NewTypeATag(simUID, 512))
	require.NoError(t, dev.Init())
	require.NoError(t, dev.SetField(true))

	tag := &TagInfo{Protocol: ProtocolISO14443A, DataSize: 512}
	return dev, chip, tag
}

func TestTransmitReceiveREQA(t *testing.T) {
	t.Parallel()
	dev, _, _ := newSimTagDevice(t)

	resp, err := dev.TransmitReceive([]byte{0x26}, 0)
	require.NoError(t, err)
	require.Len(t, resp, 2)

	info, err := IdentifyTag(resp)
	require.NoError(t, err)
	assert.Equal(t, ProtocolISO14443A, info.Protocol)
	assert.Equal(t, 8192, info.DataSize)
}

func TestTransmitReceiveNoTag(t *testing.T) {
	t.Parallel()
	dev, chip, _ := newSimTagDevice(t)

	chip.SetTag(nil)
	_, err := dev.TransmitReceive([]byte{0x26}, 0)
	assert.ErrorIs(t, err, ErrNoTagFound)
}

func TestTransmitReceiveCollision(t *testing.T) {
	t.Parallel()
	dev, chip, _ := newSimTagDevice(t)

	chip.ForceCollision = true
	_, err := dev.TransmitReceive([]byte{0x26}, 0)
	assert.ErrorIs(t, err, ErrCollision)
}

func TestReadUID(t *testing.T) {
	t.Parallel()
	dev, _, tag := newSimTagDevice(t)

	uid, err := NewTagReader(dev).ReadUID(tag)
	require.NoError(t, err)
	assert.Equal(t, simUID, uid)
	assert.Equal(t, simUID, tag.UID)
}

func TestReadRawUnalignedWindow(t *testing.T) {
	t.Parallel()
	dev, chip, tag := newSimTagDevice(t)

	memTag := simtag.NewTypeATag(simUID, 512)
	for i := range memTag.Memory {
		memTag.Memory[i] = byte(i)
	}
	chip.SetTag(memTag)

	// A window crossing a block boundary at both ends.
	data, err := NewTagReader(dev).ReadRaw(tag, 14, 20)
	require.NoError(t, err)
	require.Len(t, data, 20)
	for i, b := range data {
		assert.Equal(t, byte(14+i), b)
	}
}

func TestNDEFTextRoundTrip(t *testing.T) {
	t.Parallel()
	dev, _, tag := newSimTagDevice(t)

	reader := NewTagReader(dev)
	writer := NewTagWriter(dev)

	require.NoError(t, writer.FormatTag(tag))
	require.NoError(t, writer.WriteText(tag, "hello from the field", "en"))

	text, language, err := reader.ReadText(tag)
	require.NoError(t, err)
	assert.Equal(t, "hello from the field", text)
	assert.Equal(t, "en", language)
}

func TestNDEFURIRoundTrip(t *testing.T) {
	t.Parallel()
	dev, _, tag := newSimTagDevice(t)

	reader := NewTagReader(dev)
	writer := NewTagWriter(dev)

	require.NoError(t, writer.FormatTag(tag))
	require.NoError(t, writer.WriteURL(tag, "https://www.example.com/tag"))

	uri, err := reader.ReadURI(tag)
	require.NoError(t, err)
	assert.Equal(t, "https://www.example.com/tag", uri)
}

func TestNDEFWiFiRoundTrip(t *testing.T) {
	t.Parallel()
	dev, _, tag := newSimTagDevice(t)

	reader := NewTagReader(dev)
	writer := NewTagWriter(dev)

	require.NoError(t, writer.FormatTag(tag))
	require.NoError(t, writer.WriteWiFi(tag, "HomeNet", "secret passphrase", "WPA2"))

	cred, err := reader.ReadWiFi(tag)
	require.NoError(t, err)
	assert.Equal(t, "HomeNet", cred.SSID)
	assert.Equal(t, "secret passphrase", cred.NetworkKey)
	assert.Equal(t, "WPA2", cred.Security())
}

func TestReadNDEFUnformattedTag(t *testing.T) {
	t.Parallel()
	dev, _, tag := newSimTagDevice(t)

	_, err := NewTagReader(dev).ReadNDEF(tag)
	assert.ErrorIs(t, err, ErrNoNDEF)
}

func TestReadNDEFEmptyMessage(t *testing.T) {
	t.Parallel()
	dev, _, tag := newSimTagDevice(t)

	require.NoError(t, NewTagWriter(dev).FormatTag(tag))

	msg, err := NewTagReader(dev).ReadNDEF(tag)
	require.NoError(t, err)
	assert.Empty(t, msg.Records)
}

func TestWriteReadOnlyTag(t *testing.T) {
	t.Parallel()
	dev, _, tag := newSimTagDevice(t)

	tag.ReadOnly = true
	err := NewTagWriter(dev).WriteText(tag, "nope", "en")
	assert.ErrorIs(t, err, ErrTagReadOnly)
}

func TestWriteNDEFCapacityCheck(t *testing.T) {
	t.Parallel()
	dev, _, tag := newSimTagDevice(t)

	tag.DataSize = 32
	msg := ndef.NewMessage(ndef.NewTextRecord("a text that certainly does not fit in 16 bytes", "en"))
	err := NewTagWriter(dev).WriteNDEF(tag, msg)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestWriteNDEFNilMessage(t *testing.T) {
	t.Parallel()
	dev, _, tag := newSimTagDevice(t)

	err := NewTagWriter(dev).WriteNDEF(tag, nil)
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestMifareReadWrite(t *testing.T) {
	t.Parallel()
	dev, chip, _ := newSimTagDevice(t)

	chip.SetTag(simtag.NewMifareTag(simUID))
	tag := &TagInfo{Protocol: ProtocolMifareClassic, DataSize: 1024}

	writer := NewTagWriter(dev)
	reader := NewTagReader(dev)

	block := make([]byte, 16)
	copy(block, "mifare block 04!")
	require.NoError(t, writer.WriteRaw(tag, 4, block))

	data, err := reader.ReadRaw(tag, 4, 16)
	require.NoError(t, err)
	assert.Equal(t, block, data)
}

func TestMifareWriteNeedsFullBlock(t *testing.T) {
	t.Parallel()
	dev, chip, _ := newSimTagDevice(t)

	chip.SetTag(simtag.NewMifareTag(simUID))
	tag := &TagInfo{Protocol: ProtocolMifareClassic, DataSize: 1024}

	err := NewTagWriter(dev).WriteRaw(tag, 4, []byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidParam)
}

func TestUnsupportedTagProtocol(t *testing.T) {
	t.Parallel()
	dev, _, _ := newSimTagDevice(t)

	tag := &TagInfo{Protocol: ProtocolFeliCa, DataSize: 1024}
	_, err := NewTagReader(dev).ReadRaw(tag, 0, 16)
	assert.ErrorIs(t, err, ErrUnsupportedTag)

	err = NewTagWriter(dev).WriteRaw(tag, 0, make([]byte, 16))
	assert.ErrorIs(t, err, ErrUnsupportedTag)
}
