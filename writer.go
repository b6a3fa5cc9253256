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

	"github.com/Cascalio-Studio/spool-key/pkg/ndef"
)

// TagWriter writes tag storage through a Device. It shares the MIFARE
// authentication flow with TagReader.
type TagWriter struct {
	dev  *Device
	auth *TagReader
}

// NewTagWriter creates a writer on the given device
func NewTagWriter(dev *Device) *TagWriter {
	return &TagWriter{dev: dev, auth: NewTagReader(dev)}
}

// WriteRaw writes data to tag storage starting at address.
func (w *TagWriter) WriteRaw(tag *TagInfo, address int, data []byte) error {
	if !w.dev.Initialized() {
		return ErrNotInitialized
	}
	if address < 0 || len(data) == 0 {
		return fmt.Errorf("write raw at %d: %w", address, ErrInvalidParam)
	}
	if tag.ReadOnly {
		return ErrTagReadOnly
	}

	switch tag.Protocol {
	case ProtocolISO14443A:
		return w.writeTypeA(address, data)
	case ProtocolMifareClassic:
		if len(data) != tagBlockSize {
			return fmt.Errorf("MIFARE write needs %d bytes, got %d: %w",
				tagBlockSize, len(data), ErrInvalidParam)
		}
		return w.writeMifareClassic(byte(address), data)
	default:
		return fmt.Errorf("write %s tag: %w", tag.Protocol, ErrUnsupportedTag)
	}
}

// WriteNDEF serializes the message and stores it behind the capability
// container: the big-endian length at bytes 14-15, the data from byte 16.
func (w *TagWriter) WriteNDEF(tag *TagInfo, msg *ndef.Message) error {
	if msg == nil {
		return fmt.Errorf("write NDEF: nil message: %w", ErrInvalidParam)
	}
	data, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("marshal NDEF: %w", err)
	}
	if tag.DataSize > 0 && ndefOffset+len(data) > tag.DataSize {
		return fmt.Errorf("NDEF message of %d bytes exceeds tag capacity %d: %w",
			len(data), tag.DataSize, ErrInvalidParam)
	}

	//nolint:gosec // capacity check above keeps the length within uint16
	header := []byte{byte(len(data) >> 8), byte(len(data))}
	if err := w.WriteRaw(tag, ccLenOffset, header); err != nil {
		return fmt.Errorf("write NDEF length: %w", err)
	}
	return w.WriteRaw(tag, ndefOffset, data)
}

// WriteText stores a single text record.
func (w *TagWriter) WriteText(tag *TagInfo, text, language string) error {
	return w.WriteNDEF(tag, ndef.NewMessage(ndef.NewTextRecord(text, language)))
}

// WriteURI stores a single URI record.
func (w *TagWriter) WriteURI(tag *TagInfo, uri string) error {
	if uri == "" {
		return fmt.Errorf("write URI: %w", ErrInvalidParam)
	}
	return w.WriteNDEF(tag, ndef.NewMessage(ndef.NewURIRecord(uri)))
}

// WriteURL stores a web address. It is WriteURI under a friendlier name.
func (w *TagWriter) WriteURL(tag *TagInfo, url string) error {
	return w.WriteURI(tag, url)
}

// WriteWiFi stores a WiFi configuration record. security is a display
// name such as "WPA2", "WPA", "WEP" or "OPEN".
func (w *TagWriter) WriteWiFi(tag *TagInfo, ssid, password, security string) error {
	if ssid == "" {
		return fmt.Errorf("write WiFi: %w", ErrInvalidParam)
	}

	auth, enc := ndef.SecurityTypes(security)
	cred := &ndef.WiFiCredential{
		SSID:       ssid,
		NetworkKey: password,
		AuthType:   auth,
		EncType:    enc,
	}
	return w.WriteNDEF(tag, ndef.NewMessage(ndef.NewWiFiRecord(cred)))
}

// WritePhone stores a tel: URI record.
func (w *TagWriter) WritePhone(tag *TagInfo, number string) error {
	if number == "" {
		return fmt.Errorf("write phone: %w", ErrInvalidParam)
	}
	return w.WriteURI(tag, "tel:"+number)
}

// WriteEmail stores a mailto: URI record with optional subject and body
// query parameters.
func (w *TagWriter) WriteEmail(tag *TagInfo, address, subject, body string) error {
	if address == "" {
		return fmt.Errorf("write email: %w", ErrInvalidParam)
	}

	uri := "mailto:" + address
	switch {
	case subject != "" && body != "":
		uri += "?subject=" + subject + "&body=" + body
	case subject != "":
		uri += "?subject=" + subject
	case body != "":
		uri += "?body=" + body
	}
	return w.WriteURI(tag, uri)
}

// FormatTag writes a fresh capability container with an empty NDEF
// message. Existing message data is orphaned, not erased.
func (w *TagWriter) FormatTag(tag *TagInfo) error {
	cc := make([]byte, ccSize)
	cc[0] = ccMagic
	cc[1] = 0x10 // version 1.0
	cc[2] = 0x3F // data area size / 8
	return w.WriteRaw(tag, 0, cc)
}

// writeTypeA writes Type 2 storage in 4-byte pages. Partial pages at the
// edges of the window are read back first so neighboring bytes survive.
func (w *TagWriter) writeTypeA(address int, data []byte) error {
	end := address + len(data)

	for page := address / tagPageSize; page*tagPageSize < end; page++ {
		pageStart := page * tagPageSize
		chunk := make([]byte, tagPageSize)

		if pageStart < address || pageStart+tagPageSize > end {
			existing, err := w.auth.readTypeA(pageStart, tagPageSize)
			if err != nil {
				return fmt.Errorf("read back page %d: %w", page, err)
			}
			copy(chunk, existing)
		}

		for i := range chunk {
			if off := pageStart + i; off >= address && off < end {
				chunk[i] = data[off-address]
			}
		}

		cmd := append([]byte{tagCmdWritePage, byte(page)}, chunk...)
		if _, err := w.dev.TransmitReceive(cmd, tagExchangeTimeout); err != nil {
			return fmt.Errorf("write page %d: %w", page, err)
		}
	}
	return nil
}

// writeMifareClassic authenticates and writes one 16-byte block.
func (w *TagWriter) writeMifareClassic(block byte, data []byte) error {
	if err := w.auth.authMifare(block); err != nil {
		return err
	}

	cmd := append([]byte{tagCmdWriteBlock, block}, data...)
	if _, err := w.dev.TransmitReceive(cmd, tagExchangeTimeout); err != nil {
		return fmt.Errorf("write block %d: %w", block, err)
	}
	return nil
}
