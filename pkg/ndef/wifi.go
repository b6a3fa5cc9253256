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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// WiFi Simple Configuration attribute IDs. WSC payloads are a flat
// sequence of big-endian type-length-value triples, with the network
// settings nested inside a Credential attribute.
const (
	wscAttrCredential   uint16 = 0x100E
	wscAttrNetworkIndex uint16 = 0x1026
	wscAttrSSID         uint16 = 0x1045
	wscAttrAuthType     uint16 = 0x1003
	wscAttrEncType      uint16 = 0x100F
	wscAttrNetworkKey   uint16 = 0x1027
	wscAttrMACAddress   uint16 = 0x1020
)

// WSC authentication type values.
const (
	WiFiAuthOpen    uint16 = 0x0001
	WiFiAuthWPAPSK  uint16 = 0x0002
	WiFiAuthWPA2PSK uint16 = 0x0020
)

// WSC encryption type values.
const (
	WiFiEncNone uint16 = 0x0001
	WiFiEncWEP  uint16 = 0x0002
	WiFiEncTKIP uint16 = 0x0004
	WiFiEncAES  uint16 = 0x0008
)

// WiFi credential errors.
var (
	ErrWiFiPayloadTooShort = errors.New("ndef: WiFi payload too short")
	ErrWiFiNoCredential    = errors.New("ndef: WiFi payload carries no credential")
	ErrWiFiTruncated       = errors.New("ndef: WiFi credential truncated")
)

// WiFiCredential represents one WiFi network configuration.
type WiFiCredential struct {
	SSID       string
	NetworkKey string
	MAC        []byte // optional
	AuthType   uint16
	EncType    uint16
}

// Security returns a display name for the credential's auth type.
func (c *WiFiCredential) Security() string {
	switch c.AuthType {
	case WiFiAuthWPA2PSK:
		return "WPA2"
	case WiFiAuthWPAPSK:
		return "WPA"
	case WiFiAuthOpen:
		if c.EncType == WiFiEncWEP {
			return "WEP"
		}
		return "OPEN"
	default:
		return fmt.Sprintf("0x%04X", c.AuthType)
	}
}

// SecurityTypes maps a display name back to WSC auth and encryption
// values. Unknown names fall back to WPA2 with AES.
func SecurityTypes(security string) (auth, enc uint16) {
	switch security {
	case "OPEN", "open", "":
		return WiFiAuthOpen, WiFiEncNone
	case "WEP", "wep":
		return WiFiAuthOpen, WiFiEncWEP
	case "WPA", "wpa":
		return WiFiAuthWPAPSK, WiFiEncTKIP
	default:
		return WiFiAuthWPA2PSK, WiFiEncAES
	}
}

// NewWiFiRecord creates a media-type record carrying a WSC credential.
func NewWiFiRecord(cred *WiFiCredential) *Record {
	return NewMediaRecord(MIMETypeWiFi, EncodeWiFiPayload(cred))
}

// EncodeWiFiPayload serializes a credential in WSC TLV format.
func EncodeWiFiPayload(cred *WiFiCredential) []byte {
	var inner bytes.Buffer
	writeWSCAttr(&inner, wscAttrNetworkIndex, []byte{0x01})
	if cred.SSID != "" {
		writeWSCAttr(&inner, wscAttrSSID, []byte(cred.SSID))
	}
	writeWSCAttr(&inner, wscAttrAuthType, beUint16(cred.AuthType))
	writeWSCAttr(&inner, wscAttrEncType, beUint16(cred.EncType))
	if cred.NetworkKey != "" {
		writeWSCAttr(&inner, wscAttrNetworkKey, []byte(cred.NetworkKey))
	}
	if len(cred.MAC) == 6 {
		writeWSCAttr(&inner, wscAttrMACAddress, cred.MAC)
	}

	var buf bytes.Buffer
	writeWSCAttr(&buf, wscAttrCredential, inner.Bytes())
	return buf.Bytes()
}

// ParseWiFiPayload extracts the first credential from a WSC payload.
func ParseWiFiPayload(payload []byte) (*WiFiCredential, error) {
	if len(payload) < 4 {
		return nil, ErrWiFiPayloadTooShort
	}

	// Locate the credential envelope among the top-level attributes.
	cred, err := findWSCAttr(payload, wscAttrCredential)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrWiFiNoCredential
	}

	result := &WiFiCredential{}
	offset := 0
	for offset+4 <= len(cred) {
		attr := binary.BigEndian.Uint16(cred[offset:])
		length := int(binary.BigEndian.Uint16(cred[offset+2:]))
		offset += 4
		if offset+length > len(cred) {
			return nil, ErrWiFiTruncated
		}
		value := cred[offset : offset+length]
		offset += length

		switch attr {
		case wscAttrSSID:
			result.SSID = string(value)
		case wscAttrNetworkKey:
			result.NetworkKey = string(value)
		case wscAttrAuthType:
			if length == 2 {
				result.AuthType = binary.BigEndian.Uint16(value)
			}
		case wscAttrEncType:
			if length == 2 {
				result.EncType = binary.BigEndian.Uint16(value)
			}
		case wscAttrMACAddress:
			result.MAC = append([]byte(nil), value...)
		}
	}

	return result, nil
}

func findWSCAttr(data []byte, want uint16) ([]byte, error) {
	offset := 0
	for offset+4 <= len(data) {
		attr := binary.BigEndian.Uint16(data[offset:])
		length := int(binary.BigEndian.Uint16(data[offset+2:]))
		offset += 4
		if offset+length > len(data) {
			return nil, ErrWiFiTruncated
		}
		if attr == want {
			return data[offset : offset+length], nil
		}
		offset += length
	}
	return nil, nil
}

func writeWSCAttr(buf *bytes.Buffer, attr uint16, value []byte) {
	_ = binary.Write(buf, binary.BigEndian, attr)
	//nolint:gosec // WSC attribute values never exceed 64K here
	_ = binary.Write(buf, binary.BigEndian, uint16(len(value)))
	_, _ = buf.Write(value)
}

func beUint16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}
