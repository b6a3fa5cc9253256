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
	"errors"
	"fmt"
)

// Text record constants. The status byte carries the UTF-16 flag in bit 7
// and the language code length in the low six bits.
const (
	TextRecordType    = "T"
	textUTF16Flag     = 0x80
	textLangLenMask   = 0x3F
	maxLanguageLength = 63
)

// Text record errors.
var (
	ErrTextPayloadTooShort = errors.New("ndef: text payload too short")
	ErrTextLanguageTooLong = errors.New("ndef: language code too long")
	ErrTextTruncated       = errors.New("ndef: text payload truncated")
)

// TextRecord represents parsed text record data.
type TextRecord struct {
	Text     string
	Language string
	UTF16    bool // true if UTF-16 encoded (rare)
}

// NewTextRecord creates an NDEF Text record. language is an IANA code such
// as "en" or "de-CH"; empty defaults to "en".
func NewTextRecord(text, language string) *Record {
	payload, _ := EncodeTextPayload(text, normalizeLanguage(language))
	return &Record{
		TNF:     TNFWellKnown,
		Type:    TextRecordType,
		Payload: payload,
	}
}

// ParseTextRecord extracts text content from a Text record payload.
func ParseTextRecord(payload []byte) (*TextRecord, error) {
	if len(payload) < 1 {
		return nil, ErrTextPayloadTooShort
	}

	status := payload[0]
	langLen := int(status & textLangLenMask)
	if len(payload) < 1+langLen {
		return nil, ErrTextTruncated
	}

	return &TextRecord{
		Text:     string(payload[1+langLen:]),
		Language: string(payload[1 : 1+langLen]),
		UTF16:    status&textUTF16Flag != 0,
	}, nil
}

// EncodeTextPayload builds a text record payload from text and language.
func EncodeTextPayload(text, language string) ([]byte, error) {
	if len(language) > maxLanguageLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTextLanguageTooLong, len(language))
	}
	if language == "" {
		language = "en"
	}

	payload := make([]byte, 1+len(language)+len(text))
	payload[0] = byte(len(language)) // UTF-8, no UTF-16 flag
	copy(payload[1:], language)
	copy(payload[1+len(language):], text)
	return payload, nil
}

func normalizeLanguage(language string) string {
	if language == "" {
		return "en"
	}
	if len(language) > maxLanguageLength {
		return language[:maxLanguageLength]
	}
	return language
}
