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

package task

import (
	st25r "github.com/Cascalio-Studio/spool-key"
	"github.com/Cascalio-Studio/spool-key/pkg/ndef"
)

// Kind identifies a queued NFC operation.
type Kind int

const (
	// KindGetStatus reports manager statistics and field state.
	KindGetStatus Kind = iota
	// KindInitialize brings the chip up.
	KindInitialize
	// KindDeinitialize shuts the chip down.
	KindDeinitialize
	// KindStartDetection arms tag detection.
	KindStartDetection
	// KindStopDetection disarms tag detection.
	KindStopDetection
	// KindSetField switches the RF carrier.
	KindSetField
	// KindReadUID runs anticollision on the current tag.
	KindReadUID
	// KindReadNDEF reads the current tag's NDEF message.
	KindReadNDEF
	// KindReadText reads the first text record.
	KindReadText
	// KindReadURI reads the first URI record.
	KindReadURI
	// KindReadWiFi reads the first WiFi credential record.
	KindReadWiFi
	// KindWriteNDEF writes an NDEF message.
	KindWriteNDEF
	// KindWriteText writes a text record.
	KindWriteText
	// KindWriteURI writes a URI record.
	KindWriteURI
	// KindWriteURL writes a web address record.
	KindWriteURL
	// KindWriteWiFi writes a WiFi credential record.
	KindWriteWiFi
	// KindWritePhone writes a tel: record.
	KindWritePhone
	// KindWriteEmail writes a mailto: record.
	KindWriteEmail
	// KindFormatTag writes a fresh capability container.
	KindFormatTag
)

func (k Kind) String() string {
	switch k {
	case KindGetStatus:
		return "get-status"
	case KindInitialize:
		return "initialize"
	case KindDeinitialize:
		return "deinitialize"
	case KindStartDetection:
		return "start-detection"
	case KindStopDetection:
		return "stop-detection"
	case KindSetField:
		return "set-field"
	case KindReadUID:
		return "read-uid"
	case KindReadNDEF:
		return "read-ndef"
	case KindReadText:
		return "read-text"
	case KindReadURI:
		return "read-uri"
	case KindReadWiFi:
		return "read-wifi"
	case KindWriteNDEF:
		return "write-ndef"
	case KindWriteText:
		return "write-text"
	case KindWriteURI:
		return "write-uri"
	case KindWriteURL:
		return "write-url"
	case KindWriteWiFi:
		return "write-wifi"
	case KindWritePhone:
		return "write-phone"
	case KindWriteEmail:
		return "write-email"
	case KindFormatTag:
		return "format-tag"
	default:
		return "unknown"
	}
}

// Priority classifies a command's urgency. The queue is strictly FIFO;
// priority travels with the command for observability but never reorders
// execution.
type Priority int

const (
	// PriorityLow marks background work.
	PriorityLow Priority = iota
	// PriorityNormal is the default.
	PriorityNormal
	// PriorityHigh marks detection control commands.
	PriorityHigh
	// PriorityUrgent marks commands issued during shutdown.
	PriorityUrgent
)

// Operation classifies a result for consumers.
type Operation int

const (
	// OpStatus is a status report.
	OpStatus Operation = iota
	// OpDetect covers lifecycle and detection commands.
	OpDetect
	// OpRead covers tag read commands.
	OpRead
	// OpWrite covers tag write commands.
	OpWrite
	// OpFormat covers tag formatting.
	OpFormat
)

func (o Operation) String() string {
	switch o {
	case OpStatus:
		return "status"
	case OpDetect:
		return "detect"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpFormat:
		return "format"
	default:
		return "unknown"
	}
}

// Callback receives the result of a single command. Commands without a
// callback deliver into the manager's result queue instead.
type Callback func(Result)

// Command is one queued operation with its payload.
type Command struct {
	Kind      Kind
	Priority  Priority
	RequestID uint32

	// Payload fields, used per kind.
	Text     string
	Language string
	URI      string
	SSID     string
	Password string
	Security string
	Email    string
	Subject  string
	Body     string
	Phone    string
	FieldOn  bool
	Mask     st25r.ProtocolMask
	Message  *ndef.Message

	Callback Callback

	// DetectionCallback is carried by start-detection commands.
	DetectionCallback st25r.DetectionCallback
}

// Result is the outcome of one command.
type Result struct {
	Operation  Operation
	Kind       Kind
	RequestID  uint32
	Tag        *st25r.TagInfo
	Message    *ndef.Message
	Text       string
	Language   string
	URI        string
	Credential *ndef.WiFiCredential
	UID        []byte
	FieldOn    bool
	Stats      Stats
	Err        error
}

// Ok reports whether the command succeeded.
func (r Result) Ok() bool { return r.Err == nil }

// Stats captures manager counters.
type Stats struct {
	// Processed counts commands fully executed.
	Processed uint64
	// Queued is the current command queue depth.
	Queued int
	// HighWaterMark is the largest queue depth observed.
	HighWaterMark int
}
