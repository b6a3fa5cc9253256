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
	"errors"
	"fmt"
)

// Error categories for error handling and retry logic
var (
	// Parameter and state errors - not retryable
	ErrInvalidParam   = errors.New("invalid parameter")
	ErrNotInitialized = errors.New("device not initialized")

	// Bus and RF errors - potentially retryable
	ErrTimeout       = errors.New("operation timed out")
	ErrCommunication = errors.New("communication failed")
	ErrCollision     = errors.New("bit collision during receive")
	ErrCRC           = errors.New("CRC check failed")

	// FIFO errors - potentially retryable
	ErrFIFOOverflow  = errors.New("FIFO overflow")
	ErrFIFOUnderflow = errors.New("FIFO underflow")

	// Tag errors - generally not retryable
	ErrNoTagFound     = errors.New("no tag found")
	ErrUnsupportedTag = errors.New("tag type not supported")
	ErrTagReadOnly    = errors.New("tag is read-only")
	ErrTagAuthFailed  = errors.New("tag authentication failed")
	ErrNoNDEF         = errors.New("tag carries no NDEF message")

	// Chip errors - fatal
	ErrWrongChip = errors.New("IC identity mismatch")
)

// ErrorType categorizes an error for retry decisions
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error (special handling)
	ErrorTypeTimeout
)

// BusError wraps bus-level failures with the operation and register or
// command that triggered them.
type BusError struct {
	Err  error     // Underlying error
	Op   string    // Operation that failed
	Addr byte      // Register address or direct command code
	Type ErrorType // Error category
}

func (e *BusError) Error() string {
	if e.Addr != 0 {
		return fmt.Sprintf("%s 0x%02X: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// NewBusError creates a bus error with consistent formatting
func NewBusError(op string, addr byte, err error, errType ErrorType) *BusError {
	return &BusError{
		Op:   op,
		Addr: addr,
		Err:  err,
		Type: errType,
	}
}

// IsRetryable returns true if the error is potentially retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var be *BusError
	if errors.As(err, &be) {
		return be.Type == ErrorTypeTransient || be.Type == ErrorTypeTimeout
	}

	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrCommunication),
		errors.Is(err, ErrCollision),
		errors.Is(err, ErrCRC),
		errors.Is(err, ErrFIFOOverflow),
		errors.Is(err, ErrFIFOUnderflow):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the chip is unusable and the
// caller should stop rather than retry. This is distinct from IsRetryable
// which judges a single operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var be *BusError
	if errors.As(err, &be) {
		return be.Type == ErrorTypePermanent
	}

	switch {
	case errors.Is(err, ErrWrongChip),
		errors.Is(err, ErrNotInitialized):
		return true
	default:
		return false
	}
}

// IsTimeout returns true if the error is timeout-related
func IsTimeout(err error) bool {
	var be *BusError
	if errors.As(err, &be) {
		return be.Type == ErrorTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}
