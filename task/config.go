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

import "time"

// Config holds task manager configuration options
type Config struct {
	// CommandQueueSize bounds the number of commands waiting for the
	// worker. Submissions beyond it block up to SubmitTimeout.
	CommandQueueSize int

	// ResultQueueSize bounds the result queue for commands submitted
	// without a callback. A full queue drops the oldest-pending delivery.
	ResultQueueSize int

	// HardwareTimeout is the budget for taking the hardware mutex before
	// a command fails with a timeout.
	HardwareTimeout time.Duration

	// WorkerWait is how long the worker blocks on the command queue per
	// loop turn before checking interrupts and detection.
	WorkerWait time.Duration

	// SubmitTimeout is how long a submission waits on a full command
	// queue. Zero means fail immediately.
	SubmitTimeout time.Duration
}

// DefaultConfig returns the default task manager configuration
func DefaultConfig() *Config {
	return &Config{
		CommandQueueSize: 10,
		ResultQueueSize:  10,
		HardwareTimeout:  5 * time.Second,
		WorkerWait:       100 * time.Millisecond,
		SubmitTimeout:    0,
	}
}
