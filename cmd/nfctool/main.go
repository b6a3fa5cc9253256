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

// nfctool reads and writes NFC tags through an ST25R3911B on a host SPI
// port. Without a write flag it polls for tags and prints whatever NDEF
// content it finds; with one it writes to the next scanned tag and exits.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	st25r "github.com/Cascalio-Studio/spool-key"
	"github.com/Cascalio-Studio/spool-key/pkg/ndef"
	"github.com/Cascalio-Studio/spool-key/task"
	"github.com/Cascalio-Studio/spool-key/transport/spi"
	"github.com/rs/zerolog"
)

type config struct {
	port      string
	irqPin    string
	writeText string
	writeURL  string
	writeWiFi string
	debug     bool
}

var (
	flagPort      string
	flagIRQPin    string
	flagWriteText string
	flagWriteURL  string
	flagWriteWiFi string
	flagDebug     bool
)

func init() {
	flag.StringVar(&flagPort, "port", "", "SPI port name (first registered port if empty)")
	flag.StringVar(&flagIRQPin, "irq", "GPIO25", "GPIO pin wired to the chip interrupt line")
	flag.StringVar(&flagWriteText, "write", "", "Text to write to the next scanned tag (exits after write)")
	flag.StringVar(&flagWriteURL, "write-url", "", "URL to write to the next scanned tag (exits after write)")
	flag.StringVar(&flagWriteWiFi, "write-wifi", "",
		"WiFi credential to write, as ssid:password[:security] (exits after write)")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
}

func parseConfig() *config {
	cfg := &config{
		port:      flagPort,
		irqPin:    flagIRQPin,
		writeText: flagWriteText,
		writeURL:  flagWriteURL,
		writeWiFi: flagWriteWiFi,
		debug:     flagDebug,
	}
	if cfg.debug {
		st25r.SetDebugEnabled(true)
	}
	return cfg
}

func main() {
	flag.Parse()
	cfg := parseConfig()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	if cfg.debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("nfctool failed")
		os.Exit(1)
	}
}

func run(cfg *config, log zerolog.Logger) error {
	bus, err := spi.Open(cfg.port)
	if err != nil {
		return err
	}

	irq, err := spi.OpenIRQPin(cfg.irqPin)
	if err != nil {
		_ = bus.Close()
		return err
	}

	dev, err := st25r.New(bus, irq)
	if err != nil {
		_ = bus.Close()
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn().Err(err).Msg("device close")
		}
	}()

	mgr, err := task.NewManager(st25r.NewManager(dev), nil)
	if err != nil {
		return err
	}
	if err := mgr.Start(); err != nil {
		return err
	}
	defer mgr.Stop()

	if _, err := mgr.Initialize(nil); err != nil {
		return err
	}
	if res := waitResult(mgr, task.KindInitialize); res.Err != nil {
		return fmt.Errorf("initialize chip: %w", res.Err)
	}
	log.Info().Msg("chip initialized")

	tags := make(chan *st25r.TagInfo, 4)
	if _, err := mgr.StartDetection(st25r.MaskAll, func(tag *st25r.TagInfo) {
		select {
		case tags <- tag:
		default:
		}
	}, nil); err != nil {
		return err
	}
	if res := waitResult(mgr, task.KindStartDetection); res.Err != nil {
		return fmt.Errorf("start detection: %w", res.Err)
	}
	log.Info().Msg("waiting for tags, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			log.Info().Msg("stopping")
			return nil
		case tag := <-tags:
			done, err := handleTag(cfg, log, mgr, tag)
			if err != nil {
				log.Warn().Err(err).Msg("tag operation failed")
				continue
			}
			if done {
				return nil
			}
		}
	}
}

// handleTag runs the configured operation against a freshly detected tag.
// It reports true when nfctool is done and should exit.
func handleTag(cfg *config, log zerolog.Logger, mgr *task.Manager, tag *st25r.TagInfo) (bool, error) {
	log.Info().
		Str("uid", tag.UIDString()).
		Str("protocol", tag.Protocol.String()).
		Int("capacity", tag.DataSize).
		Msg("tag detected")

	switch {
	case cfg.writeText != "":
		if _, err := mgr.WriteText(cfg.writeText, "en", nil); err != nil {
			return false, err
		}
		res := waitResult(mgr, task.KindWriteText)
		if res.Err != nil {
			return false, res.Err
		}
		log.Info().Str("text", cfg.writeText).Msg("text written")
		return true, nil

	case cfg.writeURL != "":
		if _, err := mgr.WriteURL(cfg.writeURL, nil); err != nil {
			return false, err
		}
		res := waitResult(mgr, task.KindWriteURL)
		if res.Err != nil {
			return false, res.Err
		}
		log.Info().Str("url", cfg.writeURL).Msg("URL written")
		return true, nil

	case cfg.writeWiFi != "":
		ssid, password, security, err := splitWiFiArg(cfg.writeWiFi)
		if err != nil {
			return false, err
		}
		if _, err := mgr.WriteWiFi(ssid, password, security, nil); err != nil {
			return false, err
		}
		res := waitResult(mgr, task.KindWriteWiFi)
		if res.Err != nil {
			return false, res.Err
		}
		log.Info().Str("ssid", ssid).Msg("WiFi credential written")
		return true, nil

	default:
		return false, printTag(log, mgr)
	}
}

// printTag reads the tag's NDEF message and logs each record.
func printTag(log zerolog.Logger, mgr *task.Manager) error {
	if _, err := mgr.ReadNDEF(nil); err != nil {
		return err
	}
	res := waitResult(mgr, task.KindReadNDEF)
	switch {
	case errors.Is(res.Err, st25r.ErrNoNDEF):
		log.Info().Msg("tag has no NDEF data")
		return nil
	case res.Err != nil:
		return res.Err
	}

	if len(res.Message.Records) == 0 {
		log.Info().Msg("tag is formatted but empty")
		return nil
	}

	for i, rec := range res.Message.Records {
		ev := log.Info().Int("record", i).Str("type", rec.Type)
		switch {
		case rec.TNF == ndef.TNFWellKnown && rec.Type == ndef.TextRecordType:
			if text, err := ndef.ParseTextRecord(rec.Payload); err == nil {
				ev = ev.Str("text", text.Text).Str("language", text.Language)
			}
		case rec.TNF == ndef.TNFWellKnown && rec.Type == ndef.URIRecordType:
			if uri, err := ndef.ParseURIRecord(rec.Payload); err == nil {
				ev = ev.Str("uri", uri)
			}
		case rec.TNF == ndef.TNFMedia && rec.Type == ndef.MIMETypeWiFi:
			if cred, err := ndef.ParseWiFiPayload(rec.Payload); err == nil {
				ev = ev.Str("ssid", cred.SSID).Str("security", cred.Security())
			}
		default:
			ev = ev.Int("payload_bytes", len(rec.Payload))
		}
		ev.Msg("record")
	}
	return nil
}

// waitResult drains the result queue until a result for the given command
// kind arrives.
func waitResult(mgr *task.Manager, kind task.Kind) task.Result {
	for res := range mgr.Results() {
		if res.Kind == kind {
			return res
		}
	}
	return task.Result{Kind: kind, Err: errors.New("result queue closed")}
}

// splitWiFiArg parses ssid:password[:security].
func splitWiFiArg(arg string) (ssid, password, security string, err error) {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return "", "", "", fmt.Errorf("invalid -write-wifi value %q, want ssid:password[:security]", arg)
	}
	security = "WPA2"
	if len(parts) == 3 && parts[2] != "" {
		security = parts[2]
	}
	return parts[0], parts[1], security, nil
}
