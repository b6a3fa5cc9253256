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

// ST25R3911B register addresses. The register space ends at RegFIFOData
// (0x3F); anything above is a direct command.
const (
	RegIOConf1             byte = 0x00 // IO configuration 1
	RegIOConf2             byte = 0x01 // IO configuration 2
	RegOpControl           byte = 0x02 // Operation control
	RegMode                byte = 0x03 // Mode definition
	RegBitRate             byte = 0x04 // Bit rate definition
	RegISO14443ANfc        byte = 0x05 // ISO14443A and NFC 106 kbps settings
	RegISO14443B           byte = 0x06 // ISO14443B settings
	RegStreamMode          byte = 0x07 // Stream mode definition
	RegAux                 byte = 0x08 // Auxiliary definition
	RegRxConf1             byte = 0x09 // Receiver configuration 1
	RegRxConf2             byte = 0x0A // Receiver configuration 2
	RegRxConf3             byte = 0x0B // Receiver configuration 3
	RegRxConf4             byte = 0x0C // Receiver configuration 4
	RegP2PRxConf           byte = 0x0D // Power and oscillator control
	RegCorrConf1           byte = 0x0E // Correlation configuration 1
	RegCorrConf2           byte = 0x0F // Correlation configuration 2
	RegSleepConf           byte = 0x10 // Sleep mode control
	RegOscConf             byte = 0x11 // Oscillator control
	RegTest1               byte = 0x12 // Test register 1
	RegTest2               byte = 0x13 // Test register 2
	RegIOConf3             byte = 0x14 // IO configuration 3
	RegIOConf4             byte = 0x15 // IO configuration 4
	RegMeasConf            byte = 0x16 // Measurement configuration
	RegAntConf             byte = 0x17 // Antenna configuration
	RegTimConf1            byte = 0x18 // Timer configuration 1
	RegTimConf2            byte = 0x19 // Timer configuration 2
	RegRegulatorConf       byte = 0x1A // Regulator configuration
	RegFieldThreshold      byte = 0x1B // Field threshold
	RegRegulatorDisplay    byte = 0x1C // Regulator display
	RegRSSIDisplay1        byte = 0x1D // RSSI display 1
	RegRSSIDisplay2        byte = 0x1E // RSSI display 2
	RegGainRedState        byte = 0x1F // Gain reduction state
	RegCapSensorDisplay    byte = 0x20 // Capacitance sensor display
	RegAuxDisplay          byte = 0x21 // Auxiliary display
	RegWupTimerControl1    byte = 0x22 // Wake-up timer control 1
	RegWupTimerControl2    byte = 0x23 // Wake-up timer control 2
	RegAmplitudeMeasConf   byte = 0x24 // Amplitude measurement configuration
	RegPhaseMeasConf       byte = 0x25 // Phase measurement configuration
	RegCapacitanceMeasConf byte = 0x26 // Capacitance measurement configuration
	RegICIdentity          byte = 0x27 // IC identity
	RegFIFORxStatus1       byte = 0x28 // FIFO RX status 1 (byte count, low bits)
	RegFIFORxStatus2       byte = 0x29 // FIFO RX status 2 (flags, count bit 8)
	RegCollisionDisplay    byte = 0x2A // Collision display
	RegNumTxBytes1         byte = 0x2B // Number of transmitted bytes 1
	RegNumTxBytes2         byte = 0x2C // Number of transmitted bytes 2
	RegNFCIPBitRate        byte = 0x2D // NFCIP bit rate detection display
	RegADConverterOutput   byte = 0x2E // A/D converter output
	RegAntCalDisplay       byte = 0x2F // Antenna calibration display
	RegAntCalTarget        byte = 0x30 // Antenna calibration target
	RegAntCalConf          byte = 0x31 // Antenna calibration configuration
	RegMeasDisplay         byte = 0x32 // Measurement display
	RegPowerRed            byte = 0x33 // Power reduction
	RegEMDSupConf          byte = 0x34 // EMD suppression configuration
	RegSubcStartConf       byte = 0x35 // Subcarrier startup configuration
	RegIRQMain             byte = 0x36 // Main interrupt status
	RegIRQTimerNfc         byte = 0x37 // Timer and NFC interrupt status
	RegIRQErrorWup         byte = 0x38 // Error and wake-up interrupt status
	RegIRQTarget           byte = 0x39 // Target interrupt status
	RegIRQMaskMain         byte = 0x3A // Main interrupt mask
	RegIRQMaskTimerNfc     byte = 0x3B // Timer and NFC interrupt mask
	RegIRQMaskErrorWup     byte = 0x3C // Error and wake-up interrupt mask
	RegIRQMaskTarget       byte = 0x3D // Target interrupt mask
	RegFIFOLoad            byte = 0x3E // FIFO load status
	RegFIFOData            byte = 0x3F // FIFO data access
)

// regMax is the highest valid register address.
const regMax byte = RegFIFOData

// Direct commands occupy the 0xC0-0xFF code space and are sent as a single
// SPI byte with no register address.
const (
	CmdSetDefault           byte = 0xC1 // Restore power-up defaults
	CmdClearFIFO            byte = 0xC2 // Clear FIFO and collision state
	CmdTransmitWithCRC      byte = 0xC4 // Transmit FIFO content, append CRC
	CmdTransmitWithoutCRC   byte = 0xC5 // Transmit FIFO content as-is
	CmdTransmitREQA         byte = 0xC6 // Transmit ISO14443A REQA
	CmdTransmitWUPA         byte = 0xC7 // Transmit ISO14443A WUPA
	CmdInitialRFCollision   byte = 0xC8 // NFC initial RF collision avoidance
	CmdResponseRFCollisionN byte = 0xC9 // NFC response RF collision avoidance
	CmdGotoSleep            byte = 0xCA // Enter sleep mode
	CmdGotoSleepWU          byte = 0xCB // Enter sleep mode with wake-up timer
	CmdMaskReceiveData      byte = 0xD0 // Mask receive data
	CmdUnmaskReceiveData    byte = 0xD1 // Unmask receive data
	CmdAMModStateChange     byte = 0xD2 // AM modulation state change
	CmdMeasureAmplitude     byte = 0xD3 // Measure RF amplitude
	CmdResetRxGain          byte = 0xD5 // Reset RX gain
	CmdAdjustRegulators     byte = 0xD6 // Adjust regulators
	CmdCalibrateAntenna     byte = 0xD7 // Calibrate antenna
	CmdMeasurePhase         byte = 0xD8 // Measure phase
	CmdClearRSSI            byte = 0xD9 // Clear RSSI
	CmdTransparentMode      byte = 0xDC // Enter transparent mode
	CmdCalibrateCSensor     byte = 0xDD // Calibrate capacitive sensor
	CmdMeasureCapacitance   byte = 0xDE // Measure capacitance
	CmdMeasureVDD           byte = 0xDF // Measure power supply
	CmdStartGPTimer         byte = 0xE0 // Start general purpose timer
	CmdStartWupTimer        byte = 0xE1 // Start wake-up timer
	CmdStartMaskRxTimer     byte = 0xE2 // Start mask-receive timer
	CmdStartNoResponseTimer byte = 0xE3 // Start no-response timer
	CmdTestClearsight       byte = 0xE4 // Test clearsight
	CmdTestAccessFIFO       byte = 0xE5 // Test FIFO access
	CmdLoadPPROM            byte = 0xE6 // Load PPROM
	CmdSpaceBAccess         byte = 0xFB // Space-B register access
	CmdTestAccess           byte = 0xFC // Test register access
	CmdLoadConfig           byte = 0xFD // Load configuration
	CmdCropConfig           byte = 0xFE // Crop configuration
)

// cmdMin is the lowest valid direct command code.
const cmdMin byte = 0xC0

// Mode register (0x03) bits.
const (
	ModeTargEn      byte = 0x80 // Target enable
	ModeTarg        byte = 0x40 // Target mode
	ModeOMMask      byte = 0x3C // Operation mode field
	ModeOMNfc       byte = 0x00 // OM: NFCIP-1 active
	ModeOMISO14443A byte = 0x04 // OM: ISO14443A initiator
	ModeOMISO14443B byte = 0x08 // OM: ISO14443B initiator
	ModeOMFeliCa    byte = 0x0C // OM: FeliCa initiator
	ModeOMSubc      byte = 0x10 // OM: subcarrier stream
	ModeNfcip1NRTx  byte = 0x02 // NFCIP-1 no-response timer behavior
	ModeTREn        byte = 0x01 // Transmitter enable (carrier on)
)

// Operation control register (0x02) bits.
const (
	OpControlRxEn  byte = 0x80 // Receiver enable
	OpControlRxCR  byte = 0x40 // RX chain gain reduction
	OpControlRxMan byte = 0x20 // Manchester receive
	OpControlTxCRC byte = 0x10 // Append CRC on transmit
	OpControlCRCEn byte = 0x08 // CRC check on receive
	OpControlRFAEn byte = 0x04 // RF collision avoidance
	OpControlEFDEn byte = 0x02 // External field detector
	OpControlEn    byte = 0x01 // Oscillator and regulator enable
)

// Main interrupt register (0x36) bits.
const (
	IRQMainOsc byte = 0x80 // Oscillator stable
	IRQMainFwl byte = 0x40 // FIFO water level
	IRQMainRxs byte = 0x20 // Receive start
	IRQMainRxe byte = 0x10 // Receive end
	IRQMainTxe byte = 0x08 // Transmit end
	IRQMainCol byte = 0x04 // Bit collision
	IRQMainNre byte = 0x02 // No-response timer expired
	IRQMainEof byte = 0x01 // FIFO overflow / end of frame error
)

// Timer and NFC interrupt register (0x37) bits.
const (
	IRQTimerDct  byte = 0x80 // Termination of direct command
	IRQTimerNfcT byte = 0x40 // NFC target activation
	IRQTimerNfcI byte = 0x20 // NFC initiator
	IRQTimerGpt  byte = 0x10 // General purpose timer expired
	IRQTimerMrt  byte = 0x08 // Mask-receive timer expired
	IRQTimerNrt  byte = 0x04 // No-response timer expired
	IRQTimerWut  byte = 0x02 // Wake-up timer expired
	IRQTimerWua  byte = 0x01 // Wake-up amplitude
)

// FIFO geometry.
const (
	FIFOSize       = 96 // FIFO depth in bytes
	FIFOWaterLevel = 64 // Water level used during initialization
)

// SPI mode bits ORed into the register address byte of each transaction.
const (
	spiModeWrite  byte = 0x00
	spiModeRead   byte = 0x40
	spiModeDirect byte = 0xC0
)

// IC identity register fields. The low five bits carry the chip type code,
// the high three the silicon revision.
const (
	ICIdentityValue byte = 0x09
	ICTypeMask      byte = 0x1F
	ICRevMask       byte = 0xE0
)
