// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"fmt"
	"io"

	"github.com/dtn7/cboring"
)

// TransportParameters is the fixed-size subset of a peer's QUIC transport
// parameters worth remembering between connections. It is always copied by
// value; cached copies never alias a live connection's parameters.
type TransportParameters struct {
	InitialMaxData                 uint64
	InitialMaxStreamDataBidiLocal  uint64
	InitialMaxStreamDataBidiRemote uint64
	InitialMaxStreamDataUni        uint64
	InitialMaxStreamsBidi          uint64
	InitialMaxStreamsUni           uint64
	MaxIdleTimeoutMs               uint64
	MaxUDPPayloadSize              uint64
	MaxAckDelayMs                  uint64
	AckDelayExponent               uint8
	ActiveConnectionIDLimit        uint8
	DisableActiveMigration         bool
}

const transportParametersFields uint64 = 12

// MarshalCbor writes the CBOR representation of the TransportParameters.
func (tp *TransportParameters) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(transportParametersFields, w); err != nil {
		return err
	}

	fields := []uint64{
		tp.InitialMaxData,
		tp.InitialMaxStreamDataBidiLocal,
		tp.InitialMaxStreamDataBidiRemote,
		tp.InitialMaxStreamDataUni,
		tp.InitialMaxStreamsBidi,
		tp.InitialMaxStreamsUni,
		tp.MaxIdleTimeoutMs,
		tp.MaxUDPPayloadSize,
		tp.MaxAckDelayMs,
		uint64(tp.AckDelayExponent),
		uint64(tp.ActiveConnectionIDLimit),
	}
	for _, f := range fields {
		if err := cboring.WriteUInt(f, w); err != nil {
			return err
		}
	}

	return cboring.WriteBoolean(tp.DisableActiveMigration, w)
}

// UnmarshalCbor reads the CBOR representation of the TransportParameters.
func (tp *TransportParameters) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != transportParametersFields {
		return fmt.Errorf("TransportParameters: expected %d fields, got %d",
			transportParametersFields, n)
	}

	fields := []*uint64{
		&tp.InitialMaxData,
		&tp.InitialMaxStreamDataBidiLocal,
		&tp.InitialMaxStreamDataBidiRemote,
		&tp.InitialMaxStreamDataUni,
		&tp.InitialMaxStreamsBidi,
		&tp.InitialMaxStreamsUni,
		&tp.MaxIdleTimeoutMs,
		&tp.MaxUDPPayloadSize,
		&tp.MaxAckDelayMs,
	}
	for _, f := range fields {
		if n, err := cboring.ReadUInt(r); err != nil {
			return err
		} else {
			*f = n
		}
	}

	if n, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		tp.AckDelayExponent = uint8(n)
	}
	if n, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		tp.ActiveConnectionIDLimit = uint8(n)
	}

	if b, err := cboring.ReadBoolean(r); err != nil {
		return err
	} else {
		tp.DisableActiveMigration = b
	}
	return nil
}
