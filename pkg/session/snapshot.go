// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"fmt"
	"io"
	"sort"

	"github.com/dtn7/cboring"
	"github.com/ulikunitz/xz"
)

// CacheRecord is the serializable form of one resumption cache entry.
// Security configurations are process-local handles and are never part of a
// snapshot.
type CacheRecord struct {
	ServerName string
	Version    uint32
	Parameters TransportParameters
}

const cacheRecordFields uint64 = 3

// MarshalCbor writes the CBOR representation of a CacheRecord.
func (cr *CacheRecord) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(cacheRecordFields, w); err != nil {
		return err
	}
	if err := cboring.WriteByteString([]byte(cr.ServerName), w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(uint64(cr.Version), w); err != nil {
		return err
	}
	return cboring.Marshal(&cr.Parameters, w)
}

// UnmarshalCbor reads the CBOR representation of a CacheRecord.
func (cr *CacheRecord) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != cacheRecordFields {
		return fmt.Errorf("CacheRecord: expected %d fields, got %d", cacheRecordFields, n)
	}

	if name, err := cboring.ReadByteString(r); err != nil {
		return err
	} else {
		cr.ServerName = string(name)
	}

	if version, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		cr.Version = uint32(version)
	}

	return cboring.Unmarshal(&cr.Parameters, r)
}

// CacheRecords snapshots the resumption cache under the shared lock. The
// result is sorted by server name for stable output.
func (s *Session) CacheRecords() []CacheRecord {
	s.cacheMu.RLock()
	records := make([]CacheRecord, 0, len(s.cache))
	for _, bucket := range s.cache {
		for _, e := range bucket {
			records = append(records, CacheRecord{
				ServerName: e.name,
				Version:    e.version,
				Parameters: e.params,
			})
		}
	}
	s.cacheMu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].ServerName < records[j].ServerName
	})
	return records
}

// ExportCache writes the resumption cache to w as an xz-compressed CBOR
// array of CacheRecords.
func (s *Session) ExportCache(w io.Writer) error {
	records := s.CacheRecords()

	xzW, err := xz.NewWriter(w)
	if err != nil {
		return err
	}

	if err := cboring.WriteArrayLength(uint64(len(records)), xzW); err != nil {
		return err
	}
	for i := range records {
		if err := cboring.Marshal(&records[i], xzW); err != nil {
			return fmt.Errorf("CacheRecord failed: %v", err)
		}
	}

	return xzW.Close()
}

// ImportCache merges a snapshot written by ExportCache into the resumption
// cache. Imported entries behave like SetState calls with a nil security
// configuration: versions and parameters of known servers are overwritten,
// existing security configurations stay untouched.
func (s *Session) ImportCache(r io.Reader) error {
	xzR, err := xz.NewReader(r)
	if err != nil {
		return err
	}

	n, err := cboring.ReadArrayLength(xzR)
	if err != nil {
		return err
	}

	for i := uint64(0); i < n; i++ {
		var record CacheRecord
		if err := cboring.Unmarshal(&record, xzR); err != nil {
			return fmt.Errorf("CacheRecord failed: %v", err)
		}
		s.SetState(record.ServerName, record.Version, record.Parameters, nil)
	}
	return nil
}
