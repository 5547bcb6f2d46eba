package journal

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/btreefs/pkg/bkey"
)

// EntryType tags the two persisted journal entry kinds of spec §6, plus
// the debug-only alloc-trace entry added in SPEC_FULL.md §6.
type EntryType uint8

const (
	// EntryBtreeKeys records interior-node pointer inserts/deletes.
	EntryBtreeKeys EntryType = iota + 1
	// EntryBtreeRoot records a root replacement.
	EntryBtreeRoot
	// EntryBtreeNodeAlloc is a debug-only record of which buckets a
	// topology op consumed; never replayed for correctness.
	EntryBtreeNodeAlloc
)

// Entry is one journal record. Not every field is populated for every
// Type: BtreeRoot entries don't carry Keys, BtreeNodeAlloc entries don't
// carry Keys either.
type Entry struct {
	Type     EntryType
	BtreeID  uint32
	Level    uint8
	Seq      uint64 // journal sequence number, assigned at append time
	Keys     []bkey.BKey
	RootKey  bkey.Pointer
	BucketID []uint64
}

// encode serializes an entry to bytes. Layout:
// [CRC32(4)][Type(1)][BtreeID(4)][Level(1)][Seq(8)][payload...]
// mirroring the header-then-payload shape of the teacher's record codec
// (pkg/codec/record.go's CRC32+sizes+timestamp+data layout), adapted to
// carry a journal entry instead of a KV record.
func (e Entry) encode() []byte {
	var payload bytes.Buffer
	switch e.Type {
	case EntryBtreeKeys:
		binary.Write(&payload, binary.BigEndian, uint32(len(e.Keys)))
		for _, k := range e.Keys {
			writeKey(&payload, k)
		}
	case EntryBtreeRoot:
		writePointer(&payload, e.RootKey)
	case EntryBtreeNodeAlloc:
		binary.Write(&payload, binary.BigEndian, uint32(len(e.BucketID)))
		for _, b := range e.BucketID {
			binary.Write(&payload, binary.BigEndian, b)
		}
	}

	var head bytes.Buffer
	binary.Write(&head, binary.BigEndian, uint8(e.Type))
	binary.Write(&head, binary.BigEndian, e.BtreeID)
	binary.Write(&head, binary.BigEndian, e.Level)
	binary.Write(&head, binary.BigEndian, e.Seq)
	head.Write(payload.Bytes())

	crc := crc32.ChecksumIEEE(head.Bytes())
	out := make([]byte, 4+head.Len())
	binary.BigEndian.PutUint32(out[:4], crc)
	copy(out[4:], head.Bytes())
	return out
}

func decodeEntry(buf []byte) (Entry, int, error) {
	if len(buf) < 18 {
		return Entry{}, 0, errors.New("journal: short entry header")
	}
	wantCRC := binary.BigEndian.Uint32(buf[:4])
	body := buf[4:]
	typ := EntryType(body[0])
	btreeID := binary.BigEndian.Uint32(body[1:5])
	level := body[5]
	seq := binary.BigEndian.Uint64(body[6:14])
	r := bytes.NewReader(body[14:])

	e := Entry{Type: typ, BtreeID: btreeID, Level: level, Seq: seq}
	switch typ {
	case EntryBtreeKeys:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Entry{}, 0, err
		}
		for i := uint32(0); i < n; i++ {
			k, err := readKey(r)
			if err != nil {
				return Entry{}, 0, err
			}
			e.Keys = append(e.Keys, k)
		}
	case EntryBtreeRoot:
		p, err := readPointer(r)
		if err != nil {
			return Entry{}, 0, err
		}
		e.RootKey = p
	case EntryBtreeNodeAlloc:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return Entry{}, 0, err
		}
		for i := uint32(0); i < n; i++ {
			var b uint64
			if err := binary.Read(r, binary.BigEndian, &b); err != nil {
				return Entry{}, 0, err
			}
			e.BucketID = append(e.BucketID, b)
		}
	default:
		return Entry{}, 0, errors.Newf("journal: unknown entry type %d", typ)
	}

	consumed := len(body) - r.Len()
	total := 14 + consumed
	gotCRC := crc32.ChecksumIEEE(body[:total])
	if gotCRC != wantCRC {
		return Entry{}, 0, errors.New("journal: entry CRC mismatch")
	}
	return e, 4 + total, nil
}

func writeKey(w *bytes.Buffer, k bkey.BKey) {
	binary.Write(w, binary.BigEndian, k.Pos.Inode)
	binary.Write(w, binary.BigEndian, k.Pos.Offset)
	binary.Write(w, binary.BigEndian, k.Pos.Snapshot)
	var wo uint8
	if k.Whiteout {
		wo = 1
	}
	w.WriteByte(wo)
	writePointer(w, k.Pointer)
}

func readKey(r *bytes.Reader) (bkey.BKey, error) {
	var k bkey.BKey
	if err := binary.Read(r, binary.BigEndian, &k.Pos.Inode); err != nil {
		return k, err
	}
	if err := binary.Read(r, binary.BigEndian, &k.Pos.Offset); err != nil {
		return k, err
	}
	if err := binary.Read(r, binary.BigEndian, &k.Pos.Snapshot); err != nil {
		return k, err
	}
	wo, err := r.ReadByte()
	if err != nil {
		return k, err
	}
	k.Whiteout = wo == 1
	p, err := readPointer(r)
	if err != nil {
		return k, err
	}
	k.Pointer = p
	return k, nil
}

func writePointer(w *bytes.Buffer, p bkey.Pointer) {
	binary.Write(w, binary.BigEndian, uint8(p.Version))
	binary.Write(w, binary.BigEndian, uint32(len(p.Ptrs)))
	for _, dp := range p.Ptrs {
		w.WriteByte(dp.Device)
		binary.Write(w, binary.BigEndian, dp.Bucket)
		w.WriteByte(dp.Gen)
	}
	binary.Write(w, binary.BigEndian, p.MinKey.Inode)
	binary.Write(w, binary.BigEndian, p.MinKey.Offset)
	binary.Write(w, binary.BigEndian, p.MinKey.Snapshot)
	binary.Write(w, binary.BigEndian, p.BSetSeq)
}

func readPointer(r *bytes.Reader) (bkey.Pointer, error) {
	var p bkey.Pointer
	var ver uint8
	if err := binary.Read(r, binary.BigEndian, &ver); err != nil {
		return p, err
	}
	p.Version = bkey.PointerVersion(ver)
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return p, err
	}
	for i := uint32(0); i < n; i++ {
		var dp bkey.DevicePtr
		dev, err := r.ReadByte()
		if err != nil {
			return p, err
		}
		dp.Device = dev
		if err := binary.Read(r, binary.BigEndian, &dp.Bucket); err != nil {
			return p, err
		}
		gen, err := r.ReadByte()
		if err != nil {
			return p, err
		}
		dp.Gen = gen
		p.Ptrs = append(p.Ptrs, dp)
	}
	if err := binary.Read(r, binary.BigEndian, &p.MinKey.Inode); err != nil {
		return p, err
	}
	if err := binary.Read(r, binary.BigEndian, &p.MinKey.Offset); err != nil {
		return p, err
	}
	if err := binary.Read(r, binary.BigEndian, &p.MinKey.Snapshot); err != nil {
		return p, err
	}
	if err := binary.Read(r, binary.BigEndian, &p.BSetSeq); err != nil {
		return p, err
	}
	return p, nil
}
