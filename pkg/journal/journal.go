// Package journal implements the journal collaborator of spec §6:
// pre-reservation of log credit, batched entry append, pins that keep a
// sequence number alive, and replay at startup. It is grounded on the
// teacher's append-only LogWriter/LogReader (pkg/store/log_writer.go,
// log_reader.go) — bufio.Writer, an fsync after every appended batch,
// CRC-checked records —
// generalized from fixed key/value records to the {BtreeKeys, BtreeRoot}
// entry shapes of package journal/entry.go.
package journal

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ssargent/btreefs/pkg/btreeerr"
)

// Config configures the journal's pre-reservation pool and backing file.
type Config struct {
	FilePath   string
	PreResMax  uint64 // total pre-reservation credit available
	BufferSize int
}

// Journal is the append-only log plus its pre-reservation/pin bookkeeping.
type Journal struct {
	log *logrus.Entry

	mu         sync.Mutex
	file       *os.File
	writer     *bufio.Writer
	nextSeq    uint64
	preResUsed uint64
	preResMax  uint64
	errored    bool

	pinMu sync.Mutex
	pins  map[uint64]int // seq -> refcount
}

// Open creates or appends to the journal file at cfg.FilePath.
func Open(cfg Config, log *logrus.Entry) (*Journal, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if err := os.MkdirAll(dirOf(cfg.FilePath), 0o750); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}
	bufSize := cfg.BufferSize
	if bufSize == 0 {
		bufSize = 64 * 1024
	}
	return &Journal{
		log:       log.WithField("component", "journal"),
		file:      f,
		writer:    bufio.NewWriterSize(f, bufSize),
		preResMax: cfg.PreResMax,
		pins:      make(map[uint64]int),
		nextSeq:   1,
	}, nil
}

func dirOf(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' {
		i--
	}
	if i < 0 {
		return "."
	}
	return path[:i]
}

// PreresGet reserves journal credit, per spec §4.5 step 2 and the
// downward interface "preres_get/put" of spec §6.
func (j *Journal) PreresGet(amount uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.errored {
		return btreeerr.ErrJournalError
	}
	if j.preResUsed+amount > j.preResMax {
		return btreeerr.New(btreeerr.JournalFull, "pre-reservation exhausted: used=%d want=%d max=%d", j.preResUsed, amount, j.preResMax)
	}
	j.preResUsed += amount
	return nil
}

// PreresPut releases previously reserved journal credit.
func (j *Journal) PreresPut(amount uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if amount > j.preResUsed {
		amount = j.preResUsed
	}
	j.preResUsed -= amount
}

// Error reports whether the journal is in the fatal-until-unmount error
// state (spec §7 JournalError).
func (j *Journal) Error() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.errored {
		return btreeerr.ErrJournalError
	}
	return nil
}

// SetErrored puts the journal into its fatal-until-unmount state; all
// subsequent writes are rejected.
func (j *Journal) SetErrored() {
	j.mu.Lock()
	j.errored = true
	j.mu.Unlock()
	j.log.Error("journal entered error state")
}

// AppendBatch writes a batch of entries, assigning each the same
// transaction sequence number, and returns that sequence. This is the
// "journaled parent transaction" of spec §4.6 step 1: new_keys recorded
// as inserts, old_keys recorded as overwrites, all at one sequence.
func (j *Journal) AppendBatch(ctx context.Context, entries []Entry) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.errored {
		return 0, btreeerr.ErrJournalError
	}
	seq := j.nextSeq
	j.nextSeq++

	for i := range entries {
		entries[i].Seq = seq
		buf := entries[i].encode()
		if _, err := j.writer.Write(buf); err != nil {
			j.errored = true
			return 0, btreeerr.Wrap(err, "journal append failed")
		}
	}
	if err := j.writer.Flush(); err != nil {
		j.errored = true
		return 0, btreeerr.Wrap(err, "journal flush failed")
	}
	if err := j.file.Sync(); err != nil {
		j.errored = true
		return 0, btreeerr.Wrap(err, "journal fsync failed")
	}
	j.log.WithField("seq", seq).WithField("entries", len(entries)).Debug("journal batch appended")
	return seq, nil
}

// ReserveSeq allocates the next sequence number without writing
// anything, so a caller can hold a pin on it before the transaction
// tied to that sequence is ready to append. This is what lets an
// Update take its journal pin at Start (credit-acquisition) time
// instead of at publish time (spec §4.6).
func (j *Journal) ReserveSeq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	seq := j.nextSeq
	j.nextSeq++
	return seq
}

// AppendBatchAt writes a batch of entries under a sequence number
// obtained earlier from ReserveSeq, rather than minting a fresh one.
func (j *Journal) AppendBatchAt(ctx context.Context, seq uint64, entries []Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.errored {
		return btreeerr.ErrJournalError
	}

	for i := range entries {
		entries[i].Seq = seq
		buf := entries[i].encode()
		if _, err := j.writer.Write(buf); err != nil {
			j.errored = true
			return btreeerr.Wrap(err, "journal append failed")
		}
	}
	if err := j.writer.Flush(); err != nil {
		j.errored = true
		return btreeerr.Wrap(err, "journal flush failed")
	}
	if err := j.file.Sync(); err != nil {
		j.errored = true
		return btreeerr.Wrap(err, "journal fsync failed")
	}
	j.log.WithField("seq", seq).WithField("entries", len(entries)).Debug("journal batch appended at reserved sequence")
	return nil
}

// AddPin holds a sequence number alive so it is not reclaimed before
// dependent work completes (spec §6 "add_journal_pin").
func (j *Journal) AddPin(seq uint64) {
	if seq == 0 {
		return
	}
	j.pinMu.Lock()
	j.pins[seq]++
	j.pinMu.Unlock()
}

// PinCopy duplicates a pin at the same sequence, used when reparenting
// transfers ownership without releasing the underlying hold (spec §4.6
// reparenting: "copying Pi's journal pin onto U's pin").
func (j *Journal) PinCopy(seq uint64) {
	j.AddPin(seq)
}

// PinDrop releases one hold on seq.
func (j *Journal) PinDrop(seq uint64) {
	if seq == 0 {
		return
	}
	j.pinMu.Lock()
	defer j.pinMu.Unlock()
	if j.pins[seq] <= 1 {
		delete(j.pins, seq)
		return
	}
	j.pins[seq]--
}

// OldestPin reports the smallest sequence number currently pinned, and
// whether anything is pinned at all. Used by journal_test.go's pin
// tests.
func (j *Journal) OldestPin() (uint64, bool) {
	j.pinMu.Lock()
	defer j.pinMu.Unlock()
	var min uint64
	found := false
	for seq := range j.pins {
		if !found || seq < min {
			min = seq
			found = true
		}
	}
	return min, found
}

// PinCount reports the current refcount held on seq, for tests.
func (j *Journal) PinCount(seq uint64) int {
	j.pinMu.Lock()
	defer j.pinMu.Unlock()
	return j.pins[seq]
}

// Replay reads every entry back in sequence order and invokes visit for
// each — the recovery path of spec §4.7: "At startup, all btree roots are
// recovered by replaying {BtreeRoot} journal entries into the root table."
func Replay(filePath string, visit func(Entry) error) error {
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	data, err := readAll(f)
	if err != nil {
		return err
	}
	off := 0
	for off < len(data) {
		e, n, err := decodeEntry(data[off:])
		if err != nil {
			return btreeerr.Wrap(err, "journal replay: corrupt entry at offset %d", off)
		}
		if err := visit(e); err != nil {
			return err
		}
		off += n
	}
	return nil
}

func readAll(f *os.File) ([]byte, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}

// Close flushes and closes the backing file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}
