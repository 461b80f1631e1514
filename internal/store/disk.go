package store

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"cspx/internal/metrics"
	"cspx/internal/state"
)

const indexHeaderPrefix = "cspx-disk-index-v1 log_len="

// InvalidDataError marks a fatal, unrecoverable on-disk inconsistency:
// a malformed record in the middle of state.log (spec.md section 4.1).
// Unlike a malformed trailing record, this is never silently repaired.
type InvalidDataError struct {
	Path string
	Line int
	Err  error
}

func (e *InvalidDataError) Error() string {
	return fmt.Sprintf("store: invalid data at %s line %d: %v", e.Path, e.Line, e.Err)
}

func (e *InvalidDataError) Unwrap() error { return e.Err }

// Disk is the on-disk variant: an append-only log, an external index
// mirroring it, and a lock file preventing two processes from writing
// to the same path concurrently.
type Disk struct {
	dir     string
	logPath string
	idxPath string
	lockPath string

	lockFile *os.File
	logFile  *os.File

	seen    map[string]struct{}
	order   []string // insertion order, mirrors state.log
	metrics *metrics.StoreMetrics
}

// NewDisk constructs an unopened on-disk store. Pass m=nil to opt out of
// metrics.
func NewDisk(m *metrics.StoreMetrics) *Disk {
	return &Disk{metrics: m}
}

func (d *Disk) Open(cfg Config) error {
	start := time.Now()
	d.dir = cfg.Path
	d.logPath = filepath.Join(d.dir, "state.log")
	d.idxPath = filepath.Join(d.dir, "state.idx")
	d.lockPath = filepath.Join(d.dir, "state.lock")

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("store: creating %s: %w", d.dir, err)
	}

	lockStart := time.Now()
	lock, err := os.OpenFile(d.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("store: opening lock file %s: %w", d.lockPath, err)
	}
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lock.Close()
		d.metrics.ObserveLockWait(time.Since(lockStart).Seconds(), true)
		if err == unix.EWOULDBLOCK {
			return fmt.Errorf("store: %w: %s (held by another live process)", ErrLocked, d.lockPath)
		}
		return fmt.Errorf("store: locking %s: %w", d.lockPath, err)
	}
	d.metrics.ObserveLockWait(time.Since(lockStart).Seconds(), false)
	if err := lock.Truncate(0); err != nil {
		lock.Close()
		return fmt.Errorf("store: truncating lock file %s: %w", d.lockPath, err)
	}
	fmt.Fprintf(lock, "%d\n", os.Getpid())
	d.lockFile = lock

	logFile, err := os.OpenFile(d.logPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("store: opening %s: %w", d.logPath, err)
	}
	d.logFile = logFile

	if err := d.loadOrRebuild(); err != nil {
		d.logFile.Close()
		d.lockFile.Close()
		os.Remove(d.lockPath)
		return err
	}

	d.metrics.ObserveOpen(time.Since(start).Seconds())
	return nil
}

// loadOrRebuild implements the open protocol from spec.md section 4.1:
// try the index first, and only fall back to a full log rescan if the
// index is missing, corrupt, or out of date.
func (d *Disk) loadOrRebuild() error {
	logInfo, err := d.logFile.Stat()
	if err != nil {
		return fmt.Errorf("store: stat %s: %w", d.logPath, err)
	}
	logLen := logInfo.Size()

	if entries, order, ok := d.tryLoadIndex(logLen); ok {
		d.seen, d.order = entries, order
		return nil
	}

	entries, order, rebuiltLen, err := d.rebuildFromLog()
	if err != nil {
		return err
	}
	d.seen, d.order = entries, order
	return d.writeIndex(rebuiltLen)
}

func (d *Disk) tryLoadIndex(logLen int64) (map[string]struct{}, []string, bool) {
	start := time.Now()
	f, err := os.Open(d.idxPath)
	if err != nil {
		return nil, nil, false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		return nil, nil, false
	}
	header := sc.Text()
	var n int64
	if _, err := fmt.Sscanf(header, indexHeaderPrefix+"%d", &n); err != nil || n != logLen {
		return nil, nil, false
	}

	entries := make(map[string]struct{})
	var order []string
	bytesRead := len(header) + 1
	for sc.Scan() {
		line := sc.Text()
		bytesRead += len(line) + 1
		record := firstField(line)
		encoded, err := state.FromHex(record)
		if err != nil {
			return nil, nil, false
		}
		key := string(encoded)
		if _, dup := entries[key]; dup {
			continue
		}
		entries[key] = struct{}{}
		order = append(order, key)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, false
	}

	d.metrics.AddIndexBytes("read", bytesRead)
	d.metrics.ObserveIndexLoad(time.Since(start).Seconds(), len(entries))
	return entries, order, true
}

// firstField returns the hex record portion of an index line, ignoring
// any future-compatible hash/offset fields appended after whitespace
// (spec.md section 4.1: "optionally augmented ... used to short-circuit
// look-ups on hash hit").
func firstField(line string) string {
	for i, c := range line {
		if c == ' ' || c == '\t' {
			return line[:i]
		}
	}
	return line
}

// rebuildFromLog scans state.log up to the last newline boundary. A
// malformed record in the middle is a fatal InvalidDataError; a
// malformed or absent trailing record (no terminating newline) is
// discarded and the log is truncated to the last valid boundary.
func (d *Disk) rebuildFromLog() (map[string]struct{}, []string, int64, error) {
	start := time.Now()
	if _, err := d.logFile.Seek(0, io.SeekStart); err != nil {
		return nil, nil, 0, fmt.Errorf("store: seeking %s: %w", d.logPath, err)
	}
	raw, err := io.ReadAll(d.logFile)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("store: reading %s: %w", d.logPath, err)
	}
	d.metrics.AddLogBytes("read", len(raw))

	entries := make(map[string]struct{})
	var order []string
	var validLen int64
	lineNo := 0
	offset := 0
	for offset < len(raw) {
		nl := bytes.IndexByte(raw[offset:], '\n')
		if nl < 0 {
			// Incomplete trailing record: discard, do not advance
			// validLen past this point.
			break
		}
		lineNo++
		record := string(raw[offset : offset+nl])
		encoded, decodeErr := state.FromHex(record)
		isLast := offset+nl+1 >= len(raw)
		if decodeErr != nil {
			if !isLast {
				return nil, nil, 0, &InvalidDataError{Path: d.logPath, Line: lineNo, Err: decodeErr}
			}
			// Malformed trailing record: discard.
			break
		}
		key := string(encoded)
		if _, dup := entries[key]; !dup {
			entries[key] = struct{}{}
			order = append(order, key)
		}
		offset += nl + 1
		validLen = int64(offset)
	}

	if validLen != int64(len(raw)) {
		if err := d.logFile.Truncate(validLen); err != nil {
			return nil, nil, 0, fmt.Errorf("store: truncating %s: %w", d.logPath, err)
		}
		if _, err := d.logFile.Seek(0, io.SeekEnd); err != nil {
			return nil, nil, 0, fmt.Errorf("store: seeking %s: %w", d.logPath, err)
		}
	}

	d.metrics.ObserveIndexRebuild(time.Since(start).Seconds(), len(entries))
	return entries, order, validLen, nil
}

// writeIndex rewrites state.idx from d.order, mirroring state.log's
// insertion order: header (log_len) first, then one record per entry,
// per spec.md section 4.1's insert protocol ("update state.idx (header
// log_len first, then the new record)").
func (d *Disk) writeIndex(logLen int64) error {
	f, err := os.Create(d.idxPath)
	if err != nil {
		return fmt.Errorf("store: creating %s: %w", d.idxPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	header := fmt.Sprintf("%s%d\n", indexHeaderPrefix, logLen)
	n, _ := w.WriteString(header)
	written := n
	for _, encoded := range d.order {
		line := state.Hex([]byte(encoded)) + "\n"
		n, _ := w.WriteString(line)
		written += n
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("store: flushing %s: %w", d.idxPath, err)
	}
	d.metrics.AddIndexBytes("write", written)
	return nil
}

func (d *Disk) Contains(encoded []byte) bool {
	_, ok := d.seen[string(encoded)]
	return ok
}

// Insert implements the insert protocol from spec.md section 4.1:
// encode once (the caller already did), check the in-memory mirror,
// append a hex line to state.log, update the mirror, and rewrite
// state.idx (header first, then the new record set).
func (d *Disk) Insert(encoded []byte) bool {
	start := time.Now()
	key := string(encoded)
	if _, ok := d.seen[key]; ok {
		d.metrics.ObserveInsert(true)
		return false
	}

	line := state.Hex(encoded) + "\n"
	n, err := d.logFile.WriteString(line)
	if err != nil {
		panic(fmt.Errorf("store: appending to %s: %w", d.logPath, err))
	}
	d.metrics.AddLogBytes("write", n)

	d.seen[key] = struct{}{}
	d.order = append(d.order, key)

	info, err := d.logFile.Stat()
	if err != nil {
		panic(fmt.Errorf("store: stat %s: %w", d.logPath, err))
	}
	if err := d.writeIndex(info.Size()); err != nil {
		panic(err)
	}

	d.metrics.ObserveInsert(false)
	d.metrics.ObserveWrite(time.Since(start).Seconds())
	return true
}

// Close flushes pending writes and releases state.lock. Durability
// policy (spec.md section 9, open question a): state.log is fsynced
// here, on Close only; individual inserts and state.idx rewrites are
// not fsynced.
func (d *Disk) Close() error {
	var firstErr error
	if d.logFile != nil {
		if err := d.logFile.Sync(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := d.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.lockFile != nil {
		if err := d.lockFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := os.Remove(d.lockPath); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
