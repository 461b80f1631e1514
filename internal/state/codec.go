// Package state implements the canonical binary encoding of an LTS
// state described in spec.md section 4.1: a process term, after any
// number of transitions, stands for an execution position, and its
// encoding must be injective and deterministic.
package state

import (
	"encoding/binary"

	"cspx/internal/ir"
)

// tag bytes identify a term.Kind in the encoded stream. Values are
// stable across releases: changing them would silently change every
// state's encoding and invalidate on-disk stores written by older
// binaries.
const (
	tagStop byte = iota
	tagPrefix
	tagInputPrefix
	tagExtChoice
	tagIntChoice
	tagInterleave
	tagParallel
	tagHide
	tagRef
)

// Encode produces the canonical byte encoding of a term. Two terms that
// are structurally equal (value equality, not pointer identity) always
// produce byte-identical output; two structurally different terms never
// collide, which is the injectivity requirement from spec.md section 3.
func Encode(t *ir.Term) []byte {
	buf := make([]byte, 0, 64)
	return encodeInto(buf, t)
}

func encodeInto(buf []byte, t *ir.Term) []byte {
	if t == nil {
		return append(buf, 0xff)
	}
	switch t.Kind {
	case ir.KindStop:
		buf = append(buf, tagStop)
	case ir.KindPrefix:
		buf = append(buf, tagPrefix)
		buf = encodeLabel(buf, t.Label)
		buf = encodeInto(buf, t.Cont)
	case ir.KindInputPrefix:
		buf = append(buf, tagInputPrefix)
		buf = encodeString(buf, t.Channel)
		buf = encodeVarint(buf, uint64(len(t.Conts)))
		for _, c := range t.Conts {
			buf = encodeInto(buf, c)
		}
	case ir.KindExtChoice:
		buf = append(buf, tagExtChoice)
		buf = encodeInto(buf, t.Left)
		buf = encodeInto(buf, t.Right)
	case ir.KindIntChoice:
		buf = append(buf, tagIntChoice)
		buf = encodeInto(buf, t.Left)
		buf = encodeInto(buf, t.Right)
	case ir.KindInterleave:
		buf = append(buf, tagInterleave)
		buf = encodeInto(buf, t.Left)
		buf = encodeInto(buf, t.Right)
	case ir.KindParallel:
		buf = append(buf, tagParallel)
		buf = encodeStrings(buf, t.Sync)
		buf = encodeInto(buf, t.Left)
		buf = encodeInto(buf, t.Right)
	case ir.KindHide:
		buf = append(buf, tagHide)
		buf = encodeStrings(buf, t.Sync)
		buf = encodeInto(buf, t.Cont)
	case ir.KindRef:
		buf = append(buf, tagRef)
		buf = encodeString(buf, t.Name)
	default:
		panic("state: unknown term kind")
	}
	return buf
}

func encodeLabel(buf []byte, l ir.Label) []byte {
	if l.Tau {
		return append(buf, 1)
	}
	buf = append(buf, 0)
	buf = encodeString(buf, l.Channel)
	buf = append(buf, byte(l.Kind))
	buf = encodeVarint(buf, uint64(int64(l.Value)))
	return buf
}

func encodeString(buf []byte, s string) []byte {
	buf = encodeVarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// encodeStrings appends a sync/hide set. Sets are stored as declared
// (the IR builder is responsible for handing the engine a deduplicated,
// sorted set); cspx does not re-sort here, so the same set given in a
// different order encodes differently.
func encodeStrings(buf []byte, ss []string) []byte {
	buf = encodeVarint(buf, uint64(len(ss)))
	for _, s := range ss {
		buf = encodeString(buf, s)
	}
	return buf
}

func encodeVarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}
