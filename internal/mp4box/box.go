// Package mp4box implements a minimal ISO-BMFF box walker: iteration over
// top-level boxes with recursion into the container paths this repo cares
// about (moov->mvex, moof->traf, trak->mdia->minf->stbl), plus an in-place
// patch variant that never changes box sizes. It intentionally does not
// attempt to understand every box type in the spec - only enough structure
// to locate and rewrite the handful of fields segment synthesis needs
// (trex defaults, tfdt, mfhd, stbl sample tables).
package mp4box

import (
	"encoding/binary"
	"errors"
)

// ErrShortBuffer is returned when a box header or payload runs past the end
// of the supplied buffer.
var ErrShortBuffer = errors.New("mp4box: buffer too short for box header")

// ErrBoxNotFound is returned by Find when no box matches the requested path.
var ErrBoxNotFound = errors.New("mp4box: box not found")

// Box describes one ISO-BMFF box located within a byte slice. Offsets are
// relative to the slice that was walked, not to the start of the file.
type Box struct {
	Type         string
	HeaderSize   int // 8 or 16 (extended size) or 12/20 with a 4-byte usertype (not used here)
	Start        int // offset of the size field
	PayloadStart int // offset of the first payload byte
	End          int // offset one past the last byte of the box (Start+Size)
}

// Size returns the total encoded size of the box, header included.
func (b Box) Size() int { return b.End - b.Start }

// Payload returns the box's payload bytes within data. data must be the
// same slice (or a slice sharing the same backing array) that was passed
// to ReadHeader/Walk to produce b.
func (b Box) Payload(data []byte) []byte { return data[b.PayloadStart:b.End] }

// containerTypes lists the box types this walker recurses into. Every
// other box is treated as a leaf even if ISO-BMFF nests further inside it.
var containerTypes = map[string]bool{
	"moov": true,
	"trak": true,
	"mdia": true,
	"minf": true,
	"stbl": true,
	"mvex": true,
	"moof": true,
	"traf": true,
	"udta": true,
	"edts": true,
}

// ReadHeader reads a single box header at the start of data, handling the
// 64-bit extended-size form (32-bit size field == 1, followed by a 64-bit
// size). Returns the box with Start=0 relative to data.
func ReadHeader(data []byte) (Box, error) {
	if len(data) < 8 {
		return Box{}, ErrShortBuffer
	}

	size := binary.BigEndian.Uint32(data[0:4])
	boxType := string(data[4:8])

	b := Box{Type: boxType, HeaderSize: 8}

	switch size {
	case 1:
		if len(data) < 16 {
			return Box{}, ErrShortBuffer
		}
		size64 := binary.BigEndian.Uint64(data[8:16])
		b.HeaderSize = 16
		b.End = int(size64)
	case 0:
		// Box extends to the end of the supplied buffer.
		b.End = len(data)
	default:
		b.End = int(size)
	}

	if b.End > len(data) || b.End < b.HeaderSize {
		return Box{}, ErrShortBuffer
	}

	b.PayloadStart = b.HeaderSize
	return b, nil
}

// Walk iterates the top-level boxes in data, invoking fn for each with the
// box's offsets already relative to data. Stops and returns fn's error if
// it returns one. Walk does not descend into child boxes.
func Walk(data []byte, fn func(b Box) error) error {
	offset := 0
	for offset+8 <= len(data) {
		hdr, err := ReadHeader(data[offset:])
		if err != nil {
			return err
		}
		b := Box{
			Type:         hdr.Type,
			HeaderSize:   hdr.HeaderSize,
			Start:        offset,
			PayloadStart: offset + hdr.HeaderSize,
			End:          offset + hdr.End,
		}
		if err := fn(b); err != nil {
			return err
		}
		offset = b.End
	}
	return nil
}

// WalkRecursive behaves like Walk but additionally descends into any box
// type in containerTypes, invoking fn for nested boxes too. fn is called
// for a container box itself as well as its children.
func WalkRecursive(data []byte, fn func(b Box) error) error {
	return Walk(data, func(b Box) error {
		if err := fn(b); err != nil {
			return err
		}
		if containerTypes[b.Type] {
			inner := data[b.PayloadStart:b.End]
			return WalkRecursive(inner, func(child Box) error {
				shifted := Box{
					Type:         child.Type,
					HeaderSize:   child.HeaderSize,
					Start:        child.Start + b.PayloadStart,
					PayloadStart: child.PayloadStart + b.PayloadStart,
					End:          child.End + b.PayloadStart,
				}
				return fn(shifted)
			})
		}
		return nil
	})
}

// Find locates the first box matching a path of box types, e.g.
// []string{"moov", "mvex", "trex"} or []string{"moof", "traf", "tfdt"},
// descending into whichever box matches the next path element regardless
// of its type. Returns the box with offsets relative to data, and
// ErrBoxNotFound if no match exists.
func Find(data []byte, path []string) (Box, error) {
	if len(path) == 0 {
		return Box{}, ErrBoxNotFound
	}

	var found Box
	var hasFound bool

	err := Walk(data, func(b Box) error {
		if hasFound {
			return nil
		}
		if b.Type != path[0] {
			return nil
		}
		if len(path) == 1 {
			found = b
			hasFound = true
			return nil
		}
		inner := data[b.PayloadStart:b.End]
		child, err := Find(inner, path[1:])
		if err == nil {
			found = Box{
				Type:         child.Type,
				HeaderSize:   child.HeaderSize,
				Start:        child.Start + b.PayloadStart,
				PayloadStart: child.PayloadStart + b.PayloadStart,
				End:          child.End + b.PayloadStart,
			}
			hasFound = true
		}
		return nil
	})
	if err != nil {
		return Box{}, err
	}
	if !hasFound {
		return Box{}, ErrBoxNotFound
	}
	return found, nil
}

// FindAll locates every box matching type at the top level of data (not
// recursive), used to enumerate repeated sibling boxes like multiple traf
// children of a moof.
func FindAll(data []byte, boxType string) ([]Box, error) {
	var out []Box
	err := Walk(data, func(b Box) error {
		if b.Type == boxType {
			out = append(out, b)
		}
		return nil
	})
	return out, err
}
