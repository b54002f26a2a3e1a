package demux

import (
	"fmt"
	"io"
	"os"
)

// Seeker positions reads at an arbitrary byte offset within a source file,
// giving index-driven callers (subtitle extraction, audio transcode seek
// fallback) direct access to the bytes an IndexEntry.Pos points at without
// re-probing the container.
type Seeker struct {
	f *os.File
}

// OpenSeeker opens sourcePath for positioned reads.
func OpenSeeker(sourcePath string) (*Seeker, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("demux: opening source: %w", err)
	}
	return &Seeker{f: f}, nil
}

// Close releases the underlying file handle.
func (s *Seeker) Close() error { return s.f.Close() }

// SeekToByteOffset positions the next read at the given absolute byte
// offset, as reported by an IndexEntry.Pos.
func (s *Seeker) SeekToByteOffset(offset int64) error {
	_, err := s.f.Seek(offset, io.SeekStart)
	if err != nil {
		return fmt.Errorf("demux: seeking to offset %d: %w", offset, err)
	}
	return nil
}

// ReadN reads exactly len(buf) bytes starting at the current position
// (after SeekToByteOffset), used to pull one packet's payload given its
// IndexEntry.Size.
func (s *Seeker) ReadN(buf []byte) error {
	_, err := io.ReadFull(s.f, buf)
	return err
}
