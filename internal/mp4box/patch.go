package mp4box

import "encoding/binary"

// PatchUint32 overwrites 4 bytes at absolute offset off within data with v,
// big-endian. It never changes len(data); callers must ensure off+4 fits.
func PatchUint32(data []byte, off int, v uint32) {
	binary.BigEndian.PutUint32(data[off:off+4], v)
}

// PatchUint64 overwrites 8 bytes at absolute offset off within data with v,
// big-endian.
func PatchUint64(data []byte, off int, v uint64) {
	binary.BigEndian.PutUint64(data[off:off+8], v)
}

// TrexSetDefaultSampleDuration patches the default_sample_duration field of
// a trex box (mvex/trex) in place. trex payload layout (after the 8-byte
// box header) is: version(1) + flags(3) + track_ID(4) +
// default_sample_description_index(4) + default_sample_duration(4) + ...
func TrexSetDefaultSampleDuration(data []byte, trex Box, v uint32) {
	off := trex.PayloadStart + 4 + 4 + 4
	PatchUint32(data, off, v)
}

// MfhdSetSequenceNumber patches the sequence_number field of an mfhd box
// (moof/mfhd) in place. mfhd payload layout: version(1)+flags(3)+sequence_number(4).
func MfhdSetSequenceNumber(data []byte, mfhd Box, seq uint32) {
	PatchUint32(data, mfhd.PayloadStart+4, seq)
}

// TfhdTrackID reads the track_ID field of a tfhd box (moof/traf/tfhd).
// tfhd payload layout: version(1)+flags(3)+track_ID(4), always present
// regardless of which optional fields the flags select.
func TfhdTrackID(data []byte, tfhd Box) uint32 {
	return binary.BigEndian.Uint32(data[tfhd.PayloadStart+4 : tfhd.PayloadStart+8])
}

// TfdtVersion reports whether a tfdt box encodes a 64-bit
// (version 1) or 32-bit (version 0) baseMediaDecodeTime.
func TfdtVersion(data []byte, tfdt Box) uint8 {
	return data[tfdt.PayloadStart]
}

// TfdtSetBaseMediaDecodeTime patches the baseMediaDecodeTime field of a tfdt
// box (moof/traf/tfdt) in place, respecting its existing version (0 = 32-bit
// field at +4, 1 = 64-bit field at +4). The caller is responsible for having
// built the init segment's tfdt with the right version for the values it
// will ever need to hold (spec requires v1 once a value exceeds 32 bits).
func TfdtSetBaseMediaDecodeTime(data []byte, tfdt Box, v uint64) {
	off := tfdt.PayloadStart + 4
	if TfdtVersion(data, tfdt) == 1 {
		PatchUint64(data, off, v)
		return
	}
	PatchUint32(data, off, uint32(v))
}

// PatchSingleTrackFragment applies the mfhd-sequence-number and
// tfdt-baseMediaDecodeTime patches a single-track CMAF media fragment
// needs, then prepends a styp box — the shared tail of spec §4.H.3's
// post-mux patch sequence for any segment with exactly one track (audio
// or video, non-interleaved). media is copied; the input is untouched.
func PatchSingleTrackFragment(media []byte, sequenceNumber uint32, baseMediaDecodeTime uint64) ([]byte, error) {
	buf := make([]byte, len(media))
	copy(buf, media)

	mfhd, err := Find(buf, []string{"moof", "mfhd"})
	if err != nil {
		return nil, err
	}
	MfhdSetSequenceNumber(buf, mfhd, sequenceNumber)

	tfdt, err := Find(buf, []string{"moof", "traf", "tfdt"})
	if err != nil {
		return nil, err
	}
	TfdtSetBaseMediaDecodeTime(buf, tfdt, baseMediaDecodeTime)

	out := make([]byte, 0, 24+len(buf))
	out = append(out, BuildStyp()...)
	out = append(out, buf...)
	return out, nil
}

// BuildStyp returns a 24-byte styp box (segment type) advertising
// major_brand "iso8", minor_version 0x00000200, and compatible_brands
// "iso8","cmfc", prepended to every CMAF media segment ahead of its
// moof+mdat.
func BuildStyp() []byte {
	out := make([]byte, 24)
	binary.BigEndian.PutUint32(out[0:4], 24)
	copy(out[4:8], "styp")
	copy(out[8:12], "iso8")                     // major_brand
	binary.BigEndian.PutUint32(out[12:16], 0x200) // minor_version
	copy(out[16:20], "iso8")                    // compatible_brands[0]
	copy(out[20:24], "cmfc")                    // compatible_brands[1]
	return out
}
