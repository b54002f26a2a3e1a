package mp4box

import (
	"encoding/binary"

	"github.com/hlsvod/originserver/internal/demux"
)

// videoSampleEntryFixedFieldsSize is the byte length of the
// VisualSampleEntry's fixed fields (reserved/data_reference_index through
// compressorname/depth/pre_defined) that precede any nested codec
// configuration box (avcC, hvcC, av1C, ...) inside an avc1/hev1/hvc1/av01
// sample entry.
const videoSampleEntryFixedFieldsSize = 78

// LocateMoov walks a file's top-level boxes via seeker, reading only box
// headers until it finds "moov", then reads and returns that box's
// complete bytes (header included). This handles both "moov before mdat"
// (faststart) and "mdat before moov" layouts without assuming either,
// since every intervening box (notably a multi-gigabyte mdat) is skipped
// by its declared size rather than read into memory.
func LocateMoov(seeker *demux.Seeker, fileSize int64) ([]byte, error) {
	offset := int64(0)
	for offset+8 <= fileSize {
		hdr := make([]byte, 8)
		if err := seeker.SeekToByteOffset(offset); err != nil {
			return nil, err
		}
		if err := seeker.ReadN(hdr); err != nil {
			return nil, err
		}

		size := binary.BigEndian.Uint32(hdr[0:4])
		boxType := string(hdr[4:8])

		var boxSize int64
		switch size {
		case 1:
			ext := make([]byte, 8)
			if err := seeker.ReadN(ext); err != nil {
				return nil, err
			}
			boxSize = int64(binary.BigEndian.Uint64(ext))
		case 0:
			boxSize = fileSize - offset
		default:
			boxSize = int64(size)
		}
		if boxSize < 8 {
			return nil, ErrShortBuffer
		}

		if boxType == "moov" {
			buf := make([]byte, boxSize)
			if err := seeker.SeekToByteOffset(offset); err != nil {
				return nil, err
			}
			if err := seeker.ReadN(buf); err != nil {
				return nil, err
			}
			return buf, nil
		}

		offset += boxSize
	}
	return nil, ErrBoxNotFound
}

// VideoSampleEntry is the parsed codec-configuration payload of the first
// video sample entry found in moov. Type holds the canonical codec name:
// "h264" (avc1/avc3), "h265" (hev1/hvc1) or "av1" (av01); other sample
// entry types are not recognized.
type VideoSampleEntry struct {
	Type              string
	SPS               []byte // H.264/H.265
	PPS               []byte // H.264/H.265
	VPS               []byte // H.265 only
	AV1SequenceHeader []byte
}

// FindVideoSampleEntry locates the first trak in moov whose stsd contains
// a recognized video sample entry, and parses its codec configuration box
// (avcC/hvcC/av1C). Assumes a single sample description per track, true of
// every VOD source this system indexes.
func FindVideoSampleEntry(moov []byte) (VideoSampleEntry, error) {
	moovBox, err := ReadHeader(moov)
	if err != nil {
		return VideoSampleEntry{}, err
	}
	payload := moov[moovBox.PayloadStart:moovBox.End]

	var traks []Box
	err = Walk(payload, func(b Box) error {
		if b.Type == "trak" {
			traks = append(traks, b)
		}
		return nil
	})
	if err != nil {
		return VideoSampleEntry{}, err
	}

	for _, trak := range traks {
		trakBytes := payload[trak.Start:trak.End]
		stsdBox, err := Find(trakBytes, []string{"trak", "mdia", "minf", "stbl", "stsd"})
		if err != nil {
			continue
		}
		stsdPayload := trakBytes[stsdBox.PayloadStart:stsdBox.End]
		if len(stsdPayload) < 8 {
			continue
		}

		entryHdr, err := ReadHeader(stsdPayload[8:])
		if err != nil {
			continue
		}
		entryBytes := stsdPayload[8:][:entryHdr.End]

		switch entryHdr.Type {
		case "avc1", "avc3":
			nested := entryBytes[entryHdr.PayloadStart+videoSampleEntryFixedFieldsSize : entryHdr.End]
			avcC, err := Find(nested, []string{"avcC"})
			if err != nil {
				continue
			}
			sps, pps, err := ParseAVCC(avcC.Payload(nested))
			if err != nil {
				continue
			}
			return VideoSampleEntry{Type: "h264", SPS: sps, PPS: pps}, nil

		case "hev1", "hvc1":
			nested := entryBytes[entryHdr.PayloadStart+videoSampleEntryFixedFieldsSize : entryHdr.End]
			hvcC, err := Find(nested, []string{"hvcC"})
			if err != nil {
				continue
			}
			vps, sps, pps, err := ParseHVCC(hvcC.Payload(nested))
			if err != nil {
				continue
			}
			return VideoSampleEntry{Type: "h265", VPS: vps, SPS: sps, PPS: pps}, nil

		case "av01":
			nested := entryBytes[entryHdr.PayloadStart+videoSampleEntryFixedFieldsSize : entryHdr.End]
			av1C, err := Find(nested, []string{"av1C"})
			if err != nil {
				continue
			}
			return VideoSampleEntry{Type: "av1", AV1SequenceHeader: av1C.Payload(nested)}, nil
		}
	}

	return VideoSampleEntry{}, ErrBoxNotFound
}

// ParseAVCC extracts the first SPS and PPS NAL unit from an
// AVCDecoderConfigurationRecord ("avcC") payload (ISO/IEC 14496-15).
func ParseAVCC(avcC []byte) (sps, pps []byte, err error) {
	if len(avcC) < 6 {
		return nil, nil, ErrShortBuffer
	}
	off := 5 // configurationVersion, profile, compat, level, lengthSizeMinusOne
	numSPS := int(avcC[off] & 0x1f)
	off++

	for i := 0; i < numSPS; i++ {
		if off+2 > len(avcC) {
			return nil, nil, ErrShortBuffer
		}
		length := int(binary.BigEndian.Uint16(avcC[off : off+2]))
		off += 2
		if off+length > len(avcC) {
			return nil, nil, ErrShortBuffer
		}
		if i == 0 {
			sps = append([]byte(nil), avcC[off:off+length]...)
		}
		off += length
	}

	if off >= len(avcC) {
		return sps, nil, ErrShortBuffer
	}
	numPPS := int(avcC[off])
	off++

	for i := 0; i < numPPS; i++ {
		if off+2 > len(avcC) {
			return sps, pps, ErrShortBuffer
		}
		length := int(binary.BigEndian.Uint16(avcC[off : off+2]))
		off += 2
		if off+length > len(avcC) {
			return sps, pps, ErrShortBuffer
		}
		if i == 0 {
			pps = append([]byte(nil), avcC[off:off+length]...)
		}
		off += length
	}

	return sps, pps, nil
}

// HEVC NAL unit type codes used inside an hvcC array entry (ISO/IEC 14496-15 §8.3.3.1.2).
const (
	hevcNALVPS = 32
	hevcNALSPS = 33
	hevcNALPPS = 34
)

// ParseHVCC extracts the first VPS, SPS and PPS NAL unit from an
// HEVCDecoderConfigurationRecord ("hvcC") payload.
func ParseHVCC(hvcC []byte) (vps, sps, pps []byte, err error) {
	// Fixed fields before the array list: configurationVersion(1) +
	// general_profile_space/tier/idc(1) + compatibility flags(4) +
	// constraint indicator flags(6) + general_level_idc(1) +
	// min_spatial_segmentation(2) + parallelismType(1) +
	// chroma_format_idc(1) + bit_depth_luma(1) + bit_depth_chroma(1) +
	// avgFrameRate(2) + constantFrameRate/numTemporalLayers/etc(1) = 22 bytes.
	const fixedFieldsSize = 22
	if len(hvcC) < fixedFieldsSize+1 {
		return nil, nil, nil, ErrShortBuffer
	}

	off := fixedFieldsSize
	numArrays := int(hvcC[off])
	off++

	for i := 0; i < numArrays; i++ {
		if off+3 > len(hvcC) {
			return vps, sps, pps, ErrShortBuffer
		}
		nalType := hvcC[off] & 0x3f
		off++
		numNalus := int(binary.BigEndian.Uint16(hvcC[off : off+2]))
		off += 2

		for j := 0; j < numNalus; j++ {
			if off+2 > len(hvcC) {
				return vps, sps, pps, ErrShortBuffer
			}
			length := int(binary.BigEndian.Uint16(hvcC[off : off+2]))
			off += 2
			if off+length > len(hvcC) {
				return vps, sps, pps, ErrShortBuffer
			}
			nalu := hvcC[off : off+length]
			if j == 0 {
				switch nalType {
				case hevcNALVPS:
					vps = append([]byte(nil), nalu...)
				case hevcNALSPS:
					sps = append([]byte(nil), nalu...)
				case hevcNALPPS:
					pps = append([]byte(nil), nalu...)
				}
			}
			off += length
		}
	}

	return vps, sps, pps, nil
}
