package mp4box

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeBox(boxType string, content []byte) []byte {
	size := uint32(8 + len(content))
	box := make([]byte, size)
	binary.BigEndian.PutUint32(box[0:4], size)
	copy(box[4:8], boxType)
	copy(box[8:], content)
	return box
}

func makeExtendedBox(boxType string, content []byte) []byte {
	size := uint64(16 + len(content))
	box := make([]byte, size)
	binary.BigEndian.PutUint32(box[0:4], 1)
	copy(box[4:8], boxType)
	binary.BigEndian.PutUint64(box[8:16], size)
	copy(box[16:], content)
	return box
}

func TestReadHeaderSimple(t *testing.T) {
	b := makeBox("ftyp", []byte("isomiso2mp41"))
	hdr, err := ReadHeader(b)
	require.NoError(t, err)
	require.Equal(t, "ftyp", hdr.Type)
	require.Equal(t, len(b), hdr.End)
	require.Equal(t, 8, hdr.HeaderSize)
}

func TestReadHeaderExtendedSize(t *testing.T) {
	b := makeExtendedBox("mdat", make([]byte, 100))
	hdr, err := ReadHeader(b)
	require.NoError(t, err)
	require.Equal(t, "mdat", hdr.Type)
	require.Equal(t, len(b), hdr.End)
	require.Equal(t, 16, hdr.HeaderSize)
}

func TestWalkTopLevel(t *testing.T) {
	data := append(makeBox("ftyp", []byte("isom")), makeBox("free", nil)...)
	var types []string
	err := Walk(data, func(b Box) error {
		types = append(types, b.Type)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"ftyp", "free"}, types)
}

func TestFindNestedPath(t *testing.T) {
	trex := makeBox("trex", make([]byte, 20))
	mvex := makeBox("mvex", trex)
	moov := makeBox("moov", mvex)

	found, err := Find(moov, []string{"moov", "mvex", "trex"})
	require.NoError(t, err)
	require.Equal(t, "trex", found.Type)
}

func TestTrexSetDefaultSampleDuration(t *testing.T) {
	content := make([]byte, 20)
	trexBox := makeBox("trex", content)
	hdr, err := ReadHeader(trexBox)
	require.NoError(t, err)

	TrexSetDefaultSampleDuration(trexBox, hdr, 1024)

	got := binary.BigEndian.Uint32(trexBox[hdr.PayloadStart+12 : hdr.PayloadStart+16])
	require.Equal(t, uint32(1024), got)
}

func TestMfhdSetSequenceNumber(t *testing.T) {
	content := make([]byte, 8)
	mfhdBox := makeBox("mfhd", content)
	hdr, err := ReadHeader(mfhdBox)
	require.NoError(t, err)

	MfhdSetSequenceNumber(mfhdBox, hdr, 4001)

	got := binary.BigEndian.Uint32(mfhdBox[hdr.PayloadStart+4 : hdr.PayloadStart+8])
	require.Equal(t, uint32(4001), got)
}

func TestTfdtSetBaseMediaDecodeTimeV1(t *testing.T) {
	content := make([]byte, 12)
	content[0] = 1 // version 1
	tfdtBox := makeBox("tfdt", content)
	hdr, err := ReadHeader(tfdtBox)
	require.NoError(t, err)

	TfdtSetBaseMediaDecodeTime(tfdtBox, hdr, 1<<40)

	got := binary.BigEndian.Uint64(tfdtBox[hdr.PayloadStart+4 : hdr.PayloadStart+12])
	require.Equal(t, uint64(1<<40), got)
}

func TestBuildStyp(t *testing.T) {
	styp := BuildStyp()
	require.Len(t, styp, 24)
	hdr, err := ReadHeader(styp)
	require.NoError(t, err)
	require.Equal(t, "styp", hdr.Type)
	require.Equal(t, "iso8", string(styp[8:12]))
	require.Equal(t, uint32(0x200), binary.BigEndian.Uint32(styp[12:16]))
	require.Equal(t, "iso8", string(styp[16:20]))
	require.Equal(t, "cmfc", string(styp[20:24]))
}
