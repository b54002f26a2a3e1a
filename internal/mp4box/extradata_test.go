package mp4box

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildAVCC(sps, pps []byte) []byte {
	buf := []byte{1, 0x64, 0, 0x1f, 0xff} // version, profile, compat, level, lengthSizeMinusOne(3 reserved+ff)
	buf = append(buf, 0xe1)               // reserved(111) + numSPS(00001)
	spsLen := make([]byte, 2)
	binary.BigEndian.PutUint16(spsLen, uint16(len(sps)))
	buf = append(buf, spsLen...)
	buf = append(buf, sps...)
	buf = append(buf, 1) // numPPS
	ppsLen := make([]byte, 2)
	binary.BigEndian.PutUint16(ppsLen, uint16(len(pps)))
	buf = append(buf, ppsLen...)
	buf = append(buf, pps...)
	return buf
}

func TestParseAVCCExtractsSPSAndPPS(t *testing.T) {
	sps := []byte{0x67, 0x64, 0x00, 0x1f}
	pps := []byte{0x68, 0xeb, 0x8f}
	avcC := buildAVCC(sps, pps)

	gotSPS, gotPPS, err := ParseAVCC(avcC)
	require.NoError(t, err)
	require.Equal(t, sps, gotSPS)
	require.Equal(t, pps, gotPPS)
}

func TestParseAVCCShortBufferErrors(t *testing.T) {
	_, _, err := ParseAVCC([]byte{1, 2, 3})
	require.Error(t, err)
}

func buildHVCCArray(nalType byte, nalus [][]byte) []byte {
	buf := []byte{0x80 | (nalType & 0x3f)}
	count := make([]byte, 2)
	binary.BigEndian.PutUint16(count, uint16(len(nalus)))
	buf = append(buf, count...)
	for _, n := range nalus {
		l := make([]byte, 2)
		binary.BigEndian.PutUint16(l, uint16(len(n)))
		buf = append(buf, l...)
		buf = append(buf, n...)
	}
	return buf
}

func TestParseHVCCExtractsVPSSPSAndPPS(t *testing.T) {
	vps := []byte{0x40, 0x01, 0x0c}
	sps := []byte{0x42, 0x01, 0x01}
	pps := []byte{0x44, 0x01}

	fixed := make([]byte, 22)
	fixed[0] = 1 // configurationVersion

	body := append([]byte{}, fixed...)
	body = append(body, 3) // numArrays
	body = append(body, buildHVCCArray(hevcNALVPS, [][]byte{vps})...)
	body = append(body, buildHVCCArray(hevcNALSPS, [][]byte{sps})...)
	body = append(body, buildHVCCArray(hevcNALPPS, [][]byte{pps})...)

	gotVPS, gotSPS, gotPPS, err := ParseHVCC(body)
	require.NoError(t, err)
	require.Equal(t, vps, gotVPS)
	require.Equal(t, sps, gotSPS)
	require.Equal(t, pps, gotPPS)
}

func TestParseHVCCShortBufferErrors(t *testing.T) {
	_, _, _, err := ParseHVCC(make([]byte, 5))
	require.Error(t, err)
}
