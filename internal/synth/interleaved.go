package synth

import (
	"github.com/hlsvod/originserver/internal/hlserr"
	"github.com/hlsvod/originserver/internal/mp4box"
)

// patchInterleavedFragment applies spec §4.H.3 step 3's interleaved case:
// one mfhd sequence number for the whole fragment, but a per-track tfdt
// baseMediaDecodeTime — dispatched by each traf's tfhd.track_ID — since
// video and audio run on different timebases and (for audio) a
// potentially different start offset than the video segment boundary.
func patchInterleavedFragment(media []byte, seq, videoTrackID int, videoBaseTime uint64, audioTrackID int, audioBaseTime uint64) ([]byte, error) {
	buf := make([]byte, len(media))
	copy(buf, media)

	mfhd, err := mp4box.Find(buf, []string{"moof", "mfhd"})
	if err != nil {
		return nil, &hlserr.MuxingError{Msg: "find mfhd", Err: err}
	}
	mp4box.MfhdSetSequenceNumber(buf, mfhd, uint32(seq*1000+1))

	moof, err := mp4box.Find(buf, []string{"moof"})
	if err != nil {
		return nil, &hlserr.MuxingError{Msg: "find moof", Err: err}
	}
	moofPayload := buf[moof.PayloadStart:moof.End]

	trafs, err := mp4box.FindAll(moofPayload, "traf")
	if err != nil {
		return nil, &hlserr.MuxingError{Msg: "find traf boxes", Err: err}
	}

	for _, traf := range trafs {
		trafPayload := moofPayload[traf.PayloadStart:traf.End]

		tfhd, err := mp4box.Find(trafPayload, []string{"tfhd"})
		if err != nil {
			return nil, &hlserr.MuxingError{Msg: "find tfhd", Err: err}
		}
		trackID := int(mp4box.TfhdTrackID(trafPayload, tfhd))

		tfdt, err := mp4box.Find(trafPayload, []string{"tfdt"})
		if err != nil {
			return nil, &hlserr.MuxingError{Msg: "find tfdt", Err: err}
		}

		switch trackID {
		case videoTrackID:
			mp4box.TfdtSetBaseMediaDecodeTime(trafPayload, tfdt, videoBaseTime)
		case audioTrackID:
			mp4box.TfdtSetBaseMediaDecodeTime(trafPayload, tfdt, audioBaseTime)
		}
	}

	out := make([]byte, 0, 24+len(buf))
	out = append(out, mp4box.BuildStyp()...)
	out = append(out, buf...)
	return out, nil
}
