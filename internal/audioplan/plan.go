// Package audioplan decides, once per audio stream, whether a source
// track can be packaged into CMAF as-is or must first be transcoded to
// AAC — promoted to an explicit, shared value (rather than a decision
// every caller re-derives) so internal/playlist and internal/synth never
// disagree on what a given stream's audio group or segment action is.
package audioplan

import (
	"github.com/hlsvod/originserver/internal/codec"
	"github.com/hlsvod/originserver/internal/model"
)

// Action names what a segment synthesis request must do with one audio
// stream's packets.
type Action string

const (
	// ActionPassthrough copies encoded packets into CMAF unchanged.
	ActionPassthrough Action = "passthrough"
	// ActionTranscode runs the stream through internal/audiotranscode
	// before packaging.
	ActionTranscode Action = "transcode"
)

// TrackPlan is the decision for one audio stream.
type TrackPlan struct {
	Stream      model.AudioStreamInfo
	Action      Action
	TargetCodec codec.Audio
}

// Plan computes a TrackPlan for every audio stream a StreamIndex carries,
// in stream order. A stream whose codec isn't recognized at all is
// planned for transcode to AAC, matching streamindex.Build's own
// fallback when populating AudioStreamInfo.TranscodeTo.
func Plan(streams []model.AudioStreamInfo) []TrackPlan {
	plans := make([]TrackPlan, 0, len(streams))
	for _, s := range streams {
		plans = append(plans, planOne(s))
	}
	return plans
}

func planOne(s model.AudioStreamInfo) TrackPlan {
	a, ok := codec.ParseAudio(s.Codec)
	if ok && codec.IsHLSPassthroughAudio(a) {
		return TrackPlan{Stream: s, Action: ActionPassthrough, TargetCodec: a}
	}
	return TrackPlan{Stream: s, Action: ActionTranscode, TargetCodec: codec.AudioAAC}
}
