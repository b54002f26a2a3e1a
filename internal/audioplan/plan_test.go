package audioplan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hlsvod/originserver/internal/codec"
	"github.com/hlsvod/originserver/internal/model"
)

func TestPlanPassthroughCodecs(t *testing.T) {
	streams := []model.AudioStreamInfo{
		{StreamIndex: 0, Codec: "aac"},
		{StreamIndex: 1, Codec: "ac3"},
		{StreamIndex: 2, Codec: "eac3"},
		{StreamIndex: 3, Codec: "mp3"},
		{StreamIndex: 4, Codec: "opus"},
	}

	plans := Plan(streams)
	require.Len(t, plans, 5)
	for _, p := range plans {
		require.Equal(t, ActionPassthrough, p.Action)
	}
	require.Equal(t, codec.AudioAAC, plans[0].TargetCodec)
	require.Equal(t, codec.AudioAC3, plans[1].TargetCodec)
	require.Equal(t, codec.AudioEAC3, plans[2].TargetCodec)
}

func TestPlanTranscodesUnsupportedCodec(t *testing.T) {
	streams := []model.AudioStreamInfo{{StreamIndex: 0, Codec: "flac"}}
	plans := Plan(streams)
	require.Len(t, plans, 1)
	require.Equal(t, ActionTranscode, plans[0].Action)
	require.Equal(t, codec.AudioAAC, plans[0].TargetCodec)
}

func TestPlanTranscodesUnrecognizedCodecName(t *testing.T) {
	streams := []model.AudioStreamInfo{{StreamIndex: 0, Codec: "truehd"}}
	plans := Plan(streams)
	require.Equal(t, ActionTranscode, plans[0].Action)
}

func TestPlanPreservesStreamOrder(t *testing.T) {
	streams := []model.AudioStreamInfo{
		{StreamIndex: 2, Codec: "aac"},
		{StreamIndex: 0, Codec: "flac"},
	}
	plans := Plan(streams)
	require.Equal(t, 2, plans[0].Stream.StreamIndex)
	require.Equal(t, 0, plans[1].Stream.StreamIndex)
}
