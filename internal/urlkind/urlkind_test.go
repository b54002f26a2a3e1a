package urlkind

import "testing"

func eq(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestVideoInit(t *testing.T) {
	eq(t, VideoInit(0, nil, ""), "v/0.init.mp4")
	audio := 1
	eq(t, VideoInit(0, &audio, ""), "v/0+1.init.mp4")
	eq(t, VideoInit(0, &audio, "aac"), "v/0+1-aac.init.mp4")
}

func TestVideoSegment(t *testing.T) {
	eq(t, VideoSegment(0, nil, "", 42), "v/0.42.m4s")
	audio := 2
	eq(t, VideoSegment(0, &audio, "aac", 7), "v/0+2-aac.7.m4s")
}

func TestAudioInitAndSegment(t *testing.T) {
	eq(t, AudioInit(1, ""), "a/1.init.mp4")
	eq(t, AudioInit(1, "aac"), "a/1-aac.init.mp4")
	eq(t, AudioSegment(1, "", 3), "a/1.3.m4s")
	eq(t, AudioSegment(1, "aac", 3), "a/1-aac.3.m4s")
}

func TestSubtitleSegment(t *testing.T) {
	eq(t, SubtitleSegment(4, 2, 5), "s/4.2-5.vtt")
}

func TestPlaylist(t *testing.T) {
	eq(t, Playlist(0, nil, ""), "t.0.m3u8")
	audio := 1
	eq(t, Playlist(0, &audio, ""), "t.0+1.m3u8")
	eq(t, Playlist(0, &audio, "aac"), "t.0+1-aac.m3u8")
}

func TestMasterPlaylist(t *testing.T) {
	eq(t, MasterPlaylist("movie.mp4"), "movie.mp4.as.m3u8")
}
