package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazadus/go-abloop/internal/loop"
	"github.com/hazadus/go-abloop/internal/segment"
)

func TestDecodeIntent(t *testing.T) {
	tests := []struct {
		input string
		want  Intent
	}{
		{`{"type":"open_file","path":"/music/a.mp3"}`, OpenFile{Path: "/music/a.mp3"}},
		{`{"type":"play"}`, Play{}},
		{`{"type":"toggle_play"}`, TogglePlay{}},
		{`{"type":"seek_to","position_ms":30000}`, SeekTo{Position: 30 * time.Second}},
		{`{"type":"seek_to","position_ms":0}`, SeekTo{Position: 0}},
		{`{"type":"seek_by","delta_ms":-5000}`, SeekBy{Delta: -5 * time.Second}},
		{`{"type":"set_volume","volume":0}`, SetVolume{Volume: 0}},
		{`{"type":"set_point_a"}`, SetPointA{}},
		{`{"type":"set_point_b","at_ms":45000}`, SetPointB{At: at(45000)}},
		{`{"type":"clear_loop"}`, ClearLoop{}},
		{`{"type":"toggle_loop"}`, ToggleLoop{}},
		{`{"type":"save_segment","name":"Соло"}`, SaveSegment{Name: "Соло"}},
		{`{"type":"apply_segment","id":"abc"}`, ApplySegment{ID: "abc"}},
		{`{"type":"remove_segment","id":"abc"}`, RemoveSegment{ID: "abc"}},
	}

	for _, tt := range tests {
		got, err := DecodeIntent([]byte(tt.input))
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestDecodeIntentErrors(t *testing.T) {
	inputs := []string{
		`not json`,
		`{}`,
		`{"type":"explode"}`,
		`{"type":"open_file"}`,
		`{"type":"seek_to"}`,
		`{"type":"seek_by"}`,
		`{"type":"set_volume"}`,
		`{"type":"apply_segment"}`,
		`{"type":"remove_segment","id":""}`,
	}
	for _, input := range inputs {
		_, err := DecodeIntent([]byte(input))
		assert.ErrorIs(t, err, ErrInvalidIntent, input)
		assert.Equal(t, KindInvalidIntent, KindOf(err), input)
	}
}

func TestIntentRoundTrip(t *testing.T) {
	intents := []Intent{
		OpenFile{Path: "/a.mp3"},
		Stop{},
		SeekTo{Position: 1500 * time.Millisecond},
		SetVolume{Volume: 35},
		SetPointA{At: at(100)},
		SetPointB{},
		ApplySegment{ID: "x"},
	}

	for _, intent := range intents {
		data, err := EncodeIntent(intent)
		require.NoError(t, err)
		decoded, err := DecodeIntent(data)
		require.NoError(t, err, string(data))
		assert.Equal(t, intent, decoded)
	}
}

func TestEncodeEvent(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{PositionChanged{Position: 45500 * time.Millisecond}, `{"type":"position_changed","position_ms":45500}`},
		{DurationKnown{Duration: 3 * time.Minute}, `{"type":"duration_known","duration_ms":180000}`},
		{StatusMessage{Text: "ok"}, `{"type":"status_message","text":"ok"}`},
		{ErrorOccurred{Kind: KindNoMediaLoaded, Text: "файл не открыт"},
			`{"type":"error","kind":"no_media_loaded","text":"файл не открыт"}`},
		{PlaybackChanged{Playing: false, Volume: 0}, `{"type":"playback_changed","playing":false,"volume":0}`},
		{SegmentsChanged{}, `{"type":"segments_changed","segments":[]}`},
		{SegmentsChanged{Segments: []segment.Segment{{ID: "1", Name: "a", Start: time.Second, End: 2 * time.Second}}},
			`{"type":"segments_changed","segments":[{"id":"1","name":"a","start_ms":1000,"end_ms":2000}]}`},
		{LoopStateChanged{State: loop.State{A: loop.At(time.Second), B: loop.At(2 * time.Second), Enabled: true}},
			`{"type":"loop_state_changed","loop":{"a_ms":1000,"b_ms":2000,"enabled":true,"phase":"active"}}`},
		{FileOpened{Path: "/a.mp3", Key: "k"}, `{"type":"file_opened","path":"/a.mp3","key":"k"}`},
	}

	for _, tt := range tests {
		data, err := EncodeEvent(tt.event)
		require.NoError(t, err)
		assert.JSONEq(t, tt.want, string(data), tt.event.EventType())
	}
}
