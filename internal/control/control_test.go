package control

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/sdrbroadcast/internal/audiopipeline"
	"github.com/cwsl/sdrbroadcast/internal/registry"
	"github.com/cwsl/sdrbroadcast/internal/subscriber"
)

const testResultSize = 1024

func newAudioSub() *subscriber.AudioSubscriber {
	return subscriber.NewAudioSubscriber(uuid.New(), func([]byte, bool) bool { return false })
}

func TestHandleAudioWindow(t *testing.T) {
	sub := newAudioSub()
	sub.SetAudioFFT(32)
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`{"cmd":"window","l":10,"r":20,"m":15}`), pipe, nil, testResultSize)
	require.NoError(t, err)
	st := sub.State()
	assert.Equal(t, 10, st.L)
	assert.Equal(t, 20, st.R)
	assert.Equal(t, 15.0, st.Mid)
}

func TestHandleAudioWindowDefaultsMidToMidpoint(t *testing.T) {
	sub := newAudioSub()
	sub.SetAudioFFT(32)
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`{"cmd":"window","l":10,"r":20}`), pipe, nil, testResultSize)
	require.NoError(t, err)
	st := sub.State()
	assert.Equal(t, 15.0, st.Mid)
}

func TestHandleAudioWindowMissingFields(t *testing.T) {
	sub := newAudioSub()
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`{"cmd":"window","l":10}`), pipe, nil, testResultSize)
	assert.Error(t, err)
}

func TestHandleAudioWindowRejectsNegativeL(t *testing.T) {
	sub := newAudioSub()
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`{"cmd":"window","l":-1,"r":20}`), pipe, nil, testResultSize)
	assert.Error(t, err)
}

func TestHandleAudioWindowRejectsRBeyondResultSize(t *testing.T) {
	sub := newAudioSub()
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`{"cmd":"window","l":0,"r":2000}`), pipe, nil, testResultSize)
	assert.Error(t, err)
}

func TestHandleAudioWindowRejectsRangeWiderThanAudioFFT(t *testing.T) {
	sub := newAudioSub()
	sub.SetAudioFFT(8)
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`{"cmd":"window","l":0,"r":20}`), pipe, nil, testResultSize)
	assert.Error(t, err)
}

func TestHandleAudioWindowRecordsSignalChange(t *testing.T) {
	sub := newAudioSub()
	sub.UserID = "alice"
	sub.SetAudioFFT(32)
	pipe := audiopipeline.New(48000)
	reg := registry.New()
	err := HandleAudio(sub, []byte(`{"cmd":"window","l":10,"r":20,"m":15}`), pipe, reg, testResultSize)
	require.NoError(t, err)

	changes := reg.DrainChanges()
	require.Contains(t, changes, "alice")
	var decoded map[string]float64
	require.NoError(t, json.Unmarshal([]byte(changes["alice"]), &decoded))
	assert.Equal(t, 10.0, decoded["l"])
	assert.Equal(t, 15.0, decoded["m"])
	assert.Equal(t, 20.0, decoded["r"])
}

func TestHandleAudioDemodulation(t *testing.T) {
	sub := newAudioSub()
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`{"cmd":"demodulation","demodulation":"fm","audio_fft":256}`), pipe, nil, testResultSize)
	require.NoError(t, err)
	st := sub.State()
	assert.Equal(t, subscriber.ModeFM, st.Mode)
	assert.Equal(t, 256, st.AudioFFT)
}

func TestHandleAudioDemodulationUnknown(t *testing.T) {
	sub := newAudioSub()
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`{"cmd":"demodulation","demodulation":"bogus"}`), pipe, nil, testResultSize)
	assert.Error(t, err)
}

func TestHandleAudioUserID(t *testing.T) {
	sub := newAudioSub()
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`{"cmd":"userid","userid":"alice"}`), pipe, nil, testResultSize)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub.UserID)
}

func TestHandleAudioMute(t *testing.T) {
	sub := newAudioSub()
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`{"cmd":"mute","mute":true}`), pipe, nil, testResultSize)
	require.NoError(t, err)
	assert.True(t, sub.Muted())
}

func TestHandleAudioUnknownCmd(t *testing.T) {
	sub := newAudioSub()
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`{"cmd":"bogus"}`), pipe, nil, testResultSize)
	assert.Error(t, err)
}

func TestHandleAudioInvalidJSON(t *testing.T) {
	sub := newAudioSub()
	pipe := audiopipeline.New(48000)
	err := HandleAudio(sub, []byte(`not json`), pipe, nil, testResultSize)
	assert.Error(t, err)
}

func TestHandleWaterfallWindowDefaultsLevelZero(t *testing.T) {
	sub := subscriber.NewWaterfallSubscriber(uuid.New(), func([]byte) bool { return false })
	err := HandleWaterfall(sub, []byte(`{"cmd":"window","l":5,"r":15}`))
	require.NoError(t, err)
	level, l, r := sub.Viewport()
	assert.Equal(t, 0, level)
	assert.Equal(t, 5, l)
	assert.Equal(t, 15, r)
}

func TestHandleWaterfallWindowWithLevel(t *testing.T) {
	sub := subscriber.NewWaterfallSubscriber(uuid.New(), func([]byte) bool { return false })
	err := HandleWaterfall(sub, []byte(`{"cmd":"window","level":2,"l":5,"r":15}`))
	require.NoError(t, err)
	level, _, _ := sub.Viewport()
	assert.Equal(t, 2, level)
}

func TestEventsBroadcasterTickSkipsWhenNoChanges(t *testing.T) {
	reg := registry.New()
	b := NewEventsBroadcaster(reg)
	b.Tick() // no-op, must not panic
}

func TestEventsBroadcasterTickDeliversChanges(t *testing.T) {
	reg := registry.New()
	reg.RecordChange("alice", `{"freq":100}`)

	var got []byte
	sub := &subscriber.EventSubscriber{ID: uuid.New(), Send: func(b []byte) bool {
		got = b
		return false
	}}
	reg.AddEvent(sub)

	b := NewEventsBroadcaster(reg)
	b.Tick()

	require.NotNil(t, got)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, "signal_changes", decoded["type"])
}

func TestSnapshotSendsState(t *testing.T) {
	var got []byte
	sub := &subscriber.EventSubscriber{ID: uuid.New(), Send: func(b []byte) bool {
		got = b
		return false
	}}
	b := NewEventsBroadcaster(registry.New())
	b.Snapshot(sub, map[string]string{"alice": `{"freq":100}`})

	require.NotNil(t, got)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, "signal_snapshot", decoded["type"])
}
