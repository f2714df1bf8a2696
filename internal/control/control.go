// Package control implements the control plane (spec.md C6): parsing
// and dispatching the small JSON control messages each /audio and
// /waterfall connection sends to retune or change mode, and the
// once-a-second signal_changes broadcast to every /events subscriber.
package control

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/cwsl/sdrbroadcast/internal/audiopipeline"
	"github.com/cwsl/sdrbroadcast/internal/registry"
	"github.com/cwsl/sdrbroadcast/internal/subscriber"
)

// Message is one control frame a client sends over its WebSocket
// (spec.md §6): only the fields relevant to the message's own "cmd"
// need be present.
type Message struct {
	Cmd          string   `json:"cmd"`
	L            *int     `json:"l,omitempty"`
	R            *int     `json:"r,omitempty"`
	M            *float64 `json:"m,omitempty"`
	Level        *int     `json:"level,omitempty"`
	Demodulation string   `json:"demodulation,omitempty"`
	AudioFFT     int      `json:"audio_fft,omitempty"`
	UserID       string   `json:"userid,omitempty"`
	Mute         *bool    `json:"mute,omitempty"`
}

// HandleAudio applies a control message to an audio subscriber.
// resultSize bounds window requests against fft_result_size (spec.md
// §6): `0 ≤ l, r ≤ fft_result_size`, `r − l ≤ audio_fft_size`. Out-of-range
// input is a ClientError (spec.md §7): rejected here, never reaching
// audiopipeline.Process as a slice index. reg, if non-nil, records the
// retune for the next signal_changes broadcast (spec.md §4.6).
// Logged per spec.md §7 (every accepted control message is logged).
func HandleAudio(sub *subscriber.AudioSubscriber, raw []byte, pipeline *audiopipeline.Pipeline, reg *registry.Registry, resultSize int) error {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("control: invalid message: %w", err)
	}
	switch msg.Cmd {
	case "window":
		if msg.L == nil || msg.R == nil {
			return fmt.Errorf("control: window message missing l/r")
		}
		l, r := *msg.L, *msg.R
		audioFFT := sub.State().AudioFFT
		if l < 0 || r < l || r > resultSize || (audioFFT > 0 && r-l > audioFFT) {
			return fmt.Errorf("control: window out of range: l=%d r=%d result_size=%d audio_fft=%d", l, r, resultSize, audioFFT)
		}
		mid := float64(l+r) / 2
		if msg.M != nil {
			mid = *msg.M
		}
		sub.Retune(l, r, mid)
		recordWindowChange(reg, sub, l, mid, r)
	case "demodulation":
		mode, ok := subscriber.ParseMode(msg.Demodulation)
		if !ok {
			return fmt.Errorf("control: unknown demodulation %q", msg.Demodulation)
		}
		sub.SetMode(mode)
		if msg.AudioFFT > 0 {
			sub.SetAudioFFT(msg.AudioFFT)
		}
		// Drop the pipeline's per-subscriber state (IFFT plan, overlap
		// tail, FM memory, DC blocker, AGC) so the new mode starts fresh.
		pipeline.Forget(sub.ID)
	case "userid":
		sub.UserID = msg.UserID
	case "mute":
		if msg.Mute != nil {
			sub.SetMuted(*msg.Mute)
		}
	default:
		return fmt.Errorf("control: unknown message cmd %q", msg.Cmd)
	}
	log.Printf("control: audio %s: %s", sub.ID, msg.Cmd)
	return nil
}

// recordWindowChange feeds the registry's signal_changes map (spec.md
// §4.6 record_change(userid, l, mid, r)) so the next periodic broadcast
// reports this subscriber's new tuning.
func recordWindowChange(reg *registry.Registry, sub *subscriber.AudioSubscriber, l int, mid float64, r int) {
	if reg == nil {
		return
	}
	key := sub.UserID
	if key == "" {
		key = sub.ID.String()
	}
	state, err := json.Marshal(map[string]any{"l": l, "m": mid, "r": r})
	if err != nil {
		log.Printf("control: marshal signal change for %s: %v", key, err)
		return
	}
	reg.RecordChange(key, string(state))
}

// HandleWaterfall applies a control message to a waterfall subscriber.
func HandleWaterfall(sub *subscriber.WaterfallSubscriber, raw []byte) error {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("control: invalid message: %w", err)
	}
	switch msg.Cmd {
	case "window":
		if msg.L == nil || msg.R == nil {
			return fmt.Errorf("control: window message missing l/r")
		}
		level := 0
		if msg.Level != nil {
			level = *msg.Level
		}
		sub.Retune(level, *msg.L, *msg.R)
	default:
		return fmt.Errorf("control: unknown message cmd %q", msg.Cmd)
	}
	log.Printf("control: waterfall %s: %s", sub.ID, msg.Cmd)
	return nil
}

// EventsBroadcaster drains the registry's pending signal_changes once
// a second and pushes them to every /events subscriber (spec.md §4.6).
type EventsBroadcaster struct {
	reg *registry.Registry
}

func NewEventsBroadcaster(reg *registry.Registry) *EventsBroadcaster {
	return &EventsBroadcaster{reg: reg}
}

// Tick should be called roughly once a second by the caller's timer.
func (b *EventsBroadcaster) Tick() {
	changes := b.reg.DrainChanges()
	if len(changes) == 0 {
		return
	}
	payload, err := json.Marshal(map[string]any{"type": "signal_changes", "changes": changes})
	if err != nil {
		log.Printf("control: marshal signal_changes: %v", err)
		return
	}
	b.reg.EachEvent(func(sub *subscriber.EventSubscriber) {
		sub.Send(payload)
	})
}

// Snapshot sends the full current state to a newly connected /events
// subscriber (spec.md §4.6 "initial snapshot on connect").
func (b *EventsBroadcaster) Snapshot(sub *subscriber.EventSubscriber, state map[string]string) {
	payload, err := json.Marshal(map[string]any{"type": "signal_snapshot", "changes": state})
	if err != nil {
		log.Printf("control: marshal signal_snapshot: %v", err)
		return
	}
	sub.Send(payload)
}
