package wsapi

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cwsl/sdrbroadcast/internal/audiopipeline"
	"github.com/cwsl/sdrbroadcast/internal/control"
	"github.com/cwsl/sdrbroadcast/internal/fft"
	"github.com/cwsl/sdrbroadcast/internal/registry"
	"github.com/cwsl/sdrbroadcast/internal/subscriber"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:    8192,
	WriteBufferSize:   65536,
	EnableCompression: false,
	CheckOrigin:       func(r *http.Request) bool { return true },
}

// InitialInfoDefaults is the handshake's "defaults" sub-object: the
// tuning a freshly connected client starts with before its first
// window/demodulation control message (spec.md §6).
type InitialInfoDefaults struct {
	Frequency  float64 `json:"frequency"`
	Modulation string  `json:"modulation"`
	L          int     `json:"l"`
	M          float64 `json:"m"`
	R          int     `json:"r"`
}

// InitialInfo is the handshake JSON sent immediately after a /audio or
// /waterfall connection upgrades, so the client can size its decode
// buffers and compute absolute frequencies before the first frame
// arrives (spec.md §6).
type InitialInfo struct {
	Type             string               `json:"type"`
	SPS              float64              `json:"sps"`
	AudioMaxSPS      float64              `json:"audio_max_sps"`
	AudioMaxFFT      int                  `json:"audio_max_fft"`
	FFTSize          int                  `json:"fft_size"`
	ResultSize       int                  `json:"fft_result_size"`
	WaterfallSize    int                  `json:"waterfall_size"`
	BaseFreq         float64              `json:"basefreq"`
	TotalBandwidth   float64              `json:"total_bandwidth"`
	Defaults         InitialInfoDefaults  `json:"defaults"`
	AudioMaxFFTSize  int                  `json:"audio_max_fft_size"`
	DownsampleLevels int                  `json:"downsample_levels"`
	IsReal           bool                 `json:"is_real"`
	Encoder          string               `json:"encoder"`
}

// Server wires the websocket endpoints to the registry and pipelines.
type Server struct {
	Reg              *registry.Registry
	AudioPipe        *audiopipeline.Pipeline
	EngineConfig     fft.Config
	AudioEncName     string
	WaterfallEncName string

	DefaultAudioFFT int
	DefaultMode     subscriber.Mode

	// Handshake fields reported verbatim in InitialInfo (spec.md §6).
	SPS              float64
	AudioMaxSPS      float64
	BaseFreq         float64
	TotalBandwidth   float64
	DefaultFrequency float64
	DefaultL         int
	DefaultMid       float64
	DefaultR         int
}

// HandleAudio upgrades to /audio and runs the connection until it closes.
func (s *Server) HandleAudio(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsapi: audio upgrade: %v", err)
		return
	}
	wc := newWSConn(raw)
	defer wc.Close()

	id := uuid.New()
	sub := subscriber.NewAudioSubscriber(id, wc.Send)
	sub.SetMode(s.DefaultMode)
	sub.SetAudioFFT(s.DefaultAudioFFT)
	s.Reg.AddAudio(sub)
	defer func() {
		s.Reg.RemoveAudio(id)
		s.AudioPipe.Forget(id)
	}()

	if err := wc.SendJSON(s.initialInfo(s.AudioEncName)); err != nil {
		return
	}

	for {
		_, msg, err := raw.ReadMessage()
		if err != nil {
			return
		}
		if err := control.HandleAudio(sub, msg, s.AudioPipe, s.Reg, s.EngineConfig.ResultSize()); err != nil {
			log.Printf("wsapi: audio control %s: %v", id, err)
		}
	}
}

// HandleWaterfall upgrades to /waterfall and runs the connection until it closes.
func (s *Server) HandleWaterfall(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsapi: waterfall upgrade: %v", err)
		return
	}
	wc := newWSConn(raw)
	defer wc.Close()

	id := uuid.New()
	sub := subscriber.NewWaterfallSubscriber(id, func(b []byte) bool { return wc.Send(b, true) })
	s.Reg.AddWaterfall(sub)
	defer s.Reg.RemoveWaterfall(id)

	if err := wc.SendJSON(s.initialInfo(s.WaterfallEncName)); err != nil {
		return
	}

	for {
		_, msg, err := raw.ReadMessage()
		if err != nil {
			return
		}
		if err := control.HandleWaterfall(sub, msg); err != nil {
			log.Printf("wsapi: waterfall control %s: %v", id, err)
		}
	}
}

// HandleEvents upgrades to /events and runs the connection until it closes.
func (s *Server) HandleEvents(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("wsapi: events upgrade: %v", err)
		return
	}
	wc := newWSConn(raw)
	defer wc.Close()

	id := uuid.New()
	sub := &subscriber.EventSubscriber{ID: id, Send: func(b []byte) bool { return wc.Send(b, false) }}
	s.Reg.AddEvent(sub)
	defer s.Reg.RemoveEvent(id)

	for {
		if _, _, err := raw.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) initialInfo(encoderName string) InitialInfo {
	return InitialInfo{
		Type:            "initial_info",
		SPS:             s.SPS,
		AudioMaxSPS:     s.AudioMaxSPS,
		AudioMaxFFT:     s.EngineConfig.AudioMaxFFTSize,
		FFTSize:         s.EngineConfig.FFTSize,
		ResultSize:      s.EngineConfig.ResultSize(),
		WaterfallSize:   s.EngineConfig.ResultSize(),
		BaseFreq:        s.BaseFreq,
		TotalBandwidth:  s.TotalBandwidth,
		Defaults: InitialInfoDefaults{
			Frequency:  s.DefaultFrequency,
			Modulation: s.DefaultMode.String(),
			L:          s.DefaultL,
			M:          s.DefaultMid,
			R:          s.DefaultR,
		},
		AudioMaxFFTSize:  s.EngineConfig.AudioMaxFFTSize,
		DownsampleLevels: s.EngineConfig.Levels(),
		IsReal:           s.EngineConfig.Kind == fft.Real,
		Encoder:          encoderName,
	}
}
