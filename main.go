// Command sdrbroadcast runs the SDR broadcast server: it reads raw
// samples from stdin, runs the master FFT engine, and serves the
// resulting audio and waterfall streams to WebSocket clients.
//
// Grounded on the teacher's main.go bootstrap shape (flag-based CLI,
// config load, signal.Notify graceful shutdown, static file serving)
// generalised from a radiod-proxy frontend into the standalone
// ingest-to-broadcast pipeline spec.md describes.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwsl/sdrbroadcast/internal/audiopipeline"
	"github.com/cwsl/sdrbroadcast/internal/cfg"
	"github.com/cwsl/sdrbroadcast/internal/control"
	"github.com/cwsl/sdrbroadcast/internal/encode"
	"github.com/cwsl/sdrbroadcast/internal/fft"
	"github.com/cwsl/sdrbroadcast/internal/metrics"
	"github.com/cwsl/sdrbroadcast/internal/registry"
	"github.com/cwsl/sdrbroadcast/internal/sampleio"
	"github.com/cwsl/sdrbroadcast/internal/scheduler"
	"github.com/cwsl/sdrbroadcast/internal/subscriber"
	"github.com/cwsl/sdrbroadcast/internal/waterfallpipeline"
	"github.com/cwsl/sdrbroadcast/internal/wsapi"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	debug := flag.Bool("debug", false, "enable verbose logging")
	flag.Parse()

	config, err := cfg.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *debug {
		config.Logging.Debug = true
	}

	format, ok := sampleio.ParseFormat(config.Input.Format)
	if !ok {
		log.Fatalf("unknown input.format %q", config.Input.Format)
	}
	source := sampleio.NewByteSource(os.Stdin, format)

	kind := fft.Real
	if config.Input.Kind == "iq" {
		kind = fft.IQ
	}
	engineCfg := fft.Config{
		Kind:             kind,
		FFTSize:          config.Input.FFTSize,
		AudioMaxFFTSize:  config.Audio.MaxFFTSize,
		MinWaterfallFFT:  config.Waterfall.MinFFTSize,
		BrightnessOffset: config.Waterfall.BrightnessOffset,
	}

	reg := registry.New()
	audioPipe := audiopipeline.New(float64(config.Input.AudioSampleRate))
	wfPipe := waterfallpipeline.New(waterfallEncoder(config))
	met := metrics.New()

	audioEnc := audioEncoder(config)
	sched := scheduler.New(scheduler.Config{Workers: 8, QueueSize: 4096}, reg, audioPipe, wfPipe, audioEnc, met)

	engine, err := fft.New(engineCfg, source, func(frame *fft.Frame) {
		met.FramesProduced.Inc()
		sched.Dispatch(frame)
	})
	if err != nil {
		log.Fatalf("failed to initialise fft engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	go func() {
		if err := engine.Run(ctx); err != nil {
			log.Fatalf("sample source ended: %v", err)
		}
	}()

	broadcaster := control.NewEventsBroadcaster(reg)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				broadcaster.Tick()
			}
		}
	}()

	defaultMode, ok := subscriber.ParseMode(config.Audio.DefaultModulation)
	if !ok {
		log.Fatalf("unknown audio.default_modulation %q", config.Audio.DefaultModulation)
	}

	// basefreq/total_bandwidth (spec.md §6): IQ input spans frequency ±sps/2
	// around the tuned center, real input spans frequency..frequency+sps/2.
	sps := float64(config.Input.SampleRate)
	basefreq := config.Input.Frequency
	totalBandwidth := sps / 2
	if kind == fft.IQ {
		basefreq -= sps / 2
		totalBandwidth = sps
	}
	resultSize := engineCfg.ResultSize()

	srv := &wsapi.Server{
		Reg:              reg,
		AudioPipe:        audioPipe,
		EngineConfig:     engineCfg,
		AudioEncName:     audioEnc.Name(),
		WaterfallEncName: wfPipe.EncoderName(),
		DefaultAudioFFT:  config.Audio.DefaultFFTSize,
		DefaultMode:      defaultMode,
		SPS:              sps,
		AudioMaxSPS:      float64(config.Input.AudioSampleRate),
		BaseFreq:         basefreq,
		TotalBandwidth:   totalBandwidth,
		DefaultFrequency: config.Input.Frequency,
		DefaultL:         0,
		DefaultR:         resultSize,
		DefaultMid:       float64(resultSize) / 2,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/audio", srv.HandleAudio)
	mux.HandleFunc("/waterfall", srv.HandleWaterfall)
	mux.HandleFunc("/events", srv.HandleEvents)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", wsapi.StaticHandler(config.Server.StaticDir))

	httpServer := &http.Server{Addr: config.Server.Listen, Handler: mux}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down http server: %v", err)
		}
	}()

	log.Printf("listening on %s (fft_size=%d kind=%v)", config.Server.Listen, config.Input.FFTSize, kind)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("http server: %v", err)
	}
}

func audioEncoder(c *cfg.Config) encode.AudioEncoder {
	switch c.Audio.Compression {
	case "opus":
		enc, err := encode.NewOpusEncoder(c.Input.AudioSampleRate, c.Audio.Opus.Bitrate, c.Audio.Opus.Complexity)
		if err != nil {
			log.Printf("falling back to pcm audio: %v", err)
			return encode.NewPCMEncoder()
		}
		return enc
	case "flac":
		opusEnc, err := encode.NewOpusEncoder(c.Input.AudioSampleRate, c.Audio.Opus.Bitrate, c.Audio.Opus.Complexity)
		var fallback encode.AudioEncoder = encode.NewPCMEncoder()
		if err == nil {
			fallback = opusEnc
		}
		return encode.NewFLACAudioEncoder(fallback)
	default:
		return encode.NewPCMEncoder()
	}
}

func waterfallEncoder(c *cfg.Config) encode.WaterfallEncoder {
	switch c.Waterfall.Compression {
	case "av1":
		return encode.NewAV1WaterfallEncoder()
	default:
		return encode.NewZstdWaterfallEncoder()
	}
}
