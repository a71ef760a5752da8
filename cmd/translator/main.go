package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"speak-translate/config"
	"speak-translate/internal/application"
	"speak-translate/internal/domain"
	"speak-translate/internal/infra/audio"
	"speak-translate/internal/infra/control"
	"speak-translate/internal/infra/google"
	"speak-translate/internal/infra/openai"
	"speak-translate/internal/infra/recognition"
	"speak-translate/internal/infra/speech"
	"speak-translate/internal/infra/translation"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("loading .env", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	source, capture := createAudioSource(cfg.Capture, logger)

	stt, closeSTT := createSpeechToText(ctx, cfg.Recognizer, cfg.Capture, logger)
	defer closeSTT()

	session := recognition.NewSession(source, stt, logger)

	timeout, err := config.Duration(cfg.Translation.Timeout, 0)
	if err != nil {
		logger.Warn("invalid translation timeout, using default", "error", err)
	}
	client := translation.NewClient(cfg.Translation.BaseURL, logger,
		translation.WithPath(cfg.Translation.Path),
		translation.WithTimeout(timeout),
	)

	engine := speech.NewEngine(
		createSynthesizer(cfg.Speech, logger),
		createPlayer(cfg.Speech, logger),
		speech.Config{
			Language:    cfg.Speech.Language,
			VoiceLocale: cfg.Speech.VoiceLocale,
			Voice:       cfg.Speech.Voice,
			Pitch:       cfg.Speech.Pitch,
			Rate:        cfg.Speech.Rate,
			Greeting:    cfg.Speech.Greeting,
		},
		logger,
	)

	hub := control.NewHub(logger)
	go hub.Run(ctx)

	controller := application.NewController(session, client, engine, hub, logger, application.ControllerOptions{
		Recognition: domain.RecognitionConfig{
			Language:        cfg.Capture.Language,
			Model:           cfg.Capture.Model,
			MaxAlternatives: cfg.Capture.MaxAlternatives,
		},
		CancelSuperseded: *cfg.Translation.CancelSuperseded,
	})

	server := control.NewServer(cfg.Control.HTTPAddr, controller, hub, control.Options{
		AuthToken: cfg.Control.AuthToken,
		RateLimit: cfg.Control.RateLimit,
		Capture:   capture,
	}, logger)

	go func() {
		if err := server.Run(ctx); err != nil {
			logger.Error("control server error", "error", err)
			cancel()
		}
	}()

	logger.Info("starting speech translator",
		"capture_source", source.Name(),
		"recognizer", cfg.Recognizer.Provider,
		"synthesizer", cfg.Speech.Synthesizer,
		"player", cfg.Speech.Player,
		"translation_url", client.Target(""),
	)

	if err := controller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("controller error", "error", err)
		os.Exit(1)
	}
}

// createAudioSource also returns the HTTP handler to mount when the source
// accepts pushed clips.
func createAudioSource(cfg config.CaptureConfig, logger *slog.Logger) (application.AudioSource, http.Handler) {
	switch cfg.Source {
	case "http":
		src := audio.NewHTTPSource(logger)
		return src, src.Handler()
	case "file":
		return audio.NewFileSource(cfg.FileDir, logger), nil
	case "microphone":
		maxDuration, err := config.Duration(cfg.MaxDuration, 10*time.Second)
		if err != nil {
			logger.Warn("invalid max duration, using default", "error", err)
		}
		return audio.NewMicrophoneSource(cfg.SampleRate, maxDuration, logger), nil
	default:
		logger.Warn("unknown capture source, using http", "source", cfg.Source)
		src := audio.NewHTTPSource(logger)
		return src, src.Handler()
	}
}

func createSpeechToText(ctx context.Context, cfg config.RecognizerConfig, capture config.CaptureConfig, logger *slog.Logger) (application.SpeechToText, func()) {
	switch cfg.Provider {
	case "openai":
		if cfg.BaseURL != "" {
			return openai.NewWhisperClientWithURL(cfg.APIKey, cfg.Model, cfg.BaseURL), func() {}
		}
		return openai.NewWhisperClient(cfg.APIKey, cfg.Model), func() {}
	case "google":
		client, err := google.NewSpeechClient(ctx, cfg.Encoding, capture.SampleRate)
		if err != nil {
			logger.Error("creating google speech client, audio transcription disabled", "error", err)
			return &application.NoopSTT{}, func() {}
		}
		return client, func() {
			if err := client.Close(); err != nil {
				logger.Warn("closing google speech client", "error", err)
			}
		}
	case "none", "":
		return &application.NoopSTT{}, func() {}
	default:
		logger.Warn("unknown recognizer, audio transcription disabled", "provider", cfg.Provider)
		return &application.NoopSTT{}, func() {}
	}
}

func createSynthesizer(cfg config.SpeechConfig, logger *slog.Logger) speech.Synthesizer {
	switch cfg.Synthesizer {
	case "openai":
		if cfg.BaseURL != "" {
			return openai.NewSpeechClientWithURL(cfg.APIKey, cfg.Model, cfg.BaseURL)
		}
		return openai.NewSpeechClient(cfg.APIKey, cfg.Model)
	case "espeak":
		return speech.NewEspeakSynthesizer(cfg.Command)
	case "log":
		return speech.NewLogSynthesizer(logger)
	default:
		logger.Warn("unknown synthesizer, using log", "synthesizer", cfg.Synthesizer)
		return speech.NewLogSynthesizer(logger)
	}
}

func createPlayer(cfg config.SpeechConfig, logger *slog.Logger) speech.Player {
	switch cfg.Player {
	case "speaker":
		return audio.NewSpeaker(logger)
	case "file":
		return audio.NewFileSink(cfg.OutputDir, logger)
	case "discard":
		return speech.DiscardPlayer{}
	default:
		logger.Warn("unknown player, discarding audio", "player", cfg.Player)
		return speech.DiscardPlayer{}
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
