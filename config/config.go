package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Capture     CaptureConfig     `yaml:"capture"`
	Recognizer  RecognizerConfig  `yaml:"recognizer"`
	Translation TranslationConfig `yaml:"translation"`
	Speech      SpeechConfig      `yaml:"speech"`
	Control     ControlConfig     `yaml:"control"`
	Log         LogConfig         `yaml:"log"`
}

type CaptureConfig struct {
	Source          string `yaml:"source"`
	FileDir         string `yaml:"file_dir"`
	SampleRate      int    `yaml:"sample_rate"`
	MaxDuration     string `yaml:"max_duration"`
	Language        string `yaml:"language"`
	Model           string `yaml:"model"`
	MaxAlternatives int    `yaml:"max_alternatives"`
}

type RecognizerConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Encoding string `yaml:"encoding"`
}

type TranslationConfig struct {
	BaseURL          string `yaml:"base_url"`
	Path             string `yaml:"path"`
	Timeout          string `yaml:"timeout"`
	CancelSuperseded *bool  `yaml:"cancel_superseded"`
}

type SpeechConfig struct {
	Synthesizer string  `yaml:"synthesizer"`
	Player      string  `yaml:"player"`
	OutputDir   string  `yaml:"output_dir"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Voice       string  `yaml:"voice"`
	VoiceLocale string  `yaml:"voice_locale"`
	Language    string  `yaml:"language"`
	Pitch       float64 `yaml:"pitch"`
	Rate        float64 `yaml:"rate"`
	Greeting    string  `yaml:"greeting"`
	Command     string  `yaml:"command"`
}

type ControlConfig struct {
	HTTPAddr  string `yaml:"http_addr"`
	AuthToken string `yaml:"auth_token"`
	RateLimit int    `yaml:"rate_limit"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Capture.Source == "" {
		c.Capture.Source = "http"
	}
	if c.Capture.FileDir == "" {
		c.Capture.FileDir = "./audio"
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = 16000
	}
	if c.Capture.MaxDuration == "" {
		c.Capture.MaxDuration = "10s"
	}
	if c.Capture.Language == "" {
		c.Capture.Language = "ar-AR"
	}
	if c.Capture.Model == "" {
		c.Capture.Model = "free_form"
	}
	if c.Capture.MaxAlternatives == 0 {
		c.Capture.MaxAlternatives = 5
	}
	if c.Recognizer.Provider == "" {
		c.Recognizer.Provider = "none"
	}
	if c.Recognizer.Model == "" && c.Recognizer.Provider == "openai" {
		c.Recognizer.Model = "whisper-1"
	}
	if c.Recognizer.Encoding == "" {
		c.Recognizer.Encoding = "LINEAR16"
	}
	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = "http://192.168.1.228:5000"
	}
	if c.Translation.Path == "" {
		c.Translation.Path = "/tr"
	}
	if c.Translation.Timeout == "" {
		c.Translation.Timeout = "0s"
	}
	if c.Translation.CancelSuperseded == nil {
		enabled := true
		c.Translation.CancelSuperseded = &enabled
	}
	if c.Speech.Synthesizer == "" {
		c.Speech.Synthesizer = "log"
	}
	if c.Speech.Player == "" {
		c.Speech.Player = "discard"
	}
	if c.Speech.OutputDir == "" {
		c.Speech.OutputDir = "./speech"
	}
	if c.Speech.Model == "" && c.Speech.Synthesizer == "openai" {
		c.Speech.Model = "tts-1"
	}
	if c.Speech.Voice == "" && c.Speech.Synthesizer == "openai" {
		c.Speech.Voice = "alloy"
	}
	if c.Speech.VoiceLocale == "" {
		c.Speech.VoiceLocale = "fr"
	}
	if c.Speech.Language == "" {
		c.Speech.Language = "en-US"
	}
	if c.Speech.Pitch == 0 {
		c.Speech.Pitch = 1.2
	}
	if c.Speech.Rate == 0 {
		c.Speech.Rate = 0.8
	}
	if c.Speech.Command == "" {
		c.Speech.Command = "espeak-ng"
	}
	if c.Control.HTTPAddr == "" {
		c.Control.HTTPAddr = ":8080"
	}
	if c.Control.RateLimit == 0 {
		c.Control.RateLimit = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Duration parses a duration setting, falling back when it is malformed.
func Duration(value string, fallback time.Duration) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	return d, nil
}
