package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zfogg/resonate/internal/apperr"
)

// Window function names accepted by WindowType.
const (
	WindowHann    = "hann"
	WindowHamming = "hamming"
	WindowRect    = "rect"
)

// Config holds every tunable knob of the fingerprinting engine. Changing any
// parameter that affects hash content (sample rate, FFT geometry, mel layout,
// target zone, or the hash scheme itself) invalidates an existing corpus, so
// a deployment must pin one Config for the lifetime of its index.
type Config struct {
	// Signal framing
	SampleRate int    `yaml:"sample_rate"`
	FFTSize    int    `yaml:"fft_size"`
	HopSize    int    `yaml:"hop_size"`
	WindowType string `yaml:"window_type"`

	// Mel projection
	NumMels int     `yaml:"n_mels"`
	FreqMin float64 `yaml:"fmin"`
	FreqMax float64 `yaml:"fmax"` // 0 means Nyquist (sample_rate/2)

	// Peak picking
	NeighborhoodBands  int     `yaml:"neighborhood_bands"`
	NeighborhoodFrames int     `yaml:"neighborhood_frames"`
	MedianBands        int     `yaml:"median_bands"`
	MedianFrames       int     `yaml:"median_frames"`
	OffsetDB           float64 `yaml:"offset_db"`
	PeaksPerBand       int     `yaml:"peaks_per_band"`
	BandsSplit         int     `yaml:"bands_split"`
	TimeWindow         int     `yaml:"time_window"`
	MaxPeaksPerSecond  int     `yaml:"max_peaks_per_second"`

	// Landmark pairing
	FanoutSize      int `yaml:"fanout_size"`
	TargetTimeMin   int `yaml:"target_t_min"`
	TargetTimeMax   int `yaml:"target_t_max"`
	TargetFreqRange int `yaml:"target_f_range"`

	// Matching
	MinMatchScore int `yaml:"min_match_score"`
}

// Default returns the engine defaults. These are the values the corpus
// compatibility contract is written against.
func Default() Config {
	return Config{
		SampleRate: 44100,
		FFTSize:    2048,
		HopSize:    512,
		WindowType: WindowHann,

		NumMels: 128,
		FreqMin: 0,
		FreqMax: 0, // Nyquist

		NeighborhoodBands:  15,
		NeighborhoodFrames: 7,
		MedianBands:        41,
		MedianFrames:       21,
		OffsetDB:           7.0,
		PeaksPerBand:       30,
		BandsSplit:         6,
		TimeWindow:         60,
		MaxPeaksPerSecond:  35,

		FanoutSize:      5,
		TargetTimeMin:   3,
		TargetTimeMax:   100,
		TargetFreqRange: 20,

		MinMatchScore: 20,
	}
}

// Load builds a Config from defaults, an optional YAML file, and environment
// overrides, in that order. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides knobs from RESONATE_* environment variables. Only the
// knobs that make sense to flip per-deployment are exposed here; the
// hash-affecting geometry comes from the config file.
func (c *Config) applyEnv() {
	if v, ok := envInt("RESONATE_MIN_MATCH_SCORE"); ok {
		c.MinMatchScore = v
	}
	if v, ok := envInt("RESONATE_MAX_PEAKS_PER_SECOND"); ok {
		c.MaxPeaksPerSecond = v
	}
	if v := os.Getenv("RESONATE_WINDOW_TYPE"); v != "" {
		c.WindowType = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Nyquist returns half the sample rate in Hz, the highest value FreqMax may
// take.
func (c Config) Nyquist() float64 {
	return float64(c.SampleRate) / 2
}

// EffectiveFreqMax resolves the FreqMax=0 convention.
func (c Config) EffectiveFreqMax() float64 {
	if c.FreqMax <= 0 {
		return c.Nyquist()
	}
	return c.FreqMax
}

// Validate enforces the construction-time preconditions of the pipeline.
// Violations are INVALID_PARAMS: fatal to the call, not to the process.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return apperr.InvalidParams("sample_rate must be positive")
	}
	if c.FFTSize <= 0 {
		return apperr.InvalidParams("fft_size must be positive")
	}
	if c.HopSize <= 0 {
		return apperr.InvalidParams("hop_size must be positive")
	}
	switch c.WindowType {
	case WindowHann, WindowHamming, WindowRect:
	default:
		return apperr.Newf(apperr.CodeInvalidParams, "unknown window type %q", c.WindowType)
	}
	if c.NumMels <= 0 {
		return apperr.InvalidParams("n_mels must be positive")
	}
	if c.FreqMin < 0 {
		return apperr.InvalidParams("fmin must be non-negative")
	}
	if c.EffectiveFreqMax() > c.Nyquist() {
		return apperr.InvalidParams("fmax cannot exceed Nyquist frequency (sample_rate/2)")
	}
	if c.FreqMin >= c.EffectiveFreqMax() {
		return apperr.InvalidParams("fmin must be below fmax")
	}
	if c.NeighborhoodBands <= 0 || c.NeighborhoodFrames <= 0 {
		return apperr.InvalidParams("peak neighborhood dimensions must be positive")
	}
	if c.MedianBands <= 0 || c.MedianFrames <= 0 {
		return apperr.InvalidParams("median filter dimensions must be positive")
	}
	if c.PeaksPerBand <= 0 || c.BandsSplit <= 0 || c.TimeWindow <= 0 || c.MaxPeaksPerSecond <= 0 {
		return apperr.InvalidParams("peak quotas must be positive")
	}
	if c.FanoutSize <= 0 {
		return apperr.InvalidParams("fanout_size must be positive")
	}
	if c.TargetTimeMin <= 0 || c.TargetTimeMax < c.TargetTimeMin {
		return apperr.InvalidParams("target zone must satisfy 0 < t_min <= t_max")
	}
	if c.TargetFreqRange < 0 {
		return apperr.InvalidParams("target_f_range must be non-negative")
	}
	if c.MinMatchScore < 0 {
		return apperr.InvalidParams("min_match_score must be non-negative")
	}
	return nil
}
