package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zfogg/resonate/internal/apperr"
	"github.com/zfogg/resonate/internal/config"
	"github.com/zfogg/resonate/internal/fingerprint"
	"github.com/zfogg/resonate/internal/index"
	"github.com/zfogg/resonate/internal/logger"
	"github.com/zfogg/resonate/internal/match"
	"github.com/zfogg/resonate/internal/metrics"
	"github.com/zfogg/resonate/internal/models"
)

// Engine ties the extraction pipeline, the fingerprint index, and the
// matcher into the two top-level use cases: register a reference recording,
// identify a query clip.
type Engine struct {
	cfg       config.Config
	extractor *fingerprint.Extractor
	idx       index.Index
	matcher   *match.Matcher
}

// New builds an engine over the given index backend.
func New(cfg config.Config, idx index.Index) (*Engine, error) {
	extractor, err := fingerprint.NewExtractor(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:       cfg,
		extractor: extractor,
		idx:       idx,
		matcher:   match.NewMatcher(cfg.MinMatchScore),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Register fingerprints a mono PCM buffer and stores it under a new
// recording id. Extraction that yields zero tokens is EMPTY_FINGERPRINT and
// leaves no trace in the index; a failed fingerprint write rolls the
// recording metadata back.
func (e *Engine) Register(ctx context.Context, pcm []float64, name string, artists []string) (uint, error) {
	m := metrics.Get()

	tokens, err := e.extract(pcm)
	if err != nil {
		m.RegistrationsTotal.WithLabelValues("error").Inc()
		m.ErrorsTotal.WithLabelValues(string(apperr.CodeOf(err)), "register").Inc()
		return 0, err
	}
	if len(tokens) == 0 {
		m.RegistrationsTotal.WithLabelValues("empty").Inc()
		return 0, apperr.EmptyFingerprint()
	}

	id, err := e.idx.AddRecording(ctx, name, artists)
	if err != nil {
		m.RegistrationsTotal.WithLabelValues("error").Inc()
		m.ErrorsTotal.WithLabelValues(string(apperr.CodeOf(err)), "register").Inc()
		return 0, err
	}

	if err := e.idx.AddFingerprints(ctx, id, tokens); err != nil {
		// Roll the metadata back so no orphan recording survives a partial
		// ingest.
		if rmErr := e.idx.Remove(ctx, id); rmErr != nil {
			logger.ErrorWithFields("failed to roll back recording after ingest failure", rmErr)
		}
		m.RegistrationsTotal.WithLabelValues("error").Inc()
		m.ErrorsTotal.WithLabelValues(string(apperr.CodeOf(err)), "register").Inc()
		return 0, err
	}

	m.RegistrationsTotal.WithLabelValues("ok").Inc()
	logger.Log.Info("recording registered",
		logger.WithRecordingID(id),
		zap.String("name", name),
		zap.Strings("artists", artists),
		zap.Int("tokens", len(tokens)),
	)
	return id, nil
}

// Identify fingerprints a query clip and returns the best-matching
// recording, or nil when nothing clears the confidence gate. Queries that
// extract to nothing (silence) are a normal no-match, not an error.
func (e *Engine) Identify(ctx context.Context, pcm []float64) (*match.Match, error) {
	m := metrics.Get()

	tokens, err := e.extract(pcm)
	if err != nil {
		m.IdentificationsTotal.WithLabelValues("error").Inc()
		m.ErrorsTotal.WithLabelValues(string(apperr.CodeOf(err)), "identify").Inc()
		return nil, err
	}
	if len(tokens) == 0 {
		m.IdentificationsTotal.WithLabelValues("no_match").Inc()
		return nil, nil
	}

	lookupStart := time.Now()
	result, err := e.matcher.BestMatch(ctx, e.idx, tokens)
	m.LookupDuration.Observe(time.Since(lookupStart).Seconds())
	if err != nil {
		m.IdentificationsTotal.WithLabelValues("error").Inc()
		m.ErrorsTotal.WithLabelValues(string(apperr.CodeOf(err)), "identify").Inc()
		return nil, err
	}

	if result == nil {
		m.IdentificationsTotal.WithLabelValues("no_match").Inc()
		logger.Log.Info("no match", zap.Int("query_tokens", len(tokens)))
		return nil, nil
	}

	m.IdentificationsTotal.WithLabelValues("match").Inc()
	m.MatchScore.Observe(float64(result.Score))
	logger.Log.Info("match found",
		logger.WithRecordingID(result.RecordingID),
		zap.Int("score", result.Score),
		zap.Int("offset_frames", result.Offset),
	)
	return result, nil
}

// GetRecording returns metadata for a registered recording.
func (e *Engine) GetRecording(ctx context.Context, id uint) (*models.Recording, error) {
	return e.idx.GetRecording(ctx, id)
}

// Remove deletes a recording and its postings.
func (e *Engine) Remove(ctx context.Context, id uint) error {
	return e.idx.Remove(ctx, id)
}

// Clear drops every posting and recording from the index.
func (e *Engine) Clear(ctx context.Context) error {
	return e.idx.Clear(ctx)
}

func (e *Engine) extract(pcm []float64) ([]fingerprint.Token, error) {
	m := metrics.Get()
	start := time.Now()
	tokens, err := e.extractor.Extract(pcm)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	m.ExtractionDuration.Observe(elapsed.Seconds())
	m.TokensPerExtraction.Observe(float64(len(tokens)))
	logger.Log.Debug("fingerprint extraction complete",
		zap.Int("samples", len(pcm)),
		zap.Int("tokens", len(tokens)),
		zap.Duration("elapsed", elapsed),
	)
	return tokens, nil
}
