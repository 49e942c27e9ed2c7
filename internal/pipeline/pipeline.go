package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/caselabel/internal/cache"
	"github.com/ppiankov/caselabel/internal/llm"
	"github.com/ppiankov/caselabel/internal/model"
	"github.com/ppiankov/caselabel/internal/normalize"
	"github.com/ppiankov/caselabel/internal/taxonomy"
	"github.com/ppiankov/caselabel/internal/worker"
)

// FallbackCaseText is substituted whenever case generation fails
const FallbackCaseText = "For the last few months I have been feeling low almost every day. " +
	"I have stopped enjoying the things I used to love and I find it hard to get out of bed in the morning. " +
	"At work I can't concentrate and I worry that people will notice something is wrong."

// DefaultMinCaseTextLength is the shortest generated case text that is accepted
const DefaultMinCaseTextLength = 30

// Pipeline turns case text into label suggestions and seeds new case text.
// Neither operation returns an error: a degraded provider yields the empty
// suggestion or the fallback text.
type Pipeline struct {
	schema     *taxonomy.Schema
	provider   llm.Provider
	normalizer *normalize.Normalizer

	model             string
	cache             cache.Cache
	cacheTTL          time.Duration
	limiter           *worker.Limiter
	group             singleflight.Group
	logger            *zap.Logger
	timeout           time.Duration
	minCaseTextLength int
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithCache caches successful provider replies
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithLimiter throttles provider calls
func WithLimiter(l *worker.Limiter) Option {
	return func(p *Pipeline) { p.limiter = l }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTimeout bounds each provider call
func WithTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithModel names the provider model, used as part of the cache key
func WithModel(name string) Option {
	return func(p *Pipeline) { p.model = name }
}

// WithMinCaseTextLength sets the shortest accepted generated case text
func WithMinCaseTextLength(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.minCaseTextLength = n
		}
	}
}

// WithNormalizer replaces the default normalizer
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(p *Pipeline) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// New creates a pipeline. A nil provider disables generation.
func New(schema *taxonomy.Schema, provider llm.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		schema:            schema,
		provider:          provider,
		normalizer:        normalize.NewNormalizer(schema),
		logger:            zap.NewNop(),
		timeout:           30 * time.Second,
		minCaseTextLength: DefaultMinCaseTextLength,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig wires a pipeline from configuration. A provider that fails to
// initialise is logged and generation is disabled, as with no provider at all.
func NewFromConfig(cfg *model.Config, schema *taxonomy.Schema, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	var provider llm.Provider
	if cfg.LLM.Provider != "" {
		p, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			logger.Warn("failed to initialize LLM provider, suggestions disabled",
				zap.String("provider", cfg.LLM.Provider), zap.Error(err))
		} else {
			provider = p
		}
	}

	opts := []Option{
		WithLogger(logger),
		WithModel(cfg.LLM.Model),
		WithTimeout(time.Duration(cfg.LLM.Timeout) * time.Second),
		WithMinCaseTextLength(cfg.Suggest.MinCaseTextLength),
		WithLimiter(worker.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)),
		WithNormalizer(normalize.NewNormalizer(schema).WithMaxRationaleLength(cfg.Suggest.MaxRationaleLength)),
	}
	if cfg.Suggest.CacheEnabled {
		opts = append(opts, WithCache(
			cache.NewLayeredCache(time.Hour, cfg.Suggest.CacheDir, cfg.Suggest.CacheTTL),
			cfg.Suggest.CacheTTL,
		))
	}

	return New(schema, provider, opts...)
}

// Schema returns the taxonomy the pipeline labels against
func (p *Pipeline) Schema() *taxonomy.Schema {
	return p.schema
}

// Enabled reports whether a provider is configured
func (p *Pipeline) Enabled() bool {
	return p.provider != nil
}

// Suggest proposes a label for caseText. Any failure yields model.EmptySuggestion().
func (p *Pipeline) Suggest(ctx context.Context, caseText string) model.Suggestion {
	caseText = strings.TrimSpace(caseText)
	if caseText == "" || p.provider == nil {
		return model.EmptySuggestion()
	}

	key := cache.SuggestionKey(p.schema.Version(), p.provider.Name(), p.model, caseText)

	if p.cache != nil {
		if data, found := p.cache.Get(key); found {
			if raw, err := normalize.ParseRaw(data); err == nil {
				p.logger.Debug("suggestion served from cache", zap.String("key", key))
				return p.normalizer.Normalize(raw)
			}
		}
	}

	// The shared call outlives any single caller; generate still bounds it by p.timeout.
	callCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		return p.requestSuggestion(callCtx, key, caseText)
	})

	select {
	case <-ctx.Done():
		p.logger.Warn("suggestion cancelled", zap.Error(ctx.Err()))
		return model.EmptySuggestion()
	case res := <-ch:
		if res.Err != nil {
			p.logger.Warn("suggestion failed, returning empty suggestion",
				zap.String("provider", p.provider.Name()), zap.Error(res.Err))
			return model.EmptySuggestion()
		}
		return p.normalizer.Normalize(res.Val.(normalize.Raw))
	}
}

// requestSuggestion calls the provider and returns the decoded reply object
func (p *Pipeline) requestSuggestion(ctx context.Context, key, caseText string) (normalize.Raw, error) {
	text, err := p.generate(ctx, llm.GenerateRequest{
		System: llm.SuggestSystemPrompt,
		Prompt: llm.BuildSuggestPrompt(p.schema, caseText),
		JSON:   true,
	})
	if err != nil {
		return normalize.Raw{}, err
	}

	object, err := ExtractJSONObject(text)
	if err != nil {
		return normalize.Raw{}, err
	}

	raw, err := normalize.ParseRaw(object)
	if err != nil {
		return normalize.Raw{}, fmt.Errorf("decode reply: %w", err)
	}

	if p.cache != nil {
		if err := p.cache.Set(key, object, p.cacheTTL); err != nil {
			p.logger.Debug("failed to cache suggestion", zap.Error(err))
		}
	}

	return raw, nil
}

// GenerateCaseText asks the provider for synthetic case text. Unknown focus
// topics are ignored. Errors and replies shorter than the minimum length
// return FallbackCaseText.
func (p *Pipeline) GenerateCaseText(ctx context.Context, focusTopicID string) model.GeneratedCase {
	focusTopicID = strings.TrimSpace(focusTopicID)
	if focusTopicID != "" && !p.schema.HasTopic(focusTopicID) {
		p.logger.Debug("ignoring unknown focus topic", zap.String("focus", focusTopicID))
		focusTopicID = ""
	}

	if p.provider == nil {
		return fallbackCase()
	}

	text, err := p.generate(ctx, llm.GenerateRequest{
		System: llm.CaseTextSystemPrompt,
		Prompt: llm.BuildCaseTextPrompt(p.schema, focusTopicID),
	})
	if err != nil {
		p.logger.Warn("case generation failed, using fallback text",
			zap.String("provider", p.provider.Name()), zap.Error(err))
		return fallbackCase()
	}

	text = strings.Trim(strings.TrimSpace(text), `"`)
	if utf8.RuneCountInString(text) < p.minCaseTextLength {
		p.logger.Warn("generated case text too short, using fallback text",
			zap.Int("length", utf8.RuneCountInString(text)), zap.Int("min", p.minCaseTextLength))
		return fallbackCase()
	}

	return model.GeneratedCase{
		Text:         text,
		FocusTopicID: focusTopicID,
	}
}

// generate applies the rate limit and timeout around one provider call
func (p *Pipeline) generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, p.provider.Name()); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.provider.Generate(callCtx, req)
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", llm.ErrEmptyResponse
	}

	p.logger.Debug("provider call finished",
		zap.String("provider", p.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Text, nil
}

// The fallback text is not written for any particular topic, so no focus is reported
func fallbackCase() model.GeneratedCase {
	return model.GeneratedCase{Text: FallbackCaseText, Fallback: true}
}
