package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/bnema/ambient-narrator/internal/application"

type OrchestratorConfig struct {
	// Deadline bounds how long GenerateLine waits for the generator.
	Deadline time.Duration
	// CallTimeout bounds the abandoned call itself, after the wait gave up.
	CallTimeout time.Duration
	MinLength   int
}

func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Deadline:    5 * time.Second,
		CallTimeout: 30 * time.Second,
		MinLength:   4,
	}
}

type LineRequest struct {
	Trigger  domain.EventType
	Payload  domain.Payload
	Persona  domain.Persona
	Snapshot Snapshot
}

// Orchestrator turns a decision to speak into a line of text. It always
// returns a non-empty result within Deadline plus scheduling slack.
type Orchestrator struct {
	generator ports.Generator
	pools     FallbackPools
	rng       ports.Random
	cfg       OrchestratorConfig
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewOrchestrator(generator ports.Generator, pools FallbackPools, rng ports.Random, cfg OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if pools == nil {
		pools = DefaultFallbackPools()
	}
	if rng == nil {
		rng = ports.NewSeededRandom(1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultOrchestratorConfig().Deadline
	}
	if cfg.CallTimeout < cfg.Deadline {
		cfg.CallTimeout = cfg.Deadline
	}

	return &Orchestrator{
		generator: generator,
		pools:     pools,
		rng:       rng,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

func (o *Orchestrator) GenerateLine(ctx context.Context, req LineRequest) domain.GenerationResult {
	ctx, span := o.tracer.Start(ctx, "narrator.generate_line", trace.WithAttributes(
		attribute.String("narrator.trigger", string(req.Trigger)),
		attribute.String("narrator.persona", string(req.Persona.ID)),
		attribute.Int("narrator.volume", req.Snapshot.Volume),
	))
	defer span.End()

	prompt := BuildPrompt(req.Persona, req.Trigger, req.Payload, req.Snapshot)

	text, err := o.race(ctx, req.Trigger, prompt)
	if err == nil {
		text, err = o.validate(text, req.Persona)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fell back to static line")
		span.SetAttributes(attribute.String("narrator.origin", string(domain.OriginFallback)))
		o.logger.Info("using fallback line", "trigger", req.Trigger, "persona", req.Persona.ID, "error", err)

		return domain.GenerationResult{
			Text:    o.Fallback(req),
			Persona: req.Persona,
			Origin:  domain.OriginFallback,
			Trigger: req.Trigger,
			Cause:   err,
		}
	}

	span.SetAttributes(attribute.String("narrator.origin", string(domain.OriginGenerated)))
	return domain.GenerationResult{
		Text:    text,
		Persona: req.Persona,
		Origin:  domain.OriginGenerated,
		Trigger: req.Trigger,
	}
}

// Fallback draws a line from the trigger/persona pool and fills its
// placeholders.
func (o *Orchestrator) Fallback(req LineRequest) string {
	lines := o.pools.Lines(req.Trigger, req.Persona.ID)
	line := lines[o.rng.Intn(len(lines))]
	return fillPlaceholders(line, req.Payload, req.Snapshot)
}

type generation struct {
	text string
	err  error
}

// race waits for the generator until the deadline. The call runs on a
// context that the deadline does not cancel; once the wait is over its
// result is dropped.
func (o *Orchestrator) race(ctx context.Context, trigger domain.EventType, prompt Prompt) (string, error) {
	if o.generator == nil {
		return "", fmt.Errorf("%w: no generator configured", domain.ErrGenerationFailure)
	}

	results := make(chan generation, 1)
	var abandoned atomic.Bool

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.CallTimeout)
	go func() {
		defer cancel()
		text, err := o.generator.Generate(callCtx, prompt.System, prompt.User, prompt.MaxOutputLength)
		if abandoned.Load() {
			o.logger.Debug("discarding late generation", "trigger", trigger, "error", err)
			return
		}
		results <- generation{text: text, err: err}
	}()

	timer := time.NewTimer(o.cfg.Deadline)
	defer timer.Stop()

	select {
	case res := <-results:
		if res.err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailure, res.err)
		}
		return res.text, nil
	case <-timer.C:
		abandoned.Store(true)
		return "", fmt.Errorf("%w after %s", domain.ErrGenerationTimeout, o.cfg.Deadline)
	case <-ctx.Done():
		abandoned.Store(true)
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailure, ctx.Err())
	}
}

func (o *Orchestrator) validate(raw string, persona domain.Persona) (string, error) {
	text := SanitizeLine(raw, persona)
	if utf8.RuneCountInString(text) < o.cfg.MinLength {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidGenerationOutput, raw)
	}
	return text, nil
}

var (
	quotePairs = map[rune]rune{
		'"':  '"',
		'\'': '\'',
		'`':  '`',
		'“':  '”',
		'‘':  '’',
		'«':  '»',
		'„':  '“',
	}
	signatureSuffix = regexp.MustCompile(`(?i)\s*(?:—|–|--?|~)\s*(?:the\s+)?(?:archivist|jester|shade|narrator)\s*[.!]?\s*$`)
	speakerPrefix   = regexp.MustCompile(`(?i)^\s*\**(?:the\s+)?(?:archivist|jester|shade|narrator)\**\s*:\s*`)
)

// SanitizeLine strips whitespace, wrapping quotes, a leading speaker label
// and a trailing signature from a generated line.
func SanitizeLine(raw string, persona domain.Persona) string {
	text := strings.TrimSpace(raw)

	for i := 0; i < 3; i++ {
		before := text
		text = speakerPrefix.ReplaceAllString(text, "")
		if name := strings.TrimSpace(persona.DisplayName); name != "" {
			text = trimPrefixFold(text, name+":")
		}
		text = signatureSuffix.ReplaceAllString(text, "")
		text = strings.TrimSpace(stripWrappingQuotes(strings.TrimSpace(text)))
		if text == before {
			break
		}
	}

	return text
}

func stripWrappingQuotes(text string) string {
	first, size := utf8.DecodeRuneInString(text)
	if size == 0 {
		return text
	}
	closing, ok := quotePairs[first]
	if !ok {
		return text
	}
	last, lastSize := utf8.DecodeLastRuneInString(text)
	if last != closing || len(text) < size+lastSize {
		return text
	}
	return text[size : len(text)-lastSize]
}

func trimPrefixFold(text, prefix string) string {
	if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
		return strings.TrimSpace(text[len(prefix):])
	}
	return text
}
