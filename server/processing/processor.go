package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teilomillet/nbassist/gemini"
	"github.com/teilomillet/nbassist/prompt"
	"github.com/teilomillet/nbassist/server/circuitbreaker"
	"github.com/teilomillet/nbassist/server/metrics"
	"github.com/teilomillet/nbassist/server/middleware"
	"github.com/teilomillet/nbassist/webhook"
	"go.uber.org/zap"
)

const (
	opCountTokens     = "countTokens"
	opGenerateContent = "generateContent"

	notifyTokenInfo = "token_info"
	notifyErrorLog  = "error_log"

	// ResultErrorPrefix starts every error notification.
	ResultErrorPrefix = "Result error: "
)

// Processor runs one request at a time through the pipeline. It holds no
// per-request state and is safe for concurrent use.
type Processor struct {
	llm      LanguageModel
	notifier Notifier
	breaker  *circuitbreaker.CircuitBreaker
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithCircuitBreaker guards content generation with cb.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(p *Processor) {
		p.breaker = cb
	}
}

// WithMetrics records upstream and notification outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// NewProcessor creates a processor. The language model is required; a nil
// notifier disables notifications.
func NewProcessor(llm LanguageModel, notifier Notifier, logger *zap.Logger, opts ...Option) (*Processor, error) {
	if llm == nil {
		return nil, fmt.Errorf("language model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Processor{
		llm:      llm,
		notifier: notifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process handles the end-to-end processing of a request:
//  1. Cleans the error output
//  2. Renders the prompt for the request language
//  3. Counts prompt tokens and reports them (best-effort)
//  4. Generates the answer
//  5. Reports a generation failure (best-effort)
//
// Only a generation failure is returned; token counting and notification
// failures are logged and counted.
func (p *Processor) Process(ctx context.Context, req *Request) (*gemini.GenerateContentResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	log := p.logger.With(zap.String("request_id", middleware.GetRequestID(ctx)))

	cleaned := prompt.Sanitize(req.ErrorOutput)
	text := prompt.Render(req.Language, cleaned, req.Code)

	// Reports must survive the caller hanging up.
	notifyCtx := context.WithoutCancel(ctx)

	tokens, err := p.countTokens(ctx, text)
	if err != nil {
		log.Warn("Token count failed", zap.Error(err))
	} else {
		log.Info("Prompt tokens counted",
			zap.String("language", req.Language),
			zap.Int("total_tokens", tokens),
		)
		if p.notifier != nil && p.notifier.Enabled() {
			p.recordNotification(log, notifyTokenInfo,
				p.notifier.SendTokenInfo(notifyCtx, req.Language, tokens, cleaned))
		}
	}

	resp, err := p.generate(ctx, text)
	if err != nil {
		if p.notifier != nil && p.notifier.Enabled() {
			p.recordNotification(log, notifyErrorLog,
				p.notifier.SendErrorLog(notifyCtx, ResultErrorPrefix+err.Error()))
		}
		return nil, err
	}

	return resp, nil
}

func (p *Processor) countTokens(ctx context.Context, text string) (int, error) {
	start := time.Now()
	tokens, err := p.llm.CountTokens(ctx, text)
	p.recordUpstream(opCountTokens, start, err)
	if err == nil && p.metrics != nil {
		p.metrics.PromptTokens.Observe(float64(tokens))
	}
	return tokens, err
}

func (p *Processor) generate(ctx context.Context, text string) (*gemini.GenerateContentResponse, error) {
	var resp *gemini.GenerateContentResponse
	err := p.breaker.Execute(func() error {
		start := time.Now()
		var err error
		resp, err = p.llm.GenerateContent(ctx, text)
		p.recordUpstream(opGenerateContent, start, err)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *Processor) recordUpstream(op string, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	p.metrics.UpstreamRequests.WithLabelValues(op, outcome).Inc()
	p.metrics.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (p *Processor) recordNotification(log *zap.Logger, kind string, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, webhook.ErrThrottled):
		outcome = metrics.OutcomeThrottled
		log.Debug("Notification throttled", zap.String("kind", kind))
	case err != nil:
		outcome = metrics.OutcomeError
		log.Warn("Notification failed", zap.String("kind", kind), zap.Error(err))
	}
	if p.metrics != nil {
		p.metrics.Notifications.WithLabelValues(kind, outcome).Inc()
	}
}

// IsUpstreamFailure reports whether err means the language model is
// unhealthy. Client-side rejections and caller cancellations do not count.
func IsUpstreamFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus >= 500
	}
	return true
}
