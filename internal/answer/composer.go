package answer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Instruction is the prompt sent to the chat model. {context} receives BuildContext
// output and {question} the question verbatim.
const Instruction = `You are a legal assistant. Use the following context to answer the question. Include page and line references in your answer when citing specific information.

Context: {context}

Question: {question}

Answer:`

// DefaultMaxConcurrent bounds in-flight model calls when no limit is configured.
const DefaultMaxConcurrent = 4

// Composer turns a question and its supporting passages into an answer.
type Composer struct {
	model    model.BaseChatModel
	template prompt.ChatTemplate
	timeout  time.Duration
	sem      *semaphore.Weighted
	logger   *zap.Logger
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithTimeout bounds each model call. Zero means no limit beyond the caller's context.
func WithTimeout(d time.Duration) ComposerOption {
	return func(c *Composer) { c.timeout = d }
}

// WithMaxConcurrent limits the number of model calls in flight.
func WithMaxConcurrent(n int) ComposerOption {
	return func(c *Composer) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithLogger sets the composer logger.
func WithLogger(l *zap.Logger) ComposerOption {
	return func(c *Composer) { c.logger = l }
}

// NewComposer returns a composer over chat. A nil chat model is allowed; every
// Compose call then fails with errs.ErrModelUnavailable.
func NewComposer(chat model.BaseChatModel, opts ...ComposerOption) *Composer {
	c := &Composer{
		model:    chat,
		template: prompt.FromMessages(schema.FString, schema.UserMessage(Instruction)),
		sem:      semaphore.NewWeighted(DefaultMaxConcurrent),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Messages renders the prompt for question over docs.
func (c *Composer) Messages(ctx context.Context, question string, docs []models.Document) ([]*schema.Message, error) {
	msgs, err := c.template.Format(ctx, map[string]any{
		"context":  BuildContext(docs),
		"question": question,
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}
	return msgs, nil
}

// Compose asks the chat model to answer question from docs and returns the model's
// text unmodified.
func (c *Composer) Compose(ctx context.Context, question string, docs []models.Document) (string, error) {
	if c.model == nil {
		return "", fmt.Errorf("%w: no chat model configured", errs.ErrModelUnavailable)
	}
	msgs, err := c.Messages(ctx, question, docs)
	if err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", errs.Wrap(errs.ErrModelUnavailable, fmt.Errorf("wait for model slot: %w", err))
	}
	defer c.sem.Release(1)

	start := time.Now()
	resp, err := c.model.Generate(ctx, msgs)
	if err != nil {
		// Clients do not always surface the deadline in their error chain.
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", err, ctxErr)
		}
		c.logger.Warn("Chat model call failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return "", errs.Wrap(errs.ErrModelUnavailable, fmt.Errorf("generate: %w", err))
	}
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", errs.ErrModelUnavailable)
	}
	c.logger.Debug("Answer composed",
		zap.Int("passages", len(docs)),
		zap.Int("answer_len", len(resp.Content)),
		zap.Duration("elapsed", time.Since(start)))
	return resp.Content, nil
}
