package answer

import (
	"context"
	"fmt"

	"github.com/hyperjump/docqa/internal/models"
)

// Retriever returns the passages most similar to a question.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]models.Document, error)
}

// Asker answers questions by retrieving passages and composing an answer from them.
type Asker struct {
	retriever Retriever
	composer  *Composer
	k         int
}

// NewAsker returns an Asker retrieving k passages per question (models.DefaultK when k <= 0).
func NewAsker(retriever Retriever, composer *Composer, k int) *Asker {
	if k <= 0 {
		k = models.DefaultK
	}
	return &Asker{retriever: retriever, composer: composer, k: k}
}

// Ask retrieves context for question and returns the model's answer with its sources.
// With nothing indexed the model is still asked, over an empty context.
func (a *Asker) Ask(ctx context.Context, question string) (*models.AskResponse, error) {
	docs, err := a.retriever.Query(ctx, question, a.k)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	text, err := a.composer.Compose(ctx, question, docs)
	if err != nil {
		return nil, err
	}
	return &models.AskResponse{Answer: text, Sources: docs}, nil
}
