package ports

import (
	"context"

	"github.com/startupscout/scout/internal/core/domain"
)

// QuestionAnswerer is the driving port the HTTP adapter talks to.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, topK int) (*domain.Answer, error)
}
