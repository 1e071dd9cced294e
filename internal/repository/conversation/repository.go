package conversation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/store"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/tenzai/repository/conversation")

const (
	table        = "conversations"
	maxTextRunes = 300
)

// Repository logs chat exchanges.
type Repository struct {
	store *store.Client
}

// NewRepository wires a repository over the record store client.
func NewRepository(client *store.Client) *Repository {
	return &Repository{store: client}
}

// Log appends one exchange, truncating both texts.
func (r *Repository) Log(ctx context.Context, c entity.Conversation) error {
	ctx, span := repoTracer.Start(ctx, "ConversationRepository.Log")
	defer span.End()

	c.MessageText = truncate(c.MessageText)
	c.ResponseText = truncate(c.ResponseText)
	if _, err := r.store.Insert(ctx, table, c, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxTextRunes {
		return s
	}
	return string(runes[:maxTextRunes])
}
