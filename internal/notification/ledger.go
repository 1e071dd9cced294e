package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/database"
	"github.com/Additional-Code/tenzai/internal/entity"
)

// Ledger stores the outcome of every notification attempt.
type Ledger interface {
	Record(ctx context.Context, d *entity.NotificationDelivery) error
	Recent(ctx context.Context, limit int) ([]entity.NotificationDelivery, error)
}

// NewLedger returns a bun-backed ledger, or a no-op one when the database is off.
func NewLedger(conns *database.Connections, logger *zap.Logger) Ledger {
	if !conns.Enabled() {
		logger.Info("notification ledger disabled")
		return noopLedger{}
	}
	return NewBunLedger(conns.Writer, conns.Reader)
}

type bunLedger struct {
	writer *bun.DB
	reader *bun.DB
}

// NewBunLedger builds a ledger over explicit handles.
func NewBunLedger(writer, reader *bun.DB) Ledger {
	if reader == nil {
		reader = writer
	}
	return &bunLedger{writer: writer, reader: reader}
}

func (l *bunLedger) Record(ctx context.Context, d *entity.NotificationDelivery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := l.writer.NewInsert().Model(d).Exec(ctx)
	return err
}

func (l *bunLedger) Recent(ctx context.Context, limit int) ([]entity.NotificationDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []entity.NotificationDelivery
	err := l.reader.NewSelect().
		Model(&rows).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type noopLedger struct{}

func (noopLedger) Record(context.Context, *entity.NotificationDelivery) error { return nil }

func (noopLedger) Recent(context.Context, int) ([]entity.NotificationDelivery, error) {
	return []entity.NotificationDelivery{}, nil
}
