package customer

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/entity"
	repo "github.com/Additional-Code/tenzai/internal/repository/customer"
	"github.com/Additional-Code/tenzai/internal/store"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/tenzai/service/customer")

const failureMessage = "customer operation failed"

// Resolver finds or creates the single customer behind a contact. Phone is the
// durable cross-channel key; the channel identifier is enrichment.
type Resolver struct {
	repo   *repo.Repository
	logger *zap.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewResolver wires a Resolver.
func NewResolver(repository *repo.Repository, cfg config.Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := cfg.Order.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{repo: repository, logger: logger, loc: loc, now: time.Now}
}

// FindOrCreate returns the id of the customer for the contact, creating one when needed.
func (r *Resolver) FindOrCreate(ctx context.Context, name, phone string, channel entity.Channel, channelUserID string) (string, error) {
	ctx, span := serviceTracer.Start(ctx, "CustomerResolver.FindOrCreate", trace.WithAttributes(
		attribute.String("customer.channel", string(channel)),
	))
	defer span.End()

	id, err := r.findOrCreate(ctx, name, phone, channel, channelUserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve failed")
		return "", store.Translate(err, failureMessage)
	}
	span.SetAttributes(attribute.String("customer.id", id))
	return id, nil
}

func (r *Resolver) findOrCreate(ctx context.Context, name, phone string, channel entity.Channel, channelUserID string) (string, error) {
	if !channel.IsWeb() && channelUserID != "" {
		identifier := channel.Identifier(channelUserID)
		existing, err := r.repo.FindByIdentifier(ctx, identifier)
		switch {
		case err == nil:
			if phone != "" && existing.Phone != phone {
				r.patch(ctx, existing.ID, map[string]any{"phone": phone, "display_name": name}, "refresh contact info")
			}
			return existing.ID, nil
		case !errors.Is(err, repo.ErrNotFound):
			return "", err
		}
	}

	if phone != "" {
		existing, err := r.repo.FindByPhone(ctx, phone)
		switch {
		case err == nil:
			if !channel.IsWeb() && channelUserID != "" && entity.IsGenericIdentifier(existing.ChannelIdentifier) {
				r.patch(ctx, existing.ID, map[string]any{
					"line_user_id":  channel.Identifier(channelUserID),
					"platform_type": channel,
					"display_name":  name,
				}, "upgrade channel identifier")
			}
			return existing.ID, nil
		case !errors.Is(err, repo.ErrNotFound):
			return "", err
		}
	}

	return r.create(ctx, name, phone, channel, channelUserID)
}

func (r *Resolver) create(ctx context.Context, name, phone string, channel entity.Channel, channelUserID string) (string, error) {
	source := channelUserID
	if channel.IsWeb() {
		source = phone
	}
	identifier := channel.Identifier(source)
	now := r.now().In(r.loc)

	created, err := r.repo.Create(ctx, &entity.Customer{
		DisplayName:       name,
		Phone:             phone,
		ChannelIdentifier: identifier,
		ChannelType:       channel,
		TotalSpent:        decimal.Zero,
		Tags:              []string{},
		Metadata:          map[string]any{},
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return "", err
	}
	if created != nil && created.ID != "" {
		r.logger.Info("customer created", zap.String("customer_id", created.ID), zap.String("channel", string(channel)))
		return created.ID, nil
	}

	fetched, err := r.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return "", err
	}
	r.logger.Info("customer created", zap.String("customer_id", fetched.ID), zap.String("channel", string(channel)))
	return fetched.ID, nil
}

// patch applies best-effort self-healing updates; failures never block the caller.
func (r *Resolver) patch(ctx context.Context, id string, patch map[string]any, reason string) {
	patch["updated_at"] = r.now().In(r.loc)
	if err := r.repo.Update(ctx, id, patch); err != nil {
		r.logger.Warn("customer update failed", zap.String("customer_id", id), zap.String("reason", reason), zap.Error(err))
	}
}
