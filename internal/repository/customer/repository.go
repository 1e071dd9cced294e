package customer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/repository"
	"github.com/Additional-Code/tenzai/internal/store"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/tenzai/repository/customer")

const table = "customers"

// ErrNotFound is returned when no customer matches.
var ErrNotFound = errors.New("customer not found")

// Repository reads and writes customer rows in the record store.
type Repository struct {
	store *store.Client
}

// NewRepository wires a repository over the record store client.
func NewRepository(client *store.Client) *Repository {
	return &Repository{store: client}
}

// FindByIdentifier looks up a customer by exact channel identifier.
func (r *Repository) FindByIdentifier(ctx context.Context, identifier string) (*entity.Customer, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.FindByIdentifier", trace.WithAttributes(attribute.String("customer.identifier", identifier)))
	defer span.End()
	return r.findOne(ctx, span, store.From(table).Eq("line_user_id", identifier).Limit(1))
}

// FindByPhone looks up a customer by phone.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*entity.Customer, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.FindByPhone")
	defer span.End()
	return r.findOne(ctx, span, store.From(table).Eq("phone", phone).Limit(1))
}

// GetByID fetches a customer by primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.GetByID", trace.WithAttributes(attribute.String("customer.id", id)))
	defer span.End()
	return r.findOne(ctx, span, store.From(table).Eq("id", id).Limit(1))
}

func (r *Repository) findOne(ctx context.Context, span trace.Span, q *store.Query) (*entity.Customer, error) {
	var rows []entity.Customer
	err := repository.Read(ctx, func(ctx context.Context) error {
		return r.store.Select(ctx, q, store.Service, &rows)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// Create inserts a customer. The returned customer is nil when the store did
// not echo the created row.
func (r *Repository) Create(ctx context.Context, c *entity.Customer) (*entity.Customer, error) {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.Create", trace.WithAttributes(attribute.String("customer.identifier", c.ChannelIdentifier)))
	defer span.End()

	var rows []entity.Customer
	echoed, err := r.store.Insert(ctx, table, c, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, err
	}
	if !echoed || len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Update patches the customer with id.
func (r *Repository) Update(ctx context.Context, id string, patch map[string]any) error {
	ctx, span := repoTracer.Start(ctx, "CustomerRepository.Update", trace.WithAttributes(attribute.String("customer.id", id)))
	defer span.End()

	if err := r.store.Update(ctx, store.From(table).Eq("id", id), patch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return nil
}
