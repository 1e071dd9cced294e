package menu

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/repository"
	"github.com/Additional-Code/tenzai/internal/store"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/tenzai/repository/menu")

const (
	menusTable      = "menus"
	categoriesTable = "categories"
)

// Repository reads and seeds the menu catalogue.
type Repository struct {
	store *store.Client
}

// NewRepository wires a repository over the record store client.
func NewRepository(client *store.Client) *Repository {
	return &Repository{store: client}
}

// List returns menus, optionally only the available ones.
func (r *Repository) List(ctx context.Context, availableOnly bool) ([]entity.Menu, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.List", trace.WithAttributes(attribute.Bool("menu.available_only", availableOnly)))
	defer span.End()

	q := store.From(menusTable).Order("name", false)
	if availableOnly {
		q = q.Eq("is_available", true)
	}
	menus := make([]entity.Menu, 0)
	err := repository.Read(ctx, func(ctx context.Context) error {
		return r.store.Select(ctx, q, store.Anon, &menus)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return menus, nil
}

// CreateCategory inserts a category and returns its stored row.
func (r *Repository) CreateCategory(ctx context.Context, c entity.Category) (*entity.Category, error) {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.CreateCategory")
	defer span.End()

	var rows []entity.Category
	echoed, err := r.store.Insert(ctx, categoriesTable, c, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, err
	}
	if !echoed || len(rows) == 0 {
		return &c, nil
	}
	return &rows[0], nil
}

// CreateMenus inserts menus in one call.
func (r *Repository) CreateMenus(ctx context.Context, menus []entity.Menu) error {
	ctx, span := repoTracer.Start(ctx, "MenuRepository.CreateMenus", trace.WithAttributes(attribute.Int("menu.count", len(menus))))
	defer span.End()

	if len(menus) == 0 {
		return nil
	}
	if _, err := r.store.Insert(ctx, menusTable, menus, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}
