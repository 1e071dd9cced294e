package seeder

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/entity"
	menurepo "github.com/Additional-Code/tenzai/internal/repository/menu"
)

// Module provides the Seeder to Fx.
var Module = fx.Provide(New)

// DemoCategory is the category the demo menu is filed under.
const DemoCategory = "Sushi & Rolls"

var demoMenus = []entity.Menu{
	{Name: "Salmon Sushi", Description: "Fresh salmon nigiri, 2 pieces", Price: decimal.NewFromInt(120), IsAvailable: true},
	{Name: "Tuna Roll", Description: "Maki roll with tuna and cucumber", Price: decimal.NewFromInt(150), IsAvailable: true},
	{Name: "California Roll", Description: "Crab stick, avocado and tobiko", Price: decimal.NewFromInt(180), IsAvailable: true},
	{Name: "Miso Soup", Price: decimal.NewFromInt(45), IsAvailable: true},
	{Name: "Green Tea", Price: decimal.NewFromInt(30), IsAvailable: true},
}

// Seeder fills the record store with demo rows for local setups.
type Seeder struct {
	menus  *menurepo.Repository
	logger *zap.Logger
}

// New constructs a Seeder over the menu repository.
func New(menus *menurepo.Repository, logger *zap.Logger) *Seeder {
	return &Seeder{menus: menus, logger: logger}
}

// Menus seeds a demo category and its dishes. It does nothing when menus already exist
// and reports how many rows it inserted.
func (s *Seeder) Menus(ctx context.Context) (int, error) {
	existing, err := s.menus.List(ctx, false)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		s.logger.Info("menus already present; skipping seed", zap.Int("count", len(existing)))
		return 0, nil
	}

	category, err := s.menus.CreateCategory(ctx, entity.Category{Name: DemoCategory, SortOrder: 1})
	if err != nil {
		return 0, err
	}

	rows := make([]entity.Menu, len(demoMenus))
	for i, m := range demoMenus {
		m.CategoryID = category.ID
		rows[i] = m
	}
	if err := s.menus.CreateMenus(ctx, rows); err != nil {
		return 0, err
	}

	s.logger.Info("seeded menus", zap.Int("count", len(rows)), zap.String("category", DemoCategory))
	return len(rows), nil
}
