package customer

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/entity"
	repo "github.com/Additional-Code/tenzai/internal/repository/customer"
	"github.com/Additional-Code/tenzai/internal/store/storetest"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

func newResolver(t *testing.T) (*Resolver, *storetest.Server) {
	t.Helper()
	fake := storetest.New(t)
	return NewResolver(repo.NewRepository(fake.Client()), config.Config{}, zap.NewNop()), fake
}

func TestChannelIdentifierMatchRefreshesPhone(t *testing.T) {
	resolver, fake := newResolver(t)
	fake.Seed("customers", map[string]any{"id": "c1", "display_name": "Old", "phone": "0800000000", "line_user_id": "LINE_U1"})

	id, err := resolver.FindOrCreate(context.Background(), "Somchai", "0812345678", entity.ChannelLine, "U1")
	require.NoError(t, err)
	require.Equal(t, "c1", id)

	rows := fake.Rows("customers")
	require.Len(t, rows, 1)
	require.Equal(t, "0812345678", rows[0]["phone"])
	require.Equal(t, "Somchai", rows[0]["display_name"])
}

func TestPhoneMatchUpgradesGenericIdentifier(t *testing.T) {
	resolver, fake := newResolver(t)
	fake.Seed("customers", map[string]any{"id": "c1", "display_name": "Somchai", "phone": "0812345678", "line_user_id": "WEB_0812345678"})

	id, err := resolver.FindOrCreate(context.Background(), "Somchai", "0812345678", entity.ChannelLine, "U99")
	require.NoError(t, err)
	require.Equal(t, "c1", id)

	rows := fake.Rows("customers")
	require.Len(t, rows, 1)
	require.Equal(t, "LINE_U99", rows[0]["line_user_id"])
	require.Equal(t, "LINE", rows[0]["platform_type"])
}

func TestPhoneMatchKeepsGenuineIdentifier(t *testing.T) {
	resolver, fake := newResolver(t)
	fake.Seed("customers", map[string]any{"id": "c1", "phone": "0812345678", "line_user_id": "LINE_U1"})

	id, err := resolver.FindOrCreate(context.Background(), "Somchai", "0812345678", entity.ChannelFB, "F7")
	require.NoError(t, err)
	require.Equal(t, "c1", id)
	require.Equal(t, "LINE_U1", fake.Rows("customers")[0]["line_user_id"])
	require.Empty(t, fake.CallsTo(http.MethodPatch, "customers"))
}

func TestWebContactNeverUpgrades(t *testing.T) {
	resolver, fake := newResolver(t)
	fake.Seed("customers", map[string]any{"id": "c1", "phone": "0812345678", "line_user_id": "WEB_0812345678"})

	id, err := resolver.FindOrCreate(context.Background(), "Somchai", "0812345678", entity.ChannelWeb, "")
	require.NoError(t, err)
	require.Equal(t, "c1", id)
	require.Empty(t, fake.CallsTo(http.MethodPatch, "customers"))
}

func TestCreatesWebCustomer(t *testing.T) {
	resolver, fake := newResolver(t)

	id, err := resolver.FindOrCreate(context.Background(), "Somchai", "0812345678", entity.ChannelWeb, "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rows := fake.Rows("customers")
	require.Len(t, rows, 1)
	require.Equal(t, id, rows[0]["id"])
	require.Equal(t, "WEB_0812345678", rows[0]["line_user_id"])
	require.Equal(t, "WEB", rows[0]["platform_type"])
	require.EqualValues(t, 0, rows[0]["total_orders"])
}

func TestCreateFollowsUpWhenNotEchoed(t *testing.T) {
	resolver, fake := newResolver(t)
	fake.DisableEcho("customers")

	id, err := resolver.FindOrCreate(context.Background(), "Somchai", "0812345678", entity.ChannelLine, "U5")
	require.NoError(t, err)
	require.Equal(t, fake.Rows("customers")[0]["id"], id)
	require.Equal(t, "LINE_U5", fake.Rows("customers")[0]["line_user_id"])
}

func TestCreateFailureSurfaces(t *testing.T) {
	resolver, fake := newResolver(t)
	fake.Fail(http.MethodPost, "customers", http.StatusBadRequest, 0)

	_, err := resolver.FindOrCreate(context.Background(), "Somchai", "0812345678", entity.ChannelWeb, "")
	require.Error(t, err)
	require.True(t, errorbank.IsKind(err, errorbank.KindInternal))
}

func TestUnreachableStoreKeepsKind(t *testing.T) {
	resolver, fake := newResolver(t)
	fake.Close()

	_, err := resolver.FindOrCreate(context.Background(), "Somchai", "0812345678", entity.ChannelWeb, "")
	require.True(t, errorbank.IsKind(err, errorbank.KindUnavailable))
}
