package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryString(t *testing.T) {
	tests := []struct {
		name string
		q    *Query
		want string
	}{
		{name: "bare table", q: From("orders"), want: "orders"},
		{
			name: "equality with select and limit",
			q:    From("customers").Eq("phone", "0812345678").Select("id").Limit(1),
			want: "customers?phone=eq.0812345678&select=id&limit=1",
		},
		{
			name: "escapes offset timestamps",
			q:    From("orders").Gte("created_at", "2025-01-02T00:00:00+07:00").Order("created_at", true),
			want: "orders?created_at=gte.2025-01-02T00%3A00%3A00%2B07%3A00&order=created_at.desc",
		},
		{
			name: "membership",
			q:    From("menus").In("id", "a", "b"),
			want: "menus?id=in.(a,b)",
		},
		{
			name: "embedded select",
			q:    From("order_items").Eq("order_id", 7).Select("*,menus(name)"),
			want: "order_items?order_id=eq.7&select=%2A%2Cmenus%28name%29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.q.String())
		})
	}
}

func TestResultNormalisesEmptyBody(t *testing.T) {
	res := newResult(204, nil)
	require.Equal(t, "[]", string(res.Body))
	require.True(t, res.Empty())

	var rows []map[string]any
	require.NoError(t, res.Decode(&rows))
	require.Empty(t, rows)

	require.Equal(t, 2, newResult(200, []byte(`[{"id":1},{"id":2}]`)).Len())
	require.Equal(t, 1, newResult(200, []byte(`{"id":1}`)).Len())
}
