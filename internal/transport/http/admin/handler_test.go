package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/presentation/http/response"
	httpserver "github.com/Additional-Code/tenzai/internal/server/http"
	"github.com/Additional-Code/tenzai/internal/service/schema"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

type stubInspector struct {
	samples []bool
}

func (s *stubInspector) Inspect(_ context.Context, withSample bool) map[string]schema.TableInfo {
	s.samples = append(s.samples, withSample)
	info := schema.TableInfo{Accessible: true, Columns: []string{"id", "name"}, RowCount: 1}
	if withSample {
		info.SampleRow = map[string]any{"id": "m1", "name": "Salmon"}
	}
	return map[string]schema.TableInfo{"menus": info}
}

type memoryLog struct {
	rows  []entity.NotificationDelivery
	limit int
	err   error
}

func (m *memoryLog) Record(_ context.Context, d *entity.NotificationDelivery) error {
	if m.err != nil {
		return m.err
	}
	if d.Status == "" {
		d.Status = entity.DeliverySent
	}
	m.rows = append(m.rows, *d)
	return nil
}

func (m *memoryLog) Recent(_ context.Context, limit int) ([]entity.NotificationDelivery, error) {
	m.limit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func newTestServer(t *testing.T) (*echo.Echo, *stubInspector, *memoryLog) {
	t.Helper()
	cfg := config.Config{}
	cfg.HTTP.AllowOrigins = []string{"*"}

	inspector := &stubInspector{}
	log := &memoryLog{}
	e := httpserver.NewEcho(cfg, nil, zap.NewNop())
	Register(e, NewHandler(inspector, log))
	return e, inspector, log
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSchemaEndpoints(t *testing.T) {
	e, inspector, _ := newTestServer(t)

	rec := do(e, http.MethodGet, "/api/schema/inspect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode(t, rec).Data.(map[string]any), "schemas")

	rec = do(e, http.MethodGet, "/api/schema/sample-data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	samples := decode(t, rec).Data.(map[string]any)["samples"].(map[string]any)
	menus := samples["menus"].(map[string]any)
	assert.Equal(t, "Salmon", menus["sample_row"].(map[string]any)["name"])

	assert.Equal(t, []bool{false, true}, inspector.samples)
}

func TestRecordStaffNotificationDefaultsKind(t *testing.T) {
	e, _, log := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/staff/notifications", `{"order_number":"T0102ABCD","channel":"LINE","recipient":"LINE_STAFF"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env := decode(t, rec)
	assert.Equal(t, "Staff notification logged", env.Meta["message"])
	require.Len(t, log.rows, 1)
	assert.Equal(t, "new_order", log.rows[0].Kind)
	assert.Equal(t, entity.DeliverySent, log.rows[0].Status)
}

func TestRecordStaffNotificationRejectsUnknownStatus(t *testing.T) {
	e, _, log := newTestServer(t)

	rec := do(e, http.MethodPost, "/api/staff/notifications", `{"status":"delivered"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errorbank.KindBadRequest), decode(t, rec).Error.Kind)
	assert.Empty(t, log.rows)
}

func TestListStaffNotifications(t *testing.T) {
	e, _, log := newTestServer(t)
	log.rows = []entity.NotificationDelivery{{ID: "n1", Kind: "new_order", Status: entity.DeliverySent}}

	rec := do(e, http.MethodGet, "/api/staff/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec).Meta["count"])
	assert.Equal(t, 50, log.limit)

	rec = do(e, http.MethodGet, "/api/staff/notifications?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, log.limit)

	for _, bad := range []string{"0", "501", "abc"} {
		rec = do(e, http.MethodGet, "/api/staff/notifications?limit="+bad, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestListStaffNotificationsLedgerFailure(t *testing.T) {
	e, _, log := newTestServer(t)
	log.err = errors.New("db down")

	rec := do(e, http.MethodGet, "/api/staff/notifications", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(errorbank.KindInternal), decode(t, rec).Error.Kind)
}
