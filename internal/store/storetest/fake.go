// Package storetest provides an in-memory record store speaking the REST
// filter dialect used by the store client.
package storetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/store"
)

// Keys used by the fake for the two credential tiers.
const (
	ServiceKey = "service-key"
	AnonKey    = "anon-key"
)

// Row is one stored record.
type Row = map[string]any

// Call records a request seen by the fake.
type Call struct {
	Method   string
	Table    string
	RawQuery string
	Header   http.Header
	Body     []byte
}

type failure struct {
	status    int
	remaining int
	skip      int
}

// Server is an httptest-backed fake record store.
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	tables   map[string][]Row
	calls    []Call
	failures map[string]*failure
	noEcho   map[string]bool
	unique   map[string][]string
}

// New starts a fake store that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		tables:   make(map[string][]Row),
		failures: make(map[string]*failure),
		noEcho:   make(map[string]bool),
		unique:   make(map[string][]string),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the base URL of the fake.
func (s *Server) URL() string { return s.srv.URL }

// Close stops the fake early, e.g. to simulate an unreachable store.
func (s *Server) Close() { s.srv.Close() }

// Config returns store settings pointing at the fake.
func (s *Server) Config() config.Store {
	return config.Store{URL: s.srv.URL, ServiceKey: ServiceKey, AnonKey: AnonKey, Timeout: 2 * time.Second}
}

// Client returns a store client wired to the fake.
func (s *Server) Client() *store.Client {
	return store.New(s.Config(), zap.NewNop())
}

// Seed inserts rows as-is, assigning ids when missing.
func (s *Server) Seed(table string, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		copyRow := normalize(row)
		if _, ok := copyRow["id"]; !ok {
			copyRow["id"] = uuid.NewString()
		}
		s.tables[table] = append(s.tables[table], copyRow)
	}
}

// Rows returns a copy of the stored rows of table.
func (s *Server) Rows(table string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		out = append(out, cloneRow(row))
	}
	return out
}

// Calls returns every request seen so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo filters Calls by method and table.
func (s *Server) CallsTo(method, table string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Table == table {
			out = append(out, c)
		}
	}
	return out
}

// Fail makes the next times requests matching method and table answer status.
// times <= 0 fails forever.
func (s *Server) Fail(method, table string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+table] = &failure{status: status, remaining: times}
}

// FailAfter lets the first skip requests matching method and table through,
// then answers status to every later one.
func (s *Server) FailAfter(method, table string, skip, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+table] = &failure{status: status, skip: skip}
}

// DisableEcho makes inserts into table answer without a representation.
func (s *Server) DisableEcho(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noEcho[table] = true
}

// Unique rejects inserts into table that duplicate column with 409.
func (s *Server) Unique(table, column string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unique[table] = append(s.unique[table], column)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{
		Method:   r.Method,
		Table:    table,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
	})

	key := r.Header.Get("apikey")
	if key != ServiceKey && key != AnonKey {
		writeJSON(w, http.StatusUnauthorized, Row{"message": "invalid api key"})
		return
	}

	if f, ok := s.failures[r.Method+" "+table]; ok && f.skip > 0 {
		f.skip--
	} else if ok {
		if f.remaining > 0 {
			f.remaining--
			if f.remaining == 0 {
				delete(s.failures, r.Method+" "+table)
			}
		}
		writeJSON(w, f.status, Row{"message": "injected failure"})
		return
	}

	if table == "" {
		writeJSON(w, http.StatusOK, Row{"swagger": "2.0"})
		return
	}

	params, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Row{"message": err.Error()})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.query(table, params))
	case http.MethodPost:
		s.insert(w, r, table, body)
	case http.MethodPatch, http.MethodPut:
		var patch Row
		if err := json.Unmarshal(body, &patch); err != nil {
			writeJSON(w, http.StatusBadRequest, Row{"message": err.Error()})
			return
		}
		for _, row := range s.tables[table] {
			if matches(row, params) {
				for k, v := range patch {
					row[k] = v
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		kept := s.tables[table][:0]
		for _, row := range s.tables[table] {
			if !matches(row, params) {
				kept = append(kept, row)
			}
		}
		s.tables[table] = kept
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) insert(w http.ResponseWriter, r *http.Request, table string, body []byte) {
	var rows []Row
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &rows); err != nil {
			writeJSON(w, http.StatusBadRequest, Row{"message": err.Error()})
			return
		}
	} else {
		var row Row
		if err := json.Unmarshal(body, &row); err != nil {
			writeJSON(w, http.StatusBadRequest, Row{"message": err.Error()})
			return
		}
		rows = []Row{row}
	}

	for _, row := range rows {
		for _, col := range s.unique[table] {
			if row[col] == nil {
				continue
			}
			for _, existing := range s.tables[table] {
				if formatValue(existing[col]) == formatValue(row[col]) {
					writeJSON(w, http.StatusConflict, Row{"code": "23505", "message": fmt.Sprintf("duplicate key value violates unique constraint on %s", col)})
					return
				}
			}
		}
	}

	for _, row := range rows {
		if id, ok := row["id"]; !ok || id == nil || id == "" {
			row["id"] = uuid.NewString()
		}
		s.tables[table] = append(s.tables[table], row)
	}

	if s.noEcho[table] || !strings.Contains(r.Header.Get("Prefer"), "return=representation") {
		w.WriteHeader(http.StatusCreated)
		return
	}
	writeJSON(w, http.StatusCreated, rows)
}

func (s *Server) query(table string, params url.Values) []Row {
	out := make([]Row, 0)
	for _, row := range s.tables[table] {
		if matches(row, params) {
			out = append(out, cloneRow(row))
		}
	}

	if order := params.Get("order"); order != "" {
		col, dir, _ := strings.Cut(order, ".")
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(formatValue(out[i][col]), formatValue(out[j][col]))
			if dir == "desc" {
				return c > 0
			}
			return c < 0
		})
	}

	if limit := params.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n >= 0 && n < len(out) {
			out = out[:n]
		}
	}
	return out
}

func matches(row Row, params url.Values) bool {
	for col, values := range params {
		switch col {
		case "select", "order", "limit", "offset":
			continue
		}
		for _, expr := range values {
			op, operand, ok := strings.Cut(expr, ".")
			if !ok {
				return false
			}
			actual := formatValue(row[col])
			switch op {
			case "eq":
				if actual != operand {
					return false
				}
			case "neq":
				if actual == operand {
					return false
				}
			case "gte":
				if compare(actual, operand) < 0 {
					return false
				}
			case "lt":
				if compare(actual, operand) >= 0 {
					return false
				}
			case "like":
				if !like(actual, operand) {
					return false
				}
			case "in":
				list := strings.Split(strings.Trim(operand, "()"), ",")
				found := false
				for _, candidate := range list {
					if candidate == actual {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

func like(value, pattern string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return value == pattern
	}
	if !strings.HasPrefix(value, parts[0]) {
		return false
	}
	value = value[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(value, parts[i])
		if idx < 0 {
			return false
		}
		value = value[idx+len(parts[i]):]
	}
	return strings.HasSuffix(value, parts[len(parts)-1])
}

func compare(a, b string) int {
	if ta, err := time.Parse(time.RFC3339Nano, a); err == nil {
		if tb, err := time.Parse(time.RFC3339Nano, b); err == nil {
			return ta.Compare(tb)
		}
	}
	if fa, err := strconv.ParseFloat(a, 64); err == nil {
		if fb, err := strconv.ParseFloat(b, 64); err == nil {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(a, b)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		raw, _ := json.Marshal(val)
		return string(raw)
	}
}

// normalize round-trips row through JSON so seeded values look like decoded ones.
func normalize(row Row) Row {
	raw, err := json.Marshal(row)
	if err != nil {
		return cloneRow(row)
	}
	var out Row
	if err := json.Unmarshal(raw, &out); err != nil {
		return cloneRow(row)
	}
	return out
}

func cloneRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
