// Package odootest provides an in-memory Odoo server speaking the JSON-RPC
// routes of the MCP session-mirror controller, for use in tests.
package odootest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults accepted by a new Server.
const (
	Database = "test"
	Login    = "admin"
	Password = "admin"
	APIKey   = "0123456789abcdef"
	UserID   = 2
	UserName = "Mitchell Admin"
)

// Field describes one field of a fake model.
type Field struct {
	Type     string `json:"type"`
	String   string `json:"string"`
	Required bool   `json:"required"`
	Readonly bool   `json:"readonly"`
	Relation string `json:"relation,omitempty"`
}

type model struct {
	fields  map[string]Field
	records map[int64]map[string]any
	next    int64
}

// Override intercepts requests to one path. Returning false falls through to
// the regular handler.
type Override func(w http.ResponseWriter, r *http.Request, params map[string]any) bool

// Server is a fake Odoo. The zero value is not usable; call NewServer.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	loginDelay time.Duration
	sessions   map[string]bool
	seq        int
	models     map[string]*model
	hits       map[string]int
	overrides  map[string]Override
	lastLang   string

	logins atomic.Int64
}

// NewServer starts a fake Odoo with res.partner defined and no records.
// It is closed when the test ends.
func NewServer(tb interface{ Cleanup(func()) }) *Server {
	s := &Server{
		sessions:  map[string]bool{},
		models:    map[string]*model{},
		hits:      map[string]int{},
		overrides: map[string]Override{},
	}
	s.AddModel("res.partner", map[string]Field{
		"name":  {Type: "char", String: "Name", Required: true},
		"email": {Type: "char", String: "Email"},
		"phone": {Type: "char", String: "Phone"},
	})
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	tb.Cleanup(s.Close)
	return s
}

// AddModel defines a model. An empty field map yields a model with no fields.
func (s *Server) AddModel(name string, fields map[string]Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fields == nil {
		fields = map[string]Field{}
	}
	s.models[name] = &model{fields: fields, records: map[int64]map[string]any{}, next: 1}
}

// Seed inserts a record directly and returns its id.
func (s *Server) Seed(name string, values map[string]any) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.models[name].insert(values)
}

// Override installs fn for path.
func (s *Server) Override(path string, fn Override) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[path] = fn
}

// SetLoginDelay slows down every successful login by d.
func (s *Server) SetLoginDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginDelay = d
}

// Expire invalidates every session, as a server restart would.
func (s *Server) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = map[string]bool{}
}

// Logins returns the number of successful logins served.
func (s *Server) Logins() int64 { return s.logins.Load() }

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// LastLang returns context.lang of the most recent authenticated call.
func (s *Server) LastLang() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLang
}

type request struct {
	ID     any            `json:"id"`
	Params map[string]any `json:"params"`
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	body, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	s.mu.Lock()
	s.hits[r.URL.Path]++
	override := s.overrides[r.URL.Path]
	s.mu.Unlock()

	if override != nil && override(w, r, req.Params) {
		return
	}

	if r.URL.Path == "/web/session/authenticate" {
		s.authenticate(w, req)
		return
	}

	if !s.authorized(r) {
		WriteFault(w, req.ID, 100, "odoo.http.SessionExpiredException", "Session expired")
		return
	}
	if ctx, ok := req.Params["context"].(map[string]any); ok {
		s.mu.Lock()
		s.lastLang, _ = ctx["lang"].(string)
		s.mu.Unlock()
	}

	var result any
	switch {
	case r.URL.Path == "/mcp/capabilities":
		result = s.capabilities()
	case r.URL.Path == "/mcp/search":
		result = s.search(req.Params)
	case r.URL.Path == "/mcp/execute":
		result = s.execute(req.Params)
	case strings.HasPrefix(r.URL.Path, "/mcp/model/") && strings.HasSuffix(r.URL.Path, "/schema"):
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/mcp/model/"), "/schema")
		result = s.schema(name, req.Params)
	default:
		WriteFault(w, req.ID, 404, "werkzeug.exceptions.NotFound", "404: Not Found")
		return
	}
	WriteResult(w, req.ID, result)
}

func (s *Server) authenticate(w http.ResponseWriter, req request) {
	login, _ := req.Params["login"].(string)
	password, _ := req.Params["password"].(string)
	db, _ := req.Params["db"].(string)
	if db != Database || login != Login || password != Password {
		WriteFault(w, req.ID, 200, "odoo.exceptions.AccessDenied", "Access Denied")
		return
	}
	s.mu.Lock()
	delay := s.loginDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	s.seq++
	sid := fmt.Sprintf("sid-%d", s.seq)
	s.sessions[sid] = true
	s.mu.Unlock()
	s.logins.Add(1)

	http.SetCookie(w, &http.Cookie{Name: "session_id", Value: sid, Path: "/", HttpOnly: true})
	WriteResult(w, req.ID, map[string]any{"uid": UserID, "name": UserName, "username": login, "db": db})
}

func (s *Server) authorized(r *http.Request) bool {
	if r.Header.Get("Authorization") == "Bearer "+APIKey {
		return true
	}
	ck, err := r.Cookie("session_id")
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[ck.Value]
}

func (s *Server) capabilities() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.models))
	for name := range s.models {
		names = append(names, name)
	}
	sort.Strings(names)

	models := make([]map[string]any, 0, len(names))
	menus := make([]map[string]any, 0, len(names))
	for i, name := range names {
		models = append(models, map[string]any{"model": name, "name": name, "description": ""})
		menus = append(menus, map[string]any{"id": i + 1, "name": name, "parent_id": false, "action": "ir.actions.act_window", "model": name})
	}
	return map[string]any{
		"user":   map[string]any{"id": UserID, "name": UserName, "login": Login},
		"menus":  menus,
		"models": models,
	}
}

func (s *Server) search(p map[string]any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, _ := p["model"].(string)
	m, ok := s.models[name]
	if !ok {
		return map[string]any{"error": fmt.Sprintf("'%s'", name)}
	}
	domain, _ := p["domain"].([]any)
	ids := m.filter(domain)
	if order, _ := p["order"].(string); strings.HasSuffix(strings.TrimSpace(order), "desc") {
		sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	}
	if off, ok := p["offset"].(float64); ok && int(off) < len(ids) {
		ids = ids[int(off):]
	} else if ok {
		ids = nil
	}
	if limit, ok := p["limit"].(float64); ok && limit > 0 && int(limit) < len(ids) {
		ids = ids[:int(limit)]
	}

	var fields []string
	if raw, ok := p["fields"].([]any); ok {
		for _, f := range raw {
			if fs, ok := f.(string); ok {
				fields = append(fields, fs)
			}
		}
	}

	records := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		records = append(records, m.project(id, fields))
	}
	return map[string]any{"model": name, "count": len(records), "records": records}
}

func (s *Server) execute(p map[string]any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, _ := p["model"].(string)
	method, _ := p["method"].(string)
	m, ok := s.models[name]
	if !ok {
		return map[string]any{"error": "Model not found: " + name, "details": fmt.Sprintf("'%s'", name)}
	}
	ids := toIDs(p["ids"])
	values, _ := p["values"].(map[string]any)

	switch method {
	case "create":
		if len(values) == 0 {
			return map[string]any{"error": "create requires values"}
		}
		return map[string]any{"success": true, "id": m.insert(values)}
	case "write":
		if len(ids) == 0 || len(values) == 0 {
			return map[string]any{"error": "write requires ids and values"}
		}
		if !m.hasAll(ids) {
			return map[string]any{"error": "Record does not exist or has been deleted."}
		}
		for _, id := range ids {
			for k, v := range values {
				m.records[id][k] = v
			}
		}
		return map[string]any{"success": true, "ids": ids}
	case "unlink":
		if len(ids) == 0 {
			return map[string]any{"error": "unlink requires ids"}
		}
		// Missing ids are skipped, as Odoo does.
		for _, id := range ids {
			delete(m.records, id)
		}
		return map[string]any{"success": true, "ids": ids}
	case "search_count":
		var domain []any
		if args, ok := p["args"].([]any); ok && len(args) > 0 {
			domain, _ = args[0].([]any)
		}
		n := len(m.filter(domain))
		if n == 0 {
			return map[string]any{"success": true, "result": nil}
		}
		return map[string]any{"success": true, "result": fmt.Sprint(n)}
	default:
		return map[string]any{"error": fmt.Sprintf("'%s' object has no attribute '%s'", name, method)}
	}
}

func (s *Server) schema(name string, p map[string]any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.models[name]
	if !ok {
		return map[string]any{"error": fmt.Sprintf("'%s'", name), "model": name}
	}
	viewType, _ := p["view_type"].(string)
	if viewType == "" {
		viewType = "form"
	}
	fields := make(map[string]any, len(m.fields))
	for fname, f := range m.fields {
		fields[fname] = f
	}
	return map[string]any{"model": name, "view_type": viewType, "fields": fields}
}

// WriteResult writes a JSON-RPC success response.
func WriteResult(w http.ResponseWriter, id any, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": id, "result": result})
}

// WriteFault writes a JSON-RPC error response the way Odoo serializes an
// exception.
func WriteFault(w http.ResponseWriter, id any, code int, name, message string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": "Odoo Server Error",
			"data":    map[string]any{"name": name, "message": message, "debug": "Traceback (most recent call last): ..."},
		},
	})
}

func (m *model) insert(values map[string]any) int64 {
	id := m.next
	m.next++
	rec := map[string]any{"id": id}
	for k, v := range values {
		rec[k] = v
	}
	m.records[id] = rec
	return id
}

func (m *model) hasAll(ids []int64) bool {
	for _, id := range ids {
		if _, ok := m.records[id]; !ok {
			return false
		}
	}
	return true
}

func (m *model) filter(domain []any) []int64 {
	ids := make([]int64, 0, len(m.records))
	for id, rec := range m.records {
		if match(rec, domain) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *model) project(id int64, fields []string) map[string]any {
	rec := m.records[id]
	out := map[string]any{"id": id}
	if len(fields) == 0 {
		for fname := range m.fields {
			out[fname] = false
		}
		for k, v := range rec {
			out[k] = v
		}
		return out
	}
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		} else {
			out[f] = false
		}
	}
	return out
}

func toIDs(v any) []int64 {
	raw, _ := v.([]any)
	ids := make([]int64, 0, len(raw))
	for _, x := range raw {
		if f, ok := x.(float64); ok {
			ids = append(ids, int64(f))
		}
	}
	return ids
}
