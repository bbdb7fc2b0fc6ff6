package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"assetrepo/internal/jsonbind"
	"assetrepo/internal/model"
	"assetrepo/internal/repository"
)

// RecordedRequest is one request seen by a FakeRepository.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// FakeRepository is an in-process REST asset repository. Assets are kept
// as the raw JSON objects clients sent, so tests can seed documents the
// model cannot express (future versions, unknown fields).
type FakeRepository struct {
	Server *httptest.Server

	// Credentials required when non-empty.
	APIKey   string
	UserID   string
	Password string

	mu            sync.Mutex
	clock         *StubClock
	assetIDs      repository.IDGenerator
	attachmentIDs repository.IDGenerator
	assets        map[string]map[string]any
	order         []string
	attachments   map[string][]map[string]any
	content       map[string][]byte
	requests      []RecordedRequest
	omitCount     bool
}

// NewFakeRepository starts a fake repository that is shut down when the
// test ends. Assets get ids "asset-N", attachments "att-N", and every date
// is FixedClock's.
func NewFakeRepository(t *testing.T) *FakeRepository {
	t.Helper()
	f := &FakeRepository{
		clock:         FixedClock(),
		assetIDs:      NewPrefixedIDGenerator("asset"),
		attachmentIDs: NewPrefixedIDGenerator("att"),
		assets:        map[string]map[string]any{},
		attachments:   map[string][]map[string]any{},
		content:       map[string][]byte{},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(f.record)
	r.Use(f.authenticate)
	r.Route("/assets", func(r chi.Router) {
		r.Head("/", f.status)
		r.Get("/", f.list)
		r.Post("/", f.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", f.get)
			r.Put("/", f.update)
			r.Delete("/", f.delete)
			r.Put("/state", f.state)
			r.Post("/attachments", f.attach)
			r.Get("/attachments/{attachmentID}", f.attachmentContent)
			r.Delete("/attachments/{attachmentID}", f.detach)
		})
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL clients should be configured with.
func (f *FakeRepository) URL() string { return f.Server.URL }

// OmitCountHeader makes HEAD /assets answer without its count header.
func (f *FakeRepository) OmitCountHeader() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.omitCount = true
}

// Seed stores a raw asset document and returns its id.
func (f *FakeRepository) Seed(t *testing.T, doc string) string {
	t.Helper()
	parsed, err := jsonbind.ParseDocument([]byte(doc))
	if err != nil {
		t.Fatalf("Seed() invalid document: %v", err)
	}
	raw, ok := parsed.(map[string]any)
	if !ok {
		t.Fatalf("Seed() document is not an object")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store(raw)
}

// SeedAttachment stores content for an existing asset and returns the
// attachment id.
func (f *FakeRepository) SeedAttachment(assetID, name string, typ model.AttachmentType, content []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.storeAttachment(assetID, map[string]any{"name": name, "type": string(typ)}, content)
}

// Requests returns a copy of every request received so far.
func (f *FakeRepository) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// LastRequest returns the most recent request with the given method.
func (f *FakeRepository) LastRequest(method string) (RecordedRequest, bool) {
	reqs := f.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method {
			return reqs[i], true
		}
	}
	return RecordedRequest{}, false
}

// AssetCount returns the number of stored assets.
func (f *FakeRepository) AssetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.assets)
}

// AttachmentContent returns the stored bytes of an attachment.
func (f *FakeRepository) AttachmentContent(id string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.content[id]
	return c, ok
}

func (f *FakeRepository) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeRepository) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.APIKey != "" && r.URL.Query().Get("apiKey") != f.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		if f.UserID != "" {
			user, pass, ok := r.BasicAuth()
			if !ok {
				user, pass = r.Header.Get("userId"), r.Header.Get("password")
			}
			if user != f.UserID || pass != f.Password {
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeRepository) status(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.omitCount {
		w.Header().Set("count", strconv.Itoa(len(f.assets)))
	}
	w.WriteHeader(http.StatusOK)
}

func (f *FakeRepository) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	query := r.URL.Query()
	search := strings.ToLower(query.Get("q"))
	out := []any{}
	for _, id := range f.order {
		doc, ok := f.assets[id]
		if !ok || !matchesQuery(doc, query) {
			continue
		}
		if search != "" && !matchesSearch(doc, search) {
			continue
		}
		out = append(out, doc)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeRepository) get(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "id")
	doc, ok := f.assets[id]
	if !ok {
		writeError(w, http.StatusNotFound, "asset "+id+" not found")
		return
	}
	writeJSON(w, http.StatusOK, f.withAttachments(id, doc))
}

func (f *FakeRepository) create(w http.ResponseWriter, r *http.Request) {
	raw, ok := readObject(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, has := raw["_id"]; has {
		writeError(w, http.StatusBadRequest, "new assets must not carry an _id")
		return
	}
	id := f.store(raw)
	writeJSON(w, http.StatusOK, f.assets[id])
}

func (f *FakeRepository) update(w http.ResponseWriter, r *http.Request) {
	raw, ok := readObject(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "id")
	old, exists := f.assets[id]
	if !exists {
		writeError(w, http.StatusNotFound, "asset "+id+" not found")
		return
	}
	raw["_id"] = id
	raw["createdOn"] = old["createdOn"]
	raw["state"] = old["state"]
	raw["lastUpdatedOn"] = f.clock.Date()
	f.assets[id] = raw
	writeJSON(w, http.StatusOK, raw)
}

func (f *FakeRepository) delete(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := f.assets[id]; !ok {
		writeError(w, http.StatusNotFound, "asset "+id+" not found")
		return
	}
	if len(f.attachments[id]) > 0 {
		writeError(w, http.StatusConflict, "asset "+id+" still has attachments")
		return
	}
	delete(f.assets, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeRepository) state(w http.ResponseWriter, r *http.Request) {
	raw, ok := readObject(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "id")
	doc, exists := f.assets[id]
	if !exists {
		writeError(w, http.StatusNotFound, "asset "+id+" not found")
		return
	}
	actionName, _ := raw["action"].(string)
	action, err := model.ParseStateAction(actionName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	current := model.StateDraft
	if s, ok := doc["state"].(string); ok {
		for _, candidate := range []model.State{model.StateDraft, model.StateAwaitingApproval, model.StateNeedMoreInfo, model.StatePublished} {
			if candidate.Value() == s {
				current = candidate
			}
		}
	}
	next, err := action.Next(current)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc["state"] = next.Value()
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeRepository) attach(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := r.URL.Query().Get("name")
	var meta map[string]any
	var content []byte

	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		mr := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad multipart body: "+err.Error())
				return
			}
			data, _ := io.ReadAll(part)
			if part.FormName() == "attachmentInfo" {
				doc, err := jsonbind.ParseDocument(data)
				if err != nil {
					writeError(w, http.StatusBadRequest, "bad attachmentInfo")
					return
				}
				meta, _ = doc.(map[string]any)
			} else {
				content = data
			}
		}
	} else {
		m, ok := readObject(w, r)
		if !ok {
			return
		}
		meta = m
	}
	if meta == nil {
		writeError(w, http.StatusBadRequest, "missing attachment metadata")
		return
	}
	if name != "" {
		meta["name"] = name
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assets[id]; !ok {
		writeError(w, http.StatusNotFound, "asset "+id+" not found")
		return
	}
	attID := f.storeAttachment(id, meta, content)
	writeJSON(w, http.StatusOK, f.findAttachment(id, attID))
}

func (f *FakeRepository) attachmentContent(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.content[chi.URLParam(r, "attachmentID")]
	if !ok {
		writeError(w, http.StatusNotFound, "attachment not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

func (f *FakeRepository) detach(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := chi.URLParam(r, "id")
	attID := chi.URLParam(r, "attachmentID")
	atts := f.attachments[id]
	for i, a := range atts {
		if a["_id"] == attID {
			f.attachments[id] = append(atts[:i:i], atts[i+1:]...)
			delete(f.content, attID)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "attachment not found")
}

// store must be called with f.mu held.
func (f *FakeRepository) store(raw map[string]any) string {
	id, _ := raw["_id"].(string)
	if id == "" {
		id = f.assetIDs.New()
		raw["_id"] = id
	}
	now := f.clock.Date()
	if _, ok := raw["createdOn"]; !ok {
		raw["createdOn"] = now
	}
	raw["lastUpdatedOn"] = now
	if _, ok := raw["state"]; !ok {
		raw["state"] = model.StateDraft.Value()
	}
	f.assets[id] = raw
	f.order = append(f.order, id)
	return id
}

// storeAttachment must be called with f.mu held.
func (f *FakeRepository) storeAttachment(assetID string, meta map[string]any, content []byte) string {
	attID := f.attachmentIDs.New()
	meta["_id"] = attID
	meta["assetId"] = assetID
	meta["uploadOn"] = f.clock.Date()
	if content != nil {
		f.content[attID] = content
		meta["size"] = json.Number(strconv.Itoa(len(content)))
		meta["url"] = fmt.Sprintf("%s/assets/%s/attachments/%s", f.Server.URL, assetID, attID)
	}
	f.attachments[assetID] = append(f.attachments[assetID], meta)
	return attID
}

func (f *FakeRepository) findAttachment(assetID, attID string) map[string]any {
	for _, a := range f.attachments[assetID] {
		if a["_id"] == attID {
			return a
		}
	}
	return nil
}

func (f *FakeRepository) withAttachments(id string, doc map[string]any) map[string]any {
	atts := f.attachments[id]
	if len(atts) == 0 {
		return doc
	}
	out := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	list := make([]any, 0, len(atts))
	for _, a := range atts {
		list = append(list, a)
	}
	out["attachments"] = list
	return out
}

// matchesQuery applies "key=v1|v2" filters, where key is a dotted path that
// descends through nested objects and arrays.
func matchesQuery(doc map[string]any, query url.Values) bool {
	for key, values := range query {
		if key == "apiKey" || key == "q" || len(values) == 0 {
			continue
		}
		accepted := strings.Split(values[0], "|")
		found := collect(doc, strings.Split(key, "."))
		if !intersects(found, accepted) {
			return false
		}
	}
	return true
}

func matchesSearch(doc map[string]any, search string) bool {
	for _, key := range []string{"name", "description", "shortDescription"} {
		if s, ok := doc[key].(string); ok && strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

func collect(v any, path []string) []string {
	if len(path) == 0 {
		switch x := v.(type) {
		case string:
			return []string{x}
		case []any:
			var out []string
			for _, e := range x {
				out = append(out, collect(e, nil)...)
			}
			return out
		case nil:
			return nil
		default:
			return []string{fmt.Sprint(x)}
		}
	}
	switch x := v.(type) {
	case map[string]any:
		return collect(x[path[0]], path[1:])
	case []any:
		var out []string
		for _, e := range x {
			out = append(out, collect(e, path)...)
		}
		return out
	}
	return nil
}

func intersects(found, accepted []string) bool {
	sort.Strings(found)
	for _, a := range accepted {
		i := sort.SearchStrings(found, a)
		if i < len(found) && found[i] == a {
			return true
		}
	}
	return false
}

func readObject(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return nil, false
	}
	doc, err := jsonbind.ParseDocument(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON")
		return nil, false
	}
	raw, ok := doc.(map[string]any)
	if !ok {
		writeError(w, http.StatusBadRequest, "expected a JSON object")
		return nil, false
	}
	return raw, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := jsonbind.MarshalDocument(v, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}
