package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
)

var (
	sdlTypeRe     = regexp.MustCompile(`type\s+(\w+)`)
	upsertRe      = regexp.MustCompile(`upsert_(\w+)\(filter: \{(\w+): \{_eq: \$(\w+)\}\}`)
	queryFilterRe = regexp.MustCompile(`\{ (\w+)\(filter: \{(\w+): \{_eq: \$(\w+)\}\}`)
	queryAllRe    = regexp.MustCompile(`^\{ (\w+)`)
)

// FakeDefra is an in-memory stand-in for a DefraDB node's HTTP API.
// It understands the health check, schema registration, and the
// variable-based upsert and equality-filter queries the defra client emits.
type FakeDefra struct {
	server *httptest.Server

	mu           sync.Mutex
	collections  map[string]bool
	docs         map[string]map[string]map[string]any // collection -> key -> fields
	unhealthy    bool
	failing      bool
	graphqlCalls int
	nextDoc      int
}

// NewFakeDefra starts a fake DefraDB server that is closed when the test ends.
func NewFakeDefra(t *testing.T) *FakeDefra {
	t.Helper()
	f := &FakeDefra{
		collections: make(map[string]bool),
		docs:        make(map[string]map[string]map[string]any),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the base URL of the fake node.
func (f *FakeDefra) URL() string {
	return f.server.URL
}

// SetHealthy toggles the /health-check response.
func (f *FakeDefra) SetHealthy(healthy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unhealthy = !healthy
}

// SetFailing makes every GraphQL request return a 500.
func (f *FakeDefra) SetFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

// HasCollection reports whether a schema with the given type name was added.
func (f *FakeDefra) HasCollection(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collections[name]
}

// Doc returns the stored fields for key in collection.
func (f *FakeDefra) Doc(collection, key string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[collection][key]
	return copyDoc(doc), ok
}

// Count returns the number of documents in collection.
func (f *FakeDefra) Count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs[collection])
}

// GraphQLCalls returns how many GraphQL requests were received.
func (f *FakeDefra) GraphQLCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.graphqlCalls
}

func (f *FakeDefra) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/health-check":
		f.mu.Lock()
		unhealthy := f.unhealthy
		f.mu.Unlock()
		if unhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPost && r.URL.Path == "/api/v0/schema":
		f.handleSchema(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/api/v0/graphql":
		f.handleGraphQL(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeDefra) handleSchema(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	m := sdlTypeRe.FindStringSubmatch(string(body))
	if m == nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid schema"}`))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collections[m[1]] {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"error":"collection already exists. Name: %s"}`, m[1])
		return
	}
	f.collections[m[1]] = true
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `[{"Name":%q}]`, m[1])
}

func (f *FakeDefra) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.graphqlCalls++

	if f.failing {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("node unavailable"))
		return
	}

	var data map[string]any
	var gqlErr string
	if m := upsertRe.FindStringSubmatch(req.Query); m != nil {
		data, gqlErr = f.upsert(m[1], req.Variables[m[3]], req.Variables)
	} else if i := strings.Index(req.Query, "{"); i >= 0 {
		data, gqlErr = f.query(req.Query[i:], req.Variables)
	} else {
		gqlErr = "syntax error"
	}

	w.Header().Set("Content-Type", "application/json")
	if gqlErr != "" {
		_ = json.NewEncoder(w).Encode(map[string]any{"errors": []map[string]string{{"message": gqlErr}}})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (f *FakeDefra) upsert(collection string, key any, fields map[string]any) (map[string]any, string) {
	if !f.collections[collection] {
		return nil, fmt.Sprintf("collection not found: %s", collection)
	}
	keyStr, _ := key.(string)
	if f.docs[collection] == nil {
		f.docs[collection] = make(map[string]map[string]any)
	}

	doc, ok := f.docs[collection][keyStr]
	if !ok {
		f.nextDoc++
		doc = map[string]any{"_docID": fmt.Sprintf("bae-%04d", f.nextDoc)}
		f.docs[collection][keyStr] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}

	return map[string]any{
		"upsert_" + collection: []any{map[string]any{
			"_docID":   doc["_docID"],
			"_version": []any{map[string]any{"cid": "bafy-" + keyStr}},
		}},
	}, ""
}

func (f *FakeDefra) query(query string, vars map[string]any) (map[string]any, string) {
	var collection string
	var matches []any

	if m := queryFilterRe.FindStringSubmatch(query); m != nil {
		collection = m[1]
		want := vars[m[3]]
		for _, doc := range f.docs[collection] {
			if doc[m[2]] == want {
				matches = append(matches, copyDoc(doc))
			}
		}
	} else if m := queryAllRe.FindStringSubmatch(query); m != nil {
		collection = m[1]
		for _, doc := range f.docs[collection] {
			matches = append(matches, copyDoc(doc))
		}
	} else {
		return nil, "unsupported query"
	}

	if !f.collections[collection] {
		return nil, fmt.Sprintf("collection not found: %s", collection)
	}
	if matches == nil {
		matches = []any{}
	}
	return map[string]any{collection: matches}, ""
}

func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
