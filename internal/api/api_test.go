package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/ok":
			w.Write([]byte(`{"status":"ok"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/echo":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			json.NewEncoder(w).Encode(body)
		case r.URL.Path == "/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"prophecy not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(srv.URL)

	t.Run("get", func(t *testing.T) {
		var resp struct{ Status string }
		if err := c.Get(ctx, "/ok", &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != "ok" {
			t.Errorf("status = %q", resp.Status)
		}
	})

	t.Run("post", func(t *testing.T) {
		var resp map[string]string
		if err := c.Post(ctx, "/echo", map[string]string{"theme": "nft"}, &resp); err != nil {
			t.Fatal(err)
		}
		if resp["theme"] != "nft" {
			t.Errorf("resp = %v", resp)
		}
	})

	t.Run("error body", func(t *testing.T) {
		err := c.Get(ctx, "/missing", nil)
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected *StatusError, got %v", err)
		}
		if se.Code != http.StatusNotFound || se.Message != "prophecy not found" {
			t.Errorf("err = %+v", se)
		}
	})

	t.Run("plain error", func(t *testing.T) {
		err := c.Delete(ctx, "/other")
		if err == nil || !strings.Contains(err.Error(), "boom") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestOutputTo(t *testing.T) {
	data := map[string]any{"id": "prophecy_1"}

	var buf bytes.Buffer
	if err := OutputTo(&buf, OutputFormatJSON, data); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"id": "prophecy_1"`) {
		t.Errorf("json = %s", buf.String())
	}

	buf.Reset()
	if err := OutputTo(&buf, OutputFormatYAML, data); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "id: prophecy_1" {
		t.Errorf("yaml = %s", buf.String())
	}

	if err := OutputTo(&buf, "xml", data); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestOutputToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.json")
	if err := OutputToFile(map[string]int{"n": 1}, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil || got["n"] != 1 {
		t.Errorf("file = %s", data)
	}
}

type stubEndpoint struct {
	use   string
	group string
}

func (e stubEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/" + e.use, func(w http.ResponseWriter, r *http.Request) {}
}
func (e stubEndpoint) RequiresInit() bool { return e.group != "" }
func (e stubEndpoint) Command(func() string) *cobra.Command {
	return &cobra.Command{Use: e.use}
}

type groupedStub struct{ stubEndpoint }

func (g groupedStub) Group() (string, string) { return g.group, "grouped" }

func TestRegistry_BuildCommands(t *testing.T) {
	r := NewRegistry()
	r.Register(stubEndpoint{use: "health"})
	r.Register(groupedStub{stubEndpoint{use: "get", group: "prophecy"}})
	r.Register(groupedStub{stubEndpoint{use: "list", group: "prophecy"}})

	root := r.BuildCommands(func() string { return "" })
	if cmd, _, err := root.Find([]string{"health"}); err != nil || cmd.Use != "health" {
		t.Errorf("health command not found: %v", err)
	}
	group, _, err := root.Find([]string{"prophecy"})
	if err != nil || len(group.Commands()) != 2 {
		t.Fatalf("prophecy group = %v, %v", group, err)
	}
}

func TestRegistry_RegisterRoutes(t *testing.T) {
	r := NewRegistry()
	r.Register(stubEndpoint{use: "open"})
	r.Register(groupedStub{stubEndpoint{use: "guarded", group: "g"}})

	mux := http.NewServeMux()
	r.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	for path, want := range map[string]int{"/open": http.StatusOK, "/guarded": http.StatusServiceUnavailable} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != want {
			t.Errorf("%s status = %d, want %d", path, rec.Code, want)
		}
	}
}
