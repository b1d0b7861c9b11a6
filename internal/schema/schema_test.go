package schema

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jackzampolin/oracle/internal/defra"
	"github.com/jackzampolin/oracle/internal/testutil"
)

func TestAll(t *testing.T) {
	schemas, err := All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(schemas) != len(registry) {
		t.Fatalf("All() returned %d schemas, want %d", len(schemas), len(registry))
	}

	s := schemas[0]
	if s.Name != ProphecyCollection {
		t.Errorf("first schema = %s, want %s", s.Name, ProphecyCollection)
	}
	for _, field := range []string{"type Prophecy", "prophecy_id", "text", "theme", "timestamp", "created_at", "account"} {
		if !strings.Contains(s.SDL, field) {
			t.Errorf("Prophecy SDL missing %q", field)
		}
	}
}

func TestGet(t *testing.T) {
	t.Run("existing schema", func(t *testing.T) {
		s, err := Get(ProphecyCollection)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if s.SDL == "" {
			t.Error("SDL is empty")
		}
	})

	t.Run("non-existent schema", func(t *testing.T) {
		if _, err := Get("NonExistent"); err == nil {
			t.Error("expected error for non-existent schema")
		}
	})
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"successful initialization", http.StatusOK, "", false},
		{"collection already exists", http.StatusBadRequest, "collection already exists. Name: Prophecy", false},
		{"invalid schema", http.StatusBadRequest, "invalid schema syntax", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v0/schema" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := Initialize(context.Background(), defra.NewClient(server.URL), testutil.DiscardLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("Initialize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if calls.Load() != int32(len(registry)) {
				t.Errorf("schema endpoint called %d times, want %d", calls.Load(), len(registry))
			}
		})
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	fake := testutil.NewFakeDefra(t)
	client := defra.NewClient(fake.URL())

	for i := 0; i < 2; i++ {
		if err := Initialize(context.Background(), client, nil); err != nil {
			t.Fatalf("Initialize() call %d error = %v", i+1, err)
		}
	}
	if !fake.HasCollection(ProphecyCollection) {
		t.Error("expected Prophecy collection to be registered")
	}
}

func TestIsAlreadyExistsError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"already exists", errors.New("collection already exists. Name: Prophecy"), true},
		{"other error", errors.New("invalid syntax"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAlreadyExistsError(tt.err); got != tt.want {
				t.Errorf("isAlreadyExistsError() = %v, want %v", got, tt.want)
			}
		})
	}
}
