package contentstore

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/oracle/internal/defra"
	"github.com/jackzampolin/oracle/internal/schema"
	"github.com/jackzampolin/oracle/internal/testutil"
)

// stubRemote is an in-memory RemoteStore with switchable failures.
type stubRemote struct {
	mu       sync.Mutex
	setupErr error
	putErr   error
	getErr   error
	records  map[string]Record
	setups   int
	puts     int
	gets     int
}

func newStubRemote() *stubRemote {
	return &stubRemote{records: make(map[string]Record)}
}

func (s *stubRemote) Setup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setups++
	return s.setupErr
}

func (s *stubRemote) Put(ctx context.Context, id string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.records[id] = rec
	return nil
}

func (s *stubRemote) Get(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return Record{}, s.getErr
	}
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrRemoteMiss
	}
	return rec, nil
}

func (s *stubRemote) counts() (setups, puts, gets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setups, s.puts, s.gets
}

var errNodeDown = errors.New("node down")

func testRecord(id string) Record {
	return NewRecord(id, "Liquidity flows like rivers...", "defi", time.Unix(1700000000, 0))
}

func TestNew_ModeSelection(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		remote     func() *stubRemote
		nilRemote  bool
		wantMode   Mode
		wantSetups int
	}{
		{"force local skips probe", Config{ForceLocal: true}, newStubRemote, false, ModeLocal, 0},
		{"nil remote", Config{}, nil, true, ModeLocal, 0},
		{"setup succeeds", Config{}, newStubRemote, false, ModeRemote, 1},
		{"setup fails", Config{}, func() *stubRemote {
			r := newStubRemote()
			r.setupErr = errNodeDown
			return r
		}, false, ModeLocal, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var remote RemoteStore
			var stub *stubRemote
			if !tt.nilRemote {
				stub = tt.remote()
				remote = stub
			}

			s := New(context.Background(), tt.cfg, remote, newTestLocal(t), testutil.DiscardLogger())
			if s.Mode() != tt.wantMode {
				t.Errorf("Mode() = %s, want %s", s.Mode(), tt.wantMode)
			}
			if stub != nil {
				if setups, _, _ := stub.counts(); setups != tt.wantSetups {
					t.Errorf("Setup called %d times, want %d", setups, tt.wantSetups)
				}
			}
		})
	}
}

func TestStore_ForceLocalRoundTrip(t *testing.T) {
	remote := newStubRemote()
	s := New(context.Background(), Config{ForceLocal: true}, remote, newTestLocal(t), testutil.DiscardLogger())

	want := testRecord("prophecy_1700000000")
	if !s.Put(context.Background(), want.ID, want) {
		t.Fatal("Put() = false, want true")
	}
	got, ok := s.Get(context.Background(), want.ID)
	if !ok {
		t.Fatal("Get() ok = false")
	}
	assertSameRecord(t, got, want)

	if _, puts, gets := remote.counts(); puts != 0 || gets != 0 {
		t.Errorf("remote touched in force-local mode: puts=%d gets=%d", puts, gets)
	}
}

func TestStore_ReadsOffsetlessFile(t *testing.T) {
	local := newTestLocal(t)
	legacy := `{"prophecy_1700000000":{"text":"old","timestamp":1700000000,"created_at":"2023-11-14T22:13:20.123456"}}`
	if err := os.WriteFile(local.Path(), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(context.Background(), Config{ForceLocal: true}, nil, local, testutil.DiscardLogger())

	if rec, ok := s.Get(context.Background(), "prophecy_1700000000"); !ok || rec.Text != "old" {
		t.Errorf("Get(old) = %+v, %v", rec, ok)
	}
	want := testRecord("prophecy_1700000100")
	if !s.Put(context.Background(), want.ID, want) {
		t.Fatal("Put() = false, want true")
	}
	got, ok := s.Get(context.Background(), want.ID)
	if !ok {
		t.Fatal("Get(new) ok = false")
	}
	assertSameRecord(t, got, want)
	if n := len(s.List(0)); n != 2 {
		t.Errorf("List() len = %d, want 2", n)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := New(context.Background(), Config{ForceLocal: true}, nil, newTestLocal(t), testutil.DiscardLogger())
	if _, ok := s.Get(context.Background(), "prophecy_0"); ok {
		t.Error("Get() on empty store returned ok")
	}
}

func TestStore_RemotePutSkipsLocal(t *testing.T) {
	local := newTestLocal(t)
	s := New(context.Background(), Config{}, newStubRemote(), local, testutil.DiscardLogger())

	rec := testRecord("prophecy_1")
	if !s.Put(context.Background(), rec.ID, rec) {
		t.Fatal("Put() = false")
	}
	if _, ok, _ := local.Get(rec.ID); ok {
		t.Error("remote success should not write locally without dual write")
	}
	if _, ok := s.Get(context.Background(), rec.ID); !ok {
		t.Error("Get() should find the remote record")
	}
}

func TestStore_DualWrite(t *testing.T) {
	local := newTestLocal(t)
	s := New(context.Background(), Config{DualWrite: true}, newStubRemote(), local, testutil.DiscardLogger())

	rec := testRecord("prophecy_1")
	if !s.Put(context.Background(), rec.ID, rec) {
		t.Fatal("Put() = false")
	}
	if _, ok, _ := local.Get(rec.ID); !ok {
		t.Error("dual write should also write locally")
	}
}

func TestStore_RemotePutFailure(t *testing.T) {
	t.Run("falls back to local", func(t *testing.T) {
		remote := newStubRemote()
		remote.putErr = errNodeDown
		local := newTestLocal(t)
		s := New(context.Background(), Config{}, remote, local, testutil.DiscardLogger())

		rec := testRecord("prophecy_1")
		if !s.Put(context.Background(), rec.ID, rec) {
			t.Fatal("Put() = false, want true from local fallback")
		}
		got, ok, err := local.Get(rec.ID)
		if err != nil || !ok {
			t.Fatalf("local.Get() = %v, %v", ok, err)
		}
		assertSameRecord(t, got, rec)
	})

	t.Run("local unwritable", func(t *testing.T) {
		remote := newStubRemote()
		remote.putErr = errNodeDown
		local := newTestLocal(t)
		s := New(context.Background(), Config{}, remote, local, testutil.DiscardLogger())
		breakLocal(t, local)

		if s.Put(context.Background(), "prophecy_1", testRecord("prophecy_1")) {
			t.Error("Put() = true, want false when both backends fail")
		}
	})
}

func TestStore_ForceLocalUnwritable(t *testing.T) {
	local := newTestLocal(t)
	s := New(context.Background(), Config{ForceLocal: true}, nil, local, testutil.DiscardLogger())
	breakLocal(t, local)

	if s.Put(context.Background(), "prophecy_1", testRecord("prophecy_1")) {
		t.Error("Put() = true on unwritable local store")
	}
	if _, ok := s.Get(context.Background(), "prophecy_1"); ok {
		t.Error("Get() = ok on unreadable local store")
	}
	if got := s.List(6); got != nil {
		t.Errorf("List() = %v, want nil", got)
	}
}

func TestStore_GetFallsBackToLocal(t *testing.T) {
	tests := []struct {
		name   string
		getErr error
	}{
		{"remote miss", nil},
		{"remote error", errNodeDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newStubRemote()
			remote.getErr = tt.getErr
			local := newTestLocal(t)
			rec := testRecord("prophecy_local")
			if err := local.Put(rec.ID, rec); err != nil {
				t.Fatal(err)
			}

			s := New(context.Background(), Config{}, remote, local, testutil.DiscardLogger())
			got, ok := s.Get(context.Background(), rec.ID)
			if !ok {
				t.Fatal("Get() ok = false, want local hit")
			}
			assertSameRecord(t, got, rec)
		})
	}
}

func TestStore_BreakerShortCircuits(t *testing.T) {
	remote := newStubRemote()
	remote.putErr = errNodeDown
	s := New(context.Background(), Config{
		Breaker: BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute},
	}, remote, newTestLocal(t), testutil.DiscardLogger())

	for i := 0; i < 5; i++ {
		if !s.Put(context.Background(), "prophecy_1", testRecord("prophecy_1")) {
			t.Fatalf("Put() #%d = false", i)
		}
	}
	if _, puts, _ := remote.counts(); puts != 2 {
		t.Errorf("remote Put called %d times, want 2 before the breaker opened", puts)
	}
	if s.BreakerState() != "open" {
		t.Errorf("BreakerState() = %q, want open", s.BreakerState())
	}
	if s.Mode() != ModeRemote {
		t.Errorf("mode changed to %s after failures", s.Mode())
	}
}

func TestStore_RemoteMissDoesNotTripBreaker(t *testing.T) {
	remote := newStubRemote()
	s := New(context.Background(), Config{
		Breaker: BreakerConfig{MaxFailures: 1},
	}, remote, newTestLocal(t), testutil.DiscardLogger())

	for i := 0; i < 3; i++ {
		s.Get(context.Background(), "prophecy_missing")
	}
	if _, _, gets := remote.counts(); gets != 3 {
		t.Errorf("remote Get called %d times, want 3", gets)
	}
	if s.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %q, want closed", s.BreakerState())
	}
}

func TestStore_List(t *testing.T) {
	s := New(context.Background(), Config{ForceLocal: true}, nil, newTestLocal(t), testutil.DiscardLogger())
	for i, id := range []string{"prophecy_1", "prophecy_2", "prophecy_3"} {
		rec := NewRecord(id, "t", "", time.Unix(int64(1700000000+i), 0))
		s.Put(context.Background(), id, rec)
	}

	got := s.List(2)
	if len(got) != 2 || got[0].ID != "prophecy_3" {
		t.Errorf("List(2) = %+v", got)
	}
}

func TestDefraRemote(t *testing.T) {
	fake := testutil.NewFakeDefra(t)
	remote := NewDefraRemote(DefraConfig{
		Client:     defra.NewClient(fake.URL()),
		Account:    "oracle-test",
		SetupDelay: time.Millisecond,
		Logger:     testutil.DiscardLogger(),
	})
	ctx := context.Background()

	if err := remote.Setup(ctx); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !fake.HasCollection(schema.ProphecyCollection) {
		t.Fatal("Setup() did not deploy the Prophecy schema")
	}

	rec := testRecord("prophecy_1700000000")
	if err := remote.Put(ctx, rec.ID, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	doc, ok := fake.Doc(schema.ProphecyCollection, rec.ID)
	if !ok {
		t.Fatal("document not stored")
	}
	if doc["account"] != "oracle-test" {
		t.Errorf("account = %v", doc["account"])
	}

	got, err := remote.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	assertSameRecord(t, got, rec)

	if _, err := remote.Get(ctx, "prophecy_missing"); !errors.Is(err, ErrRemoteMiss) {
		t.Errorf("Get(missing) error = %v, want ErrRemoteMiss", err)
	}
	if _, err := remote.Get(ctx, "bad id!"); !errors.Is(err, ErrRemoteMiss) {
		t.Errorf("Get(invalid) error = %v, want ErrRemoteMiss", err)
	}
}

func TestDefraRemote_SetupUnhealthy(t *testing.T) {
	fake := testutil.NewFakeDefra(t)
	fake.SetHealthy(false)
	remote := NewDefraRemote(DefraConfig{
		Client:        defra.NewClient(fake.URL()),
		SetupAttempts: 2,
		SetupDelay:    time.Millisecond,
		Logger:        testutil.DiscardLogger(),
	})

	err := remote.Setup(context.Background())
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("Setup() error = %v, want ErrRemoteUnavailable", err)
	}
}

func TestStore_WithDefra(t *testing.T) {
	fake := testutil.NewFakeDefra(t)
	local := newTestLocal(t)
	remote := NewDefraRemote(DefraConfig{
		Client:     defra.NewClient(fake.URL()),
		SetupDelay: time.Millisecond,
		Logger:     testutil.DiscardLogger(),
	})
	ctx := context.Background()

	s := New(ctx, Config{}, remote, local, testutil.DiscardLogger())
	if s.Mode() != ModeRemote {
		t.Fatalf("Mode() = %s, want remote", s.Mode())
	}

	first := testRecord("prophecy_1")
	if !s.Put(ctx, first.ID, first) {
		t.Fatal("Put() = false")
	}
	if fake.Count(schema.ProphecyCollection) != 1 {
		t.Errorf("remote holds %d docs, want 1", fake.Count(schema.ProphecyCollection))
	}
	if all, _ := local.List(0); len(all) != 0 {
		t.Errorf("local holds %d records, want 0", len(all))
	}

	fake.SetFailing(true)
	second := testRecord("prophecy_2")
	if !s.Put(ctx, second.ID, second) {
		t.Fatal("Put() during outage = false")
	}
	if _, ok, _ := local.Get(second.ID); !ok {
		t.Error("outage write should land in the local store")
	}
	if _, ok := s.Get(ctx, second.ID); !ok {
		t.Error("Get() should find the locally stored record during the outage")
	}
}
