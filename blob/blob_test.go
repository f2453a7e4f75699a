package blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	beema "github.com/prabhatkmr/beema-sub003"
)

// storeContract runs the behavior every backend must share.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "exports/run_x/missing.xlsx"); !errors.Is(err, beema.ErrArtifactNotFound) {
		t.Fatalf("missing key: err = %v, want ErrArtifactNotFound", err)
	}

	if err := store.Put(ctx, "exports/run_x/chunk-0001.xlsx", []byte("first")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "exports/run_x/chunk-0002.xlsx", []byte("second!")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := store.Put(ctx, "exports/run_y/chunk-0001.xlsx", []byte("other run")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, err := store.Get(ctx, "exports/run_x/chunk-0001.xlsx")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("Get = %q", data)
	}

	infos, err := store.List(ctx, "exports/run_x/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("List returned %d infos, want 2", len(infos))
	}
	if infos[0].Key != "exports/run_x/chunk-0001.xlsx" || infos[1].Key != "exports/run_x/chunk-0002.xlsx" {
		t.Errorf("List order: %v, %v", infos[0].Key, infos[1].Key)
	}
	if infos[1].Size != int64(len("second!")) {
		t.Errorf("Size = %d", infos[1].Size)
	}

	// Put replaces.
	if err := store.Put(ctx, "exports/run_x/chunk-0001.xlsx", []byte("rewritten")); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	data, err = store.Get(ctx, "exports/run_x/chunk-0001.xlsx")
	if err != nil {
		t.Fatalf("Get after replace: %v", err)
	}
	if string(data) != "rewritten" {
		t.Errorf("Get after replace = %q", data)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	storeContract(t, NewMemory())
}

func TestMemoryIsolatesBuffers(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	buf := []byte("abc")
	if err := store.Put(context.Background(), "k", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'z'

	got, err := store.Get(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Fatalf("stored blob shares caller buffer: %q", got)
	}
	got[0] = 'q'
	again, _ := store.Get(context.Background(), "k")
	if string(again) != "abc" {
		t.Fatal("returned blob shares internal buffer")
	}
}

func TestDirStore(t *testing.T) {
	t.Parallel()

	store, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	storeContract(t, store)
}

func TestDirRejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	store, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"../outside", "/abs/path", "a/../../b", "."} {
		if err := store.Put(context.Background(), key, []byte("x")); err == nil {
			t.Errorf("key %q accepted", key)
		}
	}
}

// artifactServer is a minimal in-memory artifact service for Client tests.
type artifactServer struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (s *artifactServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/artifacts", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		prefix := r.URL.Query().Get("prefix")
		var infos []Info
		for key, data := range s.blobs {
			if strings.HasPrefix(key, prefix) {
				infos = append(infos, Info{Key: key, Size: int64(len(data))})
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(infos)
	})
	mux.HandleFunc("/artifacts/", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/artifacts/")
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			data, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			s.blobs[key] = data
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			data, ok := s.blobs[key]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write(data)
		default:
			http.Error(w, "method", http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func TestClientStore(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer((&artifactServer{blobs: map[string][]byte{}}).handler())
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL)
	ctx := context.Background()

	if err := client.Put(ctx, "exports/run_z/chunk-0001.xlsx", []byte("payload")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := client.Get(ctx, "exports/run_z/chunk-0001.xlsx")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("Get = %q", data)
	}

	if _, err := client.Get(ctx, "exports/run_z/nope"); !errors.Is(err, beema.ErrArtifactNotFound) {
		t.Fatalf("missing: err = %v", err)
	}

	infos, err := client.List(ctx, "exports/run_z/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "exports/run_z/chunk-0001.xlsx" {
		t.Errorf("List = %+v", infos)
	}
}
