package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const indexPage = `<html><body>
<a href="babyseg_model.pt">babyseg_model.pt</a>
<a href="atlas.nii.gz">atlas.nii.gz</a>
<a href="babyseg_model.pt">duplicate</a>
<a href="readme.txt">readme.txt</a>
<a href="../parent/">parent</a>
</body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(indexPage))
		case "/babyseg_model.pt":
			_, _ = w.Write([]byte("checkpoint-bytes"))
		case "/atlas.nii.gz":
			_, _ = w.Write([]byte("atlas-bytes"))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	files, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	want := []string{srv.URL + "/atlas.nii.gz", srv.URL + "/babyseg_model.pt"}
	if len(files) != len(want) {
		t.Fatalf("ListFiles() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("ListFiles()[%d] = %s, want %s", i, files[i], want[i])
		}
	}
}

func TestListFilesMixedCaseAndQuoting(t *testing.T) {
	t.Parallel()

	// Index servers are not consistent about case or attribute quoting.
	const page = `<html><body>
<a HREF='MODEL.PT'>MODEL.PT</a>
<a href=Atlas.Nii.Gz>Atlas.Nii.Gz</a>
<a href="notes.TXT">notes.TXT</a>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	files, err := c.ListFiles(context.Background())
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	want := []string{srv.URL + "/Atlas.Nii.Gz", srv.URL + "/MODEL.PT"}
	if len(files) != len(want) {
		t.Fatalf("ListFiles() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("ListFiles()[%d] = %s, want %s", i, files[i], want[i])
		}
	}
}

func TestFetchAll(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	outDir := t.TempDir()
	paths, err := c.FetchAll(context.Background(), FixedDir(outDir), false)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("FetchAll() wrote %d files, want 2", len(paths))
	}

	data, err := os.ReadFile(filepath.Join(outDir, "babyseg_model.pt"))
	if err != nil || string(data) != "checkpoint-bytes" {
		t.Fatalf("checkpoint content = %q, %v", data, err)
	}
}

func TestFetchAllSkipsExisting(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	outDir := t.TempDir()
	existing := filepath.Join(outDir, "babyseg_model.pt")
	if err := os.WriteFile(existing, []byte("local-edit"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := c.FetchAll(context.Background(), FixedDir(outDir), false); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "local-edit" {
		t.Fatal("existing file was overwritten without force")
	}

	if _, err := c.FetchAll(context.Background(), FixedDir(outDir), true); err != nil {
		t.Fatalf("FetchAll(force) error = %v", err)
	}
	data, _ = os.ReadFile(existing)
	if string(data) != "checkpoint-bytes" {
		t.Fatal("force should refresh existing files")
	}
}

func TestFetchAllEmptyIndex(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>nothing here</body></html>"))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.FetchAll(context.Background(), FixedDir(t.TempDir()), false); err == nil {
		t.Fatal("FetchAll() on empty index should fail")
	}
}
