package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formfetch/internal/form"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func downloadServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<form action="/dl" method="post"><input name="id" value="1"></form>`)
	})
	mux.HandleFunc("/dl", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="report.txt"`)
		fmt.Fprint(w, payload)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRootRequiresURL(t *testing.T) {
	_, _, err := execute(t)
	assert.Error(t, err)
}

func TestRootRejectsInvalidProxy(t *testing.T) {
	_, _, err := execute(t, "--proxy", "gopher://x:1", "http://example.com/")
	assert.ErrorContains(t, err, "proxy")
}

func TestRootDownloadsWithOutput(t *testing.T) {
	srv := downloadServer(t, "B")
	target := filepath.Join(t.TempDir(), "custom.bin")

	out, _, err := execute(t, "-o", target, srv.URL+"/landing")
	require.NoError(t, err)
	assert.Contains(t, out, "Request URL "+srv.URL+"/landing")
	assert.Contains(t, out, "File downloaded: "+target)
	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "B", string(b))
}

func TestRootConflictAndVerbosity(t *testing.T) {
	srv := downloadServer(t, "B")
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile("report.txt", []byte("A"), 0o644))

	out, logs, err := execute(t, "-vv", srv.URL+"/landing")
	require.NoError(t, err)
	assert.Contains(t, out, "File content differs. Saved as: report_1.txt")
	assert.Contains(t, logs, "level=DEBUG")

	a, err := os.ReadFile("report.txt")
	require.NoError(t, err)
	assert.Equal(t, "A", string(a))
}

func TestRootNoForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<p>plain</p>")
	}))
	defer srv.Close()
	chdir(t, t.TempDir())

	_, _, err := execute(t, srv.URL+"/file.zip")
	assert.ErrorIs(t, err, form.ErrNoFormFound)
	assert.NoFileExists(t, "file.zip")
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir in Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
