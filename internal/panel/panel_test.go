package panel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_EmbeddedPlaceholder(t *testing.T) {
	h := Handler("")

	w := get(t, h, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<!DOCTYPE html>") {
		t.Error("GET / did not serve index.html")
	}
	if got := w.Header().Get("Cache-Control"); !strings.Contains(got, "no-cache") {
		t.Errorf("index Cache-Control = %q, want no-cache", got)
	}

	w = get(t, h, "/panel.css")
	if w.Code != http.StatusOK {
		t.Errorf("GET /panel.css status = %d, want 200", w.Code)
	}
}

func TestHandler_Fallbacks(t *testing.T) {
	h := Handler("")

	tests := []struct {
		path      string
		wantCode  int
		wantIndex bool
	}{
		{"/alarms", http.StatusOK, true},
		{"/views/axes/x", http.StatusOK, true},
		{"/missing.js", http.StatusNotFound, false},
		{"/api/v2/anything", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(t, h, tt.path)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			isIndex := strings.Contains(w.Body.String(), "<!DOCTYPE html>")
			if isIndex != tt.wantIndex {
				t.Errorf("served index = %v, want %v", isIndex, tt.wantIndex)
			}
		})
	}
}

func TestHandler_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(`<!DOCTYPE html><body>press panel</body>`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.js"), []byte("console.log('hmi')"), 0o600); err != nil {
		t.Fatal(err)
	}

	h := Handler(dir)

	if w := get(t, h, "/"); !strings.Contains(w.Body.String(), "press panel") {
		t.Errorf("GET / = %q, want directory index", w.Body.String())
	}
	if w := get(t, h, "/main.js"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "hmi") {
		t.Errorf("GET /main.js = %d %q", w.Code, w.Body.String())
	}
	if w := get(t, h, "/io"); !strings.Contains(w.Body.String(), "press panel") {
		t.Error("client route did not fall back to the directory index")
	}
	if w := get(t, h, "/panel.css"); w.Code != http.StatusNotFound {
		t.Errorf("embedded asset leaked into directory mode: status %d", w.Code)
	}
}

func TestAssets_MissingDirFallsBack(t *testing.T) {
	fsys := Assets("/nonexistent/panel/build")
	if _, err := fsys.Open("index.html"); err != nil {
		t.Errorf("embedded index.html missing: %v", err)
	}
}
