package api

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/auth"
)

// writeProductFile writes a production file below the fixture's archive.
func writeProductFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

// ─── Production Tests ───

func TestProductionDaily(t *testing.T) {
	f := testServer(t)
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	writeProductFile(t, f.product.DayPath(day), "时间,OK,NG\n08:00-09:00,120,3\n09:00-10:00,118,5\n")

	w := f.do(t, http.MethodGet, "/api/v1/production/daily?date=2026-03-01", auth.RoleOperator, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Period string    `json:"period"`
		Labels []string  `json:"labels"`
		OK     []float64 `json:"ok"`
		NG     []float64 `json:"ng"`
	}
	decode(t, w, &resp)
	if resp.Period != "2026-03-01" || len(resp.Labels) != 2 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.OK[1] != 118 || resp.NG[1] != 5 {
		t.Errorf("second row = %v/%v, want 118/5", resp.OK[1], resp.NG[1])
	}
}

func TestProductionDaily_MissingDayIsEmpty(t *testing.T) {
	f := testServer(t)

	w := f.do(t, http.MethodGet, "/api/v1/production/daily?date=2025-12-31", auth.RoleOperator, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Labels []string `json:"labels"`
	}
	decode(t, w, &resp)
	if resp.Labels == nil || len(resp.Labels) != 0 {
		t.Errorf("labels = %v, want empty list", resp.Labels)
	}
}

func TestProductionMonthly(t *testing.T) {
	f := testServer(t)
	month := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	writeProductFile(t, f.product.MonthPath(month), "时间,OK,NG\n03月01号,2400,30\n")

	w := f.do(t, http.MethodGet, "/api/v1/production/monthly?month=2026-03", auth.RoleOperator, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Period string    `json:"period"`
		Labels []string  `json:"labels"`
		OK     []float64 `json:"ok"`
	}
	decode(t, w, &resp)
	if resp.Period != "2026-03" || len(resp.Labels) != 1 || resp.OK[0] != 2400 {
		t.Errorf("response = %+v", resp)
	}
}

func TestProduction_BadParams(t *testing.T) {
	f := testServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"bad date", "/api/v1/production/daily?date=01-03-2026", http.StatusBadRequest},
		{"bad month", "/api/v1/production/monthly?month=2026-3-1", http.StatusBadRequest},
		{"bad index", "/api/v1/production/records/first", http.StatusBadRequest},
		{"unknown index", "/api/v1/production/records/7", http.StatusNotFound},
		{"no token", "/api/v1/production/daily", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role := auth.RoleOperator
			if tt.name == "no token" {
				role = ""
			}
			if w := f.do(t, http.MethodGet, tt.path, role, ""); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestProductionDaily_UnreadableFile(t *testing.T) {
	f := testServer(t)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if err := os.MkdirAll(f.product.DayPath(day), 0o755); err != nil {
		t.Fatal(err)
	}

	w := f.do(t, http.MethodGet, "/api/v1/production/daily?date=2026-03-02", auth.RoleOperator, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestRecordFiles(t *testing.T) {
	f := testServer(t)

	w := f.do(t, http.MethodGet, "/api/v1/production/records", auth.RoleOperator, "")
	var list struct {
		Count int `json:"count"`
	}
	decode(t, w, &list)
	if list.Count != 0 {
		t.Fatalf("count = %d before the file exists", list.Count)
	}

	dir := filepath.Dir(f.product.DayPath(time.Now()))
	writeProductFile(t, filepath.Join(filepath.Dir(dir), "weights.csv"), "序号,重量\n1,12.5\n")

	w = f.do(t, http.MethodGet, "/api/v1/production/records", auth.RoleOperator, "")
	var files struct {
		Files []struct {
			Index int    `json:"index"`
			Name  string `json:"name"`
		} `json:"files"`
	}
	decode(t, w, &files)
	if len(files.Files) != 1 || files.Files[0].Name != "weights.csv" {
		t.Fatalf("files = %+v", files.Files)
	}

	w = f.do(t, http.MethodGet, "/api/v1/production/records/0", auth.RoleOperator, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var tbl struct {
		Header []string   `json:"header"`
		Rows   [][]string `json:"rows"`
	}
	decode(t, w, &tbl)
	if len(tbl.Header) != 2 || len(tbl.Rows) != 1 || tbl.Rows[0][1] != "12.5" {
		t.Errorf("table = %+v", tbl)
	}
}
