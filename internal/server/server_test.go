package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
	"github.com/KaramelBytes/flowviz-cli/internal/session"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const salesCSV = "Date,Revenue,Region\n2024-01-01,100,North\n2024-01-02,250,South\n2024-01-03,175,North\n"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return NewRouter(newTestHandler(t))
}

func newTestHandler(t *testing.T) *APIHandler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	creds, err := session.NewCredentialStore(map[string]string{"ana": string(hash)})
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	return NewAPIHandler(session.NewManager(creds), dataset.DefaultOptions(), "")
}

func do(t *testing.T, r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, sid string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sid != "" {
		req.Header.Set(SessionHeader, sid)
	}
	return req
}

func uploadRequest(t *testing.T, path, sid string, files map[string][2]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f[0])
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write([]byte(f[1]))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(SessionHeader, sid)
	return req
}

func login(t *testing.T, r http.Handler) string {
	t.Helper()
	w := do(t, r, jsonRequest(http.MethodPost, "/api/login", "", LoginRequest{Username: "ana", Password: "secret"}))
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.SessionID == "" {
		t.Fatalf("login response %s: %v", w.Body.String(), err)
	}
	return resp.SessionID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestLoginAndAuth(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, jsonRequest(http.MethodGet, "/api/recommendations", "", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no session: status = %d", w.Code)
	}
	w = do(t, r, jsonRequest(http.MethodPost, "/api/login", "", LoginRequest{Username: "ana", Password: "wrong"}))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status = %d", w.Code)
	}
	w = do(t, r, jsonRequest(http.MethodPost, "/api/login", "", map[string]string{"username": "ana"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing password: status = %d", w.Code)
	}

	sid := login(t, r)
	w = do(t, r, jsonRequest(http.MethodPost, "/api/logout", sid, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}
	w = do(t, r, jsonRequest(http.MethodGet, "/api/classification", sid, nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("after logout: status = %d", w.Code)
	}
}

func TestDatasetWorkflow(t *testing.T) {
	r := newTestRouter(t)
	sid := login(t, r)

	w := do(t, r, jsonRequest(http.MethodGet, "/api/recommendations", sid, nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("before upload: status = %d", w.Code)
	}

	w = do(t, r, uploadRequest(t, "/api/datasets", sid, map[string][2]string{"file": {"sales.csv", salesCSV}}))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d body=%s", w.Code, w.Body.String())
	}
	var up struct {
		Rows    int      `json:"rows"`
		Columns []string `json:"columns"`
	}
	decode(t, w, &up)
	if up.Rows != 3 || strings.Join(up.Columns, ",") != "Date,Revenue,Region" {
		t.Fatalf("upload = %+v", up)
	}

	w = do(t, r, jsonRequest(http.MethodGet, "/api/classification", sid, nil))
	var cls struct {
		Classification struct {
			Numeric     []string `json:"numeric"`
			Categorical []string `json:"categorical"`
			Datetime    []string `json:"datetime"`
		} `json:"classification"`
	}
	decode(t, w, &cls)
	if got := cls.Classification; len(got.Datetime) != 1 || got.Datetime[0] != "Date" || len(got.Numeric) != 1 || len(got.Categorical) != 1 {
		t.Fatalf("classification = %+v", got)
	}

	w = do(t, r, jsonRequest(http.MethodGet, "/api/recommendations", sid, nil))
	var recs struct {
		Recommendations []struct {
			Kind string `json:"kind"`
		} `json:"recommendations"`
		Rules []struct {
			Rule  string `json:"rule"`
			Fired bool   `json:"fired"`
		} `json:"rules"`
	}
	decode(t, w, &recs)
	var kinds []string
	for _, rec := range recs.Recommendations {
		kinds = append(kinds, rec.Kind)
	}
	if got := strings.Join(kinds, ","); got != "time_series,distribution,category_analysis,top_n" {
		t.Fatalf("kinds = %s", got)
	}
	if len(recs.Rules) != 5 {
		t.Fatalf("rules = %d, want 5", len(recs.Rules))
	}

	w = do(t, r, jsonRequest(http.MethodGet, "/api/charts/0", sid, nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"data"`) {
		t.Fatalf("chart json: %d %s", w.Code, w.Body.String())
	}
	w = do(t, r, jsonRequest(http.MethodGet, "/api/charts/0?format=html", sid, nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Plotly.newPlot") {
		t.Fatalf("chart html: %d", w.Code)
	}
	w = do(t, r, jsonRequest(http.MethodGet, "/api/charts/9", sid, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("chart out of range: status = %d", w.Code)
	}
	w = do(t, r, jsonRequest(http.MethodGet, "/api/charts/x", sid, nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("chart bad index: status = %d", w.Code)
	}

	w = do(t, r, jsonRequest(http.MethodPost, "/api/charts/custom", sid, map[string]any{"type": "bar", "x": "Region", "y": []string{"Revenue"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("custom bar: %d %s", w.Code, w.Body.String())
	}
	w = do(t, r, jsonRequest(http.MethodPost, "/api/charts/custom", sid, map[string]any{"type": "bar", "x": "Region", "y": []string{"Nope"}}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("custom unknown column: status = %d", w.Code)
	}
	w = do(t, r, jsonRequest(http.MethodPost, "/api/charts/custom", sid, map[string]any{"type": "radar"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("custom unknown type: status = %d", w.Code)
	}

	w = do(t, r, jsonRequest(http.MethodGet, "/api/export?format=csv", sid, nil))
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "Date,Revenue,Region") {
		t.Fatalf("export csv: %d %q", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "sales.csv") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	w = do(t, r, jsonRequest(http.MethodGet, "/api/export?format=pdf", sid, nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("export pdf: status = %d", w.Code)
	}
}

func TestUploadUnsupportedFormat(t *testing.T) {
	r := newTestRouter(t)
	sid := login(t, r)
	w := do(t, r, uploadRequest(t, "/api/datasets", sid, map[string][2]string{"file": {"notes.pdf", "%PDF-1.4"}}))
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestCompareWorkflow(t *testing.T) {
	r := newTestRouter(t)
	sid := login(t, r)

	w := do(t, r, jsonRequest(http.MethodGet, "/api/compare/chart/Revenue", sid, nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("before compare: status = %d", w.Code)
	}

	prev := "Revenue,Units\n100,1\n100,2\n"
	cur := "Revenue,Units\n300,3\n300,3\n"
	w = do(t, r, uploadRequest(t, "/api/compare", sid, map[string][2]string{
		"current":  {"feb.csv", cur},
		"previous": {"jan.csv", prev},
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("compare status = %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Columns []string `json:"columns"`
		Summary struct {
			Rows []struct {
				Metric    string  `json:"metric"`
				ChangePct float64 `json:"change_pct"`
			} `json:"rows"`
		} `json:"summary"`
		OverallChange float64 `json:"overall_change"`
	}
	decode(t, w, &resp)
	if strings.Join(resp.Columns, ",") != "Revenue,Units" {
		t.Fatalf("columns = %v", resp.Columns)
	}
	if resp.Summary.Rows[0].ChangePct != 200 || resp.Summary.Rows[1].ChangePct != 100 {
		t.Fatalf("rows = %+v", resp.Summary.Rows)
	}
	// (606-203)/203*100
	if resp.OverallChange < 198.5 || resp.OverallChange > 198.6 {
		t.Fatalf("overall = %v", resp.OverallChange)
	}

	w = do(t, r, jsonRequest(http.MethodGet, "/api/compare/chart/Revenue", sid, nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Revenue - Month over Month") {
		t.Fatalf("compare chart: %d %s", w.Code, w.Body.String())
	}
	w = do(t, r, jsonRequest(http.MethodGet, "/api/compare/chart/Missing", sid, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown column: status = %d", w.Code)
	}

	w = do(t, r, jsonRequest(http.MethodGet, "/api/export?table=comparison&format=xlsx", sid, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("export xlsx: %d", w.Code)
	}
	ds, err := dataset.Read(bytes.NewReader(w.Body.Bytes()), "comparison.xlsx", dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if strings.Join(ds.Names(), ",") != "Metric,Previous Month,Current Month,Change (%)" || ds.NumRows() != 2 {
		t.Fatalf("export = %v rows %d", ds.Names(), ds.NumRows())
	}
}

func TestNoRouteIsJSON(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "API endpoint not found") {
		t.Fatalf("no route: %d %s", w.Code, w.Body.String())
	}
}

func TestUploadOverLimit(t *testing.T) {
	h := newTestHandler(t)
	h.SetMaxUpload(1 << 10)
	r := NewRouter(h)
	sid := login(t, r)
	big := salesCSV + strings.Repeat("2024-02-01,300,East\n", 200)

	w := do(t, r, uploadRequest(t, "/api/datasets", sid, map[string][2]string{"file": {"big.csv", big}}))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("upload status = %d, want 413 body=%s", w.Code, w.Body.String())
	}
	w = do(t, r, uploadRequest(t, "/api/compare", sid, map[string][2]string{
		"current":  {"cur.csv", big},
		"previous": {"prev.csv", salesCSV},
	}))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("compare status = %d, want 413 body=%s", w.Code, w.Body.String())
	}

	w = do(t, r, uploadRequest(t, "/api/datasets", sid, map[string][2]string{"file": {"sales.csv", salesCSV}}))
	if w.Code != http.StatusOK {
		t.Fatalf("small upload status = %d body=%s", w.Code, w.Body.String())
	}
}
