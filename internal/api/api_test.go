package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/api/middleware"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/cache"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/pipeline/replenishment"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/service"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/source"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

var apiDay = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type stubLoader struct{}

func (stubLoader) Load(ctx context.Context) (*source.Tables, error) {
	forecasts := &tabular.Table{Header: []string{"Date", "conso_journaliere"}}
	for i := 0; i < 7; i++ {
		forecasts.Rows = append(forecasts.Rows, []any{apiDay.AddDate(0, 0, i).Format("2006-01-02"), 2000.0})
	}
	return &source.Tables{
		Origin:    "stub",
		Weights:   &tabular.Table{Header: []string{"Numero GAB", "ponderation"}, Rows: [][]any{{"1001", 0.5}}},
		Forecasts: forecasts,
	}, nil
}

type stubSource struct{}

func (stubSource) Name() string { return "stub" }
func (stubSource) Weights(ctx context.Context) (*tabular.Table, error) {
	t, _ := stubLoader{}.Load(ctx)
	return t.Weights, nil
}
func (stubSource) Forecasts(ctx context.Context) (*tabular.Table, error) {
	t, _ := stubLoader{}.Load(ctx)
	return t.Forecasts, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	results := cache.NewMemoryResultCache()
	p := replenishment.NewReplenishmentPipeline(stubLoader{}, results, replenishment.Config{
		Now: func() time.Time { return apiDay.Add(9 * time.Hour) },
	})

	sources := mux.NewRouter()
	source.NewHandler(source.NewLoader(stubSource{})).RegisterRoutes(sources)

	return NewRouter(&Services{
		ReplenishmentService: service.NewReplenishmentService(p, results),
		Sources:              sources,
		MaxUploadBytes:       1 << 20,
	}, []string{"http://localhost:5173"})
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return body, w.FormDataContentType()
}

func upload(t *testing.T, router http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const stateCSV = "Numero GAB,Mon GAB,Cash Disponible,Nbr JOUR\n1001,Agence Centrale,3000,1.2\n"

func TestUploadThenQuery(t *testing.T) {
	router := newTestRouter(t)

	rec := upload(t, router, "etat.csv", stateCSV)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	var resp struct {
		UploadID   string                       `json:"upload_id"`
		Provenance string                       `json:"provenance"`
		Results    []domain.ReplenishmentResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UploadID == "" || resp.Provenance != string(domain.ProvenanceComputed) {
		t.Fatalf("response = %+v", resp)
	}
	if len(resp.Results) != 1 || resp.Results[0].AmountToInvest != 4000 {
		t.Fatalf("results = %+v", resp.Results)
	}

	for _, path := range []string{"results", "dashboard", "trends"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+resp.UploadID+"/"+path, nil)
		got := httptest.NewRecorder()
		router.ServeHTTP(got, req)
		if got.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", path, got.Code)
		}
		if !strings.Contains(got.Body.String(), string(domain.ProvenanceComputed)) {
			t.Errorf("GET %s body = %s", path, got.Body)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/"+resp.UploadID+"/export?format=csv", nil)
	got := httptest.NewRecorder()
	router.ServeHTTP(got, req)
	if got.Code != http.StatusOK {
		t.Fatalf("export status = %d, body = %s", got.Code, got.Body)
	}
	if cd := got.Header().Get("Content-Disposition"); !strings.Contains(cd, "a_investir_"+resp.UploadID+".csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(got.Body.String(), "1001,4000.00") {
		t.Errorf("export body = %q", got.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil)
	got = httptest.NewRecorder()
	router.ServeHTTP(got, req)
	if got.Code != http.StatusOK || !strings.Contains(got.Body.String(), resp.UploadID) {
		t.Errorf("history = %d %s", got.Code, got.Body)
	}
}

func TestUploadErrors(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name     string
		filename string
		content  string
		want     int
	}{
		{"unsupported extension", "etat.txt", stateCSV, http.StatusBadRequest},
		{"missing column", "etat.csv", "Numero GAB,Mon GAB,Cash Disponible\n1001,A,10\n", http.StatusBadRequest},
		{"malformed number", "etat.csv", "Numero GAB,Mon GAB,Cash Disponible,Nbr JOUR\n1001,A,beaucoup,1\n", http.StatusUnprocessableEntity},
		{"non-finite cash", "etat.csv", "Numero GAB,Mon GAB,Cash Disponible,Nbr JOUR\n1001,A,NaN,1.2\n", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, router, tt.filename, tt.content)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.want, rec.Body)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("error body = %s", rec.Body)
			}
		})
	}

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", strings.NewReader(""))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestUnknownUpload(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/nope/results", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), string(domain.ProvenanceFallback)) {
		t.Errorf("results = %d %s", rec.Code, rec.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/uploads/nope/export", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("export status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/trends", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), string(domain.ProvenanceFallback)) {
		t.Errorf("trends = %d %s", rec.Code, rec.Body)
	}
}

func TestSourceRoutesAndHealth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sources/probe", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("probe status = %d, body = %s", rec.Code, rec.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " ", "*"})
	if !all {
		t.Error("expected wildcard to allow all")
	}
	if len(origins) != 2 || origins[1] != "http://b.test" {
		t.Errorf("origins = %v", origins)
	}
}
