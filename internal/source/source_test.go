package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/drive"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/repository"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/storage"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

func weightsCSV() []byte {
	return []byte("Numero GAB,ponderation\n1001,0.5\n1002,0.25\n")
}

func forecastsCSV() []byte {
	return []byte("Date,conso_journaliere\n2024-03-01,2000\n2024-03-02,2100\n")
}

func writeXLSX(t *testing.T, path string, header []string, rows [][]any) {
	t.Helper()
	var buf bytes.Buffer
	if err := tabular.WriteXLSX(&buf, "", header, rows); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLocalSource(t *testing.T) {
	dir := t.TempDir()
	writeXLSX(t, filepath.Join(dir, "ponderation_gab.xlsx"),
		[]string{"Numero GAB", "ponderation"},
		[][]any{{1001, 0.5}, {1002, 0.25}})

	src := NewLocalSource(dir, "ponderation_gab.xlsx", "previsions.xlsx")

	weights, err := src.Weights(context.Background())
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}
	if len(weights.Rows) != 2 {
		t.Fatalf("got %d weight rows, want 2", len(weights.Rows))
	}

	_, err = src.Forecasts(context.Background())
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("missing forecasts file: err = %v, want ErrSourceUnavailable", err)
	}
}

func TestLocalSource_BrokenFileIsNotUnavailable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "previsions.xls"), []byte("legacy"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := NewLocalSource(dir, "ponderation_gab.xlsx", "previsions.xls")

	_, err := src.Forecasts(context.Background())
	if err == nil || IsUnavailable(err) {
		t.Fatalf("err = %v, want a format error", err)
	}
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

type fakeObjectStore struct {
	objects map[string][]byte
}

func (f *fakeObjectStore) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (f *fakeObjectStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrObjectNotFound)
	}
	return data, nil
}

func (f *fakeObjectStore) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	f.objects[key] = data
	return nil
}

func TestObjectSource(t *testing.T) {
	store := &fakeObjectStore{objects: map[string][]byte{
		"reference/ponderation_gab.csv": weightsCSV(),
	}}
	src := NewObjectSource(store, "reference", "ponderation_gab.csv", "previsions.csv")

	if got := src.ObjectKey("previsions.csv"); got != "reference/previsions.csv" {
		t.Errorf("ObjectKey = %q", got)
	}

	weights, err := src.Weights(context.Background())
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}
	if len(weights.Rows) != 2 {
		t.Errorf("got %d rows, want 2", len(weights.Rows))
	}

	if _, err := src.Forecasts(context.Background()); !IsUnavailable(err) {
		t.Fatalf("missing object: err = %v, want unavailable", err)
	}
}

type fakeDrive struct {
	files map[string][]byte
}

func (f *fakeDrive) FindFile(ctx context.Context, folderID, name string) (*drive.File, error) {
	if _, ok := f.files[name]; !ok {
		return nil, fmt.Errorf("%s: %w", name, drive.ErrFileNotFound)
	}
	return &drive.File{ID: "id-" + name, Name: name}, nil
}

func (f *fakeDrive) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	name := fileID[len("id-"):]
	_, err := w.Write(f.files[name])
	return err
}

func TestDriveSource(t *testing.T) {
	src := NewDriveSource(&fakeDrive{files: map[string][]byte{
		"previsions.csv": forecastsCSV(),
	}}, "folder", "ponderation_gab.csv", "previsions.csv")

	forecasts, err := src.Forecasts(context.Background())
	if err != nil {
		t.Fatalf("Forecasts: %v", err)
	}
	if len(forecasts.Rows) != 2 {
		t.Errorf("got %d rows, want 2", len(forecasts.Rows))
	}
	if _, err := src.Weights(context.Background()); !IsUnavailable(err) {
		t.Fatalf("missing drive file: err = %v, want unavailable", err)
	}
}

type fakeReferenceRepo struct {
	weights   []repository.WeightRow
	forecasts []repository.ForecastRow
	err       error
}

func (f *fakeReferenceRepo) EnsureSchema(ctx context.Context) error { return nil }

func (f *fakeReferenceRepo) ListWeights(ctx context.Context) ([]repository.WeightRow, error) {
	return f.weights, f.err
}

func (f *fakeReferenceRepo) ListForecasts(ctx context.Context) ([]repository.ForecastRow, error) {
	return f.forecasts, f.err
}

func (f *fakeReferenceRepo) UpsertWeights(ctx context.Context, rows []repository.WeightRow) (int, error) {
	return len(rows), nil
}

func (f *fakeReferenceRepo) UpsertForecasts(ctx context.Context, rows []repository.ForecastRow) (int, error) {
	return len(rows), nil
}

func TestPostgresSource(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	src := NewPostgresSource(&fakeReferenceRepo{
		weights:   []repository.WeightRow{{MachineID: "1001", Weight: 0.5}},
		forecasts: []repository.ForecastRow{{Date: day, Consumption: 2000}},
	})

	weights, err := src.Weights(context.Background())
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}
	if weights.ColumnIndex("Numero GAB") != 0 || weights.ColumnIndex("ponderation") != 1 {
		t.Errorf("postgres columns do not match spreadsheet headers: %v", weights.Header)
	}

	forecasts, err := src.Forecasts(context.Background())
	if err != nil {
		t.Fatalf("Forecasts: %v", err)
	}
	if got := forecasts.Rows[0][0]; got != day {
		t.Errorf("date cell = %v, want %v", got, day)
	}

	broken := NewPostgresSource(&fakeReferenceRepo{err: errors.New("connection refused")})
	if _, err := broken.Weights(context.Background()); !IsUnavailable(err) {
		t.Fatalf("err = %v, want unavailable", err)
	}
}

type stubSource struct {
	weights, forecasts       *tabular.Table
	weightsErr, forecastsErr error
	calls                    atomic.Int32
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Weights(ctx context.Context) (*tabular.Table, error) {
	s.calls.Add(1)
	return s.weights, s.weightsErr
}

func (s *stubSource) Forecasts(ctx context.Context) (*tabular.Table, error) {
	s.calls.Add(1)
	return s.forecasts, s.forecastsErr
}

func table(header []string, rows ...[]any) *tabular.Table {
	return &tabular.Table{Header: header, Rows: rows}
}

func TestLoader_Load(t *testing.T) {
	full := func() *stubSource {
		return &stubSource{
			weights:   table([]string{"Numero GAB", "ponderation"}, []any{"1001", 0.5}),
			forecasts: table([]string{"Date", "conso_journaliere"}, []any{"2024-03-01", 2000.0}),
		}
	}

	t.Run("both tables", func(t *testing.T) {
		src := full()
		loader := NewLoader(src)
		tables, err := loader.Load(context.Background())
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if tables.Origin != "stub" || tables.Weights == nil || tables.Forecasts == nil {
			t.Errorf("unexpected tables: %+v", tables)
		}
		if src.calls.Load() != 2 {
			t.Errorf("source called %d times, want 2", src.calls.Load())
		}
		st := loader.Status()
		if !st.Available || st.WeightRows != 1 || st.ForecastRows != 1 {
			t.Errorf("unexpected status: %+v", st)
		}
	})

	t.Run("empty weights", func(t *testing.T) {
		src := full()
		src.weights = table([]string{"Numero GAB", "ponderation"})
		loader := NewLoader(src)
		if _, err := loader.Load(context.Background()); !IsUnavailable(err) {
			t.Fatalf("err = %v, want unavailable", err)
		}
		if loader.Status().Available {
			t.Error("status should be unavailable")
		}
	})

	t.Run("unavailable forecasts", func(t *testing.T) {
		src := full()
		src.forecasts = nil
		src.forecastsErr = Unavailable("stub", "forecasts", nil)
		if _, err := NewLoader(src).Load(context.Background()); !IsUnavailable(err) {
			t.Fatalf("err = %v, want unavailable", err)
		}
	})

	t.Run("malformed is not unavailable", func(t *testing.T) {
		src := full()
		src.weightsErr = fmt.Errorf("parse: %w", domain.ErrUnsupportedFormat)
		_, err := NewLoader(src).Load(context.Background())
		if err == nil || IsUnavailable(err) {
			t.Fatalf("err = %v, want a non-availability error", err)
		}
	})

	t.Run("format error wins over unavailable", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			src := full()
			src.weights = nil
			src.weightsErr = Unavailable("stub", "weights", nil)
			src.forecasts = nil
			src.forecastsErr = fmt.Errorf("parse: %w", domain.ErrMalformedRow)
			loader := NewLoader(src)

			_, err := loader.Load(context.Background())
			if !errors.Is(err, domain.ErrMalformedRow) || IsUnavailable(err) {
				t.Fatalf("run %d: err = %v, want the malformed row error", i, err)
			}
			if st := loader.Status(); st.Available || st.Error != err.Error() {
				t.Fatalf("run %d: status = %+v", i, st)
			}
		}
	})

	t.Run("both unavailable reports weights", func(t *testing.T) {
		src := full()
		src.weightsErr = Unavailable("stub", "weights", nil)
		src.forecastsErr = Unavailable("stub", "forecasts", nil)
		_, err := NewLoader(src).Load(context.Background())
		if !IsUnavailable(err) || !strings.HasPrefix(err.Error(), "weights: ") {
			t.Fatalf("err = %v, want the weights availability error", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		src := full()
		src.weightsErr = ctx.Err()
		if _, err := NewLoader(src).Load(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	})
}

func TestHandler(t *testing.T) {
	src := &stubSource{weightsErr: Unavailable("stub", "weights", nil)}
	router := mux.NewRouter()
	NewHandler(NewLoader(src)).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sources/probe", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("probe status = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sources/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"available":false`)) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sources/probe", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET probe = %d, want 405", rec.Code)
	}
}
