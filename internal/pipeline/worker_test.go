package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

type countingPipeline struct {
	runs atomic.Int32
}

func (p *countingPipeline) Name() string { return "counting" }

func (p *countingPipeline) Validate(table *tabular.Table) error {
	_, err := table.RequireColumn("Numero GAB")
	return err
}

func (p *countingPipeline) Run(ctx context.Context, id domain.UploadID, filename string, table *tabular.Table) (*RunSummary, error) {
	p.runs.Add(1)
	return &RunSummary{
		UploadID:   id,
		Filename:   filename,
		Status:     StatusCompleted,
		Provenance: domain.ProvenanceComputed,
		TotalRows:  len(table.Rows),
	}, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWorker_ProcessFiles(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "a.csv", "Numero GAB,Cash\n1,10\n2,20\n"),
		writeFile(t, dir, "b.csv", "Other\nx\n"),
		writeFile(t, dir, "c.csv", "Numero GAB\n7\n"),
		filepath.Join(dir, "missing.csv"),
	}

	p := &countingPipeline{}
	jobs, err := NewWorker(p, DefaultPipelineConfig("counting")).ProcessFiles(context.Background(), files)
	if err != nil {
		t.Fatalf("ProcessFiles: %v", err)
	}
	if len(jobs) != 4 {
		t.Fatalf("jobs = %d, want 4", len(jobs))
	}

	if jobs[0].Err != nil || jobs[0].Summary.TotalRows != 2 || jobs[0].Summary.Filename != "a.csv" {
		t.Errorf("job a = %+v", jobs[0])
	}
	if !errors.Is(jobs[1].Err, domain.ErrMissingColumn) {
		t.Errorf("job b err = %v, want ErrMissingColumn", jobs[1].Err)
	}
	if jobs[2].Err != nil || jobs[2].Summary.TotalRows != 1 {
		t.Errorf("job c = %+v", jobs[2])
	}
	if jobs[3].Err == nil {
		t.Error("expected error for missing file")
	}
	if got := p.runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2", got)
	}
	if jobs[0].UploadID == jobs[2].UploadID {
		t.Error("upload ids should be distinct")
	}
}

func TestWorker_Cancelled(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeFile(t, dir, "a.csv", "Numero GAB\n1\n")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &countingPipeline{}
	jobs, err := NewWorker(p, PipelineConfig{WorkerCount: 1}).ProcessFiles(ctx, files)
	if err == nil {
		// The job may have been handed to a worker before the cancel was seen.
		if jobs[0].Err != nil && !errors.Is(jobs[0].Err, context.Canceled) {
			t.Errorf("job err = %v", jobs[0].Err)
		}
		return
	}
	if !errors.Is(err, context.Canceled) || !errors.Is(jobs[0].Err, context.Canceled) {
		t.Errorf("err = %v, job err = %v", err, jobs[0].Err)
	}
}

func TestRunSummary_Finish(t *testing.T) {
	s := &RunSummary{Status: StatusProcessing}
	s.Finish(s.StartedAt, errors.New("boom"))
	if s.Status != StatusFailed || s.ErrorMessage != "boom" || s.Duration() != 0 {
		t.Errorf("summary = %+v", s)
	}
}
