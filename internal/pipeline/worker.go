package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

// FileJob is one file queued on a Worker.
type FileJob struct {
	Index    int
	FilePath string
	UploadID domain.UploadID
	Summary  *RunSummary
	Err      error
}

// Worker runs a Pipeline over several local files with a bounded pool.
type Worker struct {
	pipeline Pipeline
	config   PipelineConfig
}

// NewWorker creates a new pipeline worker
func NewWorker(pipeline Pipeline, config PipelineConfig) *Worker {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	return &Worker{pipeline: pipeline, config: config}
}

// ProcessFiles runs every file and returns one job per file, in input
// order. A failing file does not stop the others; its error is kept on the
// job. The returned error is only set when ctx is cancelled.
func (w *Worker) ProcessFiles(ctx context.Context, files []string) ([]*FileJob, error) {
	log.Info().Str("pipeline", w.pipeline.Name()).Int("files", len(files)).Msg("starting batch")

	jobs := make([]*FileJob, len(files))
	for i, f := range files {
		jobs[i] = &FileJob{Index: i, FilePath: f, UploadID: domain.NewUploadID()}
	}

	workerCount := w.config.WorkerCount
	if workerCount > len(jobs) {
		workerCount = len(jobs)
	}

	jobChan := make(chan *FileJob)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				w.processFile(ctx, workerID, job)
			}
		}(i)
	}

	// Enqueue jobs
	var cancelled error
enqueue:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break enqueue
		case jobChan <- job:
		}
	}
	close(jobChan)
	wg.Wait()

	if cancelled != nil {
		for _, job := range jobs {
			if job.Summary == nil && job.Err == nil {
				job.Err = cancelled
			}
		}
		return jobs, cancelled
	}
	return jobs, nil
}

func (w *Worker) processFile(ctx context.Context, workerID int, job *FileJob) {
	start := time.Now()
	logger := log.With().
		Str("pipeline", w.pipeline.Name()).
		Int("worker", workerID).
		Str("file", job.FilePath).
		Logger()

	table, err := readFile(job.FilePath)
	if err == nil {
		err = w.pipeline.Validate(table)
	}
	if err != nil {
		job.Err = fmt.Errorf("%s: %w", job.FilePath, err)
		logger.Error().Err(err).Msg("file rejected")
		return
	}

	summary, err := w.pipeline.Run(ctx, job.UploadID, filepath.Base(job.FilePath), table)
	job.Summary = summary
	if err != nil {
		job.Err = fmt.Errorf("%s: %w", job.FilePath, err)
		logger.Error().Err(err).Msg("file failed")
		return
	}

	logger.Info().
		Str("upload_id", job.UploadID.String()).
		Str("provenance", string(summary.Provenance)).
		Int("rows", summary.TotalRows).
		Dur("took", time.Since(start)).
		Msg("file processed")
}

func readFile(path string) (*tabular.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tabular.Read(path, f)
}
