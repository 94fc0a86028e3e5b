package source

import (
	"bytes"
	"context"
	"io"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/drive"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

// DriveFiles is the part of drive.Service the source needs.
type DriveFiles interface {
	FindFile(ctx context.Context, folderID, name string) (*drive.File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// DriveSource reads reference files from a Google Drive folder.
type DriveSource struct {
	files         DriveFiles
	folderID      string
	weightsFile   string
	forecastsFile string
}

func NewDriveSource(files DriveFiles, folderID, weightsFile, forecastsFile string) *DriveSource {
	return &DriveSource{files: files, folderID: folderID, weightsFile: weightsFile, forecastsFile: forecastsFile}
}

func (s *DriveSource) Name() string { return "drive" }

func (s *DriveSource) Weights(ctx context.Context) (*tabular.Table, error) {
	return s.read(ctx, s.weightsFile)
}

func (s *DriveSource) Forecasts(ctx context.Context) (*tabular.Table, error) {
	return s.read(ctx, s.forecastsFile)
}

func (s *DriveSource) read(ctx context.Context, name string) (*tabular.Table, error) {
	file, err := s.files.FindFile(ctx, s.folderID, name)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Unavailable(s.Name(), name, err)
	}

	var buf bytes.Buffer
	if err := s.files.DownloadFile(ctx, file.ID, &buf); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Unavailable(s.Name(), name, err)
	}
	return parseFile(file.Name, buf.Bytes())
}
