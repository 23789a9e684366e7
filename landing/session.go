package landing

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"datalanding/dataset"
	"datalanding/posix"
	"datalanding/store"
	"datalanding/utils"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrIncomplete is returned by Save when the session lacks a dataset, target, format or destination name.
var ErrIncomplete = errors.New("landing session is incomplete")

// Session is the state of one interactive landing flow: pick a source dataset, refine it,
// browse targets and save. It is not safe for concurrent use.
type Session struct {
	lander *Lander
	lister DirectoryLister

	// Source is the dataset as loaded; Refined is the result of the last Refine, nil until then.
	Source  *dataset.Dataset
	Refined *dataset.Dataset

	// RemoveColumns and MaskColumns are the refinement settings applied by Refine.
	RemoveColumns []string
	MaskColumns   []string

	Target          StorageTarget
	Format          dataset.Format
	DestinationName string

	SelectedBucket string
	BucketContent  []store.ObjectInfo

	SelectedFolder string
	FolderContent  []posix.ListingEntry

	logs bytes.Buffer
	log  *utils.CustomLogger
}

// NewSession creates a session. The lister may be nil when directories are never browsed.
func NewSession(lander *Lander, lister DirectoryLister) *Session {
	s := &Session{lander: lander, lister: lister, Format: dataset.CSV}
	s.log = utils.TeeLogger(&s.logs, zapcore.InfoLevel)
	return s
}

// Logs returns the informational messages logged by this session so far.
func (s *Session) Logs() string {
	return s.logs.String()
}

// SetSource replaces the source dataset and discards any previous refinement.
func (s *Session) SetSource(ds *dataset.Dataset) {
	s.Source = ds
	s.Refined = nil
	s.log.Info("Source dataset selected", zap.Int("rows", ds.Len()), zap.Strings("columns", ds.Names()))
}

// SelectBucket lists the objects of bucket and makes it the current target.
func (s *Session) SelectBucket(ctx context.Context, bucket string) error {
	if s.lander == nil || s.lander.Objects == nil {
		return fmt.Errorf("%w: object store", ErrNotConfigured)
	}
	objects, err := s.lander.Objects.ListObjects(ctx, bucket)
	if err != nil {
		s.log.Error("Failed to list bucket", zap.String("bucket", bucket), zap.Error(err))
		return err
	}
	s.SelectedBucket = bucket
	s.BucketContent = objects
	s.Target = Bucket{Name: bucket}
	s.log.Info("Bucket selected", zap.String("bucket", bucket), zap.Int("objects", len(objects)))
	return nil
}

// SelectFolder lists path and makes it the current target. Folders outside the allow-list list as empty.
func (s *Session) SelectFolder(path string) error {
	if s.lister == nil {
		return fmt.Errorf("%w: directory lister", ErrNotConfigured)
	}
	entries, err := s.lister.ListDirectory(path)
	if err != nil {
		s.log.Error("Failed to list folder", zap.String("folder", path), zap.Error(err))
		return err
	}
	posix.SortByName(entries)
	s.SelectedFolder = path
	s.FolderContent = entries
	s.Target = Directory{Path: path}
	s.log.Info("Folder selected", zap.String("folder", path), zap.Int("entries", len(entries)))
	return nil
}

// Refine applies RemoveColumns and MaskColumns to the source dataset.
func (s *Session) Refine() error {
	if s.Source == nil {
		return fmt.Errorf("%w: no source dataset", ErrIncomplete)
	}
	refined, err := s.Source.Drop(s.RemoveColumns...)
	if err != nil {
		return err
	}
	for _, name := range s.MaskColumns {
		if refined, err = refined.Mask(name, dataset.MaskPrefix2); err != nil {
			return err
		}
	}
	s.Refined = refined
	s.log.Info("Dataset refined", zap.Strings("removed", s.RemoveColumns), zap.Strings("masked", s.MaskColumns),
		zap.Strings("columns", refined.Names()))
	return nil
}

// Current returns the refined dataset when it has rows, otherwise the source dataset.
func (s *Session) Current() *dataset.Dataset {
	if s.Refined != nil && s.Refined.Len() > 0 {
		return s.Refined
	}
	return s.Source
}

// Save lands the current dataset at the selected target.
func (s *Session) Save(ctx context.Context) (Result, error) {
	ds := s.Current()
	switch {
	case ds == nil:
		return Result{}, fmt.Errorf("%w: no dataset", ErrIncomplete)
	case s.Target == nil:
		return Result{}, fmt.Errorf("%w: no target", ErrIncomplete)
	case s.DestinationName == "":
		return Result{}, fmt.Errorf("%w: no destination name", ErrIncomplete)
	case s.lander == nil:
		return Result{}, ErrNotConfigured
	}

	result, err := s.lander.Land(ctx, ds, UploadDescriptor{Target: s.Target, Name: s.DestinationName, Format: s.Format})
	if err != nil {
		s.log.Error("Failed to save", zap.Stringer("target", s.Target), zap.Error(err))
		return Result{}, err
	}
	s.log.Info("Saved", zap.String("location", result.Location))
	return result, nil
}
