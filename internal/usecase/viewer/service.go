// Package viewer holds the application state: the currently loaded model,
// its index and the filtered selection.
package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/index"
	"github.com/kailas-cloud/bimquery/internal/logger"
	"github.com/kailas-cloud/bimquery/internal/metrics"
	"github.com/kailas-cloud/bimquery/internal/usecase/indexing"
)

// Progress messages emitted around the index build.
const (
	ProgressReading = "Reading file…"
	ProgressParsing = "Parsing IFC…"
	ProgressDone    = ""
)

// Session is one loaded model. Index and Report never change after Load;
// the selection and the scene are updated under mu.
type Session struct {
	Name     string
	LoadedAt time.Time
	Index    *index.Index
	Report   indexing.Report
	Scene    Scene

	mu       sync.Mutex
	filtered []int
}

// Isolate hides every mesh, shows the meshes of recs and remembers their ids.
// A mesh shared with a record outside recs stays visible.
func (s *Session) Isolate(recs []*element.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.Scene.MeshIDs() {
		s.Scene.SetVisible(id, false)
	}
	ids := make([]int, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ExpressID())
		for _, mesh := range rec.MeshIDs() {
			s.Scene.SetVisible(mesh, true)
		}
	}
	s.filtered = ids
}

// Reset shows every mesh and clears the selection.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.Scene.MeshIDs() {
		s.Scene.SetVisible(id, true)
	}
	s.filtered = nil
}

// FilteredIDs returns the ids of the last isolated selection, in match order.
func (s *Session) FilteredIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.filtered...)
}

// Filtered resolves the last isolated selection to records.
func (s *Session) Filtered() []*element.Record {
	ids := s.FilteredIDs()
	out := make([]*element.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.Index.Get(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Service loads models and exposes the current session.
type Service struct {
	parser   Parser
	builder  Builder
	newScene SceneFactory
	current  atomic.Pointer[Session]
	loading  sync.Mutex
	now      func() time.Time
}

// New creates the viewer service.
func New(parser Parser, builder Builder, newScene SceneFactory) *Service {
	return &Service{parser: parser, builder: builder, newScene: newScene, now: time.Now}
}

// Load reads, parses and indexes a model, then makes it current. On failure
// the previous session stays current. Concurrent loads are serialized.
func (s *Service) Load(ctx context.Context, name string, r io.Reader, progress indexing.ProgressFunc) (*Session, error) {
	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}
	defer report(ProgressDone)

	s.loading.Lock()
	defer s.loading.Unlock()

	_, log := logger.WithModel(ctx, name)

	report(ProgressReading)
	data, err := io.ReadAll(r)
	if err != nil {
		metrics.ModelLoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read model %q: %w", name, err)
	}

	report(ProgressParsing)
	model, err := s.parser.Load(ctx, bytes.NewReader(data))
	if err != nil {
		metrics.ModelLoadsTotal.WithLabelValues("error").Inc()
		log.Error("Model parse failed", zap.Error(err))
		return nil, domain.NewParseError(name, "parse", err)
	}

	ix, rep, err := s.builder.Build(ctx, name, model, progress)
	if err != nil {
		metrics.ModelLoadsTotal.WithLabelValues("error").Inc()
		log.Error("Model index failed", zap.Error(err))
		var pe *domain.ParseError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, fmt.Errorf("index model %q: %w", name, err)
	}

	sess := &Session{
		Name:     name,
		LoadedAt: s.now().UTC(),
		Index:    ix,
		Report:   rep,
		Scene:    s.newScene(meshIDs(ix)),
	}
	s.current.Store(sess)
	metrics.ModelLoadsTotal.WithLabelValues("ok").Inc()
	return sess, nil
}

// Current returns the loaded session.
func (s *Service) Current() (*Session, error) {
	sess := s.current.Load()
	if sess == nil {
		return nil, domain.ErrNoModelLoaded
	}
	return sess, nil
}

// Loaded reports whether a model is loaded.
func (s *Service) Loaded() bool { return s.current.Load() != nil }

// Isolate isolates recs in the current session.
func (s *Service) Isolate(recs []*element.Record) error {
	sess, err := s.Current()
	if err != nil {
		return err
	}
	sess.Isolate(recs)
	return nil
}

// Reset restores full visibility in the current session.
func (s *Service) Reset() error {
	sess, err := s.Current()
	if err != nil {
		return err
	}
	sess.Reset()
	return nil
}

// Filtered returns the current selection.
func (s *Service) Filtered() ([]*element.Record, error) {
	sess, err := s.Current()
	if err != nil {
		return nil, err
	}
	return sess.Filtered(), nil
}

func meshIDs(ix *index.Index) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, rec := range ix.Records() {
		for _, id := range rec.MeshIDs() {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
