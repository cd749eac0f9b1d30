// Package indexing builds a Model Index from a parsed model.
package indexing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/index"
	"github.com/kailas-cloud/bimquery/internal/domain/value"
	"github.com/kailas-cloud/bimquery/internal/logger"
	"github.com/kailas-cloud/bimquery/internal/metrics"
)

// DefaultProgressEvery is the element interval between progress messages.
const DefaultProgressEvery = 250

// Report summarizes one build.
type Report struct {
	Elements int            `json:"elements"`
	Skipped  int            `json:"skipped"`
	Classes  map[string]int `json:"classes"`
	Meshes   int            `json:"meshes"`
	Duration time.Duration  `json:"duration"`
}

// Service builds indexes for a fixed list of classes.
type Service struct {
	classes       []string
	progressEvery int
}

// New creates an index builder. Empty classes fall back to index.DefaultClasses.
func New(classes []string, progressEvery int) *Service {
	if len(classes) == 0 {
		classes = index.DefaultClasses
	}
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	normalized := make([]string, 0, len(classes))
	seen := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		key := index.NormalizeClass(c)
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}
		normalized = append(normalized, key)
	}
	return &Service{classes: normalized, progressEvery: progressEvery}
}

// Classes returns the configured class allow-list.
func (s *Service) Classes() []string {
	return append([]string(nil), s.classes...)
}

// Build enumerates every configured class, records each element and attaches
// meshes. name identifies the model in errors and logs. progress may be nil.
// Collaborator calls are issued one at a time.
func (s *Service) Build(ctx context.Context, name string, model Model, progress ProgressFunc) (*index.Index, Report, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}

	ids := make([][]int, len(s.classes))
	total := 0
	for i, class := range s.classes {
		list, err := model.EnumerateByClass(ctx, class)
		if err != nil {
			return nil, Report{}, domain.NewParseError(name, "enumerate "+class, err)
		}
		ids[i] = list
		total += len(list)
	}

	ix := index.New()
	rep := Report{Classes: make(map[string]int, len(s.classes))}

	report("Indexing properties…")
	processed := 0
	for i, class := range s.classes {
		if len(ids[i]) == 0 {
			continue
		}
		if err := ix.DeclareClass(class); err != nil {
			return nil, Report{}, fmt.Errorf("declare class: %w", err)
		}
		for _, id := range ids[i] {
			if err := ctx.Err(); err != nil {
				return nil, Report{}, fmt.Errorf("build index: %w", err)
			}
			processed++
			if processed%s.progressEvery == 0 {
				report(fmt.Sprintf("Indexing… %d/%d", processed, total))
			}

			if _, dup := ix.Get(id); dup {
				continue
			}
			rec, err := s.record(ctx, model, class, id)
			if err != nil {
				rep.Skipped++
				log.Warn("Skipping element",
					zap.String("model", name),
					zap.String("class", class),
					zap.Int("express_id", id),
					zap.Error(err),
				)
				continue
			}
			if err := ix.Add(rec); err != nil {
				return nil, Report{}, fmt.Errorf("add element %d: %w", id, err)
			}
			rep.Elements++
			rep.Classes[class]++
		}
	}

	meshes, err := model.Meshes(ctx)
	if err != nil {
		return nil, Report{}, domain.NewParseError(name, "geometry", err)
	}
	for _, m := range meshes {
		attached := false
		for _, id := range m.ExpressIDs {
			rec, ok := ix.Get(id)
			if !ok {
				continue
			}
			if rec.AttachMesh(m.ID) {
				attached = true
			}
		}
		if attached {
			rep.Meshes++
		}
	}

	ix.Freeze()
	rep.Duration = time.Since(start)

	metrics.IndexBuildDuration.Observe(rep.Duration.Seconds())
	metrics.IndexSkippedTotal.Add(float64(rep.Skipped))
	metrics.IndexedElements.Reset()
	for class, n := range rep.Classes {
		metrics.IndexedElements.WithLabelValues(class).Set(float64(n))
	}

	log.Info("Model indexed",
		zap.String("model", name),
		zap.Int("elements", rep.Elements),
		zap.Int("skipped", rep.Skipped),
		zap.Int("meshes", rep.Meshes),
		zap.Duration("duration", rep.Duration),
	)
	return ix, rep, nil
}

func (s *Service) record(ctx context.Context, model Model, class string, id int) (*element.Record, error) {
	raw, err := model.Attributes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("attributes: %w", err)
	}
	sets, err := model.PropertySets(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("property sets: %w", err)
	}

	attrs := element.Attributes{
		GlobalID:       value.Normalize(raw.GlobalID).String(),
		Name:           value.Normalize(raw.Name).String(),
		PredefinedType: value.Normalize(raw.PredefinedType).String(),
		ObjectType:     value.Normalize(raw.ObjectType).String(),
		Tag:            value.Normalize(raw.Tag).String(),
	}
	return element.New(id, class, attrs, flatten(sets)), nil
}

// flatten merges property sets into pset -> prop -> value. Later sets with
// the same name add to (and override within) earlier ones.
func flatten(sets []RawPropertySet) element.PropertySets {
	out := make(element.PropertySets, len(sets))
	for _, set := range sets {
		name := value.Normalize(set.Name).String()
		if name == "" {
			name = element.UnknownPset
		}
		props, ok := out[name]
		if !ok {
			props = make(map[string]value.Value, len(set.Properties))
			out[name] = props
		}
		for _, p := range set.Properties {
			key := value.Normalize(p.Name).String()
			if key == "" {
				continue
			}
			props[key] = value.Normalize(p.Value)
		}
	}
	return out
}
