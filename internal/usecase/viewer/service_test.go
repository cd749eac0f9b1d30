package viewer

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/kailas-cloud/bimquery/internal/domain"
	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/repository/scene"
	"github.com/kailas-cloud/bimquery/internal/usecase/indexing"
)

type stubModel struct{}

func (stubModel) EnumerateByClass(_ context.Context, class string) ([]int, error) {
	switch class {
	case "IFCWALL":
		return []int{1, 2}, nil
	case "IFCDOOR":
		return []int{3}, nil
	}
	return nil, nil
}

func (stubModel) Attributes(_ context.Context, id int) (indexing.RawAttributes, error) {
	return indexing.RawAttributes{Name: "element"}, nil
}

func (stubModel) PropertySets(_ context.Context, _ int) ([]indexing.RawPropertySet, error) {
	return nil, nil
}

func (stubModel) Meshes(_ context.Context) ([]indexing.Mesh, error) {
	return []indexing.Mesh{
		{ID: 10, ExpressIDs: []int{1}},
		{ID: 20, ExpressIDs: []int{2}},
		{ID: 30, ExpressIDs: []int{3, 3}},
	}, nil
}

type stubParser struct {
	err  error
	read string
}

func (p *stubParser) Load(_ context.Context, r io.Reader) (indexing.Model, error) {
	b, _ := io.ReadAll(r)
	p.read = string(b)
	if p.err != nil {
		return nil, p.err
	}
	return stubModel{}, nil
}

func newService(p Parser) *Service {
	return New(p, indexing.New([]string{"IFCWALL", "IFCDOOR"}, 0), func(ids []int) Scene { return scene.New(ids) })
}

func TestService_CurrentBeforeLoad(t *testing.T) {
	svc := newService(&stubParser{})

	if _, err := svc.Current(); !errors.Is(err, domain.ErrNoModelLoaded) {
		t.Fatalf("expected ErrNoModelLoaded, got %v", err)
	}
	if err := svc.Reset(); !errors.Is(err, domain.ErrNoModelLoaded) {
		t.Fatalf("expected ErrNoModelLoaded from Reset, got %v", err)
	}
}

func TestService_LoadProgressAndSession(t *testing.T) {
	p := &stubParser{}
	svc := newService(p)

	var msgs []string
	sess, err := svc.Load(context.Background(), "demo.ifc", strings.NewReader("payload"), func(m string) {
		msgs = append(msgs, m)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{ProgressReading, ProgressParsing, "Indexing properties…", ProgressDone}
	if !slices.Equal(msgs, want) {
		t.Errorf("progress = %q, want %q", msgs, want)
	}
	if p.read != "payload" {
		t.Errorf("parser got %q", p.read)
	}
	if sess.Name != "demo.ifc" || sess.Index.Len() != 3 {
		t.Errorf("unexpected session %s with %d elements", sess.Name, sess.Index.Len())
	}
	cur, _ := svc.Current()
	if cur != sess {
		t.Error("loaded session is not current")
	}
	if got := sess.Scene.MeshIDs(); !slices.Equal(got, []int{10, 20, 30}) {
		t.Errorf("scene meshes = %v", got)
	}
}

func TestService_FailedLoadKeepsPrevious(t *testing.T) {
	p := &stubParser{}
	svc := newService(p)
	first, err := svc.Load(context.Background(), "a.ifc", strings.NewReader("x"), nil)
	if err != nil {
		t.Fatal(err)
	}

	p.err = errors.New("syntax error")
	var last string
	_, err = svc.Load(context.Background(), "b.ifc", strings.NewReader("y"), func(m string) { last = m })

	if !errors.Is(err, domain.ErrParseFailure) {
		t.Fatalf("expected ErrParseFailure, got %v", err)
	}
	if last != ProgressDone {
		t.Errorf("final progress = %q, want empty", last)
	}
	cur, _ := svc.Current()
	if cur != first {
		t.Error("previous session should remain current")
	}
}

func TestSession_IsolateAndReset(t *testing.T) {
	svc := newService(&stubParser{})
	sess, err := svc.Load(context.Background(), "m.ifc", strings.NewReader("x"), nil)
	if err != nil {
		t.Fatal(err)
	}

	wall, _ := sess.Index.Get(2)
	door, _ := sess.Index.Get(3)
	if err := svc.Isolate([]*element.Record{door, wall}); err != nil {
		t.Fatal(err)
	}

	if got := sess.Scene.Visible(); !slices.Equal(got, []int{20, 30}) {
		t.Errorf("visible after isolate = %v", got)
	}
	if got := sess.FilteredIDs(); !slices.Equal(got, []int{3, 2}) {
		t.Errorf("filtered ids = %v", got)
	}
	recs, _ := svc.Filtered()
	if len(recs) != 2 || recs[0].ExpressID() != 3 {
		t.Errorf("filtered records = %v", recs)
	}

	if err := svc.Reset(); err != nil {
		t.Fatal(err)
	}
	if got := sess.Scene.Visible(); !slices.Equal(got, []int{10, 20, 30}) {
		t.Errorf("visible after reset = %v", got)
	}
	if len(sess.FilteredIDs()) != 0 {
		t.Error("reset should clear the selection")
	}
}
