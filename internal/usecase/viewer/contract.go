package viewer

import (
	"context"
	"io"

	"github.com/kailas-cloud/bimquery/internal/domain/index"
	"github.com/kailas-cloud/bimquery/internal/usecase/indexing"
)

// Parser turns raw model bytes into something the index builder can walk.
type Parser interface {
	Load(ctx context.Context, r io.Reader) (indexing.Model, error)
}

// Builder builds the model index.
type Builder interface {
	Build(ctx context.Context, name string, model indexing.Model, progress indexing.ProgressFunc) (*index.Index, indexing.Report, error)
}

// Scene is the rendering collaborator: it owns mesh visibility.
type Scene interface {
	MeshIDs() []int
	SetVisible(meshID int, visible bool)
	Visible() []int
}

// SceneFactory creates the scene for a freshly indexed model.
type SceneFactory func(meshIDs []int) Scene
