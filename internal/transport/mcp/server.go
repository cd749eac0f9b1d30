// Package mcp exposes the query engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"net/http"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimquery/internal/domain/element"
	"github.com/kailas-cloud/bimquery/internal/domain/filter"
	"github.com/kailas-cloud/bimquery/internal/domain/schema"
	queryuc "github.com/kailas-cloud/bimquery/internal/usecase/query"
	vieweruc "github.com/kailas-cloud/bimquery/internal/usecase/viewer"
)

// Querier is the query surface the tools call.
type Querier interface {
	Ask(ctx context.Context, prompt string, strict bool) (queryuc.Result, error)
	Filter(ctx context.Context, spec filter.Spec) (queryuc.Result, error)
	Schema(ctx context.Context, strict bool) (schema.Summary, error)
	Element(ctx context.Context, id int) (*element.Record, error)
}

// Sessions provides the loaded model.
type Sessions interface {
	Current() (*vieweruc.Session, error)
}

// Server is an MCP server over the current model.
type Server struct {
	query    Querier
	sessions Sessions
	logger   *zap.Logger
	mcp      *sdk.Server
}

// NewServer creates the server and registers its tools.
func NewServer(query Querier, sessions Sessions, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		query:    query,
		sessions: sessions,
		logger:   logger,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "bimquery",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves over transport until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}

// Handler serves the streamable HTTP transport.
func (s *Server) Handler() http.Handler {
	return sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server { return s.mcp }, nil)
}
