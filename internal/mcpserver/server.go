// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes zettel queries for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/noteservice"
)

const syntaxURI = "zettel://syntax"

// Server wraps the MCP server with zettel tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all zettel tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"zettel",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_fulltext",
		mcp.WithDescription("Full-text search through note bodies, most relevant first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchFullText)

	s.mcp.AddTool(mcp.NewTool("search_tags",
		mcp.WithDescription("Find notes carrying a tag that contains the query (e.g. 'project' matches #project-x)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Tag substring, with or without the leading #")),
	), s.searchTags)

	s.mcp.AddTool(mcp.NewTool("search_links",
		mcp.WithDescription("Find notes linking to a target that contains the query. Use a note's file name to list its backlinks."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Link target substring")),
	), s.searchLinks)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Return a note's title, path, headers, tags and links by identity."),
		mcp.WithString("identity", mcp.Required(), mcp.Description("Note identity from a search result")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("reindex_paths",
		mcp.WithDescription("Re-index the given notes after they were edited outside a watched session."),
		mcp.WithArray("paths", mcp.Required(), mcp.WithStringItems(),
			mcp.Description("Note paths, relative to the wiki root or absolute")),
	), s.reindexPaths)

	s.mcp.AddResource(
		mcp.NewResource(syntaxURI, "Indexing Rules",
			mcp.WithResourceDescription("How titles, headers, tags and links are extracted from notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func projections(ps []models.Projection, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ps)
}

func (s *Server) searchFullText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return projections(s.svc.FullText(ctx, query, req.GetInt("limit", 20)))
}

func (s *Server) searchTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return projections(s.svc.Tags(ctx, query))
}

func (s *Server) searchLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return projections(s.svc.Links(ctx, query))
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("identity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Note(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(note)
}

type reindexResult struct {
	Indexed  int      `json:"indexed"`
	Failures []string `json:"failures,omitempty"`
}

func (s *Server) reindexPaths(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := req.RequireStringSlice("paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := s.svc.IndexPaths(ctx, paths)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := reindexResult{Indexed: rep.Indexed}
	for _, f := range rep.Failures {
		res.Failures = append(res.Failures, f.Error())
	}
	return jsonResult(res)
}

func (s *Server) readSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      syntaxURI,
			MIMEType: "text/markdown",
			Text:     SyntaxGuide,
		},
	}, nil
}
