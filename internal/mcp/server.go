package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jcdickinson/docnet/internal/daemon"
	"github.com/jcdickinson/docnet/internal/docs"
	"github.com/jcdickinson/docnet/internal/rpc"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

//go:embed instructions.md
var instructions string

// Backend is the part of the daemon client the MCP server uses.
type Backend interface {
	Index(ctx context.Context, assemblies []rpc.AssemblySpec, onProgress func(string)) (*rpc.IndexResponse, error)
	GetDoc(ctx context.Context, req rpc.GetDocRequest) (*rpc.GetDocResponse, error)
	Resolve(ctx context.Context, req rpc.ResolveRequest) (*rpc.ResolveResponse, error)
	ListMembers(ctx context.Context, req rpc.ListMembersRequest) (*rpc.ListMembersResponse, error)
	Unresolved(ctx context.Context, req rpc.UnresolvedRequest) (*rpc.UnresolvedResponse, error)
}

type Server struct {
	mcpServer *server.MCPServer
	client    Backend
}

func NewServer(socketPath string) (*Server, error) {
	client, err := daemon.ConnectOrSpawn(socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to daemon: %w", err)
	}
	return newServer(client), nil
}

func newServer(client Backend) *Server {
	s := &Server{client: client}

	mcpServer := server.NewMCPServer(
		"docnet",
		"0.1.0",
		server.WithInstructions(instructions),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("index_assemblies",
			mcp.WithDescription("Correlate XML documentation with the members of one or more assemblies and store the rendered pages. Synchronous, returns when complete."),
			indexSchema,
		),
		s.handleIndex,
	)

	mcpServer.AddTool(
		mcp.NewTool("resolve_doc_id",
			mcp.WithDescription("Resolve a doc-id (e.g. \"M:Acme.Widget.Resize(System.Int32)\") against an indexed assembly. Returns the canonical doc-id and URI, or the reason it matched no member."),
			mcp.WithString("assembly",
				mcp.Description("Assembly name"),
				mcp.Required(),
			),
			mcp.WithString("doc_id",
				mcp.Description("Doc-id to resolve"),
				mcp.Required(),
			),
		),
		s.handleResolve,
	)

	mcpServer.AddTool(
		mcp.NewTool("list_members",
			mcp.WithDescription("List the members of an indexed assembly, optionally limited to one declaring type. Returns URIs that can be read as resources."),
			mcp.WithString("assembly",
				mcp.Description("Assembly name"),
				mcp.Required(),
			),
			mcp.WithString("type",
				mcp.Description("Declaring type, e.g. \"Acme.Widget\" or \"Acme.Bag`1\""),
			),
		),
		s.handleListMembers,
	)

	mcpServer.AddTool(
		mcp.NewTool("list_unresolved",
			mcp.WithDescription("List documentation entries of an assembly that matched no member, with the reason."),
			mcp.WithString("assembly",
				mcp.Description("Assembly name"),
				mcp.Required(),
			),
			mcp.WithString("reason",
				mcp.Description("Only this reason"),
				mcp.Enum("no_candidate_type", "no_candidate_member", "ambiguous_overload", "parameter_count_mismatch", "malformed_doc_id"),
			),
		),
		s.handleListUnresolved,
	)

	mcpServer.AddTool(
		mcp.NewTool("get_doc",
			mcp.WithDescription("Read the documentation page of a doc-id, or one section of it."),
			mcp.WithString("assembly",
				mcp.Description("Assembly name"),
				mcp.Required(),
			),
			mcp.WithString("doc_id",
				mcp.Description("Doc-id of the type or member"),
				mcp.Required(),
			),
			mcp.WithString("section",
				mcp.Description("Heading of a single section, e.g. \"Remarks\" or \"Parameters\""),
			),
		),
		s.handleGetDoc,
	)
}

func indexSchema(t *mcp.Tool) {
	t.InputSchema.Required = append(t.InputSchema.Required, "assemblies")
	t.InputSchema.Properties["assemblies"] = map[string]any{
		"type":        "array",
		"description": "Assemblies to index",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"members": map[string]any{
					"type":        "string",
					"description": "Absolute path of the member manifest (JSON, optionally .zst)",
				},
				"docs": map[string]any{
					"type":        "string",
					"description": "Absolute path of the XML documentation file (optionally .zst)",
				},
			},
			"required": []string{"members", "docs"},
		},
	}
}

func (s *Server) registerResources(mcpServer *server.MCPServer) {
	mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			docs.Scheme+"://{assembly}/{docid}",
			".NET documentation page",
			mcp.WithTemplateDescription("Read the documentation of a type, member or namespace. list_members and resolve_doc_id return these URIs."),
			mcp.WithTemplateMIMEType("text/markdown"),
		),
		s.handleReadResource,
	)
}

func (s *Server) handleIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	raw, ok := args["assemblies"]
	if !ok {
		return mcp.NewToolResultError("missing required parameter: assemblies"), nil
	}

	specsJSON, err := json.Marshal(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid assemblies parameter: %v", err)), nil
	}

	var specs []rpc.AssemblySpec
	if err := json.Unmarshal(specsJSON, &specs); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid assemblies format: %v", err)), nil
	}

	resp, err := s.client.Index(ctx, specs, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to index: %v", err)), nil
	}
	return jsonResult(resp.Results)
}

func (s *Server) handleResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	assembly, docID, errResult := requireAssemblyAndDocID(req)
	if errResult != nil {
		return errResult, nil
	}

	resp, err := s.client.Resolve(ctx, rpc.ResolveRequest{Assembly: assembly, DocID: docID})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("resolve failed: %v", err)), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleListMembers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	assembly, _ := args["assembly"].(string)
	if assembly == "" {
		return mcp.NewToolResultError("missing required parameter: assembly"), nil
	}
	typ, _ := args["type"].(string)

	resp, err := s.client.ListMembers(ctx, rpc.ListMembersRequest{Assembly: assembly, Type: typ})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing members failed: %v", err)), nil
	}
	return jsonResult(resp.Members)
}

func (s *Server) handleListUnresolved(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	assembly, _ := args["assembly"].(string)
	if assembly == "" {
		return mcp.NewToolResultError("missing required parameter: assembly"), nil
	}
	reason, _ := args["reason"].(string)

	resp, err := s.client.Unresolved(ctx, rpc.UnresolvedRequest{Assembly: assembly, Reason: reason})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing unresolved failed: %v", err)), nil
	}
	return jsonResult(resp.Entries)
}

func (s *Server) handleGetDoc(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	assembly, docID, errResult := requireAssemblyAndDocID(req)
	if errResult != nil {
		return errResult, nil
	}
	section, _ := req.GetArguments()["section"].(string)

	resp, err := s.client.GetDoc(ctx, rpc.GetDocRequest{Assembly: assembly, DocID: docID, Section: section})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("getting doc failed: %v", err)), nil
	}
	return mcp.NewToolResultText(resp.Markdown), nil
}

func (s *Server) handleReadResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	assembly, docID, err := docs.ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid resource URI: %w", err)
	}

	resp, err := s.client.GetDoc(ctx, rpc.GetDocRequest{Assembly: assembly, DocID: docID})
	if err != nil {
		return nil, fmt.Errorf("getting doc: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     resp.Markdown,
		},
	}, nil
}

func requireAssemblyAndDocID(req mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	args := req.GetArguments()
	assembly, _ := args["assembly"].(string)
	if assembly == "" {
		return "", "", mcp.NewToolResultError("missing required parameter: assembly")
	}
	docID, _ := args["doc_id"].(string)
	if docID == "" {
		return "", "", mcp.NewToolResultError("missing required parameter: doc_id")
	}
	return assembly, docID, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) Shutdown(_ context.Context) error {
	return nil
}
