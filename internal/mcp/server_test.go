package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/jcdickinson/docnet/internal/docs"
	"github.com/jcdickinson/docnet/internal/rpc"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	indexed []rpc.AssemblySpec
	getDoc  []rpc.GetDocRequest
	err     error
}

func (f *fakeBackend) Index(_ context.Context, specs []rpc.AssemblySpec, _ func(string)) (*rpc.IndexResponse, error) {
	f.indexed = append(f.indexed, specs...)
	return &rpc.IndexResponse{Results: []rpc.IndexResult{{Assembly: "Acme.Widgets", Members: 3}}}, f.err
}

func (f *fakeBackend) GetDoc(_ context.Context, req rpc.GetDocRequest) (*rpc.GetDocResponse, error) {
	f.getDoc = append(f.getDoc, req)
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.GetDocResponse{Markdown: "# " + req.DocID + "\n"}, nil
}

func (f *fakeBackend) Resolve(_ context.Context, req rpc.ResolveRequest) (*rpc.ResolveResponse, error) {
	return &rpc.ResolveResponse{DocID: req.DocID, Reason: "resolved", URI: docs.URI(req.Assembly, req.DocID)}, f.err
}

func (f *fakeBackend) ListMembers(_ context.Context, req rpc.ListMembersRequest) (*rpc.ListMembersResponse, error) {
	return &rpc.ListMembersResponse{Members: []rpc.MemberInfo{{DocID: "T:" + req.Type, Kind: "type"}}}, f.err
}

func (f *fakeBackend) Unresolved(_ context.Context, req rpc.UnresolvedRequest) (*rpc.UnresolvedResponse, error) {
	return &rpc.UnresolvedResponse{Entries: []rpc.UnresolvedEntry{{DocID: "M:Acme.Widget.Gone", Reason: req.Reason}}}, f.err
}

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestTools(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{}
	s := newServer(backend)

	t.Run("index", func(t *testing.T) {
		res, err := s.handleIndex(ctx, callTool(map[string]any{
			"assemblies": []any{map[string]any{"members": "/m.json", "docs": "/d.xml"}},
		}))
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Contains(t, text(t, res), `"assembly": "Acme.Widgets"`)
		assert.Equal(t, []rpc.AssemblySpec{{Members: "/m.json", Docs: "/d.xml"}}, backend.indexed)
	})

	t.Run("index_missing", func(t *testing.T) {
		res, err := s.handleIndex(ctx, callTool(map[string]any{}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("resolve", func(t *testing.T) {
		res, err := s.handleResolve(ctx, callTool(map[string]any{
			"assembly": "Acme.Widgets",
			"doc_id":   "T:Acme.Widget",
		}))
		require.NoError(t, err)
		assert.Contains(t, text(t, res), "docnet://Acme.Widgets/T:Acme.Widget")
	})

	t.Run("resolve_missing_doc_id", func(t *testing.T) {
		res, err := s.handleResolve(ctx, callTool(map[string]any{"assembly": "Acme.Widgets"}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("list_members", func(t *testing.T) {
		res, err := s.handleListMembers(ctx, callTool(map[string]any{
			"assembly": "Acme.Widgets",
			"type":     "Acme.Widget",
		}))
		require.NoError(t, err)
		assert.Contains(t, text(t, res), "T:Acme.Widget")
	})

	t.Run("list_unresolved", func(t *testing.T) {
		res, err := s.handleListUnresolved(ctx, callTool(map[string]any{
			"assembly": "Acme.Widgets",
			"reason":   "no_candidate_member",
		}))
		require.NoError(t, err)
		assert.Contains(t, text(t, res), "M:Acme.Widget.Gone")
	})

	t.Run("get_doc", func(t *testing.T) {
		res, err := s.handleGetDoc(ctx, callTool(map[string]any{
			"assembly": "Acme.Widgets",
			"doc_id":   "P:Acme.Widget.Width",
			"section":  "Remarks",
		}))
		require.NoError(t, err)
		assert.Equal(t, "# P:Acme.Widget.Width\n", text(t, res))
		last := backend.getDoc[len(backend.getDoc)-1]
		assert.Equal(t, "Remarks", last.Section)
	})
}

func TestTools_BackendError(t *testing.T) {
	s := newServer(&fakeBackend{err: errors.New("daemon gone")})
	res, err := s.handleGetDoc(context.Background(), callTool(map[string]any{
		"assembly": "Acme.Widgets",
		"doc_id":   "T:Acme.Widget",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "daemon gone")
}

func TestReadResource(t *testing.T) {
	backend := &fakeBackend{}
	s := newServer(backend)

	uri := docs.URI("Acme.Widgets", "M:Acme.Widget.#ctor")
	var req mcp.ReadResourceRequest
	req.Params.URI = uri

	contents, err := s.handleReadResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, uri, tc.URI)
	assert.Equal(t, "text/markdown", tc.MIMEType)
	assert.Equal(t, rpc.GetDocRequest{Assembly: "Acme.Widgets", DocID: "M:Acme.Widget.#ctor"}, backend.getDoc[0])

	req.Params.URI = "https://example.com/x"
	_, err = s.handleReadResource(context.Background(), req)
	assert.Error(t, err)
}
