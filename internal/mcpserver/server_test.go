package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/timberline/internal/apperr"
	"github.com/starford/timberline/internal/productservice"
	"github.com/starford/timberline/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cat := testutil.TestCatalog(t, testutil.TestFS(t))
	svc := productservice.NewService(cat, nil, testutil.Logger(), nil)
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "query_products":
		result, err = srv.queryProducts(ctx, req)
	case "get_product":
		result, err = srv.getProduct(ctx, req)
	case "upsert_product":
		result, err = srv.upsertProduct(ctx, req)
	case "delete_product":
		result, err = srv.deleteProduct(ctx, req)
	case "get_product_contract":
		result, err = srv.getProductContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func queryIDs(t *testing.T, r *mcp.CallToolResult) []string {
	t.Helper()
	var res productservice.Result
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	out := make([]string, len(res.Products))
	for i, p := range res.Products {
		out[i] = p.ID
	}
	return out
}

func TestQueryProducts(t *testing.T) {
	srv := testServer(t)

	ids := queryIDs(t, callTool(t, srv, "query_products", map[string]interface{}{}))
	if strings.Join(ids, ",") != "1,2" {
		t.Errorf("default ids = %v", ids)
	}

	ids = queryIDs(t, callTool(t, srv, "query_products", map[string]interface{}{
		"maxPrice": 50.0,
		"sort":     "price",
	}))
	if strings.Join(ids, ",") != "1" {
		t.Errorf("maxPrice ids = %v", ids)
	}

	ids = queryIDs(t, callTool(t, srv, "query_products", map[string]interface{}{"sort": "-price"}))
	if strings.Join(ids, ",") != "2,1" {
		t.Errorf("-price ids = %v", ids)
	}
}

func TestUpsertGetDelete(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "upsert_product", map[string]interface{}{
		"product": `{"id":"ash-1","name":"Ash Board","category":"lumber","species":"ash","price":30}`,
	})
	if text := resultText(r); text != "saved: ash-1" {
		t.Fatalf("upsert result = %q", text)
	}

	r = callTool(t, srv, "upsert_product", map[string]interface{}{
		"product": `{"id":"ash-1","name":"Ash Board v2","category":"lumber","species":"ash","price":32}`,
	})
	if r.IsError {
		t.Fatalf("second upsert failed: %s", resultText(r))
	}

	r = callTool(t, srv, "get_product", map[string]interface{}{"id": "ash-1"})
	if !strings.Contains(resultText(r), "Ash Board v2") {
		t.Errorf("get = %s", resultText(r))
	}

	r = callTool(t, srv, "delete_product", map[string]interface{}{"id": "ash-1"})
	if text := resultText(r); text != "deleted: ash-1" {
		t.Errorf("delete result = %q", text)
	}

	r = callTool(t, srv, "get_product", map[string]interface{}{"id": "ash-1"})
	if !r.IsError {
		t.Error("expected error for deleted product")
	}
}

func TestUpsertInvalid(t *testing.T) {
	srv := testServer(t)
	for _, raw := range []string{`{not json`, `{"name":"x","category":"furniture","species":"oak","price":1}`} {
		r := callTool(t, srv, "upsert_product", map[string]interface{}{"product": raw})
		if !r.IsError {
			t.Errorf("expected error for %s", raw)
		}
	}
}

func TestDeleteBuiltIn(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "delete_product", map[string]interface{}{"id": "1"})
	if !r.IsError {
		t.Error("expected error deleting a built-in product")
	}
}

func TestGetProductMissingArg(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_product", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing id")
	}
}

func TestGetProductContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_product_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Product Record Contract") {
		t.Error("contract text missing")
	}
}

func TestToolError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", apperr.ErrNotFound, "not found: x1"},
		{"wrapped not found", fmt.Errorf("lookup: %w", apperr.ErrNotFound), "not found: x1"},
		{"other", errors.New("backend timeout"), "backend timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := toolError("x1", tt.err)
			if !r.IsError {
				t.Fatal("expected an error result")
			}
			if got := resultText(r); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetProductMissingReportsNotFound(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_product", map[string]interface{}{"id": "nope"})
	if got := resultText(r); !r.IsError || got != "not found: nope" {
		t.Errorf("result = %q (error %v)", got, r.IsError)
	}
}
