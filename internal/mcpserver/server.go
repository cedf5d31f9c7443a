// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Timberline catalog tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/timberline/internal/apperr"
	"github.com/starford/timberline/internal/catalog"
	"github.com/starford/timberline/internal/models"
	"github.com/starford/timberline/internal/productservice"
)

const contractURI = "timberline://product-format"

// Server wraps the MCP server with Timberline tools.
type Server struct {
	mcp *server.MCPServer
	svc *productservice.Service
}

// New creates a new MCP server with all Timberline tools registered.
func New(svc *productservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Timberline",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("query_products",
		mcp.WithDescription("Filter and sort the product catalog. All filters are optional and combine with AND."),
		mcp.WithString("search", mcp.Description("Case-insensitive substring of name, species, category or description")),
		mcp.WithString("category", mcp.Description("Exact category, e.g. lumber or slab")),
		mcp.WithString("species", mcp.Description("Exact species, e.g. walnut")),
		mcp.WithNumber("minPrice", mcp.Description("Inclusive lower price bound")),
		mcp.WithNumber("maxPrice", mcp.Description("Inclusive upper price bound")),
		mcp.WithString("grainPattern", mcp.Description("Comma separated grain tags; any overlap matches")),
		mcp.WithBoolean("inStock", mcp.Description("true restricts to in-stock products")),
		mcp.WithBoolean("featured", mcp.Description("true restricts to featured products")),
		mcp.WithString("sort", mcp.Description("name (default), price, -price or species")),
	), s.queryProducts)

	s.mcp.AddTool(mcp.NewTool("get_product",
		mcp.WithDescription("Read a single product by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Product id")),
	), s.getProduct)

	s.mcp.AddTool(mcp.NewTool("upsert_product",
		mcp.WithDescription("Create a custom product, or replace one when the id already exists. "+
			"The record MUST follow the product contract; read it first via get_product_contract "+
			"or the "+contractURI+" resource."),
		mcp.WithString("product", mcp.Required(), mcp.Description("Product record as a JSON object")),
	), s.upsertProduct)

	s.mcp.AddTool(mcp.NewTool("delete_product",
		mcp.WithDescription("Delete a custom product. Built-in products cannot be deleted."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Product id")),
	), s.deleteProduct)

	s.mcp.AddTool(mcp.NewTool("get_product_contract",
		mcp.WithDescription("Returns the product record contract. "+
			"Call this before creating or updating products."),
	), s.getProductContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Product Record Contract",
			mcp.WithResourceDescription("Shape and rules of Timberline product records."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

// filterArgs turns the flat tool arguments into the filter criteria shape.
func filterArgs(args map[string]any) map[string]any {
	criteria := make(map[string]any, len(args))
	for _, k := range []string{"search", "category", "species", "grainPattern", "inStock", "featured"} {
		if v, ok := args[k]; ok {
			criteria[k] = v
		}
	}
	pr := map[string]any{}
	if v, ok := args["minPrice"]; ok {
		pr["min"] = v
	}
	if v, ok := args["maxPrice"]; ok {
		pr["max"] = v
	}
	if len(pr) > 0 {
		criteria["priceRange"] = pr
	}
	return criteria
}

func (s *Server) queryProducts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	f := catalog.ParseFilter(filterArgs(args))
	key := catalog.ParseSortKey(req.GetString("sort", ""))

	res, err := s.svc.Query(ctx, f, key)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Get(ctx, id)
	if err != nil {
		return toolError(id, err), nil
	}
	out, _ := json.MarshalIndent(p, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) upsertProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("product")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var p models.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid product JSON: %v", err)), nil
	}

	var saved *models.Product
	if p.ID != "" {
		saved, err = s.svc.Update(ctx, p.ID, p, "")
		if errors.Is(err, apperr.ErrNotFound) {
			saved, err = s.svc.Create(ctx, p)
		}
	} else {
		saved, err = s.svc.Create(ctx, p)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", saved.ID)), nil
}

func (s *Server) deleteProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found or built-in: %s", id)), nil
		}
		return toolError(id, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

// toolError reports a missing product as such and any other failure verbatim.
func toolError(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) getProductContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ProductFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     ProductFormatContract,
		},
	}, nil
}
