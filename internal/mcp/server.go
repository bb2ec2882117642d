// Package mcp exposes route management as Model Context Protocol tools so
// assistants can inspect and apply routes through the agent.
package mcp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/paularlott/mcp"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
	"github.com/martinsuchenak/routekeeper/internal/routes"
)

// PortLister returns a fresh snapshot of the hardware ports.
type PortLister interface {
	ListPorts(ctx context.Context) ([]model.NetworkPort, error)
}

type Server struct {
	mcp    *mcp.Server
	routes *routes.Manager
	ports  PortLister
	token  string
	tools  []string
}

func NewServer(rm *routes.Manager, ports PortLister, token, version string) *Server {
	s := &Server{
		mcp:    mcp.NewServer("routekeeper", version),
		routes: rm,
		ports:  ports,
		token:  token,
	}
	s.registerTools()
	return s
}

func (s *Server) register(tool *mcp.ToolBuilder, name string, fn func(ctx context.Context, req *mcp.ToolRequest) (any, error)) {
	s.tools = append(s.tools, name)
	s.mcp.RegisterTool(tool, func(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
		result, err := fn(ctx, req)
		if err != nil {
			log.Warn("MCP tool failed", "tool", name, "error", err)
			return nil, err
		}
		return textResponse(result)
	})
}

func (s *Server) registerTools() {
	s.register(mcp.NewTool("list_routes", "List all configured routes with their last observed state"),
		"list_routes", func(ctx context.Context, req *mcp.ToolRequest) (any, error) {
			return s.routes.List(nil)
		})

	s.register(mcp.NewTool("get_route", "Get one route by ID",
		mcp.String("id", "Route ID", mcp.Required())),
		"get_route", func(ctx context.Context, req *mcp.ToolRequest) (any, error) {
			id, err := req.String("id")
			if err != nil {
				return nil, err
			}
			return s.routes.Get(id)
		})

	s.register(mcp.NewTool("create_route", "Create a route definition. It is not applied until apply_route is called",
		mcp.String("name", "Display name", mcp.Required()),
		mcp.String("ip_address", "Destination network, e.g. 192.168.10.0", mcp.Required()),
		mcp.String("subnet_mask", "Subnet mask, e.g. 255.255.255.0", mcp.Required()),
		mcp.String("gateway", "Next hop IPv4 address", mcp.Required()),
		mcp.String("interface", "Interface name, e.g. en0", mcp.Required())),
		"create_route", func(ctx context.Context, req *mcp.ToolRequest) (any, error) {
			route, err := routeFromRequest(req)
			if err != nil {
				return nil, err
			}
			if err := s.routes.Create(route); err != nil {
				return nil, err
			}
			return route, nil
		})

	s.register(mcp.NewTool("delete_route", "Delete a route, removing it from the routing table first if active",
		mcp.String("id", "Route ID", mcp.Required())),
		"delete_route", func(ctx context.Context, req *mcp.ToolRequest) (any, error) {
			id, err := req.String("id")
			if err != nil {
				return nil, err
			}
			removal, err := s.routes.Delete(ctx, id)
			if err != nil {
				return nil, err
			}
			if removal != nil {
				return removal, nil
			}
			return map[string]string{"deleted": id}, nil
		})

	s.register(mcp.NewTool("apply_route", "Add a route to the system routing table",
		mcp.String("id", "Route ID", mcp.Required())),
		"apply_route", func(ctx context.Context, req *mcp.ToolRequest) (any, error) {
			id, err := req.String("id")
			if err != nil {
				return nil, err
			}
			return s.routes.Apply(ctx, id)
		})

	s.register(mcp.NewTool("remove_route", "Remove a route from the system routing table",
		mcp.String("id", "Route ID", mcp.Required())),
		"remove_route", func(ctx context.Context, req *mcp.ToolRequest) (any, error) {
			id, err := req.String("id")
			if err != nil {
				return nil, err
			}
			return s.routes.Remove(ctx, id)
		})

	s.register(mcp.NewTool("apply_all_routes", "Add every configured route to the routing table"),
		"apply_all_routes", func(ctx context.Context, req *mcp.ToolRequest) (any, error) {
			summary, err := s.routes.ApplyAll(ctx)
			return batch(summary), err
		})

	s.register(mcp.NewTool("remove_all_routes", "Remove every configured route from the routing table"),
		"remove_all_routes", func(ctx context.Context, req *mcp.ToolRequest) (any, error) {
			summary, err := s.routes.RemoveAll(ctx)
			return batch(summary), err
		})

	s.register(mcp.NewTool("refresh_routes", "Re-check which routes are present in the routing table"),
		"refresh_routes", func(ctx context.Context, req *mcp.ToolRequest) (any, error) {
			if _, err := s.routes.Refresh(ctx); err != nil {
				return nil, err
			}
			return s.routes.List(nil)
		})

	s.register(mcp.NewTool("list_ports", "List hardware network ports and whether their link is up"),
		"list_ports", func(ctx context.Context, req *mcp.ToolRequest) (any, error) {
			return s.ports.ListPorts(ctx)
		})
}

func routeFromRequest(req *mcp.ToolRequest) (*model.Route, error) {
	route := &model.Route{}
	fields := []struct {
		name string
		dst  *string
	}{
		{"name", &route.Name},
		{"ip_address", &route.IPAddress},
		{"subnet_mask", &route.SubnetMask},
		{"gateway", &route.Gateway},
		{"interface", &route.Interface},
	}
	for _, f := range fields {
		v, err := req.String(f.name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return route, nil
}

type batchResult struct {
	Message string `json:"message"`
	model.BatchSummary
}

func batch(summary model.BatchSummary) batchResult {
	return batchResult{Message: summary.Message(), BatchSummary: summary}
}

func textResponse(v any) (*mcp.ToolResponse, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponseText(string(data)), nil
}

// GetHTTPHandler returns the MCP endpoint, guarded by the bearer token when
// one is configured.
func (s *Server) GetHTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			log.Warn("Unauthorized MCP request", "remote", r.RemoteAddr)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		s.mcp.HandleRequest(w, r)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) == 1
}

// LogStartup logs the registered tools.
func (s *Server) LogStartup() {
	log.Info("MCP tools registered", "count", len(s.tools), "tools", strings.Join(s.tools, ","))
}
