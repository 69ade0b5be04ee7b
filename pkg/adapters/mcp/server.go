package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/internal/runtime"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// ManifestURI is the resource exposing the routes of the manifest.
const ManifestURI = "tessera://manifest"

// PageResponse aligns with the HTTP adapter and provides a unified structure across adapters.
type PageResponse struct {
	SessionID string                 `json:"session_id" jsonschema_description:"The session the page belongs to"`
	Managed   bool                   `json:"managed" jsonschema_description:"False when no route manages the resource and the host should follow it as an external link"`
	State     *domain.State          `json:"state,omitempty" jsonschema_description:"The state of the last applied change"`
	Slots     []domain.SlotSnapshot `json:"slots" jsonschema_description:"Mounted slots and the phase of their fragment"`
	Status    domain.StatusDetails   `json:"status" jsonschema_description:"Aggregated page status"`
	Markup    string                 `json:"markup,omitempty" jsonschema_description:"Composed page markup"`
	Error     string                 `json:"error,omitempty" jsonschema_description:"Errors raised while applying the change"`
}

// NavigateArgs are the arguments of the navigate tool.
type NavigateArgs struct {
	SessionID string `json:"session_id"`
	Resource  string `json:"resource"`
	Event     string `json:"event"`
	Extra     string `json:"extra"`
}

// SessionArgs select a session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// RouteInfo describes a route of the manifest.
type RouteInfo struct {
	Name      string            `json:"name"`
	Paths     []string          `json:"paths,omitempty"`
	Placement map[string]string `json:"placement,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Host is the session host the server drives. *session.Host implements it.
type Host interface {
	Navigate(ctx context.Context, sessionID string, change domain.Change) (session.Result, error)
	Inspect(sessionID string) (session.Result, error)
	Close(ctx context.Context, sessionID string) error
}

// Server exposes a session Host as an MCP Server, so agents can drive pages.
type Server struct {
	host      Host
	manifest  *domain.Manifest
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(host Host, manifest *domain.Manifest, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		host:      host,
		manifest:  manifest,
		logger:    logger,
		mcpServer: server.NewMCPServer("tessera-mcp", tessera.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: navigate
	navigateTool := mcp.NewTool("navigate",
		mcp.WithDescription("Apply a navigation to the page of a session. Omit session_id to start a new session."),
		mcp.WithString("resource", mcp.Required(), mcp.Description("The resource (path) to navigate to")),
		mcp.WithString("session_id", mcp.Description("The session to navigate (optional)")),
		mcp.WithString("event", mcp.Description("Event tag, defaults to navigate")),
		mcp.WithString("extra", mcp.Description("JSON object merged into the state (optional)")),
		mcp.WithOutputSchema[PageResponse](),
	)
	s.mcpServer.AddTool(navigateTool, mcp.NewStructuredToolHandler(s.handleNavigate))

	// TOOL: inspect_page
	inspectTool := mcp.NewTool("inspect_page",
		mcp.WithDescription("Describe the current page of a session: state, mounted slots, status and markup."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to inspect")),
		mcp.WithOutputSchema[PageResponse](),
	)
	s.mcpServer.AddTool(inspectTool, mcp.NewStructuredToolHandler(s.handleInspect))

	// TOOL: close_session
	s.mcpServer.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Unmount the page of a session and forget it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The session to close")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := s.host.Close(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("close failed: %v", err)), nil
		}
		return mcp.NewToolResultText("closed " + id), nil
	})

	// TOOL: list_routes
	s.mcpServer.AddTool(mcp.NewTool("list_routes",
		mcp.WithDescription("List the routes of the manifest and the fragment placed in each slot."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.routes())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleNavigate(ctx context.Context, request mcp.CallToolRequest, args NavigateArgs) (PageResponse, error) {
	resource, err := tessera.SanitizeResource(args.Resource)
	if err != nil {
		return PageResponse{}, err
	}
	change := domain.Change{Resource: resource, Event: args.Event}
	if change.Event == "" {
		change.Event = domain.EventNavigate
	}
	if args.Extra != "" {
		if err := json.Unmarshal([]byte(args.Extra), &change.Extra); err != nil {
			return PageResponse{}, fmt.Errorf("invalid extra: %w", err)
		}
	}

	res, err := s.host.Navigate(ctx, args.SessionID, change)
	if err != nil && res.SessionID == "" {
		return PageResponse{}, fmt.Errorf("navigate failed: %w", err)
	}
	resp := pageOf(res)
	if err != nil {
		s.logger.Error("MCP Navigate: lifecycle errors", "session_id", res.SessionID, "err", err)
		resp.Error = err.Error()
	}
	return resp, nil
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (PageResponse, error) {
	res, err := s.host.Inspect(args.SessionID)
	if err != nil {
		return PageResponse{}, err
	}
	return pageOf(res), nil
}

func pageOf(res session.Result) PageResponse {
	resp := PageResponse{
		SessionID: res.SessionID,
		Managed:   res.Managed,
		State:     res.State,
		Slots:     res.Slots,
		Status:    res.Status.Details,
	}
	if resp.Slots == nil {
		resp.Slots = []domain.SlotSnapshot{}
	}
	if page, ok := res.Container.(interface{ Markup() string }); ok {
		resp.Markup = page.Markup()
	}
	return resp
}

func (s *Server) routes() []RouteInfo {
	reconciler := runtime.NewReconciler(s.manifest, nil)
	out := make([]RouteInfo, 0, len(s.manifest.Routes))
	for _, r := range s.manifest.Routes {
		info := RouteInfo{Name: r.Name, Paths: r.AllPaths()}
		if p, err := reconciler.Placement(r.Name); err != nil {
			info.Error = err.Error()
		} else {
			info.Placement = p
		}
		out = append(out, info)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Server) registerResources() {
	// EXPOSE: tessera://manifest
	s.mcpServer.AddResource(mcp.NewResource(ManifestURI, "Manifest Routes",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.routes())
		if err != nil {
			return nil, fmt.Errorf("failed to encode routes: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ManifestURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
