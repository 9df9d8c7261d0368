package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/learningtriangle/ltgate/internal/storage"
)

// MCPStore is the read-only view of the store the staff tools use.
type MCPStore interface {
	ListReviews(ctx context.Context) ([]storage.Review, error)
	GetReview(ctx context.Context, id string) (storage.Review, error)
	ListIntakeRecords(ctx context.Context, kind storage.IntakeKind, limit int) ([]storage.IntakeRecord, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   MCPStore
	Version string
}

const (
	defaultMCPLimit = 20
	maxMCPLimit     = 100
)

// NewMCPServer creates the staff MCP server. Every tool is read-only;
// moderation itself happens outside ltgate.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := server.NewMCPServer(
		"ltgate",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("ltgate staff tools: browse reviews, the moderation queue and intake submissions."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_reviews",
			mcp.WithDescription("List approved (public) reviews, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of reviews (default 20, max 100)")),
		),
		mcpListReviews(deps, func(r storage.Review) bool { return r.Approved }),
	)

	s.AddTool(
		mcp.NewTool("list_pending_reviews",
			mcp.WithDescription("List reviews waiting for moderation, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of reviews (default 20, max 100)")),
		),
		mcpListReviews(deps, func(r storage.Review) bool { return r.Pending }),
	)

	s.AddTool(
		mcp.NewTool("get_review",
			mcp.WithDescription("Fetch a single review by ID, including the author's email."),
			mcp.WithString("id", mcp.Description("Review ID"), mcp.Required()),
		),
		mcpGetReview(deps),
	)

	s.AddTool(
		mcp.NewTool("list_intake",
			mcp.WithDescription("List contact requests or tutor applications, newest first."),
			mcp.WithString("kind", mcp.Description("Submission kind"), mcp.Required(), mcp.Enum("contact", "tutor")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of records (default 20, max 100)")),
		),
		mcpListIntake(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"reviews://stats",
			"Review Statistics",
			mcp.WithResourceDescription("Review counts by moderation state and the average rating"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	return s
}

func mcpLimit(req mcp.CallToolRequest) int {
	limit := req.GetInt("limit", defaultMCPLimit)
	if limit <= 0 {
		return defaultMCPLimit
	}
	return min(limit, maxMCPLimit)
}

func mcpListReviews(deps MCPDeps, keep func(storage.Review) bool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := mcpLimit(req)

		all, err := deps.Store.ListReviews(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list reviews: %v", err)), nil
		}

		out := make([]storage.Review, 0, limit)
		for _, r := range slices.Backward(all) {
			if len(out) == limit {
				break
			}
			if keep(r) {
				out = append(out, r)
			}
		}

		return mcpJSON(out)
	}
}

func mcpGetReview(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		r, err := deps.Store.GetReview(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("review %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get review: %v", err)), nil
		}

		return mcpJSON(r)
	}
}

func mcpListIntake(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind, err := req.RequireString("kind")
		if err != nil {
			return mcpError("kind is required"), nil
		}
		k := storage.IntakeKind(kind)
		if k != storage.IntakeContact && k != storage.IntakeTutor {
			return mcpError(fmt.Sprintf("unknown kind %q (want contact or tutor)", kind)), nil
		}

		recs, err := deps.Store.ListIntakeRecords(ctx, k, mcpLimit(req))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list %s records: %v", kind, err)), nil
		}
		if recs == nil {
			recs = []storage.IntakeRecord{}
		}

		return mcpJSON(recs)
	}
}

// ReviewStats is the body of the reviews://stats resource.
type ReviewStats struct {
	Total         int     `json:"total"`
	Approved      int     `json:"approved"`
	Pending       int     `json:"pending"`
	AverageRating float64 `json:"average_rating"`
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		all, err := deps.Store.ListReviews(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list reviews: %w", err)
		}

		var stats ReviewStats
		sum := 0
		for _, r := range all {
			stats.Total++
			sum += r.Rating
			if r.Approved {
				stats.Approved++
			}
			if r.Pending {
				stats.Pending++
			}
		}
		if stats.Total > 0 {
			stats.AverageRating = float64(sum) / float64(stats.Total)
		}

		b, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
