// Package mcp exposes the bookmark collection as Model Context Protocol
// tools, so assistants can read and add bookmarks through the same server
// the terminal client uses.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/logger"
	"github.com/nocdn/volumes/internal/remote"
	"github.com/nocdn/volumes/internal/search"
)

const extractTimeout = 5 * time.Second

// Collection is the subset of the remote API the tools need.
type Collection interface {
	List(ctx context.Context, limit int) ([]bookmark.Item, error)
	Create(ctx context.Context, draft bookmark.Draft) (string, error)
	Delete(ctx context.Context, id string) error
	Extract(ctx context.Context, rawURL string) (string, error)
}

var _ Collection = (*remote.Client)(nil)

// NewServer builds an MCP server with every bookmark tool registered.
func NewServer(version string, coll Collection, log logger.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"volumes",
		version,
		server.WithToolCapabilities(true),
	)
	RegisterReadTools(s, coll)
	RegisterWriteTools(s, coll, log)
	return s
}

// ServeStdio runs s over stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// RegisterReadTools adds the read-only tools.
func RegisterReadTools(s *server.MCPServer, coll Collection) {
	s.AddTool(listTool(), listHandler(coll))
	s.AddTool(searchTool(), searchHandler(coll))
}

// RegisterWriteTools adds the tools that change the collection.
func RegisterWriteTools(s *server.MCPServer, coll Collection, log logger.Logger) {
	if log == nil {
		log = logger.Nop()
	}
	s.AddTool(addTool(), addHandler(coll, log))
	s.AddTool(deleteTool(), deleteHandler(coll))
}

// --- list ---

func listTool() mcp.Tool {
	return mcp.NewTool("list",
		mcp.WithDescription("List saved bookmarks, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of bookmarks to return (1-100, default 100)."),
		),
		mcp.WithString("tag",
			mcp.Description("Only return bookmarks carrying this tag."),
		),
	)
}

func listHandler(coll Collection) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", bookmark.SnapshotLimit)
		items, err := coll.List(ctx, limit)
		if err != nil {
			return toolError(err)
		}
		if tag := strings.TrimPrefix(strings.TrimSpace(req.GetString("tag", "")), "#"); tag != "" {
			items = search.New(search.ModeSubstring).Filter(items, "#"+tag)
		}
		return formatItems(items)
	}
}

// --- search ---

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Search bookmarks by title, URL, tags and comment. Words starting with # are required tags."),
		mcp.WithString("query",
			mcp.Description("Search query, e.g. \"golang #tools\""),
			mcp.Required(),
		),
		mcp.WithString("mode",
			mcp.Description("Matching strategy: substring (default) or fuzzy."),
		),
	)
}

func searchHandler(coll Collection) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := strings.TrimSpace(req.GetString("query", ""))
		if query == "" {
			return toolError(fmt.Errorf("query is required"))
		}
		mode, err := search.ParseMode(req.GetString("mode", ""))
		if err != nil {
			return toolError(err)
		}

		items, err := coll.List(ctx, bookmark.SnapshotLimit)
		if err != nil {
			return toolError(err)
		}
		matches := search.New(mode).Filter(items, query)
		if len(matches) == 0 {
			return mcp.NewToolResultText("No results found."), nil
		}
		return formatItems(matches)
	}
}

// --- add ---

func addTool() mcp.Tool {
	return mcp.NewTool("add",
		mcp.WithDescription("Save a bookmark. The page title is fetched when not given."),
		mcp.WithString("url",
			mcp.Description("Address to save; https:// is assumed when no scheme is given."),
			mcp.Required(),
		),
		mcp.WithString("title",
			mcp.Description("Title to store instead of the fetched one."),
		),
		mcp.WithString("tags",
			mcp.Description("Comma or space separated tags."),
		),
		mcp.WithString("comment",
			mcp.Description("Free-text note."),
		),
	)
}

func addHandler(coll Collection, log logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawURL := bookmark.NormalizeURL(req.GetString("url", ""))
		if rawURL == "" {
			return toolError(fmt.Errorf("url is required"))
		}

		title := strings.TrimSpace(req.GetString("title", ""))
		if title == "" {
			extractCtx, cancel := context.WithTimeout(ctx, extractTimeout)
			extracted, err := coll.Extract(extractCtx, rawURL)
			cancel()
			if err != nil {
				log.Warn("title extraction failed",
					logger.String("url", rawURL),
					logger.Error(err))
			}
			title = extracted
		}

		draft := bookmark.Draft{
			URL:     rawURL,
			Title:   title,
			Tags:    bookmark.ParseTagList(req.GetString("tags", "")),
			Comment: strings.TrimSpace(req.GetString("comment", "")),
		}.Normalize()

		id, err := coll.Create(ctx, draft)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(fmt.Sprintf("Saved %s  %s  %s", id, draft.Title, draft.URL)), nil
	}
}

// --- delete ---

func deleteTool() mcp.Tool {
	return mcp.NewTool("delete",
		mcp.WithDescription("Delete a bookmark by id."),
		mcp.WithString("id",
			mcp.Description("Bookmark id as shown by list or search."),
			mcp.Required(),
		),
	)
}

func deleteHandler(coll Collection) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := strings.TrimSpace(req.GetString("id", ""))
		if id == "" {
			return toolError(fmt.Errorf("id is required"))
		}
		if err := coll.Delete(ctx, id); err != nil {
			if errors.Is(err, remote.ErrNotFound) {
				return toolError(fmt.Errorf("no bookmark with id %s", id))
			}
			return toolError(err)
		}
		return mcp.NewToolResultText("Deleted " + id), nil
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func formatItems(items []bookmark.Item) (*mcp.CallToolResult, error) {
	if len(items) == 0 {
		return mcp.NewToolResultText("No results."), nil
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(formatItem(item))
		sb.WriteByte('\n')
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func formatItem(item bookmark.Item) string {
	line := fmt.Sprintf("%s  %s  %s  %s", item.ID, bookmark.FormatDate(item.CreatedAt), item.Title, item.URL)
	if len(item.Tags) > 0 {
		line += "  #" + strings.Join(item.Tags, " #")
	}
	if item.Comment != "" {
		line += "  // " + item.Comment
	}
	return line
}
