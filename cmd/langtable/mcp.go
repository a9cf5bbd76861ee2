package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/use-agent/langtable/api/handler"
	"github.com/use-agent/langtable/config"
	"github.com/use-agent/langtable/models"
)

// NewMCPCmd creates the mcp command.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve runs as an MCP tool over stdio",
		Long: `MCP starts a Model Context Protocol server on stdin/stdout with one
tool, run_langtable, which crawls an index page and returns the run report
as JSON. Logs go to stderr; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
	}
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Output.Stdout {
		return models.NewScrapeError(models.ErrCodeInvalidInput,
			"stdout output cannot be used with mcp: stdout carries the protocol", nil)
	}

	initLogger(cfg.Log, cmd.ErrOrStderr())

	sink, closeSink, err := buildSink(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeSink()

	s := newMCPServer(cfg, requestRunner(cfg, sink))
	slog.Info("mcp server starting", "version", getVersion())
	return server.ServeStdio(s)
}

// newMCPServer registers the run tool on a fresh MCP server.
func newMCPServer(cfg *config.Config, run handler.RunFunc) *server.MCPServer {
	s := server.NewMCPServer(
		config.AppName,
		getVersion(),
		server.WithToolCapabilities(false),
	)
	s.AddTool(runTool(), handleRun(cfg, run))
	return s
}

func runTool() mcp.Tool {
	return mcp.NewTool("run_langtable",
		mcp.WithDescription("Load a wiki index page, follow its detail links and return each item's English, Japanese and Vietnamese names. Uses a headless browser; a full run can take several minutes."),
		mcp.WithString("index_url",
			mcp.Description("Index page listing the items (default: the configured index URL)"),
		),
		mcp.WithString("href_prefix",
			mcp.Description("Path prefix of detail links, e.g. '/wiki/' (default: the configured prefix)"),
		),
		mcp.WithNumber("max_items",
			mcp.Description("Maximum number of detail pages to visit (default: the configured cap, 0 = all)"),
		),
	)
}

// handleRun executes one crawl per call. Calls that arrive while a crawl is
// running are rejected rather than queued.
func handleRun(cfg *config.Config, run handler.RunFunc) server.ToolHandlerFunc {
	var mu sync.Mutex

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := models.RunRequest{
			IndexURL:   request.GetString("index_url", cfg.Crawl.IndexURL),
			HrefPrefix: request.GetString("href_prefix", cfg.Crawl.HrefPrefix),
			MaxItems:   request.GetInt("max_items", 0),
		}
		if req.IndexURL == "" {
			req.IndexURL = cfg.Crawl.IndexURL
		}
		if req.HrefPrefix == "" {
			req.HrefPrefix = cfg.Crawl.HrefPrefix
		}
		if req.MaxItems < 0 {
			return mcp.NewToolResultError("max_items must not be negative"), nil
		}
		if err := config.ValidateIndexURL(req.IndexURL); err != nil {
			return toolError(err), nil
		}

		if !mu.TryLock() {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] a run is already in progress", models.ErrCodeRunActive)), nil
		}
		defer mu.Unlock()

		report, err := run(ctx, req)
		if err != nil && report == nil {
			return toolError(err), nil
		}
		if err != nil {
			slog.Warn("run finished with an output error", "error", err)
		}

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode report: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func toolError(err error) *mcp.CallToolResult {
	d := models.ToDetail(err)
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", d.Code, d.Message))
}
