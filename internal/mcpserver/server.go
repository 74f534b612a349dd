// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ordna tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/halvard/ordna/internal/fileservice"
	"github.com/halvard/ordna/internal/models"
	"github.com/halvard/ordna/internal/organizer"
	"github.com/halvard/ordna/internal/scan"
	"github.com/halvard/ordna/internal/store"
)

// Server wraps the MCP server with Ordna tools.
type Server struct {
	mcp *server.MCPServer
	svc *fileservice.Service
	db  *store.DB
}

// New creates a new MCP server with all Ordna tools registered.
func New(svc *fileservice.Service, db *store.DB) *Server {
	s := &Server{svc: svc, db: db}

	s.mcp = server.NewMCPServer(
		"Ordna",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_rules",
		mcp.WithDescription("List classification rules in evaluation order (priority, then match count)."),
		mcp.WithBoolean("include_inactive", mcp.Description("Include disabled rules")),
	), s.listRules)

	s.mcp.AddTool(mcp.NewTool("create_rule",
		mcp.WithDescription("Create a classification rule. Patterns MUST follow the rule format "+
			"contract; read it first via the get_rule_contract tool or the ordna://rule-format resource."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Human-readable rule name")),
		mcp.WithString("rule_type", mcp.Required(), mcp.Description("One of: extension, keyword, path, regex, compound, date")),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Pattern following the rule format contract")),
		mcp.WithString("target_type", mcp.Required(), mcp.Description("One of: area, category, folder")),
		mcp.WithString("target_id", mcp.Required(), mcp.Description("Index node id or code, e.g. 11.02")),
	), s.createRule)

	s.mcp.AddTool(mcp.NewTool("classify_file",
		mcp.WithDescription("Classify one file against the active rules without moving it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the file to classify")),
	), s.classifyFile)

	s.mcp.AddTool(mcp.NewTool("scan_directory",
		mcp.WithDescription("Scan a directory, classify every file, and load the results into "+
			"a session working set for review."),
		mcp.WithString("root", mcp.Required(), mcp.Description("Directory to scan")),
	), s.scanDirectory)

	s.mcp.AddTool(mcp.NewTool("organize_ready",
		mcp.WithDescription("Apply every accepted or changed file of a scan session. "+
			"Set dry_run to preview destinations without moving anything."),
		mcp.WithString("scan_session_id", mcp.Required(), mcp.Description("Session whose ready files to organize")),
		mcp.WithBoolean("dry_run", mcp.Description("Preview only; no files are moved")),
	), s.organizeReady)

	s.mcp.AddTool(mcp.NewTool("undo_organize",
		mcp.WithDescription("Move an organized file back to its original location."),
		mcp.WithString("organized_id", mcp.Required(), mcp.Description("History ledger id of the move to undo")),
	), s.undoOrganize)

	s.mcp.AddTool(mcp.NewTool("history_stats",
		mcp.WithDescription("Summary statistics over the organization history ledger."),
	), s.historyStats)

	s.mcp.AddTool(mcp.NewTool("get_rule_contract",
		mcp.WithDescription("Returns the canonical Ordna rule pattern contract. "+
			"Call this before creating rules to ensure correct pattern syntax."),
	), s.getRuleContract)

	// Resource: rule format contract.
	s.mcp.AddResource(
		mcp.NewResource("ordna://rule-format", "Rule Format Contract",
			mcp.WithResourceDescription("Canonical rule pattern syntax that all rules must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRuleFormatResource,
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

func (s *Server) listRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules, err := s.db.ListRules(store.RuleFilter{
		IncludeInactive: req.GetBool("include_inactive", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rules, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ruleType, err := req.RequireString("rule_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	targetType, err := req.RequireString("target_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	targetID, err := req.RequireString("target_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rule, err := s.db.CreateRule(store.RuleDraft{
		Name:       name,
		Type:       models.RuleType(ruleType),
		Pattern:    pattern,
		TargetType: models.TargetType(targetType),
		TargetID:   targetID,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rule, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) classifyFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	desc, err := scan.Describe(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	suggestion, err := s.svc.Classify(desc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !suggestion.Matched() {
		return mcp.NewToolResultText("no rule matched"), nil
	}
	out, _ := json.MarshalIndent(suggestion, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) scanDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := req.RequireString("root")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := s.svc.ScanDirectory(ctx, root, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) organizeReady(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("scan_session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.OrganizeSession(ctx, sessionID, organizer.Options{
		DryRun: req.GetBool("dry_run", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("nothing ready to organize"), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) undoOrganize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("organized_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outcome, err := s.svc.Undo(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !outcome.Undone {
		return mcp.NewToolResultText(fmt.Sprintf("not undone; status is %s", outcome.Status)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("restored to %s", outcome.RestoredPath)), nil
}

func (s *Server) historyStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.db.LedgerStats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(stats, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getRuleContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RuleFormatContract), nil
}

func (s *Server) readRuleFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ordna://rule-format",
			MIMEType: "text/markdown",
			Text:     RuleFormatContract,
		},
	}, nil
}
