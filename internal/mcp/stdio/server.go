// Package stdio serves the note tools over the MCP stdio transport
// using the official SDK. Stdio is a single-client transport, so the
// whole process acts as one session: the tenant is resolved once at
// startup and every tool call operates on that partition.
package stdio

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/logging"
	"github.com/fyrsmithlabs/notesd/internal/notes"
	"github.com/fyrsmithlabs/notesd/internal/render"
)

// Server wraps the SDK server with the single-session state.
type Server struct {
	mcpServer *mcpsdk.Server
	repo      *notes.Repository
	renderer  *render.Renderer // nil when rendering is disabled
	tenant    string
	logger    *logging.Logger
}

// NewServer creates a stdio MCP server bound to one tenant partition.
// renderer may be nil.
func NewServer(repo *notes.Repository, renderer *render.Renderer, tenantID string, logger *logging.Logger) (*Server, error) {
	if repo == nil {
		return nil, fmt.Errorf("note repository is required")
	}
	if tenantID == "" {
		return nil, fmt.Errorf("tenant is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "notesd",
		Version: "0.3.0",
	}, nil)

	s := &Server{
		mcpServer: mcpServer,
		repo:      repo,
		renderer:  renderer,
		tenant:    tenantID,
		logger:    logger.Named("stdio"),
	}
	s.registerTools()

	return s, nil
}

// Run serves the MCP protocol on stdin/stdout until the context is
// cancelled. Log output must already be routed away from stdout.
func (s *Server) Run(ctx context.Context) error {
	ctx = logging.WithTenant(ctx, s.tenant)
	s.logger.Info(ctx, "starting stdio MCP server", zap.String("tenant", s.tenant))

	if err := s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("stdio server error: %w", err)
	}
	return nil
}

type noteAddInput struct {
	Key  string `json:"key,omitempty" jsonschema:"Logical note key, defaults to 'default'"`
	Text string `json:"text" jsonschema:"Note body, must be non-empty"`
}

type noteAddOutput struct {
	ID  string `json:"id" jsonschema:"Identifier of the stored note"`
	Key string `json:"key" jsonschema:"Logical key the note was stored under"`
}

type noteKeyInput struct {
	Key string `json:"key,omitempty" jsonschema:"Logical note key"`
}

type noteGetOutput struct {
	Key       string `json:"key" jsonschema:"Logical key"`
	Text      string `json:"text" jsonschema:"Newest note body"`
	CreatedAt string `json:"created_at" jsonschema:"RFC3339 creation time"`
}

type noteListOutput struct {
	Groups []noteGroup `json:"groups" jsonschema:"Note groups sorted by key"`
	Total  int         `json:"total" jsonschema:"Total number of notes"`
}

type noteGroup struct {
	Key   string   `json:"key" jsonschema:"Logical key"`
	Notes []string `json:"notes" jsonschema:"Note bodies, newest first"`
}

type noteRemoveOutput struct {
	Key string `json:"key" jsonschema:"Logical key whose notes were deleted"`
}

type noteClearOutput struct {
	Removed int `json:"removed" jsonschema:"Number of notes deleted"`
}

type emptyInput struct{}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "note_add",
		Description: "Store a note under a logical key. Notes accumulate; adding never overwrites earlier notes on the same key.",
	}, s.handleNoteAdd)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "note_get",
		Description: "Fetch the newest note for a logical key, rendered as a card image when rendering is enabled.",
	}, s.handleNoteGet)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "note_list",
		Description: "List every stored note, grouped by logical key with the newest note first in each group.",
	}, s.handleNoteList)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "note_remove",
		Description: "Delete every note stored under a logical key.",
	}, s.handleNoteRemove)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "note_clear",
		Description: "Delete every stored note.",
	}, s.handleNoteClear)
}

func (s *Server) handleNoteAdd(ctx context.Context, req *mcpsdk.CallToolRequest, args noteAddInput) (*mcpsdk.CallToolResult, noteAddOutput, error) {
	if strings.TrimSpace(args.Text) == "" {
		return nil, noteAddOutput{}, fmt.Errorf("text must not be empty")
	}

	ctx = logging.WithTenant(ctx, s.tenant)
	rec := s.repo.Add(ctx, s.tenant, args.Key, args.Text)

	content := []mcpsdk.Content{
		&mcpsdk.TextContent{Text: fmt.Sprintf("Stored note %s under %q.", rec.ID, rec.LogicalKey)},
	}
	if s.renderer != nil {
		if png, err := s.renderer.NoteCard(rec.LogicalKey, rec.Text, rec.CreatedAt); err != nil {
			s.logger.Warn(ctx, "note card render failed", zap.Error(err))
		} else {
			content = append(content, &mcpsdk.ImageContent{Data: png, MIMEType: "image/png"})
		}
	}
	return &mcpsdk.CallToolResult{Content: content}, noteAddOutput{ID: rec.ID, Key: rec.LogicalKey}, nil
}

func (s *Server) handleNoteGet(ctx context.Context, req *mcpsdk.CallToolRequest, args noteKeyInput) (*mcpsdk.CallToolResult, noteGetOutput, error) {
	ctx = logging.WithTenant(ctx, s.tenant)
	key := notes.NormalizeKey(args.Key)

	rec := s.repo.GetLatest(ctx, s.tenant, key)
	if rec == nil {
		return nil, noteGetOutput{}, fmt.Errorf("no note found for %q", key)
	}

	content := []mcpsdk.Content{&mcpsdk.TextContent{Text: rec.Text}}
	if s.renderer != nil {
		if png, err := s.renderer.NoteCard(rec.LogicalKey, rec.Text, rec.CreatedAt); err != nil {
			s.logger.Warn(ctx, "note card render failed", zap.Error(err))
		} else {
			content = append(content, &mcpsdk.ImageContent{Data: png, MIMEType: "image/png"})
		}
	}

	output := noteGetOutput{
		Key:       rec.LogicalKey,
		Text:      rec.Text,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
	return &mcpsdk.CallToolResult{Content: content}, output, nil
}

func (s *Server) handleNoteList(ctx context.Context, req *mcpsdk.CallToolRequest, args emptyInput) (*mcpsdk.CallToolResult, noteListOutput, error) {
	ctx = logging.WithTenant(ctx, s.tenant)
	groups := s.repo.ListGrouped(ctx, s.tenant)

	output := noteListOutput{Groups: make([]noteGroup, 0, len(groups))}
	var b strings.Builder
	for _, group := range groups {
		g := noteGroup{Key: group.Key, Notes: make([]string, 0, len(group.Records))}
		fmt.Fprintf(&b, "%s (%d):\n", group.Key, len(group.Records))
		for _, rec := range group.Records {
			g.Notes = append(g.Notes, rec.Text)
			fmt.Fprintf(&b, "  %s\n", rec.Text)
			output.Total++
		}
		output.Groups = append(output.Groups, g)
	}

	text := strings.TrimRight(b.String(), "\n")
	if text == "" {
		text = "No notes stored."
	}

	content := []mcpsdk.Content{&mcpsdk.TextContent{Text: text}}
	if s.renderer != nil && len(groups) > 0 {
		if png, err := s.renderer.Board(groups); err != nil {
			s.logger.Warn(ctx, "note board render failed", zap.Error(err))
		} else {
			content = append(content, &mcpsdk.ImageContent{Data: png, MIMEType: "image/png"})
		}
	}
	return &mcpsdk.CallToolResult{Content: content}, output, nil
}

func (s *Server) handleNoteRemove(ctx context.Context, req *mcpsdk.CallToolRequest, args noteKeyInput) (*mcpsdk.CallToolResult, noteRemoveOutput, error) {
	if args.Key == "" {
		return nil, noteRemoveOutput{}, fmt.Errorf("key must not be empty")
	}

	ctx = logging.WithTenant(ctx, s.tenant)
	key := notes.NormalizeKey(args.Key)
	if !s.repo.RemoveByKey(ctx, s.tenant, key) {
		return nil, noteRemoveOutput{}, fmt.Errorf("no note found for %q", key)
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: fmt.Sprintf("Removed all notes under %q.", key)},
		},
	}, noteRemoveOutput{Key: key}, nil
}

func (s *Server) handleNoteClear(ctx context.Context, req *mcpsdk.CallToolRequest, args emptyInput) (*mcpsdk.CallToolResult, noteClearOutput, error) {
	ctx = logging.WithTenant(ctx, s.tenant)
	deleted := s.repo.RemoveAll(ctx, s.tenant)

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: fmt.Sprintf("Removed %d note(s).", deleted)},
		},
	}, noteClearOutput{Removed: deleted}, nil
}
