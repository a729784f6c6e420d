package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/logging"
	"github.com/fyrsmithlabs/notesd/internal/notes"
)

// noteArgs carries the argument surface shared by the note tools. The
// tenant field is accepted for wire compatibility with older clients
// but ignored after initialize: the session's tenant always wins.
type noteArgs struct {
	Tenant string `json:"tenant,omitempty"`
	Key    string `json:"key,omitempty"`
	Text   string `json:"text,omitempty"`
}

// toolCatalog lists the tools advertised by tools/list.
func toolCatalog() []Tool {
	keyProp := map[string]interface{}{
		"type":        "string",
		"description": "Logical note key. Defaults to \"default\" when omitted.",
	}
	return []Tool{
		{
			Name:        "note_add",
			Description: "Store a note under a logical key. Notes accumulate; adding never overwrites earlier notes on the same key.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key": keyProp,
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Note body. Must be non-empty.",
					},
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "note_get",
			Description: "Fetch the newest note for a logical key, rendered as a card image when rendering is enabled.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key": keyProp,
				},
			},
		},
		{
			Name:        "note_list",
			Description: "List every note in the session's partition, grouped by logical key with the newest note first in each group.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "note_remove",
			Description: "Delete every note stored under a logical key.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"key": map[string]interface{}{
						"type":        "string",
						"description": "Logical note key to delete.",
					},
				},
				"required": []string{"key"},
			},
		},
		{
			Name:        "note_clear",
			Description: "Delete every note in the session's partition.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsCall dispatches tools/call to the named tool handler. The
// partition every handler operates on comes from the session, never
// from the arguments.
func (s *Server) handleToolsCall(c echo.Context, session *Session, req JSONRPCRequest) error {
	var params ToolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCErrorWithContext(c, req.ID, InvalidParams, err)
	}

	var args noteArgs
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments, &args); err != nil {
			return JSONRPCErrorWithContext(c, req.ID, InvalidParams,
				fmt.Errorf("invalid arguments for %s: %w", params.Name, err))
		}
	}

	ctx := logging.WithSessionID(logging.WithTenant(c.Request().Context(), session.Tenant), session.ID)

	if args.Tenant != "" && args.Tenant != session.Tenant {
		// Tenant is pinned at initialize; per-call hints never move an
		// existing session to a different partition.
		s.logger.Debug(ctx, "ignoring per-call tenant hint",
			zap.String("tool", params.Name),
			zap.String("hint", args.Tenant))
	}

	var result ToolResult
	switch params.Name {
	case "note_add":
		res, err := s.noteAdd(ctx, session.Tenant, args)
		if err != nil {
			return JSONRPCErrorWithContext(c, req.ID, InvalidParams, err)
		}
		result = res
	case "note_get":
		result = s.noteGet(ctx, session.Tenant, args)
	case "note_list":
		result = s.noteList(ctx, session.Tenant)
	case "note_remove":
		res, err := s.noteRemove(ctx, session.Tenant, args)
		if err != nil {
			return JSONRPCErrorWithContext(c, req.ID, InvalidParams, err)
		}
		result = res
	case "note_clear":
		result = s.noteClear(ctx, session.Tenant)
	default:
		return JSONRPCErrorWithContext(c, req.ID, MethodNotFound,
			fmt.Errorf("unknown tool: %s", params.Name))
	}

	return JSONRPCSuccess(c, req.ID, result)
}

func (s *Server) noteAdd(ctx context.Context, tenant string, args noteArgs) (ToolResult, error) {
	if strings.TrimSpace(args.Text) == "" {
		return ToolResult{}, fmt.Errorf("text must not be empty")
	}

	rec := s.repo.Add(ctx, tenant, args.Key, args.Text)
	s.logger.Debug(ctx, "note added",
		zap.String("note.id", rec.ID),
		zap.String("note.key", rec.LogicalKey))

	content := []ToolContent{
		TextContent(fmt.Sprintf("Stored note %s under %q.", rec.ID, rec.LogicalKey)),
	}
	if s.renderer != nil {
		png, err := s.renderer.NoteCard(rec.LogicalKey, rec.Text, rec.CreatedAt)
		if err != nil {
			s.logger.Warn(ctx, "note card render failed", zap.Error(err))
		} else {
			content = append(content, ImageContent(base64.StdEncoding.EncodeToString(png)))
		}
	}
	return ToolResult{Content: content}, nil
}

func (s *Server) noteGet(ctx context.Context, tenant string, args noteArgs) ToolResult {
	key := notes.NormalizeKey(args.Key)
	rec := s.repo.GetLatest(ctx, tenant, key)
	if rec == nil {
		return ToolResult{
			Content: []ToolContent{TextContent(fmt.Sprintf("No note found for %q.", key))},
			IsError: true,
		}
	}

	content := []ToolContent{TextContent(rec.Text)}
	if s.renderer != nil {
		png, err := s.renderer.NoteCard(rec.LogicalKey, rec.Text, rec.CreatedAt)
		if err != nil {
			// Degrade to the text block alone.
			s.logger.Warn(ctx, "note card render failed", zap.Error(err))
		} else {
			content = append(content, ImageContent(base64.StdEncoding.EncodeToString(png)))
		}
	}
	return ToolResult{Content: content}
}

func (s *Server) noteList(ctx context.Context, tenant string) ToolResult {
	groups := s.repo.ListGrouped(ctx, tenant)
	if len(groups) == 0 {
		return ToolResult{Content: []ToolContent{TextContent("No notes stored.")}}
	}

	var b strings.Builder
	for _, group := range groups {
		fmt.Fprintf(&b, "%s (%d):\n", group.Key, len(group.Records))
		for _, rec := range group.Records {
			fmt.Fprintf(&b, "  [%s] %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Text)
		}
	}
	content := []ToolContent{TextContent(strings.TrimRight(b.String(), "\n"))}

	if s.renderer != nil {
		png, err := s.renderer.Board(groups)
		if err != nil {
			s.logger.Warn(ctx, "note board render failed", zap.Error(err))
		} else {
			content = append(content, ImageContent(base64.StdEncoding.EncodeToString(png)))
		}
	}
	return ToolResult{Content: content}
}

func (s *Server) noteRemove(ctx context.Context, tenant string, args noteArgs) (ToolResult, error) {
	if args.Key == "" {
		return ToolResult{}, fmt.Errorf("key must not be empty")
	}

	key := notes.NormalizeKey(args.Key)
	if !s.repo.RemoveByKey(ctx, tenant, key) {
		return ToolResult{
			Content: []ToolContent{TextContent(fmt.Sprintf("No note found for %q.", key))},
			IsError: true,
		}, nil
	}

	s.logger.Debug(ctx, "note group removed", zap.String("note.key", key))
	return ToolResult{Content: []ToolContent{
		TextContent(fmt.Sprintf("Removed all notes under %q.", key)),
	}}, nil
}

func (s *Server) noteClear(ctx context.Context, tenant string) ToolResult {
	deleted := s.repo.RemoveAll(ctx, tenant)
	s.logger.Debug(ctx, "partition cleared", zap.Int("deleted", deleted))
	return ToolResult{Content: []ToolContent{
		TextContent(fmt.Sprintf("Removed %d note(s).", deleted)),
	}}
}
