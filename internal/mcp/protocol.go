package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/notesd/internal/logging"
)

// handleMCPRequest handles POST /mcp with JSON-RPC 2.0 method routing.
//
// Per the MCP streamable HTTP transport, this endpoint:
//   - Validates the Accept header includes both application/json AND
//     text/event-stream
//   - Returns an Mcp-Session-Id header after a successful initialize
//   - Requires the Mcp-Session-Id header for all session-scoped methods
//
// The two logging methods are administrative: they are answered
// immediately without any session context.
func (s *Server) handleMCPRequest(c echo.Context) error {
	accept := c.Request().Header.Get("Accept")
	if !validateAcceptHeader(accept) {
		return c.JSON(http.StatusNotAcceptable, JSONRPCError{
			JSONRPC: "2.0",
			ID:      nil,
			Error: &ErrorDetail{
				Code:    InvalidRequest,
				Message: "Not Acceptable: client must accept both application/json and text/event-stream",
				Data: map[string]interface{}{
					"accept_header": accept,
					"required":      "application/json, text/event-stream",
				},
			},
		})
	}

	var req JSONRPCRequest
	if err := c.Bind(&req); err != nil {
		return JSONRPCErrorWithContext(c, nil, ParseError, err)
	}
	s.metrics.request(req.Method)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(c, req)

	case "notifications/initialized":
		if _, err := s.validateSession(c); err != nil {
			return sessionRejection(c, req.ID, err)
		}
		// Notification: no response body.
		return c.NoContent(http.StatusAccepted)

	case "tools/list":
		if _, err := s.validateSession(c); err != nil {
			return sessionRejection(c, req.ID, err)
		}
		return JSONRPCSuccess(c, req.ID, ToolsListResult{Tools: toolCatalog()})

	case "tools/call":
		session, err := s.validateSession(c)
		if err != nil {
			return sessionRejection(c, req.ID, err)
		}
		return s.handleToolsCall(c, session, req)

	case "logging/getLevel":
		return JSONRPCSuccess(c, req.ID, LevelResult{
			Level: logging.LevelToString(s.logger.Level()),
		})

	case "logging/setLevel":
		return s.handleSetLevel(c, req)

	default:
		// Unknown methods still require a session; requests without
		// one are rejected before method resolution is attempted.
		if _, err := s.validateSession(c); err != nil {
			return sessionRejection(c, req.ID, err)
		}
		return JSONRPCErrorWithContext(c, req.ID, MethodNotFound,
			fmt.Errorf("unknown method: %s", req.Method))
	}
}

// handleInitialize creates a session and returns its identifier.
//
// The session is registered in the table before the response body is
// assembled, so a fast-following request carrying the new identifier
// cannot race past an unregistered session.
func (s *Server) handleInitialize(c echo.Context, req JSONRPCRequest) error {
	var params InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return JSONRPCErrorWithContext(c, req.ID, InvalidParams, err)
		}
	}

	ctx := c.Request().Context()
	tenantID, generated := s.resolver.Resolve(ctx, params.Tenant)

	// Register-before-dispatch: the table entry must exist before any
	// part of the request body is processed further.
	session := s.sessions.Create(tenantID, generated, params)
	s.metrics.sessionCreated()

	c.Response().Header().Set("Mcp-Session-Id", session.ID)
	c.Response().Header().Set("Mcp-Protocol-Version", session.ProtocolVersion)

	s.logger.Info(ctx, "session created",
		zap.String("session.id", session.ID),
		zap.String("tenant", session.Tenant),
		zap.Bool("tenant_generated", session.TenantGenerated),
		zap.String("client", session.ClientInfo.Name))

	return JSONRPCSuccess(c, req.ID, InitializeResult{
		ProtocolVersion: session.ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools:   map[string]interface{}{},
			Logging: map[string]interface{}{},
		},
		ServerInfo: ServerInfo{
			Name:    serverName,
			Version: serverVersion,
		},
		Tenant:          session.Tenant,
		TenantGenerated: session.TenantGenerated,
	})
}

// handleSetLevel handles the session-less logging/setLevel method.
func (s *Server) handleSetLevel(c echo.Context, req JSONRPCRequest) error {
	var params SetLevelParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCErrorWithContext(c, req.ID, InvalidParams, err)
	}
	if err := logging.ValidateLevelName(params.Level); err != nil {
		return JSONRPCErrorWithContext(c, req.ID, InvalidParams, err)
	}

	level, err := logging.LevelFromString(params.Level)
	if err != nil {
		return JSONRPCErrorWithContext(c, req.ID, InvalidParams, err)
	}
	s.logger.SetLevel(level)

	s.logger.Info(c.Request().Context(), "log level changed", zap.String("level", params.Level))
	return JSONRPCSuccess(c, req.ID, LevelResult{Level: params.Level})
}

// handleSessionClose handles DELETE /mcp: explicit session teardown.
// Idempotent; closing an unknown session is a no-op.
func (s *Server) handleSessionClose(c echo.Context) error {
	sessionID := c.Request().Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, JSONRPCError{
			JSONRPC: "2.0",
			Error: &ErrorDetail{
				Code:    SessionError,
				Message: "Bad Request: Mcp-Session-Id header required",
			},
		})
	}

	if s.sessions.Delete(sessionID) {
		s.metrics.sessionClosed()
		s.logger.Info(c.Request().Context(), "session closed", zap.String("session.id", sessionID))
	}
	return c.NoContent(http.StatusNoContent)
}

// validateSession resolves the session named by the Mcp-Session-Id
// header. Requests with an unknown or missing identifier on methods
// that need one are rejected; sessions are never created implicitly.
func (s *Server) validateSession(c echo.Context) (*Session, error) {
	sessionID := c.Request().Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		return nil, fmt.Errorf("missing Mcp-Session-Id header")
	}

	session := s.sessions.Get(sessionID)
	if session == nil {
		return nil, fmt.Errorf("invalid session ID: %s", sessionID)
	}
	return session, nil
}
