package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// JSONRPCSuccess returns a successful JSON-RPC 2.0 response.
func JSONRPCSuccess(c echo.Context, id interface{}, result interface{}) error {
	return c.JSON(http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// JSONRPCErrorWithContext returns a JSON-RPC 2.0 error response with
// the request id and a timestamp for log correlation.
func JSONRPCErrorWithContext(c echo.Context, id interface{}, code int, err error) error {
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)

	data := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if requestID != "" {
		data["request_id"] = requestID
	}

	return c.JSON(http.StatusOK, JSONRPCError{
		JSONRPC: "2.0",
		ID:      id,
		Error: &ErrorDetail{
			Code:    code,
			Message: err.Error(),
			Data:    data,
		},
	})
}

// sessionRejection returns the protocol-level bad-request rejection for
// an unknown or missing session identifier.
func sessionRejection(c echo.Context, id interface{}, err error) error {
	return c.JSON(http.StatusBadRequest, JSONRPCError{
		JSONRPC: "2.0",
		ID:      id,
		Error: &ErrorDetail{
			Code:    SessionError,
			Message: "Bad Request: valid session ID required",
			Data:    map[string]interface{}{"details": err.Error()},
		},
	})
}

// validateAcceptHeader checks that the client accepts both media types
// required by the streamable HTTP transport.
func validateAcceptHeader(accept string) bool {
	if accept == "" {
		return false
	}
	return strings.Contains(accept, "application/json") &&
		strings.Contains(accept, "text/event-stream")
}

// mustMarshalJSON is used by tests and tool routing to re-wrap
// arguments; marshaling a value we just unmarshaled cannot fail.
func mustMarshalJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal JSON: %v", err))
	}
	return data
}
