package mcp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/notesd/internal/render"
)

// callTool invokes tools/call over the HTTP harness and returns the
// decoded envelope.
func callTool(t *testing.T, srv *Server, sessionID, name string, args map[string]interface{}) rpcEnvelope {
	t.Helper()

	body := string(mustMarshalJSON(JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      10,
		Method:  "tools/call",
		Params: mustMarshalJSON(ToolsCallParams{
			Name:      name,
			Arguments: mustMarshalJSON(args),
		}),
	}))

	rec := doRPC(t, srv, sessionID, body)
	require.Equal(t, http.StatusOK, rec.Code)
	return decodeRPC(t, rec)
}

func toolResult(t *testing.T, env rpcEnvelope) ToolResult {
	t.Helper()

	require.Nil(t, env.Error)
	var result ToolResult
	require.NoError(t, json.Unmarshal(env.Result, &result))
	return result
}

func TestNoteAddAndGet(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	result := toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{
		"key":  "groceries",
		"text": "buy milk",
	}))
	require.Len(t, result.Content, 1)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, `"groceries"`)

	result = toolResult(t, callTool(t, srv, sessionID, "note_get", map[string]interface{}{
		"key": "groceries",
	}))
	require.NotEmpty(t, result.Content)
	assert.False(t, result.IsError)
	assert.Equal(t, "buy milk", result.Content[0].Text)
}

func TestNoteAddDefaultsKey(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{
		"text": "no key given",
	}))

	result := toolResult(t, callTool(t, srv, sessionID, "note_get", nil))
	assert.Equal(t, "no key given", result.Content[0].Text)
}

func TestNoteAddEmptyTextRejected(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	for _, text := range []string{"", "   \n\t"} {
		env := callTool(t, srv, sessionID, "note_add", map[string]interface{}{
			"key":  "k",
			"text": text,
		})
		require.NotNil(t, env.Error)
		assert.Equal(t, InvalidParams, env.Error.Code)
	}
}

func TestNoteGetReturnsNewest(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	for _, text := range []string{"first", "second", "third"} {
		toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{
			"key":  "status",
			"text": text,
		}))
	}

	result := toolResult(t, callTool(t, srv, sessionID, "note_get", map[string]interface{}{
		"key": "status",
	}))
	assert.Equal(t, "third", result.Content[0].Text)
}

func TestNoteGetMissing(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	result := toolResult(t, callTool(t, srv, sessionID, "note_get", map[string]interface{}{
		"key": "nothing-here",
	}))
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "No note found")
}

func TestNoteList(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{"key": "b-key", "text": "beta"}))
	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{"key": "a-key", "text": "alpha"}))
	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{"key": "a-key", "text": "alpha two"}))

	result := toolResult(t, callTool(t, srv, sessionID, "note_list", nil))
	require.NotEmpty(t, result.Content)

	text := result.Content[0].Text
	assert.Contains(t, text, "a-key (2):")
	assert.Contains(t, text, "b-key (1):")
	// Keys sorted lexicographically.
	assert.Less(t, strings.Index(text, "a-key"), strings.Index(text, "b-key"))
	// Newest first within a group.
	assert.Less(t, strings.Index(text, "alpha two"), strings.Index(text, "alpha\n"))
}

func TestNoteListEmpty(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	result := toolResult(t, callTool(t, srv, sessionID, "note_list", nil))
	assert.Equal(t, "No notes stored.", result.Content[0].Text)
}

func TestNoteRemove(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{"key": "gone", "text": "one"}))
	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{"key": "gone", "text": "two"}))
	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{"key": "kept", "text": "stays"}))

	// The whole logical group goes, not just the newest record.
	result := toolResult(t, callTool(t, srv, sessionID, "note_remove", map[string]interface{}{"key": "gone"}))
	assert.False(t, result.IsError)

	result = toolResult(t, callTool(t, srv, sessionID, "note_get", map[string]interface{}{"key": "gone"}))
	assert.True(t, result.IsError)

	result = toolResult(t, callTool(t, srv, sessionID, "note_get", map[string]interface{}{"key": "kept"}))
	assert.Equal(t, "stays", result.Content[0].Text)
}

func TestNoteRemoveRequiresKey(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	env := callTool(t, srv, sessionID, "note_remove", nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, InvalidParams, env.Error.Code)
}

func TestNoteRemoveMissing(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	result := toolResult(t, callTool(t, srv, sessionID, "note_remove", map[string]interface{}{"key": "absent"}))
	assert.True(t, result.IsError)
}

func TestNoteClear(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{"key": "a", "text": "1"}))
	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{"key": "a", "text": "2"}))
	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{"key": "b", "text": "3"}))

	result := toolResult(t, callTool(t, srv, sessionID, "note_clear", nil))
	assert.Contains(t, result.Content[0].Text, "3 note(s)")

	result = toolResult(t, callTool(t, srv, sessionID, "note_list", nil))
	assert.Equal(t, "No notes stored.", result.Content[0].Text)
}

func TestTenantIsolationAcrossSessions(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	alice := initSession(t, srv, "alice")
	bob := initSession(t, srv, "bob")

	toolResult(t, callTool(t, srv, alice, "note_add", map[string]interface{}{"key": "k", "text": "alice's note"}))

	result := toolResult(t, callTool(t, srv, bob, "note_get", map[string]interface{}{"key": "k"}))
	assert.True(t, result.IsError)

	result = toolResult(t, callTool(t, srv, bob, "note_list", nil))
	assert.Equal(t, "No notes stored.", result.Content[0].Text)
}

func TestPerCallTenantHintIgnored(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	alice := initSession(t, srv, "alice")

	// An in-args tenant never redirects the write; the session owns
	// the partition.
	toolResult(t, callTool(t, srv, alice, "note_add", map[string]interface{}{
		"tenant": "mallory",
		"key":    "k",
		"text":   "still alice's",
	}))

	result := toolResult(t, callTool(t, srv, alice, "note_get", map[string]interface{}{"key": "k"}))
	assert.Equal(t, "still alice's", result.Content[0].Text)

	mallory := initSession(t, srv, "mallory")
	result = toolResult(t, callTool(t, srv, mallory, "note_list", nil))
	assert.Equal(t, "No notes stored.", result.Content[0].Text)
}

func TestUnknownTool(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	sessionID := initSession(t, srv, "alice")

	env := callTool(t, srv, sessionID, "note_frobnicate", nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, MethodNotFound, env.Error.Code)
}

func TestNoteGetRendersCard(t *testing.T) {
	srv, _ := newTestServer(t, render.New(320))
	sessionID := initSession(t, srv, "alice")

	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{
		"key":  "pretty",
		"text": "rendered note",
	}))

	result := toolResult(t, callTool(t, srv, sessionID, "note_get", map[string]interface{}{"key": "pretty"}))
	require.Len(t, result.Content, 2)
	assert.Equal(t, "text", result.Content[0].Type)

	img := result.Content[1]
	assert.Equal(t, "image", img.Type)
	assert.Equal(t, "image/png", img.MimeType)

	raw, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 320, decoded.Bounds().Dx())
}

func TestNoteListRendersBoard(t *testing.T) {
	srv, _ := newTestServer(t, render.New(320))
	sessionID := initSession(t, srv, "alice")

	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{"key": "a", "text": "1"}))
	toolResult(t, callTool(t, srv, sessionID, "note_add", map[string]interface{}{"key": "b", "text": "2"}))

	result := toolResult(t, callTool(t, srv, sessionID, "note_list", nil))
	require.Len(t, result.Content, 2)
	assert.Equal(t, "image", result.Content[1].Type)
	assert.Equal(t, "image/png", result.Content[1].MimeType)
}
