// ABOUTME: Chat MCP tool handler
// ABOUTME: Sends free text through the dispatch engine like any other front end
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/harperreed/partneros/engine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPConversationID is used when a client does not name a conversation.
const MCPConversationID = "mcp"

type ChatHandlers struct {
	engine *engine.Engine
}

func NewChatHandlers(e *engine.Engine) *ChatHandlers {
	return &ChatHandlers{engine: e}
}

type ChatInput struct {
	Message        string `json:"message" jsonschema:"Free text request, e.g. 'onboard Acme' or 'register deal for Acme, $50k'"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"Conversation to continue (default mcp)"`
	LastPartner    string `json:"last_partner,omitempty" jsonschema:"Partner to use when the message names none"`
}

func (h *ChatHandlers) Chat(ctx context.Context, request *mcp.CallToolRequest, input ChatInput) (*mcp.CallToolResult, engine.Response, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, engine.Response{}, fmt.Errorf("message is required")
	}
	conv := input.ConversationID
	if conv == "" {
		conv = MCPConversationID
	}

	resp := h.engine.Dispatch(ctx, engine.Request{
		Message:        input.Message,
		ConversationID: conv,
		LastPartner:    input.LastPartner,
	})
	return nil, *resp, nil
}
