// ABOUTME: Line-oriented chat session shared by the CLI loop and the TUI
// ABOUTME: Remembers a message that needed a partner name and replays it with the answer

package engine

import (
	"context"
	"strings"

	"github.com/harperreed/partneros/router"
)

// Session tracks one interactive conversation. It is not safe for concurrent use.
type Session struct {
	engine         *Engine
	conversationID string
	pending        string
}

func NewSession(e *Engine, conversationID string) *Session {
	return &Session{engine: e, conversationID: conversationID}
}

func (s *Session) ConversationID() string { return s.conversationID }

// Pending reports whether the previous reply asked for a partner name.
func (s *Session) Pending() bool { return s.pending != "" }

// Send dispatches line. When the previous reply asked for a partner name, line is
// taken as that name and the earlier message is dispatched again with it.
func (s *Session) Send(ctx context.Context, line string) *Response {
	req := Request{Message: line, ConversationID: s.conversationID}
	if s.pending != "" {
		req.Message = s.pending
		req.LastPartner = strings.TrimSpace(line)
		s.pending = ""
	}

	resp := s.engine.Dispatch(ctx, req)
	if resp.NeedsInput && resp.MissingField == router.FieldPartnerName {
		s.pending = req.Message
	}
	return resp
}

// Reset drops any pending clarification.
func (s *Session) Reset() { s.pending = "" }
