// ABOUTME: Chat CLI commands
// ABOUTME: One-shot dispatch, the plain line loop and the API key prompt
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harperreed/partneros/engine"
	"github.com/harperreed/partneros/llm"
	"github.com/harperreed/partneros/skills"
	"golang.org/x/term"
)

// CLIConversationID is the conversation used by the terminal front ends.
const CLIConversationID = "cli"

const helpText = `Commands:
  /help       show this help
  /partners   list partners
  /clear      forget this conversation
  quit, exit  leave

Try: "onboard Acme", "create an NDA for Globex", "register deal for Acme, $50k",
"check status of Acme", "calculate commission for Acme".`

// ChatCommand dispatches a single message and prints the reply.
func ChatCommand(ctx context.Context, app *App, w io.Writer, message, conversationID string) error {
	if conversationID == "" {
		conversationID = CLIConversationID
	}
	resp := app.Engine.Dispatch(ctx, engine.Request{Message: message, ConversationID: conversationID})
	printResponse(w, resp)
	return nil
}

// InteractiveCommand reads lines from in until EOF or quit.
// A reply asking for a partner name makes the next line that name.
func InteractiveCommand(ctx context.Context, app *App, in io.Reader, w io.Writer, conversationID string) error {
	if conversationID == "" {
		conversationID = CLIConversationID
	}
	session := engine.NewSession(app.Engine, conversationID)

	fmt.Fprintln(w, "PartnerOS - type /help for commands, quit to leave")
	scanner := bufio.NewScanner(in)
	for {
		if session.Pending() {
			fmt.Fprint(w, "partner> ")
		} else {
			fmt.Fprint(w, "> ")
		}
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit":
			fmt.Fprintln(w, "Goodbye!")
			return nil
		case "/help":
			fmt.Fprintln(w, helpText)
			continue
		case "/partners":
			if err := ListPartnersCommand(app, w, ""); err != nil {
				fmt.Fprintf(w, "Error: %v\n", err)
			}
			continue
		case "/clear":
			session.Reset()
			if err := app.Engine.Memory().Clear(ctx, conversationID); err != nil {
				fmt.Fprintf(w, "Error: %v\n", err)
				continue
			}
			fmt.Fprintln(w, "✓ Conversation cleared")
			continue
		}

		printResponse(w, session.Send(ctx, line))
	}
	return scanner.Err()
}

func printResponse(w io.Writer, resp *engine.Response) {
	agent := resp.Agent
	if agent == "" {
		agent = skills.AgentSystem
	}
	fmt.Fprintf(w, "\n[%s] %s\n", agent, resp.Response)
	if resp.Error != "" && !strings.Contains(resp.Response, resp.Error) {
		fmt.Fprintf(w, "  (%s)\n", resp.Error)
	}
	fmt.Fprintln(w)
}

// PromptAPIKey asks for an OpenRouter key when none is configured and stdin is a terminal.
// An empty answer keeps the scripted replies.
func PromptAPIKey(app *App, w io.Writer) error {
	if llm.ValidateKey(app.Config.LLM.APIKey) == nil {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}

	fmt.Fprint(w, "OpenRouter API key (blank for offline replies): ")
	keyBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}

	key := strings.TrimSpace(string(keyBytes))
	if key == "" {
		return nil
	}
	if err := app.SetAPIKey(key); err != nil {
		return fmt.Errorf("API key rejected: %w", err)
	}
	fmt.Fprintln(w, "✓ API key set for this session")
	return nil
}
