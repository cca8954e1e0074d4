// ABOUTME: Charm sync CLI commands for conversation memory
// ABOUTME: Shows sync status, forces a sync, and wipes the remote conversation store
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/harperreed/partneros/charm"
	"github.com/harperreed/partneros/config"
)

const conversationKeyPrefix = "conversation:"

// charmClient returns the app's charm client, opening one when conversations are stored on disk.
func (a *App) charmClient() (*charm.Client, error) {
	if a.Charm != nil {
		return a.Charm, nil
	}
	client, err := charm.NewClient(&a.Config.Charm)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}
	a.Charm = client
	return client, nil
}

// SyncStatusCommand shows the charm account and how many conversations it holds.
func SyncStatusCommand(app *App, w io.Writer) error {
	client, err := app.charmClient()
	if err != nil {
		return err
	}

	cfg := client.Config()
	fmt.Fprintln(w, "Charm Sync Status:")
	fmt.Fprintf(w, "  Server:         %s\n", cfg.Host)
	fmt.Fprintf(w, "  Auto sync:      %t\n", cfg.AutoSync)
	if app.Config.Memory.Backend == config.BackendCharm {
		fmt.Fprintln(w, "  Memory backend: ✓ charm")
	} else {
		fmt.Fprintf(w, "  Memory backend: %s (set memory.backend: charm to sync conversations)\n", app.Config.Memory.Backend)
	}

	id, err := client.ID()
	if err != nil {
		fmt.Fprintf(w, "  User ID:        ✗ Error: %v\n", err)
	} else {
		fmt.Fprintf(w, "  User ID:        %s\n", id)
	}

	keys, err := client.KeysWithPrefix([]byte(conversationKeyPrefix))
	if err != nil {
		fmt.Fprintf(w, "  Conversations:  ✗ Error: %v\n", err)
		return nil
	}
	fmt.Fprintf(w, "  Conversations:  %d\n", len(keys))
	return nil
}

// SyncNowCommand pushes and pulls the charm kv.
func SyncNowCommand(app *App, w io.Writer) error {
	client, err := app.charmClient()
	if err != nil {
		return err
	}
	if err := client.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	fmt.Fprintln(w, "✓ Sync complete")
	return nil
}

// SyncWipeCommand deletes every stored conversation from charm kv after confirmation.
func SyncWipeCommand(ctx context.Context, app *App, in io.Reader, w io.Writer, force bool) error {
	client, err := app.charmClient()
	if err != nil {
		return err
	}

	if !force {
		fmt.Fprint(w, "Delete all synced conversations? Type 'yes' to confirm: ")
		answer, _ := bufio.NewReader(in).ReadString('\n')
		if strings.TrimSpace(strings.ToLower(answer)) != "yes" {
			fmt.Fprintln(w, "Aborted")
			return nil
		}
	}

	keys, err := client.KeysWithPrefix([]byte(conversationKeyPrefix))
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := client.Delete(key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	fmt.Fprintf(w, "✓ Deleted %d conversation(s)\n", len(keys))
	return nil
}
