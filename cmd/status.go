package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	statusadapter "github.com/bnema/ambient-narrator/internal/adapters/render/status"
	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(rt *rootState) *cobra.Command {
	var (
		conversationID string
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the narrator remembers about each conversation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := loadSessions(cmd, rt.app, strings.TrimSpace(conversationID))
			if err != nil {
				return err
			}

			return writeSessionsOutput(cmd, rt.app, sessions, asJSON)
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation", "", "Only show this conversation")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON output")

	return cmd
}

func loadSessions(cmd *cobra.Command, app *app, conversationID string) ([]domain.PersistedAwareness, error) {
	if conversationID == "" {
		sessions, err := app.sessions.List(cmd.Context())
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		return sessions, nil
	}

	session, err := app.sessions.Load(cmd.Context(), conversationID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", conversationID, err)
	}

	return []domain.PersistedAwareness{session}, nil
}

func writeSessionsOutput(cmd *cobra.Command, app *app, sessions []domain.PersistedAwareness, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	}

	rendered, err := app.statusRenderer(sessions, statusadapter.RenderOptions{
		Now:       app.now(),
		AwayAfter: app.cfg.Engine.Tracker.AbsenceThreshold,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
