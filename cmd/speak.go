package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/ambient-narrator/internal/adapters/render/terminal"
	"github.com/bnema/ambient-narrator/internal/application"
	"github.com/bnema/ambient-narrator/internal/domain"
	"github.com/bnema/ambient-narrator/internal/ports"
	"github.com/spf13/cobra"
)

const defaultConversationID = "default"

func newSpeakCmd(rt *rootState) *cobra.Command {
	var (
		trigger        string
		conversationID string
		force          bool
		quiet          bool
	)

	cmd := &cobra.Command{
		Use:   "speak",
		Short: "Ask the narrator for one line about a trigger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eventType := domain.EventType(strings.TrimSpace(trigger))
			if !eventType.Known() {
				return fmt.Errorf("unknown trigger %q (known: %s)", trigger, knownTriggers())
			}

			display := terminal.New(cmd.OutOrStdout(), ports.SystemClock{})
			manager := rt.app.newManager(display, ports.SystemClock{}, ports.NewSeededRandom(time.Now().UnixNano()), nil)

			session, err := manager.Open(cmd.Context(), conversationID)
			if err != nil {
				return err
			}

			speak := func(ctx context.Context) application.Outcome {
				return session.Engine.Speak(ctx, eventType, domain.Payload{}, application.SpeakOptions{Force: force})
			}

			var outcome application.Outcome
			if quiet {
				outcome = speak(cmd.Context())
			} else {
				outcome, err = runThinkingSpinner(cmd.Context(), cmd.ErrOrStderr(), eventType, speak)
				if err != nil {
					return err
				}
			}

			session.Tracker.RecordInteraction()
			session.Close()
			if err := manager.Save(cmd.Context(), session); err != nil {
				return err
			}

			return writeOutcome(cmd, outcome)
		},
	}

	cmd.Flags().StringVar(&trigger, "trigger", "", "Event type to comment on")
	cmd.Flags().StringVar(&conversationID, "conversation", defaultConversationID, "Conversation id")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the volume gate and the response roll")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not animate a spinner while generating")
	_ = cmd.MarkFlagRequired("trigger")

	return cmd
}

func writeOutcome(cmd *cobra.Command, outcome application.Outcome) error {
	var err error
	switch outcome.Status {
	case application.OutcomeSilent:
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "The narrator stays silent (volume %d).\n", outcome.Volume)
	case application.OutcomeSuppressed:
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "The narrator holds its tongue: %v\n", outcome.Reason)
	case application.OutcomeFailed:
		return fmt.Errorf("speak %s: %w", outcome.Trigger, outcome.Reason)
	}
	return err
}

func knownTriggers() string {
	known := domain.KnownEventTypes()
	names := make([]string, len(known))
	for i, eventType := range known {
		names[i] = string(eventType)
	}
	return strings.Join(names, ", ")
}
