package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTournamentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tournament",
		Aliases: []string{"t"},
		Short:   "Tournament commands",
	}

	cmd.AddCommand(newTournamentActionCmd("create", "Open a tournament; bots fill it after 30s", "", "/api/v1/tournaments"))
	cmd.AddCommand(newTournamentActionCmd("match", "Join any waiting tournament or open one", "", "/api/v1/tournaments/match"))
	cmd.AddCommand(newTournamentActionCmd("join", "Join a waiting tournament", "/join", ""))
	cmd.AddCommand(newTournamentActionCmd("start", "Start now, filling empty slots with bots (host only)", "/start", ""))
	cmd.AddCommand(newTournamentActionCmd("disband", "Cancel a waiting tournament (host only)", "/disband", ""))
	cmd.AddCommand(newTournamentGetCmd())
	cmd.AddCommand(newTournamentReportCmd())

	return cmd
}

// newTournamentActionCmd builds a POST command. A fixed path takes no
// arguments; otherwise the tournament ID is the only argument.
func newTournamentActionCmd(use, short, suffix, fixed string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fixed
			if path == "" {
				path = "/api/v1/tournaments/" + args[0] + suffix
			}
			var result Tournament

			if err := client.Post(path, nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	if fixed == "" {
		cmd.Use = use + " <id>"
		cmd.Args = cobra.ExactArgs(1)
	} else {
		cmd.Args = cobra.NoArgs
	}
	return cmd
}

func newTournamentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a tournament bracket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Tournament

			if err := client.Get("/api/v1/tournaments/"+args[0], &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newTournamentReportCmd() *cobra.Command {
	var score int

	cmd := &cobra.Command{
		Use:   "report <id> <match-id>",
		Short: "Report your score for a match",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if score < 0 {
				return fmt.Errorf("--score must not be negative")
			}
			path := fmt.Sprintf("/api/v1/tournaments/%s/matches/%s/result", args[0], args[1])
			var result Tournament

			if err := client.Post(path, map[string]int{"score": score}, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&score, "score", 0, "Your score (required)")
	_ = cmd.MarkFlagRequired("score")

	return cmd
}
