package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Two-player room commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomMatchCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomReadyCmd())
	cmd.AddCommand(newRoomSubmitCmd())
	cmd.AddCommand(newRoomTimeoutCmd())
	cmd.AddCommand(newRoomInviteCmd())

	return cmd
}

func printRoom(path string, body any) error {
	var result Room
	if err := client.Post(path, body, &result); err != nil {
		return err
	}
	NewOutput(cfg.Output).Print(result)
	return nil
}

func newRoomCreateCmd() *cobra.Command {
	var mode string
	var maxPoints, timeLimit int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new room",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != "points" && mode != "timed" {
				return fmt.Errorf("--mode must be points or timed")
			}
			req := map[string]any{"mode": mode}
			if maxPoints > 0 {
				req["maxPoints"] = maxPoints
			}
			if timeLimit > 0 {
				req["timeLimit"] = timeLimit
			}
			return printRoom("/api/v1/rooms", req)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "points", "Win condition: points, timed")
	cmd.Flags().IntVar(&maxPoints, "max-points", 0, "Target score in points mode")
	cmd.Flags().IntVar(&timeLimit, "time-limit", 0, "Seconds of play in timed mode")

	return cmd
}

func newRoomJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <code>",
		Short: "Join a waiting room by code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoom("/api/v1/rooms/join", map[string]string{"code": strings.ToUpper(args[0])})
		},
	}
}

func newRoomMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match",
		Short: "Join any waiting opponent or open a room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoom("/api/v1/rooms/match", nil)
		},
	}
}

func newRoomGetCmd() *cobra.Command {
	var byCode bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/rooms/" + args[0]
			if byCode {
				path = "/api/v1/rooms/code/" + strings.ToUpper(args[0])
			}
			var result Room

			if err := client.Get(path, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&byCode, "code", false, "Look the room up by code instead of ID")

	return cmd
}

func newRoomReadyCmd() *cobra.Command {
	var notReady bool

	cmd := &cobra.Command{
		Use:   "ready <id>",
		Short: "Mark yourself ready; the room starts when both players are",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoom("/api/v1/rooms/"+args[0]+"/ready", map[string]bool{"ready": !notReady})
		},
	}

	cmd.Flags().BoolVar(&notReady, "not", false, "Withdraw readiness")

	return cmd
}

func newRoomSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <id> <word>",
		Short: "Submit a word for scoring",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SubmitResult

			if err := client.Post("/api/v1/rooms/"+args[0]+"/words", map[string]string{"word": args[1]}, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}
}

func newRoomTimeoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeout <id>",
		Short: "End a timed room whose clock has run out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printRoom("/api/v1/rooms/"+args[0]+"/timeout", nil)
		},
	}
}

func newRoomInviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite <id> <user-id>",
		Short: "Invite another user to a waiting room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/rooms/"+args[0]+"/invite", map[string]string{"userId": args[1]}, nil); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage(fmt.Sprintf("Invited %s", args[1]))
			return nil
		},
	}
}
