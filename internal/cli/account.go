package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newMeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result User

			if err := client.Get("/api/v1/me", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.AddCommand(newMeUpdateCmd())
	return cmd
}

func newMeUpdateCmd() *cobra.Command {
	var name, photo string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change display name or photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" && photo == "" {
				return fmt.Errorf("--name or --photo is required")
			}

			req := map[string]string{}
			if name != "" {
				req["displayName"] = name
			}
			if photo != "" {
				req["photoUrl"] = photo
			}
			var result User

			if err := client.Patch("/api/v1/me", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&photo, "photo", "", "New photo URL")

	return cmd
}

func newLivesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lives",
		Short: "Life pool commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show lives and regeneration countdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result LivesStatus

			if err := client.Get("/api/v1/me/lives", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ad-reward",
		Short: "Credit a life for a watched ad",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AdReward

			if err := client.Post("/api/v1/me/lives/ad-reward", nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "daily",
		Short: "Show today's game count",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result DailyLimit

			if err := client.Get("/api/v1/me/lives/daily", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	})

	return cmd
}

func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "User preference commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Read a preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Preference

			if err := client.Get("/api/v1/me/preferences/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a preference",
		Long: `Store a preference value.

Setting notifications_enabled to true or false also schedules or cancels
reminders on the server.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"value": args[1]}
			var result Preference

			if err := client.Put("/api/v1/me/preferences/"+url.PathEscape(args[0]), req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	})

	return cmd
}
