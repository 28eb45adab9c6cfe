package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oron-mozes/creo-sub000/store"
)

func newHistoryCmd(st *state) *cobra.Command {
	var (
		sessionID string
		user      string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the stored messages of a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, closeStore, err := store.New(st.cfg.Store.Driver, st.cfg.Store.DSN)
			if err != nil {
				return err
			}
			defer closeStore()

			msgs, err := s.Messages(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintf(out, "no messages for session %s\n", sessionID)
			}
			for _, m := range msgs {
				fmt.Fprintf(out, "%s  %-9s %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Role, m.Text)
			}

			if user == "" {
				return nil
			}
			profile, err := s.GetBusinessProfile(cmd.Context(), user)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "business profile for %s: %v\n", user, profile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "default", "session id")
	cmd.Flags().StringVarP(&user, "user", "u", "", "also print this user's business profile")

	return cmd
}
