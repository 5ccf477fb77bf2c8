package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

type tokenReport struct {
	Token  string `json:"token"`
	Scheme string `json:"scheme"`
}

func tokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the token cmrctl authenticates with",
		Long: "Exchanges the configured username and password for a token at the\n" +
			"legacy token endpoint, or prints the pre-issued token.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.client.Tokens == nil {
				return errors.New("no credentials configured: set cmr.auth.username and cmr.auth.password, or --token")
			}
			tok, err := a.client.Tokens.Token(cmd.Context())
			if err != nil {
				return err
			}

			report := tokenReport{Token: tok.Value, Scheme: string(tok.Scheme)}
			if a.jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), report)
			}
			tw := newTabWriter(cmd.OutOrStdout())
			tw.writef("Token:\t%s\n", report.Token)
			tw.writef("Scheme:\t%s\n", report.Scheme)
			return tw.finish()
		},
	}
}
