package commands

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"postcode-api/internal/normalize"
	"postcode-api/internal/postcode"
	"postcode-api/internal/zippo"
)

func lookupCmd() *cobra.Command {
	var country string
	cmd := &cobra.Command{
		Use:   "lookup --country CC <query>",
		Short: "Look a postal code or place up in a single country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := postcode.ResolveCountry(country)
			if err != nil {
				return errors.Wrapf(err, "country %q", country)
			}
			body, err := client.Fetch(cmd.Context(), code, args[0])
			if errors.Is(err, zippo.ErrNotFound) {
				return fmt.Errorf("no results found for %s in %s", args[0], postcode.CountryName(code))
			}
			if err != nil {
				return err
			}
			r, err := normalize.Normalize(body, code)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), postcode.CandidateList{r})
		},
	}
	cmd.Flags().StringVarP(&country, "country", "c", "", "country code or name")
	_ = cmd.MarkFlagRequired("country")
	return cmd
}
