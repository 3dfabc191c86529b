package commands

import (
	"bufio"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"postcode-api/internal/autocomplete"
	"postcode-api/internal/postcode"
)

// typeCmd reads one input value per line, as if each line were the text box
// after a keystroke. A line of the form ":select KEY" picks a candidate.
func typeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "type",
		Short: "Type-ahead lookup reading keystrokes from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var mu sync.Mutex
			sess := autocomplete.NewSession(agg,
				autocomplete.WithDelay(cfg.DebounceDelay),
				autocomplete.WithMinLength(cfg.MinLength),
				autocomplete.WithOnUpdate(func(s autocomplete.State) {
					mu.Lock()
					defer mu.Unlock()
					if s.Fragment == "" {
						return
					}
					fmt.Fprintf(out, "# %s\n", s.Fragment)
					_ = printResults(out, s.Candidates)
				}),
				autocomplete.WithOnSelect(func(r postcode.LookupResult) {
					mu.Lock()
					defer mu.Unlock()
					fmt.Fprintf(out, "selected %s\n", r.Key())
				}))
			defer sess.Close()

			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				line := sc.Text()
				if key, ok := strings.CutPrefix(line, ":select "); ok {
					if err := sess.Settle(cmd.Context()); err != nil {
						return err
					}
					if err := sess.SelectKey(strings.TrimSpace(key)); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", key, err)
					}
					continue
				}
				sess.Submit(line)
			}
			if err := sc.Err(); err != nil {
				return err
			}
			return sess.Settle(cmd.Context())
		},
	}
}

