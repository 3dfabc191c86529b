package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"postcode-api/internal/postcode"
)

func printResults(w io.Writer, list postcode.CandidateList) error {
	if asJSON {
		enc := json.NewEncoder(w)
		return enc.Encode(list)
	}
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}
	for _, r := range list {
		if _, err := fmt.Fprintf(w, "%-10s %s (%s)\n", r.Key(), placeNames(r), r.Country); err != nil {
			return err
		}
	}
	return nil
}

func placeNames(r postcode.LookupResult) string {
	names := make([]string, 0, len(r.Places))
	for _, p := range r.Places {
		n := p.Name
		if p.StateAbbreviation != "" {
			n += ", " + p.StateAbbreviation
		}
		names = append(names, n)
	}
	return strings.Join(names, "; ")
}
