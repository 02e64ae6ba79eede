// Package selectform provides the interactive alternative to editing
// the selection CSV by hand: a multi-select over reportable domains
// that sets the Delete flag, and a confirmation prompt used before the
// executor issues requests.
package selectform

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/mailsweep/internal/model"
)

// Domains presents a multi-select over the selection rows that
// support automated unsubscribe and returns the rows with the Delete
// flag set from the user's choices. Rows without an unsubscribe
// mechanism are passed through unchanged.
func Domains(rows []model.SelectionRow) ([]model.SelectionRow, error) {
	var options []huh.Option[string]
	for _, row := range rows {
		if !strings.EqualFold(strings.TrimSpace(row.ListUnsubscribe), "yes") {
			continue
		}
		label := fmt.Sprintf("%s (token %s)", row.Domain, row.Token)
		options = append(options,
			huh.NewOption(label, row.Domain).Selected(row.Selected()))
	}

	if len(options) == 0 {
		return rows, nil
	}

	var chosen []string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Unsubscribe from these domains").
				Description("Space toggles, enter confirms").
				Options(options...).
				Value(&chosen),
		),
	)

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("running selection form: %w", err)
	}

	selected := make(map[string]struct{}, len(chosen))
	for _, domain := range chosen {
		selected[domain] = struct{}{}
	}

	out := make([]model.SelectionRow, len(rows))
	for i, row := range rows {
		if strings.EqualFold(strings.TrimSpace(row.ListUnsubscribe), "yes") {
			if _, ok := selected[row.Domain]; ok {
				row.Delete = "yes"
			} else {
				row.Delete = "no"
			}
		}
		out[i] = row
	}

	return out, nil
}

// Confirm asks a yes/no question before irreversible actions.
func Confirm(title string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Proceed").
				Negative("Cancel").
				Value(&ok),
		),
	)

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("running confirm form: %w", err)
	}
	return ok, nil
}
