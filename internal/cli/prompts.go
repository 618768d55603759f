package cli

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
)

// ConfirmExecution asks the user to approve executing the accepted
// trades against the live portfolio. Defaults to no.
func ConfirmExecution(accepted int) (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Execute %d accepted trade(s) against the live portfolio?", accepted),
		Help:    "Trades execute at their verified prices and the portfolio file is updated. Use --dry-run to preview without executing.",
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}

// ConfirmOverwrite asks before replacing an existing portfolio file.
func ConfirmOverwrite(path string) (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Portfolio %s already exists. Overwrite it?", path),
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
