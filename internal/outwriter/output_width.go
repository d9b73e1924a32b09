package outwriter

import (
	"os"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"golang.org/x/term"
)

// GetMaxNameWidth calculates the maximum width for names in table output
// based on the terminal width and the fixed columns beside them.
func GetMaxNameWidth(cfg *contract.Config, fixedColumns int) int {
	termWidth := cfg.Width
	if termWidth <= 0 {
		detected, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detected <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detected
		}
	}

	// Every column costs its content plus borders and padding
	available := termWidth - fixedColumns*14 - 4
	return min(max(available, 15), 60)
}
