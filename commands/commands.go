// Package commands provides the subcommands supported by this tool.
package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bramblewood/mcworld/mclog"
)

// confirm asks the user for confirmation before proceeding with action (e.g.
// "patch strings into", "compact", "write a block into"). If the user
// declines or provides an invalid response, the program will exit. Unlike a
// single-command tool, mcworld has several distinct in-place mutators
// (patch, compact, put-block), so the prompt names the one about to run
// rather than a single generic warning.
func confirm(action string) {
	fmt.Printf("WARNING: This will %s your world in-place. You should make a backup before proceeding.\n\nProceed? (y/N): ", action)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		mclog.Info("Exiting.")
		os.Exit(1)
	}
	resp := scanner.Text()
	switch strings.TrimSpace(strings.ToLower(resp)) {
	case "y", "yes":
		return
	case "n", "no", "":
		mclog.Info("Exiting.")
		os.Exit(1)
	default:
		mclog.Errorf("Invalid response: %q, expected Y or N. Exiting.", resp)
		os.Exit(1)
	}
}
