package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// promptInput and promptOutput are swapped out in tests.
var (
	promptInput  io.Reader = os.Stdin
	promptOutput io.Writer = os.Stdout
)

// confirm asks a yes/no question; anything but y/yes is a no.
func confirm(question string) (bool, error) {
	fmt.Fprintf(promptOutput, "%s [y/N]: ", question)

	reader := bufio.NewReader(promptInput)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// promptPassword reads a secret without echo when stdin is a terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	input, err := bufio.NewReader(promptInput).ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimRight(input, "\r\n"), nil
}

// DownloadConflictAction represents user choice for download file conflicts
type DownloadConflictAction int

const (
	DownloadSkipOnce DownloadConflictAction = iota
	DownloadSkipAll
	DownloadOverwriteOnce
	DownloadOverwriteAll
	DownloadAbort
)

// appliesToAll reports whether the choice should stick for later conflicts.
func (a DownloadConflictAction) appliesToAll() bool {
	return a == DownloadSkipAll || a == DownloadOverwriteAll
}

// promptDownloadConflict asks user what to do when download file already exists
func promptDownloadConflict(fileName, localPath string) (DownloadConflictAction, error) {
	reader := bufio.NewReader(promptInput)
	for {
		fmt.Fprintf(promptOutput, "\nFile '%s' already exists at '%s'.\n", fileName, localPath)
		fmt.Fprintln(promptOutput, "What would you like to do?")
		fmt.Fprintln(promptOutput, "  1. Skip (once) - Skip this file only")
		fmt.Fprintln(promptOutput, "  2. Skip (do for all) - Skip all existing files")
		fmt.Fprintln(promptOutput, "  3. Overwrite (once) - Replace this file, prompt for next")
		fmt.Fprintln(promptOutput, "  4. Overwrite (do for all) - Replace all existing files")
		fmt.Fprintln(promptOutput, "  5. Abort - Stop download")
		fmt.Fprint(promptOutput, "Choose [1-5]: ")

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return DownloadAbort, err
		}

		switch strings.TrimSpace(input) {
		case "1":
			return DownloadSkipOnce, nil
		case "2":
			return DownloadSkipAll, nil
		case "3":
			return DownloadOverwriteOnce, nil
		case "4":
			return DownloadOverwriteAll, nil
		case "5":
			return DownloadAbort, nil
		default:
			fmt.Fprintln(promptOutput, "Invalid choice, please try again.")
		}
	}
}
