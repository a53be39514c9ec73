// Package cli holds the interactive helpers shared by the command-line
// entry points: prompting, input validation and result formatting.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/civic-certificate/internal/report"
)

// ErrNoSelection is returned when input ends before a valid choice.
var ErrNoSelection = errors.New("no issue type selected")

// maxPromptAttempts bounds re-prompting on invalid input.
const maxPromptAttempts = 3

// PromptForIssue lists the issue catalog on w and reads a choice from r,
// either the number or the name.
func PromptForIssue(r io.Reader, w io.Writer) (report.IssueType, error) {
	fmt.Fprintln(w, "What kind of issue did you find?")
	for i, it := range report.IssueTypes {
		fmt.Fprintf(w, "  %d) %s\n", i+1, it)
	}

	reader := bufio.NewReader(r)
	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		fmt.Fprintf(w, "Issue [1-%d]: ", len(report.IssueTypes))

		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			if it, ok := parseChoice(input); ok {
				return it, nil
			}
			log.Debug().Str("input", input).Msg("Unrecognised issue choice")
			fmt.Fprintf(w, "%q is not one of the listed issues.\n", input)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrNoSelection
			}
			return "", fmt.Errorf("read issue choice: %w", err)
		}
	}
	return "", ErrNoSelection
}

func parseChoice(input string) (report.IssueType, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(report.IssueTypes) {
			return report.IssueTypes[n-1], true
		}
		return "", false
	}
	it, err := report.ParseIssueType(input)
	return it, err == nil
}
