// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkgen/mkgen/internal/issue"
)

func newIssueCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "issue [id]",
		Short: "Explain an error and how to fix it",
		Long: `Print the guidance mkgen shows next to an error. Without an id, list
every known issue.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			return reportError(app.stderr, showIssue(app, args), false)
		},
	}
}

func showIssue(app *App, args []string) error {
	if len(args) == 0 {
		for _, is := range issue.Values() {
			fmt.Fprintf(app.stdout, "%s %s\n", LabelStyle.Render(fmt.Sprintf("%2d", is.Id())), issueTitle(is))
		}
		return nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("issue id must be a number: %q", args[0])
	}
	is := issue.Get(issue.Id(n))
	if is == nil {
		return fmt.Errorf("no issue with id %d", n)
	}
	rendered, err := is.Render(issueStyle)
	if err != nil {
		return err
	}
	fmt.Fprint(app.stdout, rendered)
	return nil
}

// issueTitle returns the first heading of an issue's Markdown.
func issueTitle(is *issue.Issue) string {
	for line := range strings.Lines(string(is.MarkdownMsg())) {
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}
