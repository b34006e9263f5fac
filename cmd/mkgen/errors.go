// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/mkgen/mkgen/internal/config"
	"github.com/mkgen/mkgen/internal/generate"
	"github.com/mkgen/mkgen/internal/graph"
	"github.com/mkgen/mkgen/internal/issue"
	"github.com/mkgen/mkgen/pkg/cueutil"
	"github.com/mkgen/mkgen/pkg/types"
)

// issueStyle is the glamour style for rendered guidance. "auto" falls back
// to plain text when output is not a terminal.
const issueStyle = "auto"

// classifyError maps a failure to the issue that explains it and the exit
// code it ends the process with. Id 0 means no guidance applies.
func classifyError(err error) (issue.Id, types.ExitCode) {
	var (
		ae    *issue.ActionableError
		cueE  *cueutil.Error
		diags hcl.Diagnostics
	)
	switch {
	case errors.Is(err, context.Canceled):
		return 0, types.ExitInterrupted
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrInvalidVariants),
		errors.Is(err, config.ErrInvalidLogLevel),
		errors.Is(err, config.ErrInvalidLogFormat),
		errors.Is(err, config.ErrInvalidManifestFormat):
		return issue.ConfigLoadFailedId, types.ExitUsage
	case errors.As(err, &ae) && strings.HasSuffix(ae.Operation, "configuration"):
		return issue.ConfigLoadFailedId, types.ExitUsage
	case errors.Is(err, generate.ErrNoPackages):
		return issue.DescriptorNotFoundId, types.ExitUsage
	case errors.Is(err, graph.ErrCyclicDependency):
		return issue.DependencyCycleId, types.ExitGraphError
	case errors.Is(err, graph.ErrInvalidReferenceFormat):
		return issue.InvalidReferenceId, types.ExitGraphError
	case errors.Is(err, graph.ErrPackageNotFound):
		return issue.PackageNotFoundId, types.ExitGraphError
	case errors.Is(err, graph.ErrRuleNotFound):
		return issue.RuleNotFoundId, types.ExitGraphError
	case errors.Is(err, graph.ErrDuplicateRuleName):
		return issue.DuplicateRuleNameId, types.ExitGraphError
	case errors.Is(err, graph.ErrNestedPackage):
		return issue.NestedPackageId, types.ExitGraphError
	case errors.As(err, &cueE), errors.As(err, &diags):
		return issue.DescriptorParseErrorId, types.ExitGraphError
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId, types.ExitGraphError
	case errors.As(err, &ae) && ae.Operation == "write output":
		return issue.OutputWriteFailedId, types.ExitGraphError
	case errors.Is(err, graph.ErrConfiguration):
		return issue.InvalidRuleId, types.ExitGraphError
	default:
		return 0, types.ExitGraphError
	}
}

// reportError prints err with its guidance to w and converts it to an
// ExitError carrying the classified exit code.
func reportError(w io.Writer, err error, verbose bool) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	id, code := classifyError(err)
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
	if is := issue.Get(id); is != nil {
		if rendered, renderErr := is.Render(issueStyle); renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
	return &ExitError{Code: code}
}

// formatErrorForDisplay uses ActionableError's Format when available so
// that suggestions reach the user. Verbose mode adds the error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}
