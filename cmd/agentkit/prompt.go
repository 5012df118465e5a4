package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/install"
	"github.com/jingkaihe/agentkit/pkg/presenter"
)

// promptConfirmer asks on the terminal before an installed file is replaced
type promptConfirmer struct {
	out presenter.Presenter
}

func (c *promptConfirmer) ConfirmOverwrite(_ context.Context, conflict install.Conflict) (bool, error) {
	c.out.Warning(fmt.Sprintf("%s already exists with different content", conflict.Path))
	c.out.Diff(conflict.Diff())

	for {
		switch strings.ToLower(c.out.Prompt("Overwrite?", "y", "N", "c")) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		case "c", "cancel":
			return false, install.ErrCancelled
		default:
			c.out.Info("Answer y to overwrite, n to keep the existing file or c to cancel.")
		}
	}
}

// selectNames shows a numbered menu and returns the chosen names. An empty
// answer cancels the selection.
func selectNames(out presenter.Presenter, kind string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, errors.Errorf("no %s available", kind)
	}

	out.Section(fmt.Sprintf("Available %s", kind))
	for i, name := range names {
		out.Info(fmt.Sprintf("%3d) %s", i+1, name))
	}

	answer := out.Prompt(fmt.Sprintf("Select %s (numbers separated by commas, empty to cancel)", kind))
	if answer == "" {
		return nil, install.ErrCancelled
	}

	var selected []string
	seen := map[int]bool{}
	for _, field := range strings.Split(answer, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > len(names) {
			return nil, errors.Errorf("invalid selection %q", field)
		}
		if !seen[n] {
			seen[n] = true
			selected = append(selected, names[n-1])
		}
	}
	if len(selected) == 0 {
		return nil, install.ErrCancelled
	}
	return selected, nil
}

// nameMatcher compiles a glob filter; an empty pattern matches everything
func nameMatcher(pattern string) (func(string) bool, error) {
	if pattern == "" {
		return func(string) bool { return true }, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid filter %q", pattern)
	}
	return g.Match, nil
}

func reportOutcome(out presenter.Presenter, subject string, outcome install.Outcome) {
	message := fmt.Sprintf("%s: %s", subject, outcome)
	switch outcome {
	case install.Created, install.Overwritten, install.Removed:
		out.Success(message)
	case install.KeptExisting:
		out.Warning(message)
	default:
		out.Info(message)
	}
}

// reportProblems lists sources that were skipped while loading a catalog
func reportProblems(out presenter.Presenter, problems error) {
	if problems == nil {
		return
	}

	var merr *multierror.Error
	if !errors.As(problems, &merr) {
		out.Warning(problems.Error())
		return
	}
	out.Warning(fmt.Sprintf("%d source(s) skipped:", len(merr.Errors)))
	for _, err := range merr.Errors {
		out.Info("  " + err.Error())
	}
}

func truncate(s string, limit int) string {
	runes := []rune(strings.Join(strings.Fields(s), " "))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-3]) + "..."
}
