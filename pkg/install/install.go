// Package install materializes resolved agents and hooks into a project's
// configuration tree. Every step is idempotent: an artifact that already has
// the expected content is left untouched, and an artifact with different
// content is only replaced when the overwrite is confirmed.
package install

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/pkg/errors"

	"github.com/jingkaihe/agentkit/pkg/logger"
	"github.com/jingkaihe/agentkit/pkg/project"
)

// Outcome is the terminal state of one installation step
type Outcome string

// Outcomes of installation and removal steps
const (
	Created      Outcome = "created"
	Verified     Outcome = "verified"
	Overwritten  Outcome = "overwritten"
	KeptExisting Outcome = "kept-existing"
	Removed      Outcome = "removed"
	NotPresent   Outcome = "not-present"
)

// Wrote reports whether the step changed the destination tree
func (o Outcome) Wrote() bool {
	return o == Created || o == Overwritten || o == Removed
}

// ErrCancelled is returned by a Confirmer when the user aborts. Installation
// stops at that point; artifacts written by earlier steps are kept.
var ErrCancelled = errors.New("installation cancelled")

// Conflict describes an existing artifact whose content differs from the
// content about to be installed
type Conflict struct {
	Path     string
	Existing string
	Proposed string
}

// Diff returns a unified diff from the existing to the proposed content
func (c Conflict) Diff() string {
	return udiff.Unified(c.Path+" (installed)", c.Path+" (incoming)", c.Existing, c.Proposed)
}

// Confirmer decides whether a conflicting artifact is overwritten
type Confirmer interface {
	ConfirmOverwrite(ctx context.Context, conflict Conflict) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface
type ConfirmFunc func(ctx context.Context, conflict Conflict) (bool, error)

// ConfirmOverwrite implements Confirmer
func (f ConfirmFunc) ConfirmOverwrite(ctx context.Context, conflict Conflict) (bool, error) {
	return f(ctx, conflict)
}

// KeepExisting is a Confirmer that declines every overwrite
var KeepExisting = ConfirmFunc(func(context.Context, Conflict) (bool, error) {
	return false, nil
})

// Installer writes resources into one project
type Installer struct {
	layout    project.Layout
	confirmer Confirmer
	force     bool
}

// Option configures an Installer
type Option func(*Installer)

// WithConfirmer sets how overwrite conflicts are resolved
func WithConfirmer(c Confirmer) Option {
	return func(i *Installer) {
		i.confirmer = c
	}
}

// WithForce overwrites conflicting artifacts without asking
func WithForce(force bool) Option {
	return func(i *Installer) {
		i.force = force
	}
}

// NewInstaller creates an installer for the project rooted at root.
// Without a Confirmer, conflicting artifacts are kept.
func NewInstaller(root string, opts ...Option) *Installer {
	i := &Installer{
		layout:    project.NewLayout(root),
		confirmer: KeepExisting,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Layout returns the destination layout
func (i *Installer) Layout() project.Layout {
	return i.layout
}

// ensureArtifact drives a single file through
// created / verified / overwritten / kept-existing.
func (i *Installer) ensureArtifact(ctx context.Context, path, content string, perm os.FileMode) (Outcome, error) {
	log := logger.G(ctx).WithField("path", path)

	existing, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", errors.Wrapf(err, "failed to create directory for %s", path)
		}
		if err := os.WriteFile(path, []byte(content), perm); err != nil {
			return "", errors.Wrapf(err, "failed to write %s", path)
		}
		log.Debug("created artifact")
		return Created, nil
	case err != nil:
		return "", errors.Wrapf(err, "failed to read %s", path)
	}

	if strings.TrimSpace(string(existing)) == strings.TrimSpace(content) {
		log.Debug("artifact already up to date")
		return Verified, nil
	}

	overwrite := i.force
	if !overwrite {
		overwrite, err = i.confirmer.ConfirmOverwrite(ctx, Conflict{
			Path:     path,
			Existing: string(existing),
			Proposed: content,
		})
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				return "", err
			}
			return "", errors.Wrapf(err, "failed to confirm overwrite of %s", path)
		}
	}
	if !overwrite {
		log.Debug("keeping existing artifact")
		return KeptExisting, nil
	}

	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	log.Debug("overwrote artifact")
	return Overwritten, nil
}

func removeArtifact(ctx context.Context, path string) (Outcome, error) {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return NotPresent, nil
		}
		return "", errors.Wrapf(err, "failed to remove %s", path)
	}
	logger.G(ctx).WithField("path", path).Debug("removed artifact")
	return Removed, nil
}
