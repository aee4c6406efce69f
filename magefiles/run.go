//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Collect builds the CLI and collects papers for topic into results/.
func Collect(topic string) error {
	mg.Deps(Build, Init)
	return sh.RunV(binPath(), "collect", topic)
}

// History builds the CLI and lists recent runs from results/runs.db.
func History() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "history")
}
