//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var Default = Test

// Runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Runs the unit tests with the race detector.
func Test() error {
	mg.Deps(Vet)
	args := []string{"test", "-race", "./..."}
	if mg.Verbose() {
		args = append(args, "-v")
	}
	return sh.RunV("go", args...)
}

// Writes coverage.out and prints the per-function summary.
func Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func=coverage.out")
}
