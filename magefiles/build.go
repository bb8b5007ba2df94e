//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

type Build mg.Namespace

const navtoolPkg = "./cmd/navtool"

// Compiles navtool into bin/.
func (Build) Navtool() error {
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", filepath.Join("bin", "navtool"), navtoolPkg)
}

// Installs navtool into GOBIN.
func Install() error {
	mg.Deps(Vet)
	return sh.RunV("go", "install", navtoolPkg)
}

// Removes build output.
func Clean() error {
	return sh.Rm("bin")
}
