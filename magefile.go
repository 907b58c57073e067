//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

var (
	binDir  = "bin"
	appName = "labrand-api"
)

var Default = Run

func Run() error {
	fmt.Println("Running (go run) ...")
	return sh.RunV("go", "run", "./cmd/api")
}

func Build() error {
	mg.Deps(Tidy)
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}
	out := filepath.Join(binDir, appName)
	fmt.Println("Building", out, "...")
	return sh.RunV("go", "build", "-o", out, "./cmd/api")
}

func Test() error {
	return sh.RunV("go", "test", "./...")
}

func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("gofmt", "-l", ".")
}

func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

// Migrate bootstraps the schema against DB_DSN.
func Migrate() error {
	return sh.RunV("go", "run", "./cmd/tools/createtable")
}

func Clean() error {
	return os.RemoveAll(binDir)
}
