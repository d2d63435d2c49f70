package main

import (
	"os"

	"github.com/JonMunkholm/filecompare/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	code := cli.ExitCode(err)
	if err != nil && code == cli.ExitError {
		cli.PrintError(os.Stderr, err)
	}
	os.Exit(code)
}
