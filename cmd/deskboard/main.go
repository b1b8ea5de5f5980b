package main

import "github.com/deskboard/deskboard/internal/cli/cmd"

func main() {
	cmd.Execute()
}
