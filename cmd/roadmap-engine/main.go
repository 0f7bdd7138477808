package main

import "github.com/LENAX/roadmap-engine/pkg/cli/cmd"

func main() {
	cmd.Execute()
}
