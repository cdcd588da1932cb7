package main

import "github.com/spinsim/btpde/cmd"

func main() {
	cmd.Execute()
}
