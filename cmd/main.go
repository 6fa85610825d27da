package main

import "github.com/canopy-network/sortition/cmd/cli"

func main() {
	cli.Execute()
}
