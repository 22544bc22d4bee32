package main

import "github.com/hyblock/hyblock-contracts/cmd"

func main() {
	cmd.Execute()
}
