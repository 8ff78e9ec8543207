package main

import "github.com/cosmos/ics721/cmd"

func main() {
	cmd.Execute()
}
