package main

import "doorkeeper/cmd/cardctl/cmd"

func main() {
	cmd.Execute()
}
