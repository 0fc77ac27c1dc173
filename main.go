package main

import "github.com/mwrobel/domo/cmd"

func main() {
	cmd.Execute()
}
