package main

import "github.com/nextlevelbuilder/relaycat/cmd"

func main() {
	cmd.Execute()
}
