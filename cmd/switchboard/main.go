package main

import "github.com/jlov7/Switchboard/cmd/switchboard/cmd"

func main() {
	cmd.Execute()
}
