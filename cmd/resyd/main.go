package main

import "github.com/example/getresyd/cmd"

func main() {
	cmd.Execute()
}
