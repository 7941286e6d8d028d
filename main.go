package main

import "github.com/tranvictor/namesvc/cmd"

func main() {
	cmd.Execute()
}
