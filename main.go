package main

import "github.com/quivent/fast-forth/cmd"

func main() {
	cmd.Execute()
}
