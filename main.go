package main

import "github.com/samogod/musegen/cmd"

func main() {
	cmd.Execute()
}
