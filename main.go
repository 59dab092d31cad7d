package main

import "github.com/fakeyudi/linelog/cmd"

func main() {
	cmd.Execute()
}
