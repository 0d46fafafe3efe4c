package main

import "weeklabel/internal/cmd"

func main() {
	cmd.Execute()
}
