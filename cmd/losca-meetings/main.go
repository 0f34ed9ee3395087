package main

import "github.com/pfrederiksen/losca-meetings/internal/cli"

func main() {
	cli.Execute()
}
