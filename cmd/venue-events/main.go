package main

import "github.com/pfrederiksen/venue-events/internal/cli"

func main() {
	cli.Execute()
}
