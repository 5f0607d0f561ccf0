package main

import "curtailwatch/internal/cli"

func main() {
	cli.Execute()
}
