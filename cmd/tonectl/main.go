package main

import "toneai/internal/cli"

func main() {
	cli.Execute()
}
