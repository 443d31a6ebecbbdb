package main

import "github.com/bluxlabs/bluxguard/internal/cli"

func main() {
	cli.Execute()
}
