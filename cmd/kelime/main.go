package main

import "github.com/mcoot/kelimeoyunu/internal/cli"

func main() {
	cli.Execute()
}
