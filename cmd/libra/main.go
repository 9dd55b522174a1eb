package main

import "github.com/kengeo/libra/internal/cli"

func main() {
	cli.Execute()
}
