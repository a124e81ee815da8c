package main

import "github.com/fencegate/fencegate/internal/cli"

func main() {
	cli.Execute()
}
