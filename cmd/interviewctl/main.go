package main

import "github.com/tansive/mockinterview/internal/cli"

func main() {
	cli.Execute()
}
