package main

import "github.com/Ngone6325/graft/internal/cli"

func main() {
	cli.Execute()
}
