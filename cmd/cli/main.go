package main

import "github.com/mchmarny/devscore/pkg/cli"

func main() {
	cli.Execute()
}
