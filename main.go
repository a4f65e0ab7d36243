package main

import "github.com/javanhut/strata/cli"

func main() {
	cli.Execute()
}
