package main

import "github.com/dssldrf/dusseldorf/internal/cmd"

func main() {
	cmd.Main()
}
