package main

import "github.com/facetrace/attendance/cmd"

func main() {
	cmd.Execute()
}
