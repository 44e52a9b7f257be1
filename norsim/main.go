package main

import "github.com/sarchlab/norsim/norsim/cmd"

func main() {
	cmd.Execute()
}
