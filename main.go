package main

import (
	"github.com/solmirror/beacon/internal/cmd"
)

func main() {
	cmd.Execute()
}
