package main

import (
	"github.com/0xPolygon/proof-relay/command/root"
)

func main() {
	root.NewRootCommand().Execute()
}
