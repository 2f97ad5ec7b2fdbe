package main

import (
	"log"

	"github.com/jscodegen/go-codegen/cmd"
)

func main() {
	log.Default().SetFlags(0)
	cmd.Execute()
}
