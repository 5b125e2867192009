package main

import (
	"log"
	"os"

	"github.com/viant/khub/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
