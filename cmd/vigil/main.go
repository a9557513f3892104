package main

import (
	"github.com/theeagle2407/Vigil/internal/cli"
)

func main() {
	cli.Execute()
}
