package main

import (
	"github.com/tansive/stately/internal/cli"
)

func main() {
	cli.Execute()
}
