package main

import (
	"github.com/stackprice/stackprice/cmd"
)

func main() {
	cmd.Execute()
}
