package main

import (
	"os"

	"clamc/cmd"
)

func main() {
	os.Exit(cmd.Run())
}
