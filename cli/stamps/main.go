package main

import (
	"os"

	stampscmder "github.com/tomp11/sb-stamp-manager/cmd/stamps"
)

func main() {
	cmd := stampscmder.NewStampsCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
