package main

import (
	"os"

	"github.com/marcusaleks/Portfolio-Manager/cmd/portfolioctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
