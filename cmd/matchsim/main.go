package main

import (
	"os"

	"github.com/huarongfei/Event-Control-System/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
