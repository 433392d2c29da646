package main

import (
	"os"

	"github.com/jaywantadh/pdfdiff/pkg/env"
	"github.com/jaywantadh/pdfdiff/pkg/logging"
)

func main() {
	env.LoadEnv()

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		logging.Log.Fatal(err)
	}
}
