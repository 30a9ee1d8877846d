package main

import (
	"github.com/ColonelBlimp/cwkey/cmd"
	"github.com/ColonelBlimp/cwkey/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
