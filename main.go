package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/ArthurBrioche/Agent-tracing/cmd"
	"github.com/ArthurBrioche/Agent-tracing/internal/utils"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var ue *utils.UserError
		if errors.As(err, &ue) {
			color.Red("✗ %s", ue.Message)
			if ue.Solution != "" {
				color.Yellow("💡 %s", ue.Solution)
			}
			if ue.Err != nil {
				fmt.Fprintf(os.Stderr, "\nDetails: %v\n", ue.Err)
			}
		} else {
			color.Red("✗ %v", err)
		}
		os.Exit(1)
	}
}
