package main

import (
	"fmt"

	"github.com/petems/mask-tray/internal/engine"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Simulate {
			fmt.Println("Simulated input")
			return nil
		}
		names, err := engine.Devices()
		if err != nil {
			return err
		}
		for _, name := range names {
			marker := " "
			if name == cfg.Audio.InputDevice {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, name)
		}
		return nil
	},
}
