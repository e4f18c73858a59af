package main

import (
	"github.com/petems/mask-tray/internal/tui"
	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run the terminal interface instead of the tray",
	RunE: func(cmd *cobra.Command, args []string) error {
		pres := tui.NewPresenter(log)

		application, stop, err := buildApp(cmd.Context(), false, pres)
		if err != nil {
			return err
		}
		defer stop()

		return tui.Run(cmd.Context(), application.Toggle, pres)
	},
}
