package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/petems/mask-tray/internal/assets"
	"github.com/spf13/cobra"
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Manage video assets",
}

var assetsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download configured video assets that are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := cfg.SourceMap()
		if len(sources) == 0 {
			fmt.Println("No asset sources configured (video.sources)")
			return nil
		}

		f := &assets.Fetcher{
			Root:   cfg.Identify.WorkDir,
			Client: &http.Client{Timeout: 10 * time.Minute},
			Log:    log,
		}
		fetched, err := f.FetchAll(cmd.Context(), sources)
		for _, path := range fetched {
			fmt.Println("fetched", path)
		}
		if err != nil {
			return err
		}
		if len(fetched) == 0 {
			fmt.Println("All assets present")
		}
		return nil
	},
}

var assetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the song to asset table",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := assets.LoadTable(cfg.Video.Table, cfg.Identify.WorkDir)
		if err != nil {
			return err
		}
		for _, song := range table.Songs() {
			path, _ := table.Lookup(song)
			fmt.Printf("%s\t%s\n", song, path)
		}
		return nil
	},
}

func init() {
	assetsCmd.AddCommand(assetsFetchCmd)
	assetsCmd.AddCommand(assetsListCmd)
}
