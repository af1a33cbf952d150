package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JetpackDuba/NyaaParser/app/feed"
)

func newShowsCommand() *cobra.Command {
	var showsDir string

	cmd := &cobra.Command{
		Use:   "shows",
		Short: "List configured shows and their rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			configCache := feed.NewConfigCache(showsDir)
			if err := configCache.Run(); err != nil {
				return err
			}

			configs := configCache.GetConfigs()
			if len(configs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No shows configured in %s\n", showsDir)
				return nil
			}

			names := make([]string, 0, len(configs))
			for name := range configs {
				names = append(names, name)
			}
			sort.Strings(names)

			var rows [][]string
			for _, name := range names {
				show := configs[name]
				enabled := "yes"
				if !show.Enabled {
					enabled = "no"
				}
				for _, rule := range show.Fansubs {
					rows = append(rows, []string{
						show.Name,
						enabled,
						rule.Fansub,
						rule.Name,
						strings.Join(rule.Keywords, " "),
						show.DownloadPath,
					})
				}
			}

			writeTable(cmd.OutOrStdout(), []column{
				{header: "Show", group: true},
				{header: "Enabled", group: true},
				{header: "Fansub"},
				{header: "Title"},
				{header: "Keywords", wrap: 40},
				{header: "Download Path", group: true},
			}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&showsDir, "shows-dir", "./shows", "Directory containing show configuration files")

	return cmd
}
