package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JetpackDuba/NyaaParser/app/feed"
	"github.com/JetpackDuba/NyaaParser/app/torrent"
)

func newMatchCommand() *cobra.Command {
	var rule torrent.Rule

	cmd := &cobra.Command{
		Use:   "match TITLE",
		Short: "Check a torrent title against a rule",
		Example: `  nyaactl match "[SubsPlease] Sousou no Frieren - 05 (1080p) [F2A0C5C1].mkv" \
    --name "Sousou no Frieren" --fansub SubsPlease --keyword "(1080p)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := torrent.Match(args[0], rule)
			if err != nil {
				if torrent.IsRejection(err) {
					fmt.Fprintf(cmd.OutOrStdout(), "No match (%s): %v\n", torrent.Reason(err), err)
					return nil
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Match: episode %s\n", feed.FormatEpisode(metadata.Episode))
			if len(metadata.Tags) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Tags: %s\n", strings.Join(metadata.Tags, " | "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rule.Name, "name", "", "Show name as it appears in torrent titles")
	cmd.Flags().StringVar(&rule.Fansub, "fansub", "", "Fansub group")
	cmd.Flags().StringArrayVar(&rule.Keywords, "keyword", nil, "Tag the release must carry (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("fansub")

	return cmd
}
