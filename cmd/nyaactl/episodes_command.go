package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JetpackDuba/NyaaParser/app/database"
	"github.com/JetpackDuba/NyaaParser/app/feed"
)

func newEpisodesCommand() *cobra.Command {
	var dbPath string
	var show string
	var limit int

	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "List episodes sent to the download client",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			downloads, err := database.NewEpisodeRepository(db).GetDownloads(show, limit)
			if err != nil {
				return err
			}

			if len(downloads) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No downloaded episodes")
				return nil
			}

			rows := make([][]string, 0, len(downloads))
			for _, d := range downloads {
				rows = append(rows, []string{
					d.ShowName,
					feed.FormatEpisode(d.Episode),
					d.Fansub,
					strings.Join(d.Tags, " "),
					d.Size,
					d.DownloadedAt.In(time.Local).Format("2006-01-02 15:04"),
				})
			}

			writeTable(cmd.OutOrStdout(), []column{
				{header: "Show", group: true},
				{header: "Episode", numeric: true},
				{header: "Fansub"},
				{header: "Tags", wrap: 40},
				{header: "Size"},
				{header: "Downloaded"},
			}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "./nyaa.db", "SQLite database file")
	cmd.Flags().StringVar(&show, "show", "", "Only list episodes of this show")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of episodes to list (0 for all)")

	return cmd
}

// openDatabase opens and migrates the database. It fails while the daemon
// holds the database lock.
func openDatabase(path string) (*database.DB, error) {
	db, err := database.NewConnection(path)
	if err != nil {
		return nil, err
	}

	if _, _, err := database.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
