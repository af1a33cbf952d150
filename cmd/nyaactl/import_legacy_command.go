package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JetpackDuba/NyaaParser/app/database"
)

func newImportLegacyCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import-legacy FILE",
		Short: "Import downloaded episodes from an anime_db.json file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodes, err := readLegacyEpisodes(args[0])
			if err != nil {
				return err
			}

			db, err := openDatabase(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := database.NewEpisodeRepository(db)
			before, err := repo.GetDownloadCount()
			if err != nil {
				return err
			}

			if err := repo.SaveDownloadedEpisodes(episodes); err != nil {
				return err
			}

			after, err := repo.GetDownloadCount()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d episodes of %d shows (%d already known)\n",
				after-before, len(episodes), countEpisodes(episodes)-(after-before))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "./nyaa.db", "SQLite database file")

	return cmd
}

// readLegacyEpisodes reads a map of show name to downloaded episode numbers.
// An empty file is an empty map.
func readLegacyEpisodes(path string) (map[string][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	episodes := make(map[string][]float64)
	if len(data) == 0 {
		return episodes, nil
	}

	if err := json.Unmarshal(data, &episodes); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return episodes, nil
}

func countEpisodes(episodes map[string][]float64) int {
	total := 0
	for _, showEpisodes := range episodes {
		total += len(showEpisodes)
	}
	return total
}
