package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JetpackDuba/NyaaParser/app/feed"
	"github.com/JetpackDuba/NyaaParser/app/torrent"
)

// legacyShow is one entry of an anime_to_download.json file.
type legacyShow struct {
	StorageName  string         `json:"storageName"`
	DownloadPath string         `json:"downloadPath"`
	Fansubs      []torrent.Rule `json:"fansubs"`
}

func newImportLegacyShowsCommand() *cobra.Command {
	var showsDir string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "import-legacy-shows FILE",
		Short: "Convert an anime_to_download.json file into show configuration files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shows, err := readLegacyShows(args[0])
			if err != nil {
				return err
			}

			if err := os.MkdirAll(showsDir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", showsDir, err)
			}

			written, skipped := 0, 0
			for _, legacy := range shows {
				path := filepath.Join(showsDir, legacy.StorageName+".yml")
				if !overwrite {
					if _, err := os.Stat(path); err == nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Skipping %s: %s exists\n", legacy.StorageName, path)
						skipped++
						continue
					}
				}

				if err := writeShowFile(path, legacy); err != nil {
					return err
				}
				written++
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d show files to %s (%d skipped)\n", written, showsDir, skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&showsDir, "shows-dir", "./shows", "Directory to write show configuration files to")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing show files")

	return cmd
}

// readLegacyShows reads and checks every entry before anything is written,
// since one invalid show file fails the whole directory load. The storage
// name becomes the show name, which keys downloaded episodes.
func readLegacyShows(path string) ([]legacyShow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var shows []legacyShow
	if err := json.Unmarshal(data, &shows); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	seen := make(map[string]bool, len(shows))
	for i, show := range shows {
		switch {
		case show.StorageName == "":
			return nil, fmt.Errorf("entry %d: storageName is required", i)
		case strings.ContainsAny(show.StorageName, `/\`) || show.StorageName == "." || show.StorageName == "..":
			return nil, fmt.Errorf("entry %d: storageName %q cannot be used as a file name", i, show.StorageName)
		case seen[show.StorageName]:
			return nil, fmt.Errorf("entry %d: duplicate storageName %q", i, show.StorageName)
		case show.DownloadPath == "":
			return nil, fmt.Errorf("%s: downloadPath is required", show.StorageName)
		case len(show.Fansubs) == 0:
			return nil, fmt.Errorf("%s: at least one fansub is required", show.StorageName)
		}
		seen[show.StorageName] = true
	}

	return shows, nil
}

func writeShowFile(path string, legacy legacyShow) error {
	show := feed.Show{
		DownloadPath: legacy.DownloadPath,
		Enabled:      true,
		Fansubs:      legacy.Fansubs,
	}

	data, err := yaml.Marshal(&show)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", legacy.StorageName, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
