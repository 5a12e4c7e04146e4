package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourusername/exifsnap/models"
	"github.com/yourusername/exifsnap/services"
)

type exportOptions struct {
	at      string
	rotate  []string
	zip     bool
	outDir  string
	prefix  string
	quality int
}

func newExportCommand() *cobra.Command {
	options := &exportOptions{}
	command := &cobra.Command{
		Use:   "export [flags] FILE...",
		Short: "Export files with a new timestamp and rotation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, *options, args)
		},
	}
	command.Flags().StringVar(&options.at, "at", "", "timestamp to write (RFC 3339 or local \"2006-01-02 15:04\"); defaults to now rounded to 15 minutes")
	command.Flags().StringArrayVar(&options.rotate, "rotate", nil, "per-file rotation as NAME=DEGREES, repeatable")
	command.Flags().BoolVar(&options.zip, "zip", false, "write one archive instead of separate files")
	command.Flags().StringVar(&options.outDir, "out", "", "output directory; overrides the configured storage")
	command.Flags().StringVar(&options.prefix, "prefix", "", "key prefix inside the storage")
	command.Flags().IntVar(&options.quality, "quality", 0, "JPEG quality 1..100; defaults to the configured value")
	return command
}

func runExport(cmd *cobra.Command, options exportOptions, files []string) error {
	config, log, err := loadRuntime()
	if err != nil {
		return err
	}

	ts := models.RoundToQuarterHour(time.Now())
	if options.at != "" {
		if ts, err = services.ParseTimestamp(options.at, time.Local); err != nil {
			return err
		}
	}
	rotations, err := parseRotations(options.rotate)
	if err != nil {
		return err
	}
	quality := config.Export.Quality
	if cmd.Flags().Changed("quality") {
		if options.quality < 1 || options.quality > 100 {
			return fmt.Errorf("--quality must be within 1..100, got %d", options.quality)
		}
		quality = options.quality
	}
	if err := services.ValidatePrefix(options.prefix); err != nil {
		return fmt.Errorf("--prefix: %w", err)
	}

	records := make([]*models.ImageRecord, 0, len(files))
	matched := map[string]bool{}
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		record := services.NewImageRecord(filepath.Base(file), raw, log)
		if deg, ok := rotations[record.Name]; ok {
			record.Rotate(deg)
			matched[record.Name] = true
		}
		records = append(records, record)
	}
	var unknown []string
	for name := range rotations {
		if !matched[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("--rotate names files that are not among the inputs: %s", strings.Join(unknown, ", "))
	}

	var storage services.Storage = services.NewLocalStorage(options.outDir)
	if options.outDir == "" {
		if storage, err = services.NewStorageFromConfig(config.Storage, config.Export.OutputDir); err != nil {
			return err
		}
	}

	exporter := services.NewExporter(services.NewCompositor(quality, log), config.Export.Workers, log)
	ctx := cmd.Context()
	results := exporter.ExportAll(ctx, records, ts)

	out := cmd.OutOrStdout()
	if options.zip {
		name := config.Export.ArchiveName
		if options.prefix != "" {
			name = options.prefix + "/" + name
		}
		loc, n, err := services.SaveArchive(ctx, storage, name, results)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%d image(s)\n", loc, n)
	} else {
		locations, err := services.SaveResults(ctx, storage, options.prefix, results)
		if err != nil {
			return err
		}
		for i, r := range results {
			if r.OK() {
				fmt.Fprintf(out, "%s\t%s\n", r.Name, locations[i])
			}
		}
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s\tfailed: %v\n", r.Name, r.Err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d image(s) failed to export", failed, len(results))
	}
	return nil
}

// parseRotations reads NAME=DEGREES pairs. The last '=' splits, so names may
// contain '='. Repeats for one name add up.
func parseRotations(pairs []string) (map[string]int, error) {
	rotations := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		i := strings.LastIndex(pair, "=")
		if i <= 0 {
			return nil, fmt.Errorf("invalid --rotate %q, expected NAME=DEGREES", pair)
		}
		deg, err := strconv.Atoi(strings.TrimSpace(pair[i+1:]))
		if err != nil {
			return nil, fmt.Errorf("invalid --rotate %q: %w", pair, err)
		}
		if _, err := services.NormalizeDegrees(deg); err != nil {
			return nil, fmt.Errorf("invalid --rotate %q: %w", pair, err)
		}
		name := pair[:i]
		rotations[name] = models.NormalizeRotation(rotations[name] + deg)
	}
	return rotations, nil
}
