package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourusername/exifsnap/models"
	"github.com/yourusername/exifsnap/services"
)

func newInspectCommand() *cobra.Command {
	var raw bool
	command := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the metadata of a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if raw {
				return printTable(cmd, data)
			}
			return printDisplayTags(cmd, data)
		},
	}
	command.Flags().BoolVar(&raw, "raw", false, "print the tag table by namespace and numeric id")
	return command
}

func printDisplayTags(cmd *cobra.Command, data []byte) error {
	tags, err := services.DisplayTags(data)
	if err != nil {
		return fmt.Errorf("no readable metadata: %w", err)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, t := range tags {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.IFD, t.Name, t.Value)
	}
	if services.FlashFired(tags) {
		fmt.Fprintln(w, "\tFlash fired\t")
	}
	return w.Flush()
}

func printTable(cmd *cobra.Command, data []byte) error {
	table, err := services.LoadExif(data)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "byte order\t%s\t\n", table.ByteOrder)
	if t, ok := services.CaptureTime(table, time.Local); ok {
		fmt.Fprintf(w, "capture time\t%s\t\n", t.Format(time.RFC3339))
	}
	for _, ns := range models.Namespaces {
		tags := table.Namespace(ns)
		if tags == nil {
			continue
		}
		ids := make([]int, 0, len(tags))
		for id := range tags {
			ids = append(ids, int(id))
		}
		sort.Ints(ids)
		for _, id := range ids {
			fmt.Fprintf(w, "%s\t0x%04x\t%s\n", ns, id, services.FormatValue(tags[uint16(id)]))
		}
	}
	if len(table.ThumbnailData) > 0 {
		fmt.Fprintf(w, "Thumbnail\tdata\t%d bytes\n", len(table.ThumbnailData))
	}
	return w.Flush()
}
