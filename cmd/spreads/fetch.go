package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/scranton_spreads/internal/feed"
	"github.com/eddiefleurent/scranton_spreads/internal/orders"
	"github.com/eddiefleurent/scranton_spreads/internal/report"
)

func newFetchCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download order history and option events from the broker to a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fetcher := orders.NewFetcher(a.broker(), a.retry(), a.logger)
			h, err := fetcher.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			// Fail before writing anything the reconciler could not read back.
			if _, err := orders.Convert(*h); err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := feed.WriteJSON(&buf, *h); err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(a.cfg.Report.Dir, report.FileName("history", a.now(), newRunID(), "json"))
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
				return fmt.Errorf("creating output dir: %w", err)
			}
			if err := report.WriteFileAtomic(output, buf.Bytes()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write; defaults to <report.dir>/history_<date>_<id>.json")
	return cmd
}
