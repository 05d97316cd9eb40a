package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/scranton_spreads/internal/feed"
	"github.com/eddiefleurent/scranton_spreads/internal/orders"
	"github.com/eddiefleurent/scranton_spreads/internal/reconcile"
	"github.com/eddiefleurent/scranton_spreads/internal/report"
)

func newReconcileCmd(a *app) *cobra.Command {
	var (
		input  string
		live   bool
		match  string
		noSave bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Pair opening and closing spread orders and report what is still open",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if match == "" {
				match = a.cfg.Reconcile.SignatureMatch
			}
			m, err := reconcile.ParseSignatureMatch(match)
			if err != nil {
				return err
			}

			data, source, err := a.loadData(cmd, input, live)
			if err != nil {
				return err
			}

			r, err := reconcile.Reconcile(data.Records, reconcile.WithSignatureMatch(m))
			if err != nil {
				return fmt.Errorf("reconciling %s: %w", source, err)
			}
			doc := report.NewDocument(r, source, a.now()).WithCost(orders.SummarizeCost(data.Records, data.Events))

			log := a.logger.WithField("run_id", doc.RunID)
			log.WithFields(logrus.Fields{
				"symbols":   len(r.Symbols),
				"opened":    doc.Totals.Opened,
				"closed":    doc.Totals.Closed,
				"remaining": doc.Totals.Remaining,
			}).Info("reconciled order history")

			if err := report.WriteTable(a.out, doc); err != nil {
				return err
			}
			if noSave {
				return nil
			}
			paths, err := report.Save(a.cfg.Report.Dir, a.cfg.Report.Prefix, doc, a.cfg.ReportFormats()...)
			if err != nil {
				return fmt.Errorf("saving report: %w", err)
			}
			for _, p := range paths {
				log.WithField("path", p).Info("report written")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "order history file (.csv or .json); defaults to source.path")
	cmd.Flags().BoolVar(&live, "live", false, "fetch order history from the broker instead of a file")
	cmd.Flags().StringVar(&match, "match", "", "strike signature comparison: exact or numeric")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "print the summary without writing report files")
	return cmd
}

// loadData reads order history from a file or, with live set, from the
// broker.
func (a *app) loadData(cmd *cobra.Command, input string, live bool) (*feed.Data, string, error) {
	if live {
		snap, err := orders.NewFetcher(a.broker(), a.retry(), a.logger).Snapshot(cmd.Context())
		if err != nil {
			return nil, "", err
		}
		return &feed.Data{Records: snap.Records, Events: snap.Events}, "broker:" + a.cfg.Broker.Provider, nil
	}

	if input == "" {
		input = a.cfg.Source.Path
	}
	if input == "" {
		return nil, "", fmt.Errorf("no order history file: pass --input or set source.path")
	}
	data, err := feed.Load(input)
	if err != nil {
		return nil, "", err
	}
	a.logger.WithField("path", input).WithField("records", len(data.Records)).Debug("loaded order history")
	return data, input, nil
}
