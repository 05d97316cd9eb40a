package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eddiefleurent/scranton_spreads/internal/models"
	"github.com/eddiefleurent/scranton_spreads/internal/report"
	"github.com/eddiefleurent/scranton_spreads/internal/screener"
)

func newScreenCmd(a *app) *cobra.Command {
	var (
		symbols    []string
		expiration string
		optionType string
		singles    bool
	)
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Find vertical credit spreads, or single options, with a high probability of profit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc := a.cfg.Screener
			sc.Symbols = screenSymbols(a.cfg.Screener.Symbols, symbols)
			if expiration != "" {
				sc.Expiration = expiration
			}
			if optionType != "" {
				sc.OptionType = optionType
			}
			if len(sc.Symbols) == 0 {
				return fmt.Errorf("no symbols: pass --symbols or set screener.symbols")
			}

			s, err := screener.New(a.broker(), a.retry(), a.logger, sc.Criteria(), sc.Options())
			if err != nil {
				return err
			}
			if err := os.MkdirAll(sc.OutputDir, 0o750); err != nil {
				return fmt.Errorf("creating output dir: %w", err)
			}
			if singles {
				return a.writeSingles(cmd, s, sc.Symbols, sc.OutputDir, strings.ToLower(sc.OptionType))
			}

			spreads, err := s.Run(cmd.Context(), sc.Symbols)
			if err != nil {
				return err
			}
			if len(spreads) == 0 {
				fmt.Fprintln(a.out, "No spreads found")
				return nil
			}

			var buf bytes.Buffer
			if err := screener.WriteCSV(&buf, spreads); err != nil {
				return err
			}
			exp := sc.Expiration
			if exp == "" {
				exp = spreads[0].Expiration
			}
			if exp == "" {
				exp = a.now().Format(models.DateLayout)
			}
			path := filepath.Join(sc.OutputDir, screener.FileName(sc.Symbols, exp, strings.ToLower(sc.OptionType)))
			if err := report.WriteFileAtomic(path, buf.Bytes()); err != nil {
				return err
			}
			a.logger.WithField("spreads", len(spreads)).WithField("path", path).Info("screener results written")
			fmt.Fprintf(a.out, "%d spreads written to %s\n", len(spreads), path)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "comma separated underlyings; defaults to screener.symbols")
	cmd.Flags().StringVar(&expiration, "expiration", "", "expiration date YYYY-MM-DD")
	cmd.Flags().StringVar(&optionType, "type", "", "put or call")
	cmd.Flags().BoolVar(&singles, "singles", false, "screen single options and write one csv per symbol")
	return cmd
}

// screenSymbols returns the flag symbols, or the configured ones, upper-cased
// into a new slice.
func screenSymbols(configured, flag []string) []string {
	src := configured
	if len(flag) > 0 {
		src = flag
	}
	out := make([]string, 0, len(src))
	for _, s := range src {
		out = append(out, strings.ToUpper(strings.TrimSpace(s)))
	}
	return out
}

func (a *app) writeSingles(cmd *cobra.Command, s *screener.Screener, symbols []string, dir, optionType string) error {
	results, err := s.RunSingles(cmd.Context(), symbols)
	if err != nil {
		return err
	}

	written := 0
	for _, r := range results {
		if len(r.Singles) == 0 {
			fmt.Fprintf(a.out, "No options found for %s\n", r.Symbol)
			continue
		}
		var buf bytes.Buffer
		if err := screener.WriteSinglesCSV(&buf, r.Singles); err != nil {
			return err
		}
		path := filepath.Join(dir, screener.SinglesFileName(r.Symbol, optionType))
		if err := report.WriteFileAtomic(path, buf.Bytes()); err != nil {
			return err
		}
		written++
		a.logger.WithFields(logrus.Fields{"symbol": r.Symbol, "options": len(r.Singles), "path": path}).Info("screener results written")
		fmt.Fprintf(a.out, "%d options written to %s\n", len(r.Singles), path)
	}
	if written == 0 {
		fmt.Fprintln(a.out, "No options found")
	}
	return nil
}
