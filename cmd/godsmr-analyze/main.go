package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/meterhuis/godsmr/pkg/dsmr"
)

var (
	rootCmd = &cobra.Command{
		Use:   "godsmr-analyze [file]",
		Short: "Decode DSMR P1 telegrams",
		Long: "godsmr-analyze decodes DSMR 4 P1 telegrams from a capture file " +
			"(or stdin) and prints one JSON document per telegram.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			if len(args) == 0 {
				return runAnalyze(os.Stdin, "stdin")
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return runAnalyze(f, args[0])
		},
	}

	summary bool
	verbose bool
)

func init() {
	rootCmd.Flags().BoolVar(&summary, "summary", false, "log telegram and skip totals after the stream ends")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log each skipped parse failure")
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func runAnalyze(src io.Reader, name string) error {
	var telegrams, skipped uint64

	sc := dsmr.NewScanner(src)
	sc.OnSkip(func(err error) {
		skipped++
		logrus.WithError(err).Debug("skipped input")
	})

	for sc.Scan() {
		tel := sc.Telegram()
		if err := tel.Serialize(os.Stdout); err != nil {
			return err
		}
		fmt.Println()
		telegrams++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	if summary {
		logrus.WithFields(logrus.Fields{
			"telegrams":       telegrams,
			"skipped":         skipped,
			"discarded_bytes": sc.Discarded(),
		}).Info("stream complete")
	}
	return nil
}
