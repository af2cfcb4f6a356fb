package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"feedwarden/internal/components/dispatch"
	"feedwarden/internal/dom"
	"feedwarden/internal/htmldom"
	"feedwarden/internal/orchestrator"

	"github.com/spf13/cobra"
)

var (
	filterPath   string
	filterOutput string
)

func init() {
	filterCmd.Flags().StringVar(&filterPath, "path", "/", "The location path the page was saved from.")
	filterCmd.Flags().StringVarP(&filterOutput, "output", "o", "", "Where to write the filtered page, defaults to stdout.")
	rootCmd.AddCommand(filterCmd)
}

var filterCmd = &cobra.Command{
	Use:   "filter <page.html> [--path /] [-o out.html]",
	Short: "Runs the engine over a saved page and writes the filtered result.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		site, err := cfg.SiteProfile()
		if err != nil {
			return err
		}
		counterOpts, err := cfg.Counter(tel)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		loop := dispatch.NewLoop()
		doc, err := htmldom.Parse(f, filterPath, loop, htmldom.Options{})
		if err != nil {
			return err
		}

		// receives the outcome of the first activation cycle
		settled := make(chan error, 1)
		orch := orchestrator.New(orchestrator.Options{
			Scheduler:         loop,
			Tree:              doc,
			Painter:           doc,
			Classifier:        site,
			Storage:           storage,
			Counter:           counterOpts,
			Match:             site.MatchesPath,
			ContainerSelector: site.ContainerSelector,
			Threshold:         cfg.Threshold(),
			Poll:              cfg.Poll(),
			OnAttach: func(dom.Node) {
				select {
				case settled <- nil:
				default:
				}
			},
			OnSkip: func(err error) {
				select {
				case settled <- err:
				default:
				}
			},
			Tel: tel,
		})

		errs := make(chan error, 1)
		go func() { errs <- loop.Run(ctx) }()

		err = loop.Do(ctx, func() {
			orch.Start()
			if !site.MatchesPath(filterPath) {
				select {
				case settled <- fmt.Errorf("%s is not a feed page of %s", filterPath, site.Name):
				default:
				}
			}
		})
		if err != nil {
			return err
		}

		select {
		case err = <-settled:
		case err = <-errs:
			return err
		}
		if err != nil {
			slog.Warn("page left untouched", "err", err)
		}

		var out io.Writer = os.Stdout
		if filterOutput != "" {
			file, err := os.Create(filterOutput)
			if err != nil {
				return err
			}
			defer file.Close()
			out = file
		}

		var renderErr error
		err = loop.Do(ctx, func() {
			slog.Info("filtered page", "hidden", orch.Observer().Hidden())
			orch.Stop()
			renderErr = doc.Render(out)
		})
		if err != nil {
			return err
		}
		return renderErr
	},
}
