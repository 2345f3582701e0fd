package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"countrydash/internal/config"
	"countrydash/internal/dashboard"
	"countrydash/internal/render"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// errHalted is returned after a halt notice has already been printed.
var errHalted = errors.New("dashboard halted")

var (
	infoColor  = color.New(color.FgCyan)
	errorColor = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen)
)

type topOptions struct {
	file     string
	category string
	xlsxOut  string
	chartOut string
}

func newTopCmd() *cobra.Command {
	opts := &topOptions{}

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the top countries for one category",
		Long: `Load a per-country table and print the top countries for a category.

Without --category the first category column is used. Halts are printed as
notices: a missing file is informational, anything else exits non-zero.`,
		Example: `  countrydash top --file countriesMBTI_16types.csv
  countrydash top --file data.xlsx --category ENFP --chart enfp.png --xlsx enfp.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTop(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "per-country table (.csv, .tsv, .txt, .xlsx)")
	cmd.Flags().StringVarP(&opts.category, "category", "c", "", "category column to rank by")
	cmd.Flags().IntP("limit", "n", 10, "number of countries to show")
	cmd.Flags().StringVar(&opts.xlsxOut, "xlsx", "", "also write the table to this .xlsx file")
	cmd.Flags().StringVar(&opts.chartOut, "chart", "", "also write the chart to this .png or .svg file")
	_ = viper.BindPFlag("ranking.limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runTop(cmd *cobra.Command, opts *topOptions) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	p := dashboard.NewPipeline(cfg.Ranking.Limit)

	var res dashboard.Outcome
	if opts.file == "" {
		_, res, err = p.Run(dashboard.State{})
	} else {
		res, err = loadAndRank(p, opts)
	}
	if err != nil {
		return err
	}

	if res.Status.Halted() {
		if res.Status == dashboard.StatusNoInput {
			infoColor.Fprintln(out, res.Message)
			return nil
		}
		errorColor.Fprintln(cmd.ErrOrStderr(), res.Message)
		cmd.SilenceErrors = true
		return errHalted
	}

	if len(res.Categories) > 1 {
		fmt.Fprintf(out, "Categories: %s\n\n", strings.Join(res.Categories, ", "))
	}
	table := render.RenderTable(res.Ranking, res.Selected)
	fmt.Fprintln(out, table.Title)
	table.WriteText(out)

	if opts.xlsxOut != "" {
		if err := writeFile(opts.xlsxOut, table.WriteXLSX); err != nil {
			return err
		}
		okColor.Fprintf(out, "wrote %s\n", opts.xlsxOut)
	}
	if opts.chartOut != "" {
		format := strings.ToLower(strings.TrimPrefix(filepath.Ext(opts.chartOut), "."))
		if _, ok := render.ImageFormats[format]; !ok {
			return fmt.Errorf("chart output %q: want a .png or .svg file", opts.chartOut)
		}
		chart := render.RenderChart(res.Ranking, res.Selected, cfg.Chart.Width, cfg.Chart.Height)
		err := writeFile(opts.chartOut, func(w io.Writer) error {
			return chart.WriteImage(w, format)
		})
		if err != nil {
			return err
		}
		okColor.Fprintf(out, "wrote %s\n", opts.chartOut)
	}
	return nil
}

// loadAndRank feeds the file through the same events the web dashboard uses.
func loadAndRank(p *dashboard.Pipeline, opts *topOptions) (dashboard.Outcome, error) {
	data, err := os.ReadFile(opts.file)
	if err != nil {
		return dashboard.Outcome{}, fmt.Errorf("read %s: %w", opts.file, err)
	}

	st, res, err := p.Handle(dashboard.State{}, dashboard.UploadEvent{
		Name: filepath.Base(opts.file),
		Data: data,
	})
	if err != nil {
		return res, fmt.Errorf("load %s: %w", opts.file, err)
	}
	if opts.category == "" || res.Status == dashboard.StatusSchemaError || res.Status == dashboard.StatusNoCategories {
		return res, nil
	}

	_, selected, err := p.Handle(st, dashboard.SelectEvent{Category: opts.category})
	if err != nil {
		return selected, fmt.Errorf("%w (available: %s)", err, strings.Join(res.Categories, ", "))
	}
	log.Debug().Str("category", selected.Selected).Int("rows", len(selected.Ranking)).Msg("ranked")
	return selected, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
