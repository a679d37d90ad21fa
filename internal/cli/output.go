package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/render"
	"github.com/matzehuels/graftwood/pkg/tree"
)

// Output formats.
const (
	formatOutline = "outline"
	formatJSON    = "json"
	formatDOT     = "dot"
	formatSVG     = "svg"
)

var outputFormats = []string{formatOutline, formatJSON, formatDOT, formatSVG}

// outputOpts are the flags shared by commands that print a tree.
type outputOpts struct {
	format     string
	output     string
	ids        bool
	content    bool
	meta       bool
	horizontal bool
}

func (o *outputOpts) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&o.format, "format", "f", formatOutline, "output format: outline, json, dot or svg")
	flags.StringVarP(&o.output, "output", "o", "", "write to file instead of stdout")
	flags.BoolVar(&o.ids, "ids", false, "outline: show node IDs")
	flags.BoolVar(&o.content, "content", false, "outline and dot: show node content")
	flags.BoolVar(&o.meta, "meta", false, "json: include node metadata")
	flags.BoolVar(&o.horizontal, "horizontal", false, "dot and svg: lay out left to right")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return outputFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func (o *outputOpts) validate() error {
	if !slices.Contains(outputFormats, o.format) {
		return errs.New(errs.ErrCodeInvalidInput, "unknown format %q (want outline, json, dot or svg)", o.format)
	}
	return nil
}

// write renders t to the output file, or to stdout.
func (o *outputOpts) write(ctx context.Context, t *tree.Tree) error {
	if o.output == "" {
		return o.render(ctx, os.Stdout, t)
	}
	f, err := os.Create(o.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", o.output, err)
	}
	if err := o.render(ctx, f, t); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printFile(o.output)
	return nil
}

func (o *outputOpts) render(ctx context.Context, w io.Writer, t *tree.Tree) error {
	switch o.format {
	case formatJSON:
		opts := []render.JSONOption{render.WithJSONIndent()}
		if o.meta {
			opts = append(opts, render.WithJSONMeta())
		}
		data, err := render.JSON(t, opts...)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case formatDOT:
		_, err := io.WriteString(w, render.DOT(t, o.dotOptions()))
		return err
	case formatSVG:
		data, err := render.SVG(ctx, t, o.dotOptions())
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		var opts []render.OutlineOption
		if o.ids {
			opts = append(opts, render.WithIDs())
		}
		if o.content {
			opts = append(opts, render.WithContent())
		}
		return render.Outline(w, t, opts...)
	}
}

func (o *outputOpts) dotOptions() render.DOTOptions {
	return render.DOTOptions{Horizontal: o.horizontal, ShowContent: o.content}
}
