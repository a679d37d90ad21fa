package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// expandCommand creates the expand command for resolving named mount points.
func (c *CLI) expandCommand() *cobra.Command {
	opts := buildOpts{}

	cmd := &cobra.Command{
		Use:   "expand <source> <node-id>...",
		Short: "Build a tree and resolve the named lazy nodes",
		Long: `Build a tree and resolve the named lazy nodes in the given order.

A node grafted by an earlier ID can be named by a later one, so a path into
the tree can be unfolded in one call. Nodes that fail to resolve are marked
with ✗ in the output and the command exits with an error.`,
		Example: `  graftwood expand shop.db table:orders
  graftwood expand --ids pizza.onto.toml Food Pizza`,
		Args:              cobra.MinimumNArgs(2),
		ValidArgsFunction: completeSource,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return c.runExpand(cmd.Context(), args[0], args[1:], opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringToStringVarP(&opts.params, "param", "p", nil, "provider parameter key=value (repeatable)")

	return cmd
}

func (c *CLI) runExpand(ctx context.Context, src string, ids []string, opts buildOpts) error {
	ws, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	e, reg := ws.newEngine()
	defer reg.Close()

	t, err := c.buildTree(ctx, e, src, opts.params, 0)
	if err != nil {
		return err
	}

	var failed []error
	for _, id := range ids {
		if err := e.Resolve(ctx, t, id); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed = append(failed, err)
			continue
		}
		c.Logger.Debug("expanded", "node", id, "children", len(t.Children(id)))
	}

	if err := opts.write(ctx, t); err != nil {
		return err
	}
	return errors.Join(failed...)
}
