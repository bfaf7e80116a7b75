package main

import (
	"fmt"
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/taxengine/internal/config"
	"github.com/smallbiznis/taxengine/internal/metricspush"
	"github.com/smallbiznis/taxengine/internal/migration"
	"github.com/smallbiznis/taxengine/internal/observability"
	"github.com/smallbiznis/taxengine/internal/ordersource"
	"github.com/smallbiznis/taxengine/internal/taxing"
	"github.com/smallbiznis/taxengine/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type rootOpts struct{}

func main() {
	if err := root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func root() *cobra.Command {
	o := &rootOpts{}
	cmd := &cobra.Command{
		Use:           "taxengine",
		Short:         "Tax rule resolution and order tax calculation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(serve(o).cmd())
	cmd.AddCommand(migrate(o).cmd())
	cmd.AddCommand(quote(o).cmd())
	return cmd
}

// coreModules wires everything a command needs to calculate taxes.
func coreModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		metricspush.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		taxing.Module,
		ordersource.Module,
	)
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
