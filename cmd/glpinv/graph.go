package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"glpinv/internal/inventory"
)

func newGraphCmd(v *viper.Viper, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the group tree",
		Long: `Print the resolved group tree in the layout of ansible-inventory --graph.
Groups that search GLPI are followed by their item type. GLPI is not
contacted, so hosts are not listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roots, err := loadTree(v)
			if err != nil {
				return err
			}
			plan, err := inventory.Plan(roots)
			if err != nil {
				return configError(err)
			}
			if _, err := io.WriteString(stdout, renderGraph(plan)); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// renderGraph lays plan out as
//
//	@all:
//	  |--@parent:
//	  |  |--@child: [Computer]
func renderGraph(plan []inventory.PlannedGroup) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("@all:"))
	b.WriteByte('\n')
	for _, pg := range plan {
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render(strings.Repeat("|  ", pg.Depth) + "|--"))
		fmt.Fprintf(&b, "@%s:", pg.Name)
		if pg.Retrieve {
			b.WriteByte(' ')
			b.WriteString(itemTypeStyle.Render("[" + pg.Query.ItemType + "]"))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
