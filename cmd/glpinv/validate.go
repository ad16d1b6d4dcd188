package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"glpinv/internal/inventory"
	"glpinv/internal/settings"
	"glpinv/internal/subst"
)

func newValidateCmd(v *viper.Viper, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the groups configuration without contacting GLPI",
		Long: `Load the groups file, resolve the group tree and compute every search
that --list would send. Prints one line per retrieving group.`,
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
			retrieving := 0
			for _, pg := range plan {
				if !pg.Retrieve {
					continue
				}
				retrieving++
				fmt.Fprintln(stdout, describeSearch(pg))
			}
			fmt.Fprintln(stdout, successStyle.Render(
				fmt.Sprintf("%s: %d groups, %d searches", v.GetString(settings.KeyGroupsFile), len(plan), retrieving)))
			return nil
		},
	}
}

// describeSearch renders one retrieving group as
// "name: Itemtype criteria=N metacriteria=M fields=[..] hostname=$1".
func describeSearch(pg inventory.PlannedGroup) string {
	q := pg.Query
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s criteria=%d metacriteria=%d", pg.Name, q.ItemType, len(q.Criteria), len(q.MetaCriteria))
	if len(q.ForceDisplay) > 0 {
		fmt.Fprintf(&b, " fields=[%s]", strings.Join(q.ForceDisplay, ","))
	}
	fmt.Fprintf(&b, " hostname=%s", pg.Hostname)
	if unbound := unusedFields(pg); len(unbound) > 0 {
		fmt.Fprintf(&b, " (placeholders not in fields: %s)", strings.Join(unbound, ","))
	}
	return b.String()
}

// unusedFields lists placeholder indexes of the hostname and hostvars that
// are not force-displayed. GLPI may still return them as default columns.
func unusedFields(pg inventory.PlannedGroup) []string {
	if len(pg.Query.ForceDisplay) == 0 {
		return nil
	}
	shown := make(map[string]bool, len(pg.Query.ForceDisplay))
	for _, f := range pg.Query.ForceDisplay {
		shown[f] = true
	}
	templates := []string{pg.Hostname}
	for _, tmpl := range pg.HostVars {
		templates = append(templates, tmpl)
	}
	seen := map[string]bool{}
	var out []string
	for _, tmpl := range templates {
		for _, idx := range subst.Placeholders(tmpl) {
			if idx == "" || shown[idx] || seen[idx] {
				continue
			}
			seen[idx] = true
			out = append(out, idx)
		}
	}
	slices.Sort(out)
	return out
}
