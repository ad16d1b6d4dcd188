// Command glpinv is an Ansible dynamic inventory script backed by the GLPI
// REST API.
//
// Usage:
//
//	glpinv --list
//	glpinv --host <hostname>
//	glpinv configure | validate | graph
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"glpinv/internal/glpi"
	"glpinv/internal/groups"
	"glpinv/internal/settings"
)

// rootOptions holds the flags that viper does not resolve.
type rootOptions struct {
	list     bool
	host     string
	timeout  time.Duration
	insecure bool
	debug    bool
	pretty   bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "glpinv (--list | --host HOST)",
		Short: "Ansible dynamic inventory backed by the GLPI API",
		Long: `Build an Ansible inventory from GLPI searches.

Groups are described in a YAML file (--groups-config, default glpi-api.yml
next to the executable). Each group may search one GLPI item type and turn
the result rows into hosts and host variables.

Connection settings are taken from flags, then the GLPI_API_URL,
GLPI_API_USERTOKEN and GLPI_API_APPTOKEN environment variables, then
~/.glpinv/settings.yaml as written by 'glpinv configure'.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initSettings(v, cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInventory(cmd.Context(), v, opts, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.list, "list", false, "print the whole inventory")
	f.StringVar(&opts.host, "host", "", "print the variables of a single host")
	f.String(settings.KeyURL, "", "GLPI API URL, e.g. https://glpi.example.com/apirest.php")
	f.String(settings.KeyUserToken, "", "GLPI user token")
	f.String(settings.KeyAppToken, "", "GLPI application token")
	f.DurationVar(&opts.timeout, "timeout", glpi.DefaultTimeout, "timeout of a single GLPI request")
	f.BoolVar(&opts.insecure, "insecure", false, "skip TLS certificate verification")
	f.BoolVar(&opts.pretty, "pretty", false, "indent the JSON output")
	cmd.MarkFlagsMutuallyExclusive("list", "host")
	cmd.MarkFlagsOneRequired("list", "host")

	pf := cmd.PersistentFlags()
	pf.String(settings.KeyGroupsFile, "", "groups configuration file")
	pf.BoolVar(&opts.debug, "debug", false, "log GLPI requests to stderr")

	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.AddCommand(
		newConfigureCmd(stdin, stdout),
		newValidateCmd(v, stdout),
		newGraphCmd(v, stdout),
	)
	return cmd
}

// initSettings binds flags and environment to v and falls back to the
// settings file.
func initSettings(v *viper.Viper, cmd *cobra.Command) error {
	if err := settings.Bind(v, cmd.Flags()); err != nil {
		return configError(err)
	}
	current, err := settings.Load()
	if err != nil {
		return configError(err)
	}
	settings.ApplyDefaults(v, current)
	return nil
}

// requireConnection reports the connection settings nobody provided.
func requireConnection(v *viper.Viper) error {
	missing := settings.Missing(v)
	if len(missing) == 0 {
		return nil
	}
	flags := make([]string, len(missing))
	for i, key := range missing {
		flags[i] = "--" + key
	}
	return usageError(fmt.Errorf("the following arguments are required: %s", strings.Join(flags, ", ")))
}

// loadTree reads and resolves the groups file named in v.
func loadTree(v *viper.Viper) ([]*groups.GroupNode, error) {
	defs, err := groups.Load(v.GetString(settings.KeyGroupsFile))
	if err != nil {
		return nil, configError(err)
	}
	roots, err := groups.Build(defs)
	if err != nil {
		return nil, configError(err)
	}
	return roots, nil
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, errorMessage(err))
	code := exitCode(err)
	if code == exitUsage {
		fmt.Fprintln(stderr, "Run 'glpinv --help' for usage.")
	}
	return code
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
