package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"glpinv/internal/glpi"
	"glpinv/internal/groups"
	"glpinv/internal/inventory"
	"glpinv/internal/logging"
	"glpinv/internal/settings"
)

func runInventory(ctx context.Context, v *viper.Viper, opts *rootOptions, stdout, stderr io.Writer) error {
	logger := logging.New(stderr, opts.debug)
	defer func() { _ = logger.Sync() }()

	if err := requireConnection(v); err != nil {
		return err
	}
	roots, err := loadTree(v)
	if err != nil {
		return err
	}
	// Surface configuration errors before opening a session.
	if _, err := inventory.Plan(roots); err != nil {
		return configError(err)
	}

	client, err := glpi.New(glpi.Config{
		URL:                v.GetString(settings.KeyURL),
		AppToken:           v.GetString(settings.KeyAppToken),
		UserToken:          v.GetString(settings.KeyUserToken),
		Timeout:            opts.timeout,
		InsecureSkipVerify: opts.insecure,
	}, glpi.WithLogger(logger.Named("glpi")))
	if err != nil {
		return connectionError(err)
	}

	inv, err := materialize(ctx, client, roots, logger)
	if err != nil {
		return err
	}
	if opts.list {
		return writeJSON(stdout, inv, opts.pretty)
	}
	return writeJSON(stdout, inv.Host(opts.host), opts.pretty)
}

// materialize runs the walk inside a GLPI session. The session is closed
// whatever the outcome; a close failure only fails the run when the walk
// failed too.
func materialize(ctx context.Context, client *glpi.Client, roots []*groups.GroupNode, logger *zap.Logger) (*inventory.Inventory, error) {
	if err := client.InitSession(ctx); err != nil {
		return nil, connectionError(err)
	}
	m := inventory.NewMaterializer(glpiRetriever{client: client}, logger)
	inv, err := m.Materialize(ctx, roots)
	killErr := client.KillSession(context.WithoutCancel(ctx))
	if err != nil {
		return nil, classify(multierr.Append(err, killErr))
	}
	if killErr != nil {
		logger.Warn("unable to close GLPI session", zap.Error(killErr))
	}
	return inv, nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return configError(err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return outputError(err)
	}
	return nil
}
