package main

import (
	"context"
	"os"

	"github.com/metalad-go/metalad/backend"
	"github.com/metalad-go/metalad/backend/factory"
	"github.com/metalad-go/metalad/realmconfig"
)

// backendFlags are the command-line knobs every subcommand that talks to a
// backend exposes: either a realm config file (realmconfig.Load) naming the
// backend and its parameters, or a backend name plus the one parameter the
// shipped filesystem backend actually requires. Grounded on the registry's
// own --config-file-or-flags pattern for cmd/registry.
type backendFlags struct {
	configPath    string
	backendName   string
	rootDirectory string
}

func (f *backendFlags) register(flags interface {
	StringVar(p *string, name string, value string, usage string)
}) {
	flags.StringVar(&f.configPath, "config", "", "path to a realm config file (see realmconfig.RealmConfig); overrides --backend/--rootdirectory")
	flags.StringVar(&f.backendName, "backend", "filesystem", "backend driver name, used when --config is not given")
	flags.StringVar(&f.rootDirectory, "rootdirectory", "", "root directory for the filesystem backend, used when --config is not given")
}

// resolveBackend builds the backend.Backend a subcommand runs against,
// either from a realm config file or from the --backend/--rootdirectory
// flags. Without this, the filesystem backend (the only persistent driver
// shipped) can never be constructed from the CLI, since its factory
// constructor hard-requires a "rootdirectory" parameter that nothing else
// supplies.
func resolveBackend(ctx context.Context, f backendFlags) (backend.Backend, error) {
	if f.configPath != "" {
		file, err := os.Open(f.configPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		cfg, err := realmconfig.Load(file)
		if err != nil {
			return nil, err
		}
		return factory.Create(ctx, cfg.Backend, cfg.Parameters)
	}

	var parameters map[string]any
	if f.rootDirectory != "" {
		parameters = map[string]any{"rootdirectory": f.rootDirectory}
	}
	return factory.Create(ctx, f.backendName, parameters)
}
