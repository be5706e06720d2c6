package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/laoluafolami/spendlytics-sub001/internal/service"
	"github.com/laoluafolami/spendlytics-sub001/internal/store"
)

// passphraseEnv is read when -passphrase is not given.
const passphraseEnv = "SPENDLYTICS_BACKUP_PASSPHRASE"

// App is the part of the client runtime the commands use.
type App interface {
	Services() *service.ClientServices
	Storages() *store.ClientStorages
	Connect(ctx context.Context) bool
	Migrate(ctx context.Context) error
	Close() error
}

// Opener builds the runtime for a single command.
type Opener func(ctx context.Context) (App, error)

type env struct {
	open   Opener
	out    io.Writer
	errOut io.Writer
}

// Commands returns every spendctl subcommand. Results go to out and
// diagnostics to errOut; nil writers default to stdout and stderr.
func Commands(open Opener, out, errOut io.Writer) []subcommands.Command {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	e := &env{open: open, out: out, errOut: errOut}

	return []subcommands.Command{
		&statusCmd{env: e},
		&syncCmd{env: e},
		&retryCmd{env: e},
		&backupCmd{env: e},
		&validateCmd{env: e},
		&restoreCmd{env: e},
		&migrateCmd{env: e},
	}
}

// run opens the runtime, calls fn and maps its error to an exit status.
func (e *env) run(ctx context.Context, fn func(App) error) subcommands.ExitStatus {
	app, err := e.open(ctx)
	if err != nil {
		fmt.Fprintln(e.errOut, err)
		return subcommands.ExitFailure
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			fmt.Fprintln(e.errOut, cerr)
		}
	}()

	if err = fn(app); err != nil {
		fmt.Fprintln(e.errOut, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (e *env) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// passphrase prefers the flag value over the environment.
func passphrase(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(passphraseEnv)
}
