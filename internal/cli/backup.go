package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

func (e *env) progress(p models.Progress) {
	fmt.Fprintf(e.errOut, "%3d%% %s %s\n", p.Percent, p.Phase, p.Message)
}

type backupCmd struct {
	*env
	dir        string
	remote     bool
	local      bool
	prefs      bool
	encrypt    bool
	passphrase string
}

func (*backupCmd) Name() string { return "backup" }
func (*backupCmd) Synopsis() string { return "write a backup artifact" }
func (*backupCmd) Usage() string {
	return `spendctl backup [-o <dir>] [-remote] [-local] [-prefs] [-encrypt [-passphrase <p>]]

  Writes a backup of the selected sources into <dir> and prints its path.
  The passphrase may also be given through SPENDLYTICS_BACKUP_PASSPHRASE.
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dir, "o", ".", "Directory the artifact is written to.")
	f.BoolVar(&c.remote, "remote", true, "Include the remote collections of the current session.")
	f.BoolVar(&c.local, "local", false, "Include the local store and the sync queue.")
	f.BoolVar(&c.prefs, "prefs", true, "Include client preferences.")
	f.BoolVar(&c.encrypt, "encrypt", false, "Encrypt the artifact with a passphrase.")
	f.StringVar(&c.passphrase, "passphrase", "", "Encryption passphrase.")
}

func (c *backupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, func(app App) error {
		if c.remote {
			app.Connect(ctx)
		}

		out, err := app.Services().BackupService.CreateBackup(ctx, models.BackupOptions{
			IncludeRemote:      c.remote,
			IncludeLocalStore:  c.local,
			IncludePreferences: c.prefs,
			Encrypt:            c.encrypt,
			Passphrase:         passphrase(c.passphrase),
		}, c.progress)
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}

		if err = os.MkdirAll(c.dir, 0o700); err != nil {
			return fmt.Errorf("create backup dir: %w", err)
		}
		path := filepath.Join(c.dir, out.Filename)
		if err = os.WriteFile(path, out.Content, 0o600); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}

		return c.print(map[string]any{
			"path":   path,
			"size":   out.SizeBytes,
			"counts": out.Artifact.Meta.PerCollectionCounts,
		})
	})
}

type validateCmd struct {
	*env
	passphrase string
}

func (*validateCmd) Name() string { return "validate" }
func (*validateCmd) Synopsis() string { return "check a backup artifact without restoring it" }
func (*validateCmd) Usage() string {
	return `spendctl validate [-passphrase <p>] <file>

  Decrypts and checks the artifact and prints its metadata.
`
}

func (c *validateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.passphrase, "passphrase", "", "Decryption passphrase for encrypted artifacts.")
}

func (c *validateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return c.run(ctx, func(app App) error {
		content, err := os.ReadFile(f.Arg(0))
		if err != nil {
			return fmt.Errorf("read backup: %w", err)
		}
		res := app.Services().RestoreService.Validate(ctx, content, passphrase(c.passphrase))
		if err = c.print(res); err != nil {
			return err
		}
		return res.Err
	})
}

type restoreCmd struct {
	*env
	passphrase string
	remote     bool
	local      bool
	prefs      bool
	merge      bool
}

func (*restoreCmd) Name() string { return "restore" }
func (*restoreCmd) Synopsis() string { return "replay a backup artifact" }
func (*restoreCmd) Usage() string {
	return `spendctl restore [-remote] [-local] [-prefs] [-merge=false] [-passphrase <p>] <file>

  Validates the artifact and restores the selected parts. Without -merge
  the rows of the current session are replaced. Exits non-zero when any
  part failed; the printed result lists what was restored.
`
}

func (c *restoreCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.passphrase, "passphrase", "", "Decryption passphrase for encrypted artifacts.")
	f.BoolVar(&c.remote, "remote", true, "Restore remote collections.")
	f.BoolVar(&c.local, "local", false, "Restore the local store and sync queue.")
	f.BoolVar(&c.prefs, "prefs", true, "Restore client preferences.")
	f.BoolVar(&c.merge, "merge", true, "Upsert rows instead of replacing the session's rows.")
}

func (c *restoreCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	return c.run(ctx, func(app App) error {
		content, err := os.ReadFile(f.Arg(0))
		if err != nil {
			return fmt.Errorf("read backup: %w", err)
		}

		restore := app.Services().RestoreService
		v := restore.Validate(ctx, content, passphrase(c.passphrase))
		if !v.Valid {
			return v.Err
		}

		if c.remote {
			app.Connect(ctx)
		}
		res := restore.Restore(ctx, *v.Artifact, models.RestoreOptions{
			RestoreRemote:      c.remote,
			RestoreLocalStore:  c.local,
			RestorePreferences: c.prefs,
			MergeMode:          c.merge,
		}, c.progress)

		if err = c.print(res); err != nil {
			return err
		}
		if !res.Success {
			return errRestoreIncomplete
		}
		return nil
	})
}
