package tui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

// clipboardWrite is replaced in tests.
var clipboardWrite = clipboard.WriteAll

func waitForStatus(ch <-chan models.SyncStatus) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg(st)
	}
}

func (m appModel) cmdLoadExpenses() tea.Cmd {
	return func() tea.Msg {
		if err := m.expenses.Refresh(m.ctx); err != nil {
			return expensesLoadedMsg{err: err}
		}
		st := m.expenses.State()
		return expensesLoadedMsg{items: st.Items, err: st.Err}
	}
}

func (m appModel) cmdSync() tea.Cmd {
	return func() tea.Msg {
		return syncDoneMsg{err: m.services.Orchestrator.ForceSyncNow(m.ctx)}
	}
}

func (m appModel) cmdRetry() tea.Cmd {
	return func() tea.Msg {
		n, err := m.services.Orchestrator.RetryFailed(m.ctx)
		return retryDoneMsg{reset: n, err: err}
	}
}

func (m appModel) cmdAddExpense(e models.Expense) tea.Cmd {
	return func() tea.Msg {
		_, err := m.expenses.Add(m.ctx, e)
		return expenseSavedMsg{err: err}
	}
}

func (m appModel) cmdDeleteExpense(id string) tea.Cmd {
	return func() tea.Msg {
		return expenseDeletedMsg{err: m.expenses.Delete(m.ctx, id)}
	}
}

// cmdBackup writes the artifact into the backup directory.
func (m appModel) cmdBackup(opts models.BackupOptions) tea.Cmd {
	return func() tea.Msg {
		out, err := m.services.BackupService.CreateBackup(m.ctx, opts, nil)
		if err != nil {
			return backupDoneMsg{err: err}
		}
		if err = os.MkdirAll(m.backupDir, 0o700); err != nil {
			return backupDoneMsg{err: fmt.Errorf("create backup dir: %w", err)}
		}
		path := filepath.Join(m.backupDir, out.Filename)
		if err = os.WriteFile(path, out.Content, 0o600); err != nil {
			return backupDoneMsg{err: fmt.Errorf("write backup: %w", err)}
		}
		return backupDoneMsg{path: path, size: out.SizeBytes}
	}
}

// cmdRestore reads, validates and replays an artifact. Validation failures
// are returned as errors; partial restore failures are in the result.
func (m appModel) cmdRestore(path, passphrase string, opts models.RestoreOptions) tea.Cmd {
	return func() tea.Msg {
		content, err := os.ReadFile(path)
		if err != nil {
			return restoreDoneMsg{err: fmt.Errorf("read backup: %w", err)}
		}
		res := m.services.RestoreService.Validate(m.ctx, content, passphrase)
		if !res.Valid {
			return restoreDoneMsg{err: res.Err}
		}
		return restoreDoneMsg{result: m.services.RestoreService.Restore(m.ctx, *res.Artifact, opts, nil)}
	}
}

func cmdCopy(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: clipboardWrite(text)}
	}
}
