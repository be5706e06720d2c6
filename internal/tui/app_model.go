package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/laoluafolami/spendlytics-sub001/internal/service"
	"github.com/laoluafolami/spendlytics-sub001/models"
)

type screen int

const (
	screenDashboard screen = iota
	screenExpenseForm
	screenBackupForm
	screenRestoreForm
	screenRestoreSummary
	screenBuildInfo
)

type expenseCollection = service.Collection[models.Expense, *models.Expense]

type appModel struct {
	ctx       context.Context
	services  *service.ClientServices
	expenses  *expenseCollection
	statusCh  <-chan models.SyncStatus
	backupDir string
	buildInfo models.AppBuildInfo
	now       func() time.Time

	screen  screen
	status  models.SyncStatus
	items   []models.Expense
	idx     int
	loading bool
	busy    string
	spinner spinner.Model
	help    help.Model

	notice        string
	errMsg        string
	confirmDelete bool
	lastBackup    string

	form          form
	restoreResult models.RestoreResult
}

func newAppModel(ctx context.Context, services *service.ClientServices, expenses *expenseCollection, statusCh <-chan models.SyncStatus, backupDir string, info models.AppBuildInfo) appModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	return appModel{
		ctx:       ctx,
		services:  services,
		expenses:  expenses,
		statusCh:  statusCh,
		backupDir: backupDir,
		buildInfo: info,
		now:       time.Now,
		status:    services.Orchestrator.Status(),
		loading:   true,
		spinner:   s,
		help:      help.New(),
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.cmdLoadExpenses(), waitForStatus(m.statusCh), m.spinner.Tick)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		wasSyncing := m.status.IsSyncing
		m.status = models.SyncStatus(msg)
		cmds := []tea.Cmd{waitForStatus(m.statusCh)}
		if wasSyncing && !m.status.IsSyncing {
			cmds = append(cmds, m.cmdLoadExpenses())
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case expensesLoadedMsg:
		m.loading = false
		m.items = msg.items
		if msg.err != nil {
			m.errMsg = humanizeError(msg.err)
		}
		m.idx = min(max(m.idx, 0), max(len(m.items)-1, 0))
		return m, nil

	case syncDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setNotice("Sync finished")
		return m, m.cmdLoadExpenses()

	case retryDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setNotice(fmt.Sprintf("%d failed item(s) queued again", msg.reset))
		return m, nil

	case expenseSavedMsg:
		m.busy = ""
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.screen = screenDashboard
		m.setNotice("Expense saved")
		return m, m.cmdLoadExpenses()

	case expenseDeletedMsg:
		m.busy = ""
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setNotice("Expense deleted")
		return m, m.cmdLoadExpenses()

	case backupDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.form.err = humanizeError(msg.err)
			return m, nil
		}
		m.screen = screenDashboard
		m.lastBackup = msg.path
		m.setNotice(fmt.Sprintf("Backup written to %s (%s)", msg.path, formatSize(msg.size)))
		return m, nil

	case restoreDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.form.err = humanizeError(msg.err)
			return m, nil
		}
		m.screen = screenRestoreSummary
		m.restoreResult = msg.result
		return m, m.cmdLoadExpenses()

	case copiedMsg:
		if msg.err != nil {
			m.setError(fmt.Errorf("copy to clipboard: %w", msg.err))
			return m, nil
		}
		m.setNotice("Backup path copied")
		return m, nil
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.updateForm(msg)
	}
	if k.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.busy != "" {
		return m, nil
	}

	switch m.screen {
	case screenDashboard:
		return m.updateDashboard(k)
	case screenBuildInfo, screenRestoreSummary:
		if key.Matches(k, keys.esc, keys.enter, keys.quit) {
			m.screen = screenDashboard
		}
		return m, nil
	default:
		return m.updateForm(k)
	}
}

func (m appModel) updateDashboard(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmDelete {
		m.confirmDelete = false
		if key.Matches(k, keys.yes) && len(m.items) > 0 {
			m.busy = "Deleting"
			return m, m.cmdDeleteExpense(m.items[m.idx].ID)
		}
		return m, nil
	}

	m.errMsg = ""
	switch {
	case key.Matches(k, keys.quit):
		return m, tea.Quit
	case key.Matches(k, keys.up):
		if m.idx > 0 {
			m.idx--
		}
	case key.Matches(k, keys.down):
		if m.idx < len(m.items)-1 {
			m.idx++
		}
	case key.Matches(k, keys.newItem):
		m.screen = screenExpenseForm
		m.form = newExpenseForm(m.now())
	case key.Matches(k, keys.delete):
		if len(m.items) > 0 {
			m.confirmDelete = true
		}
	case key.Matches(k, keys.sync):
		if !m.status.IsOnline {
			m.setError(service.ErrOffline)
			return m, nil
		}
		m.busy = "Syncing"
		return m, m.cmdSync()
	case key.Matches(k, keys.retry):
		m.busy = "Retrying"
		return m, m.cmdRetry()
	case key.Matches(k, keys.backup):
		m.screen = screenBackupForm
		m.form = newBackupForm()
	case key.Matches(k, keys.restore):
		m.screen = screenRestoreForm
		m.form = newRestoreForm(m.lastBackup)
	case key.Matches(k, keys.copy):
		if m.lastBackup == "" {
			m.setNotice("No backup written in this session")
			return m, nil
		}
		return m, cmdCopy(m.lastBackup)
	case key.Matches(k, keys.buildInfo):
		m.screen = screenBuildInfo
	}
	return m, nil
}

func (m appModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.screen != screenExpenseForm && m.screen != screenBackupForm && m.screen != screenRestoreForm {
		return m, nil
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, keys.esc):
			m.screen = screenDashboard
			return m, nil
		case key.Matches(k, keys.enter):
			return m.submitForm()
		}
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m appModel) submitForm() (tea.Model, tea.Cmd) {
	m.form.err = ""
	switch m.screen {
	case screenExpenseForm:
		e, err := parseExpense(m.form)
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		m.busy = "Saving"
		return m, m.cmdAddExpense(e)

	case screenBackupForm:
		opts, err := backupOptions(m.form)
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		m.busy = "Creating backup"
		return m, m.cmdBackup(opts)

	case screenRestoreForm:
		path, passphrase, opts, err := restoreRequest(m.form)
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		m.busy = "Restoring"
		return m, m.cmdRestore(path, passphrase, opts)
	}
	return m, nil
}

func (m *appModel) setNotice(s string) {
	m.notice = s
	m.errMsg = ""
}

func (m *appModel) setError(err error) {
	m.errMsg = humanizeError(err)
	m.notice = ""
}

func (m appModel) View() string {
	var body string
	switch m.screen {
	case screenDashboard:
		body = m.dashboardView()
	case screenBuildInfo:
		body = renderBuildInfoWindow(m.buildInfo, m.backupDir)
	case screenRestoreSummary:
		body = renderRestoreSummary(m.restoreResult)
	default:
		body = m.form.View() + "\n" + m.help.ShortHelpView(keys.formHelp())
	}

	if m.busy != "" {
		body += "\n\n" + m.spinner.View() + " " + m.busy + "..."
	}
	return appStyle.Render(body)
}
