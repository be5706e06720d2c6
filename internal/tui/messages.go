package tui

import "github.com/laoluafolami/spendlytics-sub001/models"

type statusMsg models.SyncStatus

type expensesLoadedMsg struct {
	items []models.Expense
	err   error
}

type syncDoneMsg struct {
	err error
}

type retryDoneMsg struct {
	reset int
	err   error
}

type expenseSavedMsg struct {
	err error
}

type expenseDeletedMsg struct {
	err error
}

type backupDoneMsg struct {
	path string
	size int
	err  error
}

type restoreDoneMsg struct {
	result models.RestoreResult
	err    error
}

type copiedMsg struct {
	err error
}
