package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

func (m appModel) dashboardView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Spendlytics"))
	b.WriteString("  ")
	b.WriteString(renderStatus(m.status, time.Now()))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " Loading expenses...\n")
	case len(m.items) == 0:
		b.WriteString("No expenses yet. Press n to add one.\n")
	default:
		b.WriteString(renderExpenses(m.items, m.idx))
	}

	if m.confirmDelete && len(m.items) > 0 {
		e := m.items[m.idx]
		b.WriteString("\n" + overlayBoxStyle.Render(fmt.Sprintf("Delete %s %s on %s?\n\ny yes    n no",
			e.Amount.StringFixed(2), e.Category, e.Date.Format(time.DateOnly))) + "\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + noticeStyle.Render(m.notice) + "\n")
	}
	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg) + "\n")
	}

	b.WriteString("\n" + m.help.ShortHelpView(keys.dashboardHelp()))
	return b.String()
}

// renderStatus is the one-line connectivity and queue summary.
func renderStatus(st models.SyncStatus, now time.Time) string {
	parts := make([]string, 0, 5)
	if st.IsOnline {
		parts = append(parts, onlineBadge.Render("ONLINE"))
	} else {
		parts = append(parts, offlineBadge.Render("OFFLINE"))
	}
	if st.IsSyncing {
		parts = append(parts, "syncing")
	}
	if st.PendingCount > 0 {
		parts = append(parts, pendingStyle.Render(fmt.Sprintf("%d pending", st.PendingCount)))
	}
	if st.FailedCount > 0 {
		parts = append(parts, failedStyle.Render(fmt.Sprintf("%d failed", st.FailedCount)))
	}
	parts = append(parts, helpStyle.Render("last sync "+sinceText(st.LastSyncTime, now)))
	return strings.Join(parts, "  ")
}

func sinceText(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	d := now.Sub(*t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Local().Format(time.DateOnly)
	}
}

func renderExpenses(items []models.Expense, selected int) string {
	var b strings.Builder
	b.WriteString(headerRowStyle.Render(fmt.Sprintf("%-10s  %10s  %-16s  %s", "Date", "Amount", "Category", "Description")))
	b.WriteString("\n")

	for i, e := range items {
		row := fmt.Sprintf("%-10s  %10s  %-16s  %s",
			e.Date.Format(time.DateOnly),
			e.Amount.StringFixed(2),
			fitText(e.Category, 16),
			fitText(e.Description, 40),
		)
		if i == selected {
			row = selectedRowStyle.Render(row)
		}
		b.WriteString(row + "\n")
	}
	return b.String()
}

func renderRestoreSummary(res models.RestoreResult) string {
	var b strings.Builder

	if res.Success {
		b.WriteString(noticeStyle.Render("Restore completed") + "\n\n")
	} else {
		b.WriteString(errorStyle.Render("Restore completed with errors") + "\n\n")
	}

	for _, name := range models.SortedKeys(res.RestoredCounts) {
		fmt.Fprintf(&b, "%-24s %d\n", name, res.RestoredCounts[name])
	}
	if res.LocalRecordsCount > 0 {
		fmt.Fprintf(&b, "%-24s %d\n", "local records", res.LocalRecordsCount)
	}
	if res.PreferencesCount > 0 {
		fmt.Fprintf(&b, "%-24s %d\n", "preferences", res.PreferencesCount)
	}

	if len(res.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range res.Errors {
			b.WriteString("  " + errorStyle.Render(e) + "\n")
		}
	}
	if len(res.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range res.Warnings {
			b.WriteString("  " + pendingStyle.Render(w) + "\n")
		}
	}

	return renderPage("RESTORE", b.String(), "enter / esc: back")
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
