package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/laoluafolami/spendlytics-sub001/models"
)

type toggle struct {
	label string
	on    bool
}

// form is a column of text inputs followed by toggles. Focus moves over
// both with tab; space flips the focused toggle.
type form struct {
	title   string
	labels  []string
	inputs  []textinput.Model
	toggles []toggle
	focus   int
	err     string
}

func newForm(title string, labels []string, toggles ...toggle) form {
	inputs := make([]textinput.Model, len(labels))
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 40
		inputs[i].Prompt = ""
	}
	f := form{title: title, labels: labels, inputs: inputs, toggles: toggles}
	f.setFocus(0)
	return f
}

func (f *form) fields() int { return len(f.inputs) + len(f.toggles) }

func (f *form) setFocus(i int) {
	n := f.fields()
	if n == 0 {
		return
	}
	f.focus = (i%n + n) % n
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *form) value(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }

func (f *form) on(i int) bool { return f.toggles[i].on }

func (f *form) masked(i int) {
	f.inputs[i].EchoMode = textinput.EchoPassword
	f.inputs[i].EchoCharacter = '•'
}

// update handles navigation and editing keys. It never submits.
func (f form) update(msg tea.Msg) (form, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "tab", "down":
			f.setFocus(f.focus + 1)
			return f, nil
		case "shift+tab", "up":
			f.setFocus(f.focus - 1)
			return f, nil
		case " ":
			if t := f.focus - len(f.inputs); t >= 0 {
				f.toggles[t].on = !f.toggles[t].on
				return f, nil
			}
		}
	}

	if f.focus < len(f.inputs) {
		var cmd tea.Cmd
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
		return f, cmd
	}
	return f, nil
}

func (f form) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(f.title))
	b.WriteString("\n\n")

	width := 0
	for _, l := range f.labels {
		width = max(width, len(l))
	}
	for i, in := range f.inputs {
		cursor := "  "
		if i == f.focus {
			cursor = "> "
		}
		b.WriteString(cursor + f.labels[i] + ":" + strings.Repeat(" ", width-len(f.labels[i])+1) + "[" + in.View() + "]\n")
	}
	if len(f.toggles) > 0 {
		b.WriteString("\n")
	}
	for i, t := range f.toggles {
		cursor := "  "
		if len(f.inputs)+i == f.focus {
			cursor = "> "
		}
		box := "[ ]"
		if t.on {
			box = "[x]"
		}
		b.WriteString(cursor + box + " " + t.label + "\n")
	}

	if f.err != "" {
		b.WriteString("\n" + errorStyle.Render(f.err) + "\n")
	}
	return b.String()
}

// Expense form fields.
const (
	expenseAmount = iota
	expenseCategory
	expenseDescription
	expenseDate
)

func newExpenseForm(today time.Time) form {
	f := newForm("New expense", []string{"Amount", "Category", "Description", "Date"})
	f.inputs[expenseDate].SetValue(today.Format(time.DateOnly))
	f.inputs[expenseAmount].Placeholder = "12.50"
	return f
}

// parseExpense builds an expense from the form. The id is left empty; the
// collection assigns one.
func parseExpense(f form) (models.Expense, error) {
	amount, err := decimal.NewFromString(f.value(expenseAmount))
	if err != nil || !amount.IsPositive() {
		return models.Expense{}, errAmountRequired
	}
	category := f.value(expenseCategory)
	if category == "" {
		return models.Expense{}, errCategoryRequired
	}
	date, err := time.Parse(time.DateOnly, f.value(expenseDate))
	if err != nil {
		return models.Expense{}, errInvalidDate
	}

	return models.Expense{
		Amount:      amount,
		Category:    category,
		Description: f.value(expenseDescription),
		Date:        date,
	}, nil
}

// Backup form fields.
const (
	backupPassphrase = iota
)

const (
	backupRemote = iota
	backupLocal
	backupPreferences
	backupEncrypt
)

func newBackupForm() form {
	f := newForm("Create backup", []string{"Passphrase"},
		toggle{label: "Remote collections", on: true},
		toggle{label: "Local store and sync queue"},
		toggle{label: "Preferences", on: true},
		toggle{label: "Encrypt with passphrase"},
	)
	f.masked(backupPassphrase)
	return f
}

func backupOptions(f form) (models.BackupOptions, error) {
	opts := models.BackupOptions{
		IncludeRemote:      f.on(backupRemote),
		IncludeLocalStore:  f.on(backupLocal),
		IncludePreferences: f.on(backupPreferences),
		Encrypt:            f.on(backupEncrypt),
		Passphrase:         f.value(backupPassphrase),
	}
	if !opts.IncludeRemote && !opts.IncludeLocalStore && !opts.IncludePreferences {
		return opts, errNothingToBackup
	}
	return opts, nil
}

// Restore form fields.
const (
	restorePath = iota
	restorePassphrase
)

const (
	restoreRemote = iota
	restoreLocal
	restorePreferences
	restoreMerge
)

func newRestoreForm(path string) form {
	f := newForm("Restore backup", []string{"File", "Passphrase"},
		toggle{label: "Remote collections", on: true},
		toggle{label: "Local store"},
		toggle{label: "Preferences", on: true},
		toggle{label: "Merge instead of replace", on: true},
	)
	f.inputs[restorePath].SetValue(path)
	f.inputs[restorePath].Width = 60
	f.masked(restorePassphrase)
	return f
}

func restoreRequest(f form) (path, passphrase string, opts models.RestoreOptions, err error) {
	path = f.value(restorePath)
	if path == "" {
		return "", "", opts, errPathRequired
	}
	opts = models.RestoreOptions{
		RestoreRemote:      f.on(restoreRemote),
		RestoreLocalStore:  f.on(restoreLocal),
		RestorePreferences: f.on(restorePreferences),
		MergeMode:          f.on(restoreMerge),
	}
	return path, f.inputs[restorePassphrase].Value(), opts, nil
}
