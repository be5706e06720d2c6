package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	esc       key.Binding
	tab       key.Binding
	backtab   key.Binding
	toggle    key.Binding
	quit      key.Binding
	newItem   key.Binding
	delete    key.Binding
	sync      key.Binding
	retry     key.Binding
	backup    key.Binding
	restore   key.Binding
	copy      key.Binding
	buildInfo key.Binding
	yes       key.Binding
	no        key.Binding
}

var keys = keyMap{
	up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	esc:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	backtab:   key.NewBinding(key.WithKeys("shift+tab")),
	toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	newItem:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new expense")),
	delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	sync:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync now")),
	retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry failed")),
	backup:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "backup")),
	restore:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "restore")),
	copy:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy backup path")),
	buildInfo: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "version")),
	yes:       key.NewBinding(key.WithKeys("y")),
	no:        key.NewBinding(key.WithKeys("n", "esc")),
}

func (k keyMap) dashboardHelp() []key.Binding {
	return []key.Binding{k.newItem, k.delete, k.sync, k.retry, k.backup, k.restore, k.copy, k.buildInfo, k.quit}
}

func (k keyMap) formHelp() []key.Binding {
	return []key.Binding{k.tab, k.toggle, k.enter, k.esc}
}
