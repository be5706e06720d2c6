// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"regexp"
	"sort"
)

// CollectionSpec registers one logical collection. Adding a collection to
// backups, restores and (when Local is set) to the sync pull only requires
// a new entry.
type CollectionSpec struct {
	// Name is the logical name used in artifacts and the local store.
	Name string `json:"name"`

	// Table is the remote table name.
	Table string `json:"table"`

	// RelevanceField is the remote column bound to the session id
	// (e.g. "user_id").
	RelevanceField string `json:"relevance_field"`

	// OrderBy is an optional ordering hint for remote reads.
	OrderBy string `json:"order_by,omitempty"`

	// IDField is the identity column. Defaults to "id".
	IDField string `json:"id_field,omitempty"`

	// DeltaField enables delta pulls on a monotonic timestamp column.
	DeltaField string `json:"delta_field,omitempty"`

	// Local marks collections mirrored in the local store and pulled by
	// the sync orchestrator.
	Local bool `json:"local,omitempty"`
}

// Identity returns the identity column of the collection.
func (c CollectionSpec) Identity() string {
	if c.IDField == "" {
		return DefaultIDField
	}
	return c.IDField
}

// CollectionRegistry is the ordered list of registered collections. Order
// matters: backups and restores process collections in registry order.
type CollectionRegistry []CollectionSpec

// Lookup returns the spec registered under name.
func (r CollectionRegistry) Lookup(name string) (CollectionSpec, bool) {
	for _, c := range r {
		if c.Name == name {
			return c, true
		}
	}
	return CollectionSpec{}, false
}

// LocalCollections returns the collections mirrored in the local store.
func (r CollectionRegistry) LocalCollections() CollectionRegistry {
	out := make(CollectionRegistry, 0, len(r))
	for _, c := range r {
		if c.Local {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the logical names in registry order.
func (r CollectionRegistry) Names() []string {
	out := make([]string, 0, len(r))
	for _, c := range r {
		out = append(out, c.Name)
	}
	return out
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is safe to use as an unquoted SQL
// identifier.
func IsIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// Validate checks that names are unique and that every table and column
// name is a plain identifier.
func (r CollectionRegistry) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for _, c := range r {
		if c.Name == "" {
			return fmt.Errorf("collection with empty name")
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("collection %q registered twice", c.Name)
		}
		seen[c.Name] = struct{}{}

		for _, ident := range []string{c.Table, c.RelevanceField} {
			if !IsIdentifier(ident) {
				return fmt.Errorf("collection %q: invalid identifier %q", c.Name, ident)
			}
		}
		for _, ident := range []string{c.OrderBy, c.IDField, c.DeltaField} {
			if ident != "" && !IsIdentifier(ident) {
				return fmt.Errorf("collection %q: invalid identifier %q", c.Name, ident)
			}
		}
	}
	return nil
}

// DefaultCollections is the registry used when the configuration does not
// provide one.
var DefaultCollections = CollectionRegistry{
	{Name: "expenses", Table: "expenses", RelevanceField: "user_id", OrderBy: "date", DeltaField: "updated_at", Local: true},
	{Name: "income", Table: "income", RelevanceField: "user_id", OrderBy: "date", DeltaField: "updated_at", Local: true},
	{Name: "categories", Table: "categories", RelevanceField: "user_id", OrderBy: "name", Local: true},
	{Name: "budgets", Table: "budgets", RelevanceField: "user_id", OrderBy: "created_at"},
	{Name: "savings_goals", Table: "savings_goals", RelevanceField: "user_id", OrderBy: "created_at"},
	{Name: "recurring_transactions", Table: "recurring_transactions", RelevanceField: "user_id", OrderBy: "created_at"},
	{Name: "investments", Table: "investments", RelevanceField: "user_id", OrderBy: "created_at"},
	{Name: "receipts", Table: "receipts", RelevanceField: "user_id", OrderBy: "created_at"},
}

// PreferenceCategory registers a group of client-side preference keys
// eligible for backup.
type PreferenceCategory struct {
	// Name labels the category in logs and warnings.
	Name string `json:"name"`

	// Keys are explicit keys, exported even when unset (as null).
	Keys []string `json:"keys,omitempty"`

	// DynamicPattern is a regular expression matching keys created at
	// runtime (e.g. per-identity migration markers).
	DynamicPattern string `json:"dynamic_pattern,omitempty"`

	// Sensitive keys are only exported into encrypted artifacts.
	Sensitive bool `json:"sensitive,omitempty"`
}

// PreferenceRegistry is the list of registered preference categories.
type PreferenceRegistry []PreferenceCategory

// Compile validates every dynamic pattern and returns them by category
// name.
func (r PreferenceRegistry) Compile() (map[string]*regexp.Regexp, error) {
	out := make(map[string]*regexp.Regexp, len(r))
	for _, c := range r {
		if c.DynamicPattern == "" {
			continue
		}
		re, err := regexp.Compile(c.DynamicPattern)
		if err != nil {
			return nil, fmt.Errorf("preference category %q: %w", c.Name, err)
		}
		out[c.Name] = re
	}
	return out, nil
}

// SelectKeys returns the keys eligible for export among existing, in
// sorted order, together with the category each key belongs to. Explicit
// keys are always selected; existing keys are selected when they match a
// dynamic pattern.
func (r PreferenceRegistry) SelectKeys(existing []string) (map[string]PreferenceCategory, error) {
	patterns, err := r.Compile()
	if err != nil {
		return nil, err
	}

	selected := make(map[string]PreferenceCategory)
	for _, c := range r {
		for _, k := range c.Keys {
			selected[k] = c
		}
		re, ok := patterns[c.Name]
		if !ok {
			continue
		}
		for _, k := range existing {
			if _, taken := selected[k]; !taken && re.MatchString(k) {
				selected[k] = c
			}
		}
	}
	return selected, nil
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Preference keys with a fixed meaning.
const (
	PrefSessionUserID = "spendlytics.session.user_id"
	PrefAccessToken   = "spendlytics.session.access_token"
)

// DefaultPreferences is the preference registry used when the
// configuration does not provide one.
var DefaultPreferences = PreferenceRegistry{
	{Name: "settings", Keys: []string{"spendlytics.currency", "spendlytics.locale", "spendlytics.theme"}},
	{Name: "dashboard", Keys: []string{"spendlytics.dashboard.layout", "spendlytics.dashboard.period"}},
	{Name: "session", Keys: []string{PrefSessionUserID}},
	{Name: "credentials", Keys: []string{PrefAccessToken}, Sensitive: true},
	{Name: "migrations", DynamicPattern: `^spendlytics\.migrated\.[A-Za-z0-9-]+$`},
}
