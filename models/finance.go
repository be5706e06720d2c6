// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single spending entry.
type Expense struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (e *Expense) GetID() string   { return e.ID }
func (e *Expense) SetID(id string) { e.ID = id }

// Touch stamps the entity before a local write.
func (e *Expense) Touch(now time.Time) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
}

// Income is a single earning entry.
type Income struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Source      string          `json:"source"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (i *Income) GetID() string   { return i.ID }
func (i *Income) SetID(id string) { i.ID = id }

// Touch stamps the entity before a local write.
func (i *Income) Touch(now time.Time) {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	i.UpdatedAt = now
}

// Category is a user-defined spending category.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Category) GetID() string   { return c.ID }
func (c *Category) SetID(id string) { c.ID = id }

// Touch stamps the entity before a local write.
func (c *Category) Touch(now time.Time) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}
