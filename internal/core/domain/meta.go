package domain

import "time"

// Meta porte l'identité et les dates communes à toutes les entités persistées.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Base expose la Meta embarquée (utilisé par le store générique).
func (m *Meta) Base() *Meta { return m }

// Stamp initialise createdAt == updatedAt.
func (m *Meta) Stamp(now time.Time) {
	m.CreatedAt = now.UTC()
	m.UpdatedAt = m.CreatedAt
}

// Touch met à jour la date de modification sans jamais passer sous createdAt.
func (m *Meta) Touch(now time.Time) {
	now = now.UTC()
	if now.Before(m.CreatedAt) {
		now = m.CreatedAt
	}
	m.UpdatedAt = now
}
