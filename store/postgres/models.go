package postgres

import (
	"time"

	"github.com/uptrace/bun"
)

// ── Slot model ────────────────────────────────────────────────────

type slotModel struct {
	bun.BaseModel `bun:"table:throttle_slots"`

	Key       string    `bun:"key,pk"`
	JID       string    `bun:"jid,pk"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}

// ── Window model ──────────────────────────────────────────────────

type windowModel struct {
	bun.BaseModel `bun:"table:throttle_windows"`

	Key       string    `bun:"key,pk"`
	Count     int64     `bun:"count,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
}
