package models

import "time"

// CooldownKind distinguishes the two independent cooldown clocks the
// decision engine tracks per app.
type CooldownKind string

const (
	CooldownUp   CooldownKind = "up"
	CooldownDown CooldownKind = "down"
)

// CooldownRecord is the unit stored by a CooldownStore: the UTC instant
// an app last scaled in the given direction.
type CooldownRecord struct {
	AppName string
	Kind    CooldownKind
	At      time.Time
}
