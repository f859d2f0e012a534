package ports

import "time"

type Display interface {
	SetPersistentSlot(text, token string) error
	RaiseNotification(text, title string, duration time.Duration) error
}

// NopDisplay drops everything; used when no surface is attached.
type NopDisplay struct{}

func (NopDisplay) SetPersistentSlot(string, string) error { return nil }

func (NopDisplay) RaiseNotification(string, string, time.Duration) error { return nil }
