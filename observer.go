package hlog

import (
	"time"
)

// Observer pattern

// EventData is a read-only snapshot of a dispatched log event.
type EventData struct {
	Level  Level
	Logger string
	Msg    string
	At     time.Time
	Fields []Field // copy per emit; safe to hold
}

// ConfigChange is published after a new State replaced the active one.
type ConfigChange struct {
	OldMin    Level
	NewMin    Level
	Appenders int
}

// Observer receives notifications for events, configuration swaps and
// reported errors. Implementations MUST be concurrency-safe.
type Observer interface {
	OnEvent(e EventData)
	OnConfig(c ConfigChange)
	OnError(err error)
}

// ObserverFuncs adapts plain functions; nil members are skipped.
type ObserverFuncs struct {
	Event  func(EventData)
	Config func(ConfigChange)
	Error  func(error)
}

func (o ObserverFuncs) OnEvent(e EventData) {
	if o.Event != nil {
		o.Event(e)
	}
}

func (o ObserverFuncs) OnConfig(c ConfigChange) {
	if o.Config != nil {
		o.Config(c)
	}
}

func (o ObserverFuncs) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}
