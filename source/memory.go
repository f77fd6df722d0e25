package source

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/trickstertwo/hlog"
	"github.com/trickstertwo/hlog/config"
)

// Memory is an in-process source for tests and embedded configuration.
// Every Set produces a new signature even when the bytes are unchanged.
type Memory struct {
	mu      sync.Mutex
	doc     []byte
	format  config.Format
	version int64
	sigErr  error
	readErr error
	reads   int
	changed chan struct{}
}

func NewMemory(format config.Format, doc []byte) *Memory {
	return &Memory{doc: slices.Clone(doc), format: format, version: 1, changed: make(chan struct{}, 1)}
}

// Set replaces the document and signals watchers.
func (m *Memory) Set(doc []byte) {
	m.mu.Lock()
	m.doc = slices.Clone(doc)
	m.version++
	m.mu.Unlock()
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

// FailSignature makes Signature fail with err until cleared with nil.
func (m *Memory) FailSignature(err error) {
	m.mu.Lock()
	m.sigErr = err
	m.mu.Unlock()
}

// FailRead makes Read fail with err until cleared with nil.
func (m *Memory) FailRead(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// Reads counts Read calls, successful or not.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *Memory) Format() config.Format { return m.format }

func (m *Memory) Signature(context.Context) (Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sigErr != nil {
		return Signature{}, fmt.Errorf("%w: %v", hlog.ErrSourceRead, m.sigErr)
	}
	return Signature{ModTime: time.Unix(0, m.version), Size: int64(len(m.doc))}, nil
}

func (m *Memory) Read(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.readErr != nil {
		return nil, fmt.Errorf("%w: %v", hlog.ErrSourceRead, m.readErr)
	}
	return slices.Clone(m.doc), nil
}

// Watch signals after every Set. Only one watcher is supported.
func (m *Memory) Watch(context.Context, func(error)) (<-chan struct{}, error) {
	return m.changed, nil
}
