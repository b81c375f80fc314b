package portability

import (
	"fmt"
	"sync"
)

// Op identifies the kind of operation.
type Op string

const (
	OpExport Op = "export"
	OpImport Op = "import"
)

// Phase is the progress of a single export or import.
//
// An import moves Idle -> Reading -> Decoding -> Reconciling -> Committing ->
// Succeeded. Dry runs and imports with nothing new finish straight from
// Reconciling. An export moves Idle -> Reading -> Encoding -> Succeeded. Any
// non-terminal phase may move to Failed.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReading
	PhaseDecoding
	PhaseReconciling
	PhaseCommitting
	PhaseEncoding
	PhaseSucceeded
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:        "idle",
	PhaseReading:     "reading",
	PhaseDecoding:    "decoding",
	PhaseReconciling: "reconciling",
	PhaseCommitting:  "committing",
	PhaseEncoding:    "encoding",
	PhaseSucceeded:   "succeeded",
	PhaseFailed:      "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// IsTerminal reports whether the phase is final.
func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

func isAllowedTransition(from, to Phase) bool {
	if to == PhaseFailed {
		return !from.IsTerminal()
	}
	switch from {
	case PhaseIdle:
		return to == PhaseReading
	case PhaseReading:
		return to == PhaseDecoding || to == PhaseEncoding
	case PhaseDecoding:
		return to == PhaseReconciling
	case PhaseReconciling:
		return to == PhaseCommitting || to == PhaseSucceeded
	case PhaseCommitting, PhaseEncoding:
		return to == PhaseSucceeded
	default:
		return false
	}
}

// Observer is told about every phase change. It is called synchronously on
// the goroutine running the operation and must not block.
type Observer func(op Op, phase Phase)

// progress tracks the phase of one running operation.
type progress struct {
	mu       sync.Mutex
	op       Op
	phase    Phase
	observer Observer
}

func newProgress(op Op, observer Observer) *progress {
	return &progress{op: op, phase: PhaseIdle, observer: observer}
}

// advance performs a validated transition. A disallowed transition is a
// programming error and leaves the phase unchanged.
func (p *progress) advance(to Phase) error {
	p.mu.Lock()
	from := p.phase
	if !isAllowedTransition(from, to) {
		p.mu.Unlock()
		return fmt.Errorf("disallowed %s transition: %s -> %s", p.op, from, to)
	}
	p.phase = to
	p.mu.Unlock()

	if p.observer != nil {
		p.observer(p.op, to)
	}
	return nil
}

// fail moves to Failed unless the operation already finished.
func (p *progress) fail() {
	_ = p.advance(PhaseFailed)
}

// current returns the current phase.
func (p *progress) current() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}
