// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chain implements the filter chain engine (L9): an ordered
// list of rules (matches + targets) followed by a list of default
// targets, used to route and transform value lists between the cache
// update and the write fan-out. Grounded on collectd's
// src/daemon/filter_chain.h for the match/target interface shape and the
// FC_MATCH_*/FC_TARGET_* return codes.
package chain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/siphond/siphond/pkg/model"
)

// MatchResult is the outcome of running one Match against a value list.
type MatchResult int

const (
	NoMatch MatchResult = iota
	Matched
)

// TargetResult is the outcome of invoking one Target.
type TargetResult int

const (
	// Continue moves on to the next target (or, after the last target of
	// a firing rule / the default list, ends chain processing normally).
	Continue TargetResult = iota
	// Stop terminates chain processing immediately; the value list is
	// dropped.
	Stop
	// Return exits the current chain without dropping the value list —
	// the caller's enclosing chain (if any) continues, and the default
	// write target of the enclosing chain still runs.
	Return
)

// Match is a pluggable predicate, analogous to collectd's match_proc_t.
type Match interface {
	Match(ds model.DataSet, vl model.ValueList) (MatchResult, error)
}

// MatchFunc adapts a plain function to Match.
type MatchFunc func(ds model.DataSet, vl model.ValueList) (MatchResult, error)

func (f MatchFunc) Match(ds model.DataSet, vl model.ValueList) (MatchResult, error) { return f(ds, vl) }

// InvokeContext threads state across a single Process call, including
// the built-in jump target's recursion depth. A fresh InvokeContext is
// created per top-level Process call and passed down through nested
// jumps.
type InvokeContext struct {
	Depth int
}

// MaxJumpDepth bounds chain-to-chain recursion via the jump target
// (§4.8: "Implementations must detect recursion by depth limit
// (e.g. 8) and abort with an error").
const MaxJumpDepth = 8

// Target is a pluggable action, analogous to collectd's target_proc_t.
type Target interface {
	Invoke(ctx *InvokeContext, ds model.DataSet, vl model.ValueList) (TargetResult, error)
}

// TargetFunc adapts a plain function to Target.
type TargetFunc func(ctx *InvokeContext, ds model.DataSet, vl model.ValueList) (TargetResult, error)

func (f TargetFunc) Invoke(ctx *InvokeContext, ds model.DataSet, vl model.ValueList) (TargetResult, error) {
	return f(ctx, ds, vl)
}

// LogFunc receives chain diagnostics at the numeric severities used
// throughout the daemon (§7).
type LogFunc func(level int, format string, args ...interface{})

const levelError = 3

// Rule is a conjunction of matches and a sequence of targets executed if
// every match fires.
type Rule struct {
	Name    string
	Matches []Match
	Targets []Target
}

// Chain is an ordered list of rules plus a default-target list, acting as
// a filter/router for value lists.
type Chain struct {
	Name           string
	Rules          []Rule
	DefaultTargets []Target
}

// runTargets invokes targets in order, returning the first non-Continue
// result, or Continue if every target returned Continue. Errors are
// reported through errf but never abort the chain — §4.8 has no
// provision for a target error other than logging it.
func runTargets(ctx *InvokeContext, ds model.DataSet, vl model.ValueList, targets []Target, errf LogFunc) TargetResult {
	for _, t := range targets {
		res, err := t.Invoke(ctx, ds, vl)
		if err != nil {
			if errf != nil {
				errf(levelError, "chain: target error: %v", err)
			}
			continue
		}
		if res != Continue {
			return res
		}
	}
	return Continue
}

// Process runs vl through the chain per the algorithm in §4.8. The
// returned TargetResult is from the caller's point of view: Stop means
// "drop the value list", Continue means "value list survives" (a Return
// encountered at any point inside this chain is translated to Continue,
// since exiting a chain does not drop the value list).
func (c *Chain) Process(ds model.DataSet, vl model.ValueList, errf LogFunc) TargetResult {
	ctx := &InvokeContext{}
	return c.process(ctx, ds, vl, errf)
}

func (c *Chain) process(ctx *InvokeContext, ds model.DataSet, vl model.ValueList, errf LogFunc) TargetResult {
	for _, rule := range c.Rules {
		if !allMatch(rule.Matches, ds, vl) {
			continue
		}
		switch runTargets(ctx, ds, vl, rule.Targets, errf) {
		case Stop:
			return Stop
		case Return:
			return Continue
		}
	}
	switch runTargets(ctx, ds, vl, c.DefaultTargets, errf) {
	case Stop:
		return Stop
	case Return:
		return Continue
	}
	return Continue
}

func allMatch(matches []Match, ds model.DataSet, vl model.ValueList) bool {
	for _, m := range matches {
		r, err := m.Match(ds, vl)
		if err != nil || r == NoMatch {
			return false
		}
	}
	return true
}

// Set is the process-wide, name-indexed table of chains, used by the
// jump target to resolve another chain by name. Lookups are
// case-insensitive.
type Set struct {
	mu     sync.RWMutex
	chains map[string]*Chain
}

// NewSet returns an empty chain set.
func NewSet() *Set {
	return &Set{chains: make(map[string]*Chain)}
}

// Register adds or replaces the chain under its own Name.
func (s *Set) Register(c *Chain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chains == nil {
		s.chains = make(map[string]*Chain)
	}
	s.chains[strings.ToLower(c.Name)] = c
}

// Lookup returns the chain registered under name, if any.
func (s *Set) Lookup(name string) (*Chain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[strings.ToLower(name)]
	return c, ok
}

// processNamed resolves name in the set and runs vl through it; used as
// the jump target's recursive entry point with a shared InvokeContext so
// recursion depth is tracked across the whole jump chain.
func (s *Set) processNamed(ctx *InvokeContext, name string, ds model.DataSet, vl model.ValueList, errf LogFunc) (TargetResult, error) {
	if ctx.Depth >= MaxJumpDepth {
		return Stop, fmt.Errorf("chain: jump depth limit (%d) exceeded at %q", MaxJumpDepth, name)
	}
	target, ok := s.Lookup(name)
	if !ok {
		return Continue, fmt.Errorf("chain: jump target chain %q not found", name)
	}
	ctx.Depth++
	defer func() { ctx.Depth-- }()
	return target.process(ctx, ds, vl, errf), nil
}
