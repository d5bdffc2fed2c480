// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chain

import (
	"fmt"

	"github.com/siphond/siphond/pkg/complain"
	"github.com/siphond/siphond/pkg/model"
)

// JumpTarget recursively invokes another chain by name, propagating Stop.
// A Return inside the jumped-to chain only ends that chain, so the jump
// yields Continue and the calling chain goes on. Recursion depth is
// bounded by MaxJumpDepth via the shared InvokeContext (§4.8).
type JumpTarget struct {
	Set       *Set
	ChainName string
	Log       LogFunc
}

func (j JumpTarget) Invoke(ctx *InvokeContext, ds model.DataSet, vl model.ValueList) (TargetResult, error) {
	res, err := j.Set.processNamed(ctx, j.ChainName, ds, vl, j.Log)
	if err != nil {
		// A missing or too-deep jump target is logged but does not abort
		// the enclosing chain's own processing (§8 E6: "the dispatch
		// is not aborted").
		if j.Log != nil {
			j.Log(levelError, "chain: jump %q: %v", j.ChainName, err)
		}
		return Continue, nil
	}
	return res, nil
}

// StopTarget terminates chain processing immediately; the value list is
// dropped.
type StopTarget struct{}

func (StopTarget) Invoke(*InvokeContext, model.DataSet, model.ValueList) (TargetResult, error) {
	return Stop, nil
}

// ReturnTarget exits the current chain without dropping the value list.
type ReturnTarget struct{}

func (ReturnTarget) Invoke(*InvokeContext, model.DataSet, model.ValueList) (TargetResult, error) {
	return Return, nil
}

// Writer is the subset of the write-callback registry the write target
// needs: invoke every write callback, or a named subset of them.
type Writer interface {
	// InvokeWrite calls the write callback registered under name.
	InvokeWrite(name string, ds model.DataSet, vl model.ValueList) error
	// InvokeAllWrites calls every registered write callback.
	InvokeAllWrites(ds model.DataSet, vl model.ValueList) []error
}

// WriteTarget invokes one or more write callbacks by name (empty list
// means all). It uses a per-target Complaint to collapse repeated
// identical write failures with back-off, releasing with a "back to
// normal" message on recovery (§4.8, §9).
type WriteTarget struct {
	Writer   Writer
	Names    []string // empty means "all registered write callbacks"
	Log      LogFunc
	Level    int
	complain *complain.Complaint
}

// NewWriteTarget returns a WriteTarget with its own fresh complaint
// state. Per §9's decision, re-registering a plugin under the same
// name gets a fresh complaint timer — callers achieve that simply by
// calling NewWriteTarget again rather than trying to reuse one keyed by
// name.
func NewWriteTarget(w Writer, names []string, log LogFunc) *WriteTarget {
	return &WriteTarget{
		Writer:   w,
		Names:    names,
		Log:      log,
		Level:    levelError,
		complain: complain.New(),
	}
}

func (wt *WriteTarget) Invoke(_ *InvokeContext, ds model.DataSet, vl model.ValueList) (TargetResult, error) {
	var errs []error
	if len(wt.Names) == 0 {
		errs = wt.Writer.InvokeAllWrites(ds, vl)
	} else {
		for _, name := range wt.Names {
			if err := wt.Writer.InvokeWrite(name, ds, vl); err != nil {
				errs = append(errs, err)
			}
		}
	}

	logAdapter := func(level int, msg string) {
		if wt.Log != nil {
			wt.Log(level, "%s", msg)
		}
	}

	if len(errs) == 0 {
		wt.complain.Release(logAdapter, 5, "chain: write target back to normal operation")
		return Continue, nil
	}
	wt.complain.Complain(logAdapter, wt.Level, "chain: write target: %v", errs[0])
	return Continue, nil
}

// String-level identifier helper shared by the match implementations.
func fieldValue(id model.Identifier, field string) (string, error) {
	switch field {
	case "host":
		return id.Host, nil
	case "plugin":
		return id.Plugin, nil
	case "plugin_instance":
		return id.PluginInstance, nil
	case "type":
		return id.Type, nil
	case "type_instance":
		return id.TypeInstance, nil
	default:
		return "", fmt.Errorf("chain: unknown identifier field %q", field)
	}
}
