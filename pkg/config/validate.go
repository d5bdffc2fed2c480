// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate compiles schema and checks instance against it, returning an
// error rather than exiting the process — adapted from
// internal/config/validate.go, which called cclog.Fatal directly; the
// daemon's fixed shutdown sequence has no room for a surprise os.Exit
// buried in a library call, so every caller here gets the error back and
// decides for itself.
func Validate(schema string, instance []byte) error {
	sch, err := jsonschema.CompileString("schema.json", schema)
	if err != nil {
		return fmt.Errorf("config: compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("config: unmarshal instance: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: validate instance: %w", err)
	}
	return nil
}
