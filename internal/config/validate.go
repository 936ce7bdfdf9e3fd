// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validate checks instance (a JSON-bridged view of the decoded YAML
// config) against the embedded schema, the same "compile schema, decode
// instance to any, Validate" sequence as the teacher's
// internal/config/validate.go, except errors are returned rather than
// fatal — config errors are reported by the CLI with the documented exit
// code 2, not by aborting the process from deep inside the package.
func Validate(instance json.RawMessage) error {
	sch, err := jsonschema.CompileString("vzrelay-config.json", configSchema)
	if err != nil {
		return fmt.Errorf("config: schema compile failed: %w", err)
	}

	var v any
	if err := json.Unmarshal(instance, &v); err != nil {
		return fmt.Errorf("config: instance decode failed: %w", err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}
	return nil
}
