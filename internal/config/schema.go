// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

const configSchema = `{
    "type": "object",
    "description": "vzrelay live-relay and bulk-copy configuration.",
    "properties": {
        "defaults": {
            "description": "Defaults applied to every channel unless overridden by an include rule.",
            "type": "object",
            "properties": {
                "begin": {"type": "string"},
                "end": {"type": "string"},
                "max_gap": {"type": "integer"},
                "measurement": {"type": "string"},
                "field_name": {"type": "string"},
                "copy_tags": {"type": "array", "items": {"type": "string"}},
                "add_tags": {"type": "object"},
                "chunk_size": {"type": "integer"},
                "transform": {
                    "type": "object",
                    "properties": {
                        "type": {"type": "string", "enum": ["linear", "auto-resolution", "derivative"]},
                        "scale": {"type": "number"},
                        "offset": {"type": "number"}
                    },
                    "required": ["type"]
                },
                "buffer_size": {"type": "integer"}
            }
        },
        "include": {
            "description": "Channel selection rules, evaluated in order; first match wins.",
            "type": "array"
        },
        "exclude": {
            "description": "Attribute-keyed exclude globs; excludes win over includes.",
            "type": "object",
            "properties": {
                "titles": {"type": "array", "items": {"type": "string"}},
                "types": {"type": "array", "items": {"type": "string"}},
                "classes": {"type": "array", "items": {"type": "string"}},
                "ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "source": {
            "description": "Source driver sub-config.",
            "type": "object",
            "properties": {
                "driver": {"type": "string"}
            },
            "required": ["driver"]
        },
        "destination": {
            "description": "Destination driver sub-config.",
            "type": "object",
            "properties": {
                "driver": {"type": "string"}
            },
            "required": ["driver"]
        },
        "logs": {
            "description": "CLI log output configuration.",
            "type": "object",
            "properties": {
                "file": {"type": "string"},
                "loglevel": {"type": "string"}
            }
        }
    }
}`
