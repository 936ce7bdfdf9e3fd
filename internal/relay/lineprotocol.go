// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package relay

import (
	"sort"
	"strconv"
)

// BuildPrefix precomputes the byte-immutable "measurement,tag1=v1,tag2=v2
// field=" portion of a line-protocol record for one stream. Tags are
// emitted in ascending lexicographic key order so the prefix is stable and
// cacheable; calling BuildPrefix twice with the same arguments yields
// byte-identical output.
func BuildPrefix(measurement string, tags map[string]string, fieldName string) []byte {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, len(measurement)+len(fieldName)+16*len(tags)+8)
	buf = appendEscapedMeasurement(buf, measurement)
	for _, k := range keys {
		buf = append(buf, ',')
		buf = appendEscapedTag(buf, k)
		buf = append(buf, '=')
		buf = appendEscapedTag(buf, tags[k])
	}
	buf = append(buf, ' ')
	buf = appendEscapedTag(buf, fieldName)
	buf = append(buf, '=')
	return buf
}

// MaxLineLength is the assumed worst-case length of a line built from a
// prefix of length len(prefix), used to size hwm-triggering buffers: the
// prefix plus up to 64 bytes for "VALUE TIMESTAMP\n".
func MaxLineLength(prefix []byte) int {
	return len(prefix) + 64
}

// AppendLine appends one line-protocol record (prefix + value + timestamp
// + newline) to dst and returns the grown slice. t is epoch milliseconds;
// the sink's precision parameter is assumed to be ms.
func AppendLine(dst, prefix []byte, v float64, t int64) []byte {
	dst = append(dst, prefix...)
	dst = strconv.AppendFloat(dst, v, 'g', -1, 64)
	dst = append(dst, ' ')
	dst = strconv.AppendInt(dst, t, 10)
	dst = append(dst, '\n')
	return dst
}

// appendEscapedMeasurement escapes commas and spaces in a measurement name
// per the line-protocol rules (measurements don't need '=' escaped since
// they can't be confused with tag assignments).
func appendEscapedMeasurement(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ',', ' ':
			dst = append(dst, '\\')
		}
		dst = append(dst, s[i])
	}
	return dst
}

// appendEscapedTag escapes commas, spaces, and equals signs in a tag key,
// tag value, or field key.
func appendEscapedTag(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ',', ' ', '=':
			dst = append(dst, '\\')
		}
		dst = append(dst, s[i])
	}
	return dst
}
