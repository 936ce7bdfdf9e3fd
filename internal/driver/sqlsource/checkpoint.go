// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sqlsource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/gzip"

	"github.com/volkszaehler/vzrelay/internal/driver"
)

// DumpCheckpoint streams every sample for channel between begin and end
// (same bounds as IterChunks) to w as gzip-compressed CSV, one "timestamp,
// value" row per sample. This is an operator debugging/backup aid for
// large archive copies, not part of the copy pipeline itself: nothing in
// the pipeline reads this dump back in.
//
// klauspost/compress's gzip is a drop-in faster encoder than the standard
// library's for this kind of bulk sequential write.
func (s *Source) DumpCheckpoint(ctx context.Context, w io.Writer, channel driver.ChannelDescriptor, begin, end int64, chunkSize int) error {
	gz, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("sqlsource: gzip writer init failed: %w", err)
	}
	defer gz.Close()

	csvw := csv.NewWriter(gz)
	defer csvw.Flush()

	it, err := s.IterChunks(ctx, channel, begin, end, chunkSize)
	if err != nil {
		return err
	}

	for {
		chunk, ok, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("sqlsource: checkpoint read failed: %w", err)
		}
		if !ok {
			break
		}
		for _, sample := range chunk {
			row := []string{
				strconv.FormatInt(sample.T, 10),
				strconv.FormatFloat(sample.V, 'g', -1, 64),
			}
			if err := csvw.Write(row); err != nil {
				return fmt.Errorf("sqlsource: checkpoint write failed: %w", err)
			}
		}
	}

	csvw.Flush()
	return csvw.Error()
}
