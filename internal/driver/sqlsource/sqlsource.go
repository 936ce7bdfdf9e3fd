// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sqlsource is the reference relational source driver: a
// volkszaehler-schema "entities/properties/data" database accessed
// through sqlx and squirrel, paginated by timestamp keyset rather than
// OFFSET (OFFSET pagination degrades badly on large data tables; the
// channel_id+timestamp index makes "timestamp > last_seen" the cheap
// query).
package sqlsource

import (
	"context"
	"fmt"

	"github.com/volkszaehler/vzrelay/internal/driver"
	"github.com/volkszaehler/vzrelay/internal/relay"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

func init() {
	driver.RegisterSource("sql", func(ctx context.Context, rawConfig map[string]any) (driver.Reader, error) {
		cfg, err := configFromMap(rawConfig)
		if err != nil {
			return nil, err
		}
		return Open(cfg)
	})
}

// Config describes how to reach the database.
type Config struct {
	Driver string // "sqlite3" or any sqlx-registered driver name
	DSN    string
}

func configFromMap(m map[string]any) (Config, error) {
	driverName, _ := m["driver"].(string)
	dsn, _ := m["dsn"].(string)
	if driverName == "" {
		driverName = "sqlite3"
	}
	if dsn == "" {
		return Config{}, fmt.Errorf("sqlsource: dsn is required")
	}
	return Config{Driver: driverName, DSN: dsn}, nil
}

// Source is a driver.Reader over a volkszaehler-schema database.
type Source struct {
	db *sqlx.DB
}

// Open connects to the database per cfg.
func Open(cfg Config) (*Source, error) {
	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlsource: connect failed: %w", err)
	}
	return &Source{db: db}, nil
}

// GetChannels lists every entity with class = 'channel', joining in its
// title, type and uuid properties.
func (s *Source) GetChannels(ctx context.Context) ([]driver.ChannelDescriptor, error) {
	q, args, err := sq.Select("id", "uuid", "type").
		From("entities").
		Where(sq.Eq{"class": "channel"}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlsource: GetChannels query failed: %w", err)
	}
	defer rows.Close()

	var channels []driver.ChannelDescriptor
	for rows.Next() {
		var id, typ string
		var uuid string
		if err := rows.Scan(&id, &uuid, &typ); err != nil {
			return nil, err
		}
		cd := driver.ChannelDescriptor{ID: id, UUID: uuid, Type: typ, Attrs: map[string]string{}}
		props, err := s.properties(ctx, id)
		if err != nil {
			return nil, err
		}
		if title, ok := props["title"]; ok {
			cd.Title = title
		}
		for k, v := range props {
			cd.Attrs[k] = v
		}
		channels = append(channels, cd)
	}
	return channels, rows.Err()
}

func (s *Source) properties(ctx context.Context, entityID string) (map[string]string, error) {
	q, args, err := sq.Select("pkey", "value").
		From("properties").
		Where(sq.Eq{"entity_id": entityID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlsource: properties query failed: %w", err)
	}
	defer rows.Close()

	props := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		props[k] = v
	}
	return props, rows.Err()
}

// IterChunks streams chunks from the data table in ascending timestamp
// order, using keyset pagination: each subsequent query filters on
// timestamp > last row's timestamp from the previous chunk, rather than
// OFFSET N.
func (s *Source) IterChunks(ctx context.Context, channel driver.ChannelDescriptor, begin, end int64, chunkSize int) (driver.ChunkIterator, error) {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	return &chunkIterator{
		db:        s.db,
		channelID: channel.ID,
		end:       end,
		cursor:    begin,
		haveBegin: begin > 0,
		chunkSize: chunkSize,
	}, nil
}

// Close releases the database connection.
func (s *Source) Close() error {
	return s.db.Close()
}

type chunkIterator struct {
	db        *sqlx.DB
	channelID string
	end       int64
	cursor    int64
	haveBegin bool
	chunkSize int
	done      bool
}

func (it *chunkIterator) Next(ctx context.Context) ([]relay.Sample, bool, error) {
	if it.done {
		return nil, false, nil
	}

	b := sq.Select("timestamp", "value").
		From("data").
		Where(sq.Eq{"channel_id": it.channelID}).
		OrderBy("timestamp ASC").
		Limit(uint64(it.chunkSize))

	if it.haveBegin {
		b = b.Where(sq.GtOrEq{"timestamp": it.cursor})
	} else if it.cursor > 0 {
		b = b.Where(sq.Gt{"timestamp": it.cursor})
	}
	if it.end > 0 {
		b = b.Where(sq.Lt{"timestamp": it.end})
	}

	q, args, err := b.ToSql()
	if err != nil {
		return nil, false, err
	}

	rows, err := it.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, false, fmt.Errorf("sqlsource: chunk query failed: %w", err)
	}
	defer rows.Close()

	var chunk []relay.Sample
	for rows.Next() {
		var ts int64
		var v float64
		if err := rows.Scan(&ts, &v); err != nil {
			return nil, false, err
		}
		chunk = append(chunk, relay.Sample{T: ts, V: v})
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	if len(chunk) == 0 {
		it.done = true
		return nil, false, nil
	}

	it.haveBegin = false
	it.cursor = chunk[len(chunk)-1].T
	return chunk, true, nil
}
