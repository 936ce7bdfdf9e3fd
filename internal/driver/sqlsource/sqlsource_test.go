package sqlsource

import (
	"context"
	"testing"

	"github.com/volkszaehler/vzrelay/internal/driver"

	"github.com/stretchr/testify/require"
)

const schema = `
CREATE TABLE entities (id TEXT PRIMARY KEY, uuid TEXT, class TEXT, type TEXT);
CREATE TABLE properties (entity_id TEXT, pkey TEXT, value TEXT);
CREATE TABLE data (channel_id TEXT, timestamp INTEGER, value REAL);
`

func openTestDB(t *testing.T) *Source {
	t.Helper()
	s, err := Open(Config{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	_, err = s.db.Exec(schema)
	require.NoError(t, err)
	return s
}

func TestGetChannels(t *testing.T) {
	s := openTestDB(t)
	defer s.Close()

	_, err := s.db.Exec(`INSERT INTO entities (id, uuid, class, type) VALUES ('1', 'u1', 'channel', 'power')`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO properties (entity_id, pkey, value) VALUES ('1', 'title', 'Main Meter')`)
	require.NoError(t, err)

	channels, err := s.GetChannels(context.Background())
	require.NoError(t, err)
	require.Len(t, channels, 1)
	require.Equal(t, "Main Meter", channels[0].Title)
	require.Equal(t, "power", channels[0].Type)
}

func TestIterChunksKeysetPagination(t *testing.T) {
	s := openTestDB(t)
	defer s.Close()

	for i := int64(0); i < 5; i++ {
		_, err := s.db.Exec(`INSERT INTO data (channel_id, timestamp, value) VALUES ('1', ?, ?)`, i*1000, float64(i))
		require.NoError(t, err)
	}

	it, err := s.IterChunks(context.Background(), driver.ChannelDescriptor{ID: "1"}, 0, 0, 2)
	require.NoError(t, err)

	var total []float64
	for {
		chunk, ok, err := it.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		for _, s := range chunk {
			total = append(total, s.V)
		}
	}
	require.Equal(t, []float64{0, 1, 2, 3, 4}, total)
}
