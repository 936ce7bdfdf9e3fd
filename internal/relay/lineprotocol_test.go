package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrefixTagOrder(t *testing.T) {
	p1 := BuildPrefix("volkszaehler", map[string]string{"uuid": "abc", "title": "main meter"}, "value")
	p2 := BuildPrefix("volkszaehler", map[string]string{"title": "main meter", "uuid": "abc"}, "value")
	assert.Equal(t, p1, p2, "prefix must be byte-identical regardless of map iteration order")
	assert.Equal(t, `volkszaehler,title=main\ meter,uuid=abc value=`, string(p1))
}

func TestAppendLine(t *testing.T) {
	prefix := BuildPrefix("volkszaehler", map[string]string{"uuid": "abc"}, "value")
	line := AppendLine(nil, prefix, 12.5, 1700000000000)
	assert.Equal(t, "volkszaehler,uuid=abc value=12.5 1700000000000\n", string(line))
}

func TestMaxLineLength(t *testing.T) {
	prefix := []byte("abc")
	assert.Equal(t, 67, MaxLineLength(prefix))
}
