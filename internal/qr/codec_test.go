package qr

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func TestEncodeDecodeSigned(t *testing.T) {
	c, err := New("https://chomp.example/", "qr-key", "chompin", true, WithClock(fixedClock))
	require.NoError(t, err)

	link, err := c.Encode("sess-1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "https://chomp.example/attendance?session="), link)

	id, err := c.Decode(link)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)

	u, err := url.Parse(link)
	require.NoError(t, err)
	id, err = c.Decode(u.Query().Get("session"))
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)
}

func TestDecodeRejects(t *testing.T) {
	signed, err := New("https://chomp.example", "qr-key", "chompin", true, WithClock(fixedClock))
	require.NoError(t, err)
	other, err := New("https://chomp.example", "other-key", "chompin", true, WithClock(fixedClock))
	require.NoError(t, err)

	forged, err := other.Encode("sess-1", now.Add(time.Hour))
	require.NoError(t, err)
	expired, err := signed.Encode("sess-1", now)
	require.NoError(t, err)

	cases := map[string]string{
		"bare id":       "sess-1",
		"forged":        forged,
		"expired":       expired,
		"empty":         "",
		"url no param":  "https://chomp.example/attendance",
		"garbage token": "a.b.c",
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := signed.Decode(payload)
			assert.Error(t, err)
		})
	}

	_, err = signed.Decode("sess-1")
	assert.ErrorIs(t, err, ErrUnsigned)
}

func TestUnsignedCodec(t *testing.T) {
	c, err := New("http://localhost:8081", "", "", false)
	require.NoError(t, err)

	link, err := c.Encode("sess-9", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081/attendance?session=sess-9", link)

	id, err := c.Decode(link)
	require.NoError(t, err)
	assert.Equal(t, "sess-9", id)

	id, err = c.Decode(" sess-9 ")
	require.NoError(t, err)
	assert.Equal(t, "sess-9", id)
}

func TestNewRequiresKeyWhenSigned(t *testing.T) {
	_, err := New("http://localhost", "", "", true)
	assert.Error(t, err)
}
