package qrcode

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	issued := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	for i := 0; i < 200; i++ {
		p := Payload{EventID: uuid.NewString(), TicketID: uuid.NewString()}
		if i%2 == 0 {
			p.IssuedAt = issued.Add(time.Duration(i) * time.Minute)
		}

		raw, err := Encode(p)
		require.NoError(t, err)

		got, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, p.EventID, got.EventID)
		assert.Equal(t, p.TicketID, got.TicketID)
		assert.True(t, p.IssuedAt.Equal(got.IssuedAt), "issuedAt %v != %v", p.IssuedAt, got.IssuedAt)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	p := Payload{EventID: "evt-1", TicketID: "tkt-1", IssuedAt: time.Unix(1700000000, 0)}

	a, err := Encode(p)
	require.NoError(t, err)
	b, err := Encode(p)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "evt-1:tkt-1:s44we8", a)
}

func TestEncodeRejectsBadIDs(t *testing.T) {
	_, err := Encode(Payload{EventID: "", TicketID: "t"})
	assert.Error(t, err)
	_, err = Encode(Payload{EventID: "a:b", TicketID: "t"})
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"single field", "only-one-field"},
		{"empty ticket", "evt-1:"},
		{"empty event", ":tkt-1"},
		{"too many fields", "a:b:c:d"},
		{"bad timestamp", "evt:tkt:!!"},
		{"negative timestamp", "evt:tkt:-5"},
		{"json object", `{"ticketId":"x"}`},
		{"control char", "evt\x00:tkt"},
		{"too long", string(make([]byte, MaxPayloadLength+1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse))

			var perr *ParseError
			assert.True(t, errors.As(err, &perr))
			assert.Equal(t, Payload{}, p)
		})
	}
}

func TestDecodeTrimsScannerWhitespace(t *testing.T) {
	p, err := Decode("  evt-9:tkt-9\n")
	require.NoError(t, err)
	assert.Equal(t, "evt-9", p.EventID)
	assert.Equal(t, "tkt-9", p.TicketID)
	assert.True(t, p.IssuedAt.IsZero())
}
