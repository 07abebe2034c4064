// Package qrcode builds and parses the string printed into a ticket's QR code.
//
// A payload is "<eventID>:<ticketID>[:<issuedAt>]" where issuedAt is the issue
// time in base-36 unix seconds. It carries no attendee data.
package qrcode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	separator = ":"

	// MaxPayloadLength keeps payloads well inside QR version 10 capacity.
	MaxPayloadLength = 256

	minFields = 2
	maxFields = 3
)

var ErrParse = errors.New("malformed ticket payload")

// ParseError describes why a scanned string was rejected.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrParse.Error(), e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

type Payload struct {
	EventID  string
	TicketID string
	IssuedAt time.Time
}

// Encode renders p in its canonical layout. IssuedAt is optional.
func Encode(p Payload) (string, error) {
	if err := checkID("event id", p.EventID); err != nil {
		return "", err
	}
	if err := checkID("ticket id", p.TicketID); err != nil {
		return "", err
	}

	fields := []string{p.EventID, p.TicketID}
	if !p.IssuedAt.IsZero() {
		fields = append(fields, strconv.FormatInt(p.IssuedAt.Unix(), 36))
	}
	return strings.Join(fields, separator), nil
}

// Decode parses a scanned string. It never returns partial data.
func Decode(raw string) (Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, &ParseError{Reason: "empty payload"}
	}
	if len(raw) > MaxPayloadLength {
		return Payload{}, &ParseError{Reason: "payload too long"}
	}

	fields := strings.Split(raw, separator)
	if len(fields) < minFields {
		return Payload{}, &ParseError{Reason: fmt.Sprintf("expected at least %d fields, got %d", minFields, len(fields))}
	}
	if len(fields) > maxFields {
		return Payload{}, &ParseError{Reason: fmt.Sprintf("expected at most %d fields, got %d", maxFields, len(fields))}
	}

	p := Payload{EventID: fields[0], TicketID: fields[1]}
	if err := checkID("event id", p.EventID); err != nil {
		return Payload{}, &ParseError{Reason: err.Error()}
	}
	if err := checkID("ticket id", p.TicketID); err != nil {
		return Payload{}, &ParseError{Reason: err.Error()}
	}

	if len(fields) == maxFields {
		secs, err := strconv.ParseInt(fields[2], 36, 64)
		if err != nil || secs <= 0 {
			return Payload{}, &ParseError{Reason: "invalid issue timestamp"}
		}
		p.IssuedAt = time.Unix(secs, 0).UTC()
	}
	return p, nil
}

func checkID(name, id string) error {
	if id == "" {
		return fmt.Errorf("%s is empty", name)
	}
	for _, r := range id {
		if !isIDRune(r) {
			return fmt.Errorf("%s contains invalid character %q", name, r)
		}
	}
	return nil
}

// Identifiers are UUIDs in practice; allow the URL-safe alphabet.
func isIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}
