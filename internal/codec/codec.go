package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	appLog "ttcal/internal/log"
	"ttcal/internal/model"
)

// maxPayload caps the decompressed size of a token.
const maxPayload = 1 << 20

var (
	ErrMalformedToken  = errors.New("token is not valid base64url")
	ErrCorruptPayload  = errors.New("token payload cannot be decompressed")
	ErrInvalidDocument = errors.New("token payload is not a timetable")
)

var encoding = base64.RawURLEncoding

// Codec converts timetables to URL-safe tokens and back. The zero value logs
// to the process logger.
type Codec struct {
	Reporter appLog.Reporter
}

// New returns a Codec reporting failures to r.
func New(r appLog.Reporter) *Codec {
	return &Codec{Reporter: r}
}

func (c *Codec) reporter() appLog.Reporter {
	if c == nil || c.Reporter == nil {
		return appLog.Default()
	}
	return c.Reporter
}

// Encode drops empty lessons, then serialises, compresses and base64url
// encodes the rest. Equal timetables always give equal tokens.
func (c *Codec) Encode(t model.Timetable) string {
	token, err := encode(t.Compact())
	if err != nil {
		c.reporter().Error("timetable encode failed", err, "entries", len(t))
		return ""
	}
	return token
}

func encode(t model.Timetable) (string, error) {
	// encoding/json writes map keys sorted, which keeps the text canonical.
	doc, err := json.Marshal(t)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(doc); err != nil {
		return "", err
	}
	if err := fw.Close(); err != nil {
		return "", err
	}
	return encoding.EncodeToString(buf.Bytes()), nil
}

// Decode is the fail-soft inverse of Encode. Any failure is reported once and
// yields an empty timetable. An empty token is not a failure.
func (c *Codec) Decode(token string) model.Timetable {
	t, err := Parse(token)
	if err != nil {
		c.reporter().Error("timetable decode failed", err, "token_len", len(token))
		return model.Timetable{}
	}
	return t
}

// Parse is the strict inverse of Encode. The returned timetable is never nil.
func Parse(token string) (model.Timetable, error) {
	if token == "" {
		return model.Timetable{}, nil
	}

	raw, err := encoding.DecodeString(token)
	if err != nil {
		return model.Timetable{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	fr := flate.NewReader(bytes.NewReader(raw))
	defer fr.Close()

	doc, err := io.ReadAll(io.LimitReader(fr, maxPayload+1))
	if err != nil {
		return model.Timetable{}, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if len(doc) > maxPayload {
		return model.Timetable{}, fmt.Errorf("%w: exceeds %d bytes", ErrCorruptPayload, maxPayload)
	}

	var t model.Timetable
	if err := json.Unmarshal(doc, &t); err != nil {
		return model.Timetable{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	// JSON null leaves t nil; Compact also normalises that.
	return t.Compact(), nil
}

var std = &Codec{}

// Encode encodes t, reporting to the process logger.
func Encode(t model.Timetable) string {
	return std.Encode(t)
}

// Decode decodes token, reporting to the process logger.
func Decode(token string) model.Timetable {
	return std.Decode(token)
}
