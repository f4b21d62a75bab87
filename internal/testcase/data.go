package testcase

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// DataForm identifies which of the three discriminated-string encodings a
// Data value uses on the wire.
type DataForm int

const (
	// FormPlain carries UTF-8 text inline, as "plain:<text>".
	FormPlain DataForm = iota
	// FormMedia refers to a blob in the media store by checksum, as
	// "media:<sha256>".
	FormMedia
	// FormBase64 carries arbitrary bytes inline, unpadded-base64 encoded,
	// as "base64:<data>".
	FormBase64
)

// Data is an evidence payload: exactly one of plain text, a media store
// reference, or inline base64 bytes, matching the discriminated string
// format "plain:<utf8>" / "media:<sha256>" / "base64:<unpadded-base64>".
type Data struct {
	Form DataForm
	// Text holds the payload for FormPlain, or the checksum for FormMedia.
	Text string
	// Bytes holds the raw payload for FormBase64.
	Bytes []byte
}

// PlainData returns text carried inline as UTF-8.
func PlainData(text string) Data {
	return Data{Form: FormPlain, Text: text}
}

// MediaData returns a reference to a media store blob by its SHA-256
// checksum.
func MediaData(sha256 string) Data {
	return Data{Form: FormMedia, Text: sha256}
}

// Base64Data returns raw bytes to be carried inline, base64 encoded.
func Base64Data(data []byte) Data {
	return Data{Form: FormBase64, Bytes: data}
}

// String renders the discriminated-string wire form, e.g. "plain:hello".
func (d Data) String() string {
	switch d.Form {
	case FormPlain:
		return "plain:" + d.Text
	case FormMedia:
		return "media:" + d.Text
	case FormBase64:
		return "base64:" + base64.RawStdEncoding.EncodeToString(d.Bytes)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler so Data round-trips as the plain
// JSON string its discriminated form requires, rather than an object.
func (d Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler, parsing a discriminated
// string such as "media:<hash>" back into a typed Data value.
func (d *Data) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	typ, rest, ok := strings.Cut(s, ":")
	if !ok {
		return fmt.Errorf("testcase: evidence value %q is missing a \":\" separator", s)
	}
	switch typ {
	case "plain":
		*d = PlainData(rest)
	case "media":
		*d = MediaData(rest)
	case "base64":
		decoded, err := base64.RawStdEncoding.DecodeString(rest)
		if err != nil {
			return fmt.Errorf("testcase: invalid base64 evidence value: %w", err)
		}
		*d = Base64Data(decoded)
	default:
		return fmt.Errorf("testcase: evidence value has unknown type %q, expected plain, media or base64", typ)
	}
	return nil
}
