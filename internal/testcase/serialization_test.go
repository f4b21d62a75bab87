package testcase

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/jsonextra"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	id := uuid.MustParse("eabb5d31-0000-4000-8000-000000000001")
	c := Case{
		ID: id,
		Metadata: Metadata{
			Title:             "Demo",
			ExecutionDatetime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Passed:            PassedTrue,
			Custom:            map[string]string{"env": "staging"},
		},
		Evidence: []Evidence{
			{Kind: KindText, Value: PlainData("hello")},
			{Kind: KindFile, Value: MediaData(strings.Repeat("a", 64)), OriginalFilename: "report.pdf"},
		},
	}

	encoded, err := Marshal(CurrentSchema, c, jsonextra.Bag{})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	known := func(key string) bool { return key == "env" }
	decoded, extras, err := Unmarshal(id, encoded, known)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if extras.Len() != 0 {
		t.Errorf("expected no extras, got %d", extras.Len())
	}
	if decoded.Metadata.Passed != PassedTrue {
		t.Errorf("expected passed=true, got %v", decoded.Metadata.Passed)
	}
	if decoded.Metadata.Custom["env"] != "staging" {
		t.Errorf("custom field not preserved: %+v", decoded.Metadata.Custom)
	}
	if len(decoded.Evidence) != 2 {
		t.Fatalf("expected 2 evidence entries, got %d", len(decoded.Evidence))
	}
	if decoded.Evidence[0].Value.String() != "plain:hello" {
		t.Errorf("expected plain:hello, got %q", decoded.Evidence[0].Value.String())
	}
	if decoded.Evidence[1].OriginalFilename != "report.pdf" {
		t.Errorf("expected original filename preserved, got %q", decoded.Evidence[1].OriginalFilename)
	}
}

func TestUnmarshalPreservesUnknownTopLevelField(t *testing.T) {
	id := uuid.MustParse("eabb5d31-0000-4000-8000-000000000002")
	raw := []byte(`{
		"metadata": {"title": "Demo", "execution_datetime": "2026-01-02T03:04:05Z", "passed": null, "custom": {}},
		"evidence": [],
		"vendor": {"x": 1}
	}`)

	c, extras, err := Unmarshal(id, raw, nil)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !extras.Has("vendor") {
		t.Fatal("expected unknown \"vendor\" field to survive as an extra")
	}

	out, err := Marshal(CurrentSchema, c, extras)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(out), `"vendor"`) {
		t.Errorf("expected vendor to be re-emitted, got %s", out)
	}
}

func TestUnmarshalPreservesUnknownMetadataAndEvidenceMembers(t *testing.T) {
	id := uuid.MustParse("eabb5d31-0000-4000-8000-000000000003")
	raw := []byte(`{
		"metadata": {"title": "Demo", "execution_datetime": "2026-01-02T03:04:05Z", "passed": null, "custom": {}, "reviewer": "Ada"},
		"evidence": [{"kind": "Text", "value": "plain:hi", "origin": "automated"}]
	}`)

	c, extras, err := Unmarshal(id, raw, nil)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !c.Metadata.Extras.Has("reviewer") {
		t.Fatal("expected unknown \"metadata.reviewer\" to survive as an extra")
	}
	if len(c.Evidence) != 1 || !c.Evidence[0].Extras.Has("origin") {
		t.Fatal("expected the evidence entry's unknown \"origin\" member to survive as an extra")
	}

	out, err := Marshal(CurrentSchema, c, extras)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(out), `"reviewer"`) {
		t.Errorf("expected metadata.reviewer to be re-emitted, got %s", out)
	}
	if !strings.Contains(string(out), `"origin"`) {
		t.Errorf("expected the evidence entry's origin to be re-emitted, got %s", out)
	}
}

func TestValidateRejectsMismatchedOriginalFilename(t *testing.T) {
	c := Case{
		Metadata: Metadata{Title: "Demo"},
		Evidence: []Evidence{{Kind: KindText, Value: PlainData("x"), OriginalFilename: "oops.txt"}},
	}
	if err := Validate(c, nil); err == nil {
		t.Fatal("expected an error when non-File evidence carries an original_filename")
	}
}

func TestValidateRejectsMissingOriginalFilenameOnFileKind(t *testing.T) {
	c := Case{
		Metadata: Metadata{Title: "Demo"},
		Evidence: []Evidence{{Kind: KindFile, Value: MediaData(strings.Repeat("b", 64))}},
	}
	if err := Validate(c, nil); err == nil {
		t.Fatal("expected an error when File evidence is missing an original_filename")
	}
}

func TestValidateCountsTitleByRuneNotByte(t *testing.T) {
	c := Case{Metadata: Metadata{Title: strings.Repeat("é", 30)}}
	if err := Validate(c, nil); err != nil {
		t.Fatalf("expected a 30-rune title to be accepted, got %v", err)
	}
	c.Metadata.Title = strings.Repeat("é", 31)
	if err := Validate(c, nil); err == nil {
		t.Fatal("expected a 31-rune title to be rejected")
	}
}

func TestValidateRejectsUndeclaredCustomField(t *testing.T) {
	c := Case{
		Metadata: Metadata{Title: "Demo", Custom: map[string]string{"unknown": "x"}},
	}
	known := func(string) bool { return false }
	if err := Validate(c, known); err == nil {
		t.Fatal("expected an error for a custom field the package hasn't declared")
	}
}

func TestDataStringForms(t *testing.T) {
	cases := []struct {
		data Data
		want string
	}{
		{PlainData("hello"), "plain:hello"},
		{MediaData("deadbeef"), "media:deadbeef"},
		{Base64Data([]byte{0, 1, 2}), "base64:AAEC"},
	}
	for _, c := range cases {
		if got := c.data.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestDecodeHttpRequiresSingleSeparator(t *testing.T) {
	payload := EncodeHttp([]byte("GET / HTTP/1.1"), []byte("200 OK"))
	request, response, err := DecodeHttp(payload)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if string(request) != "GET / HTTP/1.1" || string(response) != "200 OK" {
		t.Errorf("unexpected split: %q / %q", request, response)
	}

	if _, _, err := DecodeHttp([]byte("no separator here")); err == nil {
		t.Fatal("expected an error when the separator is missing")
	}
}
