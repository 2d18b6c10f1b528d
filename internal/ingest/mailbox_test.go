package ingest

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
)

func buildMessage(t *testing.T, date time.Time, files map[string]string) *bytes.Buffer {
	t.Helper()

	var b bytes.Buffer
	var h mail.Header
	h.SetDate(date)
	h.SetSubject("Traffic sensor export")

	mw, err := mail.CreateWriter(&b, h)
	if err != nil {
		t.Fatalf("CreateWriter: %v", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		t.Fatalf("CreateInline: %v", err)
	}
	var th mail.InlineHeader
	th.Set("Content-Type", "text/plain")
	w, err := tw.CreatePart(th)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	io.WriteString(w, "Daily export attached.")
	w.Close()
	tw.Close()

	for name, content := range files {
		var ah mail.AttachmentHeader
		ah.Set("Content-Type", "application/octet-stream")
		ah.SetFilename(name)
		w, err := mw.CreateAttachment(ah)
		if err != nil {
			t.Fatalf("CreateAttachment: %v", err)
		}
		io.WriteString(w, content)
		w.Close()
	}
	mw.Close()

	return &b
}

func TestExtractAttachments(t *testing.T) {
	date := time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC)
	msg := buildMessage(t, date, map[string]string{
		"sensors.csv": "timestamp,volume\n2024-05-01 08:00:00,33\n",
		"readme.pdf":  "%PDF",
	})

	atts, err := ExtractAttachments(msg)
	if err != nil {
		t.Fatalf("ExtractAttachments failed: %v", err)
	}
	if len(atts) != 1 {
		t.Fatalf("expected only the CSV attachment, got %d", len(atts))
	}
	if atts[0].Filename != "sensors.csv" || !atts[0].Date.Equal(date) {
		t.Errorf("attachment = %s %v", atts[0].Filename, atts[0].Date)
	}

	records, err := Load(atts[0].Filename, bytes.NewReader(atts[0].Content), nil)
	if err != nil {
		t.Fatalf("Load attachment failed: %v", err)
	}
	if len(records) != 1 || records[0].Volume != 33 {
		t.Errorf("records = %+v", records)
	}
}

func TestNewestAttachment(t *testing.T) {
	if newest(nil) != nil {
		t.Error("newest(nil) should be nil")
	}
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	got := newest([]Attachment{
		{Filename: "old.csv", Date: base},
		{Filename: "new.xlsx", Date: base.Add(time.Hour)},
		{Filename: "mid.csv", Date: base.Add(time.Minute)},
	})
	if got.Filename != "new.xlsx" {
		t.Errorf("newest = %s", got.Filename)
	}
}
