package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// maxFetchMessages caps one poll so a flooded inbox cannot exhaust memory
const maxFetchMessages = 50

// Attachment is a supported data file found in a message
type Attachment struct {
	Filename string
	Content  []byte
	Date     time.Time
}

// Mailbox polls an IMAP inbox for data files sent as attachments
type Mailbox struct {
	server   string
	username string
	password string
	subject  string
}

// NewMailbox creates a mailbox source. Only unseen messages whose subject
// contains subject are considered.
func NewMailbox(server, username, password, subject string) *Mailbox {
	return &Mailbox{
		server:   server,
		username: username,
		password: password,
		subject:  subject,
	}
}

// FetchLatest returns the newest CSV/XLSX attachment among matching unseen
// messages, or nil when there is none. Fetched messages are marked seen.
func (m *Mailbox) FetchLatest(ctx context.Context) (*Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := client.DialTLS(m.server, nil)
	if err != nil {
		return nil, fmt.Errorf("mailbox: failed to connect: %w", err)
	}
	defer c.Logout()

	if err := c.Login(m.username, m.password); err != nil {
		return nil, fmt.Errorf("mailbox: failed to login: %w", err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("mailbox: failed to select inbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if m.subject != "" {
		criteria.Header.Add("Subject", m.subject)
	}
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("mailbox: failed to search: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxFetchMessages {
		ids = ids[len(ids)-maxFetchMessages:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var found []Attachment
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		atts, err := ExtractAttachments(body)
		if err != nil {
			log.Printf("mailbox: skipping message %d: %v", msg.SeqNum, err)
			continue
		}
		found = append(found, atts...)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("mailbox: failed to fetch messages: %w", err)
	}

	return newest(found), nil
}

// ExtractAttachments returns the CSV/XLSX attachments of a MIME message,
// stamped with the message date.
func ExtractAttachments(r io.Reader) ([]Attachment, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("mailbox: failed to read message: %w", err)
	}
	date, _ := mr.Header.Date()

	var atts []Attachment
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return atts, fmt.Errorf("mailbox: failed to read part: %w", err)
		}

		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := h.Filename()
		if err != nil || !IsSupported(filename) {
			continue
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, p.Body); err != nil {
			return atts, fmt.Errorf("mailbox: failed to read attachment %s: %w", filename, err)
		}
		atts = append(atts, Attachment{Filename: filename, Content: buf.Bytes(), Date: date})
	}
	return atts, nil
}

func newest(atts []Attachment) *Attachment {
	if len(atts) == 0 {
		return nil
	}
	sort.SliceStable(atts, func(i, j int) bool {
		return atts[i].Date.After(atts[j].Date)
	})
	return &atts[0]
}
