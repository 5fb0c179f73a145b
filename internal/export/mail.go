// Package export writes issues and their comments as RFC 5322 messages
// in mbox layout, one thread per issue.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/jissue/internal/source/jira"
)

// Message is one exported mail: the issue itself or one of its comments.
type Message struct {
	Header mail.Header
	Body   string
	// Sent is the envelope time of the mbox "From " line.
	Sent time.Time
}

// Messages converts an issue and its comments into a mail thread. Items
// not updated since since are left out; a zero since keeps everything.
// host names the tracker and becomes the Message-ID domain.
func Messages(issue *jira.Issue, host string, since time.Time) []Message {
	var msgs []Message
	subject := fmt.Sprintf("[%s] %s", issue.Key, issue.Fields.Summary)
	threadID := messageID(issue.Key, host)

	updated, _ := jira.ParseTimestamp(issue.Fields.Updated)
	if since.IsZero() || !updated.Before(since) {
		created, _ := jira.ParseTimestamp(issue.Fields.Created)

		h := newHeader()
		h.SetDate(created)
		h.SetSubject(subject)
		h.SetMessageID(threadID)
		if issue.Fields.Reporter != nil {
			h.SetAddressList("From", []*mail.Address{address(issue.Fields.Reporter)})
		}
		if issue.Fields.Assignee != nil {
			h.SetAddressList("To", []*mail.Address{address(issue.Fields.Assignee)})
		}
		if issue.Fields.Status != nil {
			h.Set("X-Jira-Status", issue.Fields.Status.Name)
		}
		msgs = append(msgs, Message{Header: h, Body: issueBody(issue), Sent: created})
	}

	if issue.Fields.Comment == nil {
		return msgs
	}
	for _, c := range issue.Fields.Comment.Comments {
		created, _ := jira.ParseTimestamp(c.Created)
		modified := created
		if c.Updated != "" {
			modified, _ = jira.ParseTimestamp(c.Updated)
		}
		if !since.IsZero() && modified.Before(since) {
			continue
		}

		h := newHeader()
		h.SetDate(created)
		h.SetSubject("Re: " + subject)
		h.SetMessageID(messageID(issue.Key+"."+c.ID, host))
		h.SetMsgIDList("In-Reply-To", []string{threadID})
		h.SetMsgIDList("References", []string{threadID})
		h.SetAddressList("From", []*mail.Address{address(&c.Author)})
		msgs = append(msgs, Message{Header: h, Body: c.Body, Sent: created})
	}
	return msgs
}

func newHeader() mail.Header {
	var h mail.Header
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	return h
}

func messageID(local, host string) string {
	if host == "" {
		host = "jira.invalid"
	}
	return local + "@" + host
}

func address(u *jira.User) *mail.Address {
	addr := u.EmailAddress
	if addr == "" {
		addr = u.Name + "@invalid"
	}
	return &mail.Address{Name: u.DisplayName, Address: addr}
}

func issueBody(issue *jira.Issue) string {
	var b strings.Builder
	if issue.Fields.IssueType != nil {
		fmt.Fprintf(&b, "Type: %s\n", issue.Fields.IssueType.Name)
	}
	if issue.Fields.Priority != nil {
		fmt.Fprintf(&b, "Priority: %s\n", issue.Fields.Priority.Name)
	}
	if len(issue.Fields.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(issue.Fields.Labels, ", "))
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(issue.Fields.Description)
	return b.String()
}

// Write prints msgs in mbox format.
func Write(w io.Writer, msgs []Message) error {
	for i, m := range msgs {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "From nobody %s\n", m.Sent.Format(time.ANSIC)); err != nil {
			return err
		}
		if err := writeMessage(w, m); err != nil {
			return err
		}
	}
	return nil
}

func writeMessage(w io.Writer, m Message) error {
	body, err := mail.CreateSingleInlineWriter(w, m.Header)
	if err != nil {
		return fmt.Errorf("writing header of %s: %w", m.Header.Get("Message-Id"), err)
	}
	if _, err := io.WriteString(body, m.Body); err != nil {
		body.Close()
		return fmt.Errorf("writing body: %w", err)
	}
	if !strings.HasSuffix(m.Body, "\n") {
		if _, err := io.WriteString(body, "\n"); err != nil {
			body.Close()
			return err
		}
	}
	return body.Close()
}
