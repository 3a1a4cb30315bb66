package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xeonx/timeago"

	"github.com/goatkit/issueflow/internal/models"
)

// Recipient is a mailbox with a display name for the salutation.
type Recipient struct {
	Name  string
	Email string
}

// expiryAgo renders relative expiry phrases ("in 12 days") up to a year out.
var expiryAgo = func() timeago.Config {
	cfg := timeago.English
	cfg.Max = 366 * 24 * time.Hour
	return cfg
}()

// Mailer renders issue and license notifications and hands them to a provider.
type Mailer struct {
	provider EmailProvider
	log      zerolog.Logger
	now      func() time.Time
}

func NewMailer(provider EmailProvider, log zerolog.Logger) *Mailer {
	return &Mailer{provider: provider, log: log.With().Str("component", "mailer").Logger(), now: time.Now}
}

// IssueAssigned tells each member of the required department about a new issue.
// Delivery failures are logged per recipient and counted, never returned.
func (m *Mailer) IssueAssigned(ctx context.Context, issue *models.Issue, members []Recipient) int {
	sent := 0
	for _, member := range members {
		if member.Email == "" {
			continue
		}
		name := member.Name
		if name == "" {
			name = member.Email
		}
		body := fmt.Sprintf(`Dear %s,

A new issue has been assigned to your department:

Issue: %s
Description: %s
Address: %s
Created on: %s

Please coordinate with your team to address this issue as soon as possible.

Thank you,
Issue Tracking System`, name, issue.Issue, issue.Description, issue.Address,
			issue.CreatedAt.Format(models.ReportTimeLayout))

		err := m.provider.Send(ctx, EmailMessage{
			To:      []string{member.Email},
			Subject: "New Issue Assigned to Your Department",
			Body:    body,
		})
		if err != nil {
			m.log.Warn().Err(err).Str("to", member.Email).Int64("issue_id", issue.ID).Msg("issue assignment email failed")
			continue
		}
		sent++
	}
	return sent
}

// IssueResolved tells the reporter their issue was completed.
func (m *Mailer) IssueResolved(ctx context.Context, issue *models.IssueDetail) error {
	if issue.UserEmail == nil || *issue.UserEmail == "" {
		return nil
	}
	name := firstNonEmpty(issue.UserFullName, issue.UserLogin)
	if name == "" {
		name = "User"
	}
	title := issue.Issue.Issue
	if title == "" {
		title = "Your Issue"
	}
	dept := firstNonEmpty(issue.DepartmentName)
	if dept == "" {
		dept = "N/A"
	}

	body := fmt.Sprintf(`Dear %s,

We are pleased to inform you that your issue has been resolved:

Issue ID: %d
Issue: %s
Description: %s
Department: %s
Resolved on: %s

Thank you for using our Issue Tracking System.

Best regards,
Support Team`, name, issue.ID, orNA(issue.Issue.Issue), orNA(issue.Description), dept,
		m.now().Format(models.ReportTimeLayout))

	err := m.provider.Send(ctx, EmailMessage{
		To:      []string{*issue.UserEmail},
		Subject: "Issue Resolved: " + title,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send resolution email: %w", err)
	}
	return nil
}

// LicensesExpiring sends one reminder listing every expiring license of a
// department to all of its members.
func (m *Mailer) LicensesExpiring(ctx context.Context, group models.ExpiringGroup, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}
	now := m.now()
	lines := make([]string, 0, len(group.Licenses))
	for _, l := range group.Licenses {
		lines = append(lines, fmt.Sprintf("- %s (Expiry Date: %s, %s)",
			l.FileName, l.ExpiryDate.Format(models.DisplayDateLayout), relativeExpiry(l.ExpiryDate, now)))
	}

	body := fmt.Sprintf(`Dear %s Team,

The following licenses in your department are expiring soon:

%s

Please take necessary action.

Best Regards,
License Management System`, group.DepartmentName, strings.Join(lines, "\n"))

	err := m.provider.Send(ctx, EmailMessage{
		To:      recipients,
		Subject: fmt.Sprintf("License Expiry Reminder - %s Department", group.DepartmentName),
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send expiry reminder for department %d: %w", group.DepartmentID, err)
	}
	return nil
}

func relativeExpiry(expiry models.Date, now time.Time) string {
	e, today := utcDate(expiry.Time), utcDate(now)
	switch {
	case e.Equal(today):
		return "expires today"
	case e.Before(today):
		return "expired " + expiryAgo.FormatReference(e, today)
	default:
		return "expires " + expiryAgo.FormatReference(e, today)
	}
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
