package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/membership/backend/internal/models"
	"github.com/membership/backend/internal/notify"
	"github.com/membership/backend/pkg/logger"
)

var branchNoticeTemplate = template.Must(template.New("branch_notice").Parse(
	`<p>A new member has signed up to <strong>{{.Branch}}</strong>.</p>
<ul>
<li>Name: {{.FirstName}} {{.LastName}}</li>
<li>Email: {{.Email}}</li>
{{- if .Phone}}
<li>Contact number: {{.Phone}}</li>
{{- end}}
</ul>
{{- if .AdditionalInfo}}
<p>{{.AdditionalInfo}}</p>
{{- end}}
`))

// SignupNotifier emails a new member and their branch contact.
type SignupNotifier struct {
	Mailer  *notify.Mailer
	Timeout time.Duration
}

func NewSignupNotifier(mailer *notify.Mailer, timeout time.Duration) *SignupNotifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SignupNotifier{Mailer: mailer, Timeout: timeout}
}

// MemberJoined queues both emails and returns without waiting for delivery.
// The returned channel closes once every send has settled.
func (n *SignupNotifier) MemberJoined(member models.Member, branch models.Branch) <-chan struct{} {
	settled := make(chan struct{})
	if n == nil || n.Mailer == nil {
		close(settled)
		return settled
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.Timeout)

	var pending []*notify.Pending

	welcome, err := n.Mailer.SendPlainTextEmail(ctx, notify.Options{
		To:      notify.To(member.Email),
		Subject: fmt.Sprintf("Welcome to %s", branch.Name),
		Body: fmt.Sprintf("Hi %s,\n\nThanks for joining %s. Your branch organisers will be in touch soon.\n",
			member.FirstName, branch.Name),
	})
	if err != nil {
		logger.Error("signup_welcome_email_rejected", err, map[string]interface{}{
			"member_id": member.ID.String(),
		})
	} else {
		pending = append(pending, welcome)
	}

	if branch.Contact != nil && strings.TrimSpace(*branch.Contact) != "" {
		body, err := renderBranchNotice(member, branch)
		if err == nil {
			var notice *notify.Pending
			notice, err = n.Mailer.SendHTMLEmail(ctx, notify.Options{
				To:      notify.To(*branch.Contact),
				Subject: fmt.Sprintf("New member: %s %s", member.FirstName, member.LastName),
				Body:    body,
				ReplyTo: member.Email,
			})
			if err == nil {
				pending = append(pending, notice)
			}
		}
		if err != nil {
			logger.Error("signup_branch_notice_rejected", err, map[string]interface{}{
				"member_id": member.ID.String(),
				"branch_id": branch.ID.String(),
			})
		}
	}

	go func() {
		defer close(settled)
		defer cancel()
		for _, p := range pending {
			if _, err := p.Wait(ctx); err != nil {
				logger.Error("signup_email_failed", err, map[string]interface{}{
					"member_id": member.ID.String(),
					"branch_id": branch.ID.String(),
				})
			}
		}
	}()

	return settled
}

func renderBranchNotice(member models.Member, branch models.Branch) (string, error) {
	data := struct {
		Branch         string
		FirstName      string
		LastName       string
		Email          string
		Phone          string
		AdditionalInfo string
	}{
		Branch:    branch.Name,
		FirstName: member.FirstName,
		LastName:  member.LastName,
		Email:     member.Email,
	}
	if member.PrimaryPhoneNumber != nil {
		data.Phone = *member.PrimaryPhoneNumber
	}
	if member.AdditionalInfo != nil {
		data.AdditionalInfo = *member.AdditionalInfo
	}

	var sb strings.Builder
	if err := branchNoticeTemplate.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
