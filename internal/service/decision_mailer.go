package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/visit-intake-api/internal/models"
	"github.com/noah-isme/visit-intake-api/pkg/jobs"
	"github.com/noah-isme/visit-intake-api/pkg/mail"
	"github.com/noah-isme/visit-intake-api/pkg/storage"
)

// JobTypeDecisionMail delivers a decision e-mail to an applicant.
const JobTypeDecisionMail = "mail.decision"

// VisitResponseResource prefixes signed-link resources for visit response letters.
const VisitResponseResource = "visit-response"

// DecisionMailer composes applicant e-mails for status decisions and hands
// them to a background queue. Delivery problems never reach the caller.
type DecisionMailer struct {
	sender  mail.Sender
	signer  *storage.SignedURLSigner
	baseURL string
	queue   jobEnqueuer
	logger  *zap.Logger
}

// NewDecisionMailer constructs a mailer. baseURL is the public API root used for signed links.
func NewDecisionMailer(sender mail.Sender, signer *storage.SignedURLSigner, baseURL string, logger *zap.Logger) *DecisionMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionMailer{sender: sender, signer: signer, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// UseQueue attaches the delivery queue. Without one, messages are dropped with a warning.
func (m *DecisionMailer) UseQueue(q jobEnqueuer) {
	m.queue = q
}

// VisitDecided queues the decision e-mail for a visit that reached ACCEPTED or REJECTED.
func (m *DecisionMailer) VisitDecided(visit *models.VisitRequest) {
	if m == nil || visit == nil {
		return
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", visit.ContactPerson)
	fmt.Fprintf(&body, "Your visit request for %s on %s (%s) has been %s.\n",
		visit.OrganizationName, visit.DateString(), visit.Session.Label(), strings.ToLower(string(visit.Status)))
	switch visit.Status {
	case models.VisitAccepted:
		if link := m.responseLetterLink(visit); link != "" {
			fmt.Fprintf(&body, "\nYou can download the response letter here:\n%s\n", link)
		}
	case models.VisitRejected:
		if visit.RejectionReason != nil {
			fmt.Fprintf(&body, "\nReason: %s\n", *visit.RejectionReason)
		}
	default:
		return
	}
	m.enqueue(mail.Message{
		To:      visit.Email,
		Subject: fmt.Sprintf("Visit request #%d %s", visit.ID, strings.ToLower(string(visit.Status))),
		Body:    body.String(),
	})
}

// InternshipDecided queues the decision e-mail for an application that reached APPROVED or REJECTED.
func (m *DecisionMailer) InternshipDecided(req *models.InternshipRequest) {
	if m == nil || req == nil {
		return
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", req.FullName)
	fmt.Fprintf(&body, "Your internship application for %s starting %s has been %s.\n",
		req.WorkUnit, req.StartDate.Format(models.DateLayout), strings.ToLower(string(req.Status)))
	switch req.Status {
	case models.InternshipApproved:
		body.WriteString("\nWe will contact you with onboarding details before your start date.\n")
	case models.InternshipRejected:
		if req.RejectionReason != nil {
			fmt.Fprintf(&body, "\nReason: %s\n", *req.RejectionReason)
		}
	default:
		return
	}
	m.enqueue(mail.Message{
		To:      req.Email,
		Subject: fmt.Sprintf("Internship application #%d %s", req.ID, strings.ToLower(string(req.Status))),
		Body:    body.String(),
	})
}

// Handle is the queue handler delivering one message.
func (m *DecisionMailer) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeDecisionMail {
		return fmt.Errorf("unsupported job type %s", job.Type)
	}
	msg, ok := job.Payload.(mail.Message)
	if !ok {
		return fmt.Errorf("invalid mail payload")
	}
	return m.sender.Send(ctx, msg)
}

func (m *DecisionMailer) enqueue(msg mail.Message) {
	if m.queue == nil {
		m.logger.Warn("decision mail dropped, no queue attached", zap.String("to", msg.To))
		return
	}
	if err := m.queue.Enqueue(jobs.Job{Type: JobTypeDecisionMail, Payload: msg}); err != nil {
		m.logger.Warn("decision mail not queued", zap.String("to", msg.To), zap.Error(err))
	}
}

func (m *DecisionMailer) responseLetterLink(visit *models.VisitRequest) string {
	if m.signer == nil || m.baseURL == "" || visit.ResponseLetter == nil {
		return ""
	}
	link, err := m.signer.Sign(VisitResponseResource+"-"+fmt.Sprint(visit.ID), *visit.ResponseLetter)
	if err != nil {
		m.logger.Warn("response letter link not signed", zap.Int64("visit_id", visit.ID), zap.Error(err))
		return ""
	}
	return fmt.Sprintf("%s/documents/visit-response/%d?token=%s", m.baseURL, visit.ID, url.QueryEscape(link.Token))
}
