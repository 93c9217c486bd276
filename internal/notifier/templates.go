package notifier

import (
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-router/internal/domain"
)

var acknowledgments = map[string]string{
	"billing":   "Hello %s, we received your billing request %s. Our billing team will review your account and get back to you shortly.",
	"technical": "Hello %s, we received your technical issue %s. A specialist is looking into it.",
	"support":   "Hello %s, thank you for contacting support. Your ticket number is %s.",
}

const defaultAcknowledgment = "Hello %s, we received your request. Your ticket number is %s and we will be in touch soon."

var statusCopy = map[domain.TicketStatus]string{
	domain.TicketStatusInProgress: "Hi %s, your ticket %s is now in progress. Our team is working on it.",
	domain.TicketStatusResolved:   "Hi %s, your ticket %s has been resolved. Reply to this message if you need anything else.",
	domain.TicketStatusClosed:     "Hi %s, your ticket %s has been closed. Thank you for contacting us.",
}

// Acknowledgment renders the message sent when a ticket is created.
// agentName is empty when the ticket is unassigned.
func Acknowledgment(ticket *domain.Ticket, agentName string) string {
	format, ok := acknowledgments[strings.ToLower(ticket.Category)]
	if !ok {
		format = defaultAcknowledgment
	}
	body := fmt.Sprintf(format, ticket.CustomerName, ticket.ID)
	if agentName != "" {
		body += fmt.Sprintf(" %s will be assisting you.", agentName)
	}
	return body
}

// StatusMessage renders the customer copy for a status change. It reports
// false for statuses that have no template, such as a reopen.
func StatusMessage(ticket *domain.Ticket, status domain.TicketStatus, note string) (string, bool) {
	format, ok := statusCopy[status]
	if !ok {
		return "", false
	}
	body := fmt.Sprintf(format, ticket.CustomerName, ticket.ID)
	if note = strings.TrimSpace(note); note != "" {
		body += "\n\nNote: " + note
	}
	return body, true
}
