package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/repository"
)

// Export sheet names.
const (
	SheetTickets = "Tickets"
	SheetHistory = "History"
	SheetAgents  = "Agents"
	SheetSummary = "Summary"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportService flattens tickets, their history and agent loads into a
// multi-sheet workbook.
type ExportService struct {
	store *repository.Store
	stats *StatsService
}

// NewExportService constructs the service.
func NewExportService(store *repository.Store) *ExportService {
	return &ExportService{store: store, stats: NewStatsService(store)}
}

// ExportTickets renders the tickets matching filter as an xlsx document.
func (s *ExportService) ExportTickets(ctx context.Context, filter repository.TicketFilter) ([]byte, error) {
	tickets, err := s.store.Tickets.List(ctx, filter)
	if err != nil {
		return nil, storeError("list tickets", err)
	}
	agents, err := s.store.Agents.List(ctx, repository.AgentFilter{})
	if err != nil {
		return nil, storeError("list agents", err)
	}
	names := make(map[string]string, len(agents))
	for _, a := range agents {
		names[a.ID] = a.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	ticketRows := [][]any{{
		"ID", "Customer", "Phone", "Email", "Subject", "Message", "Status", "Priority",
		"Category", "Assigned To", "Channel", "WhatsApp Number", "Tags", "Created At", "Updated At",
	}}
	historyRows := [][]any{{"Ticket ID", "Status", "Updated By", "Note", "Created At"}}
	for i := range tickets {
		t := &tickets[i]
		assignee := "Unassigned"
		if t.Assigned() {
			assignee = names[*t.AssignedTo]
			if assignee == "" {
				assignee = *t.AssignedTo
			}
		}
		ticketRows = append(ticketRows, []any{
			t.ID, t.CustomerName, t.CustomerPhone, deref(t.CustomerEmail), t.Subject, t.Message,
			string(t.Status), string(t.Priority), t.Category, assignee, string(t.Channel),
			deref(t.WhatsAppNumber), strings.Join(t.Tags, ", "),
			t.CreatedAt.Format(exportTimeLayout), t.UpdatedAt.Format(exportTimeLayout),
		})

		history, err := s.store.History.ListByTicket(ctx, t.ID)
		if err != nil {
			return nil, storeError("list history", err)
		}
		for _, h := range history {
			historyRows = append(historyRows, []any{
				h.TicketID, string(h.Status), h.UpdatedBy, h.Note, h.CreatedAt.Format(exportTimeLayout),
			})
		}
	}

	agentRows := [][]any{{"ID", "Name", "Email", "Role", "Expertise", "WhatsApp Numbers", "Active", "Current Load", "Max Tickets"}}
	for _, a := range agents {
		agentRows = append(agentRows, []any{
			a.ID, a.Name, a.Email, string(a.Role), strings.Join(a.Expertise, ", "),
			strings.Join(a.WhatsAppNumbers, ", "), a.IsActive, a.CurrentLoad, a.MaxTickets,
		})
	}

	stats := summarize(tickets, agents)
	summaryRows := [][]any{
		{"Metric", "Value"},
		{"Generated At", time.Now().UTC().Format(exportTimeLayout)},
		{"Total Tickets", stats.TotalTickets},
		{"Unassigned", stats.Unassigned},
	}
	for _, status := range []domain.TicketStatus{
		domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed,
	} {
		summaryRows = append(summaryRows, []any{"Status: " + string(status), stats.ByStatus[status]})
	}
	for _, channel := range []domain.TicketChannel{
		domain.ChannelEmail, domain.ChannelPhone, domain.ChannelWeb, domain.ChannelWhatsApp,
	} {
		summaryRows = append(summaryRows, []any{"Channel: " + string(channel), stats.ByChannel[channel]})
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetTickets, ticketRows},
		{SheetHistory, historyRows},
		{SheetAgents, agentRows},
		{SheetSummary, summaryRows},
	}
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet.name, err)
		}
		if err := writeRows(f, sheet.name, sheet.rows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
