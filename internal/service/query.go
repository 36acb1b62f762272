package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/labdesk/lab-issue-service/internal/domain"
	"github.com/labdesk/lab-issue-service/internal/repository"
)

// Sort keys accepted by the staff ticket views.
const (
	SortOldest   = "Oldest"
	SortPriority = "Priority"
	SortResolved = "Resolved"
)

// filterAll disables a status or priority filter.
const filterAll = "All"

// TicketQuery carries the optional list filters of a ticket view.
type TicketQuery struct {
	Search   string
	Status   string
	Priority string
	SortBy   string
	// SkipReporterNames limits search to id, IP and title. Set for views
	// pinned to a single reporter, where matching names selects everything.
	SkipReporterNames bool
}

// ScopeFor limits students to their own tickets. Staff roles see everything.
func ScopeFor(viewer *domain.User) repository.TicketScope {
	if viewer != nil && viewer.Role == domain.RoleStudent {
		id := viewer.ID
		return repository.TicketScope{ReporterID: &id}
	}
	return repository.TicketScope{}
}

// FilterTickets applies search, filters and ordering to a snapshot.
// The input slice is left untouched.
func FilterTickets(tickets []domain.TicketDetail, q TicketQuery) []domain.TicketDetail {
	result := make([]domain.TicketDetail, 0, len(tickets))
	for _, t := range tickets {
		if !matchesSearch(t, q.Search, !q.SkipReporterNames) {
			continue
		}
		if q.Status != "" && q.Status != filterAll && string(t.Status) != q.Status {
			continue
		}
		if q.Priority != "" && q.Priority != filterAll && string(t.Priority) != q.Priority {
			continue
		}
		result = append(result, t)
	}

	sortByReportedDesc(result)

	switch q.SortBy {
	case SortOldest:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].ReportedAt.Before(result[j].ReportedAt)
		})
	case SortPriority:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Priority.Rank() < result[j].Priority.Rank()
		})
	case SortResolved:
		sort.SliceStable(result, func(i, j int) bool {
			a, b := result[i].ResolvedAt, result[j].ResolvedAt
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.After(*b)
			}
		})
	}
	return result
}

// matchesSearch is a case-sensitive substring match across id, IP, title and
// optionally the reporter's names.
func matchesSearch(t domain.TicketDetail, search string, withReporterNames bool) bool {
	if search == "" {
		return true
	}
	if strings.Contains(strconv.FormatInt(t.ID, 10), search) ||
		strings.Contains(t.IPAddress, search) ||
		strings.Contains(t.Title, search) {
		return true
	}
	if !withReporterNames || t.Reporter == nil {
		return false
	}
	if t.Reporter.FullName != nil && strings.Contains(*t.Reporter.FullName, search) {
		return true
	}
	return strings.Contains(t.Reporter.Username, search)
}

func sortByReportedDesc(tickets []domain.TicketDetail) {
	sort.SliceStable(tickets, func(i, j int) bool {
		a, b := tickets[i], tickets[j]
		if !a.ReportedAt.Equal(b.ReportedAt) {
			return a.ReportedAt.After(b.ReportedAt)
		}
		return a.ID > b.ID
	})
}
