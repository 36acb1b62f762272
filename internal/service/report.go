package service

import (
	"math"
	"sort"
	"time"

	"github.com/labdesk/lab-issue-service/internal/domain"
)

// RecentTicketLimit is how many tickets a dashboard lists as recent.
const RecentTicketLimit = 5

// unknownLab labels tickets reported without a lab name.
const unknownLab = "Unknown"

// StatusCounts tallies tickets per lifecycle status.
type StatusCounts struct {
	Total      int
	Open       int
	InProgress int
	Resolved   int
}

// PriorityCounts tallies tickets per priority.
type PriorityCounts struct {
	High   int
	Medium int
	Low    int
}

// KeyCount is one bucket of a grouping.
type KeyCount struct {
	Key   string
	Count int
}

// TechnicianStat is a network team member's workload.
type TechnicianStat struct {
	UserID          int64
	Name            string
	ResolvedCount   int
	InProgressCount int
}

// ResolutionTime describes how long one resolved ticket stayed open.
type ResolutionTime struct {
	TicketID   int64
	Title      string
	LabName    *string
	ReportedAt time.Time
	ResolvedAt time.Time
	Hours      float64
}

// TicketSummary is the display projection used in recency lists.
type TicketSummary struct {
	ID           int64
	IPAddress    string
	Title        string
	Status       domain.TicketStatus
	Priority     domain.TicketPriority
	ReportedAt   time.Time
	ReporterName *string
	AssigneeName *string
}

// CountByStatus counts every ticket by status.
func CountByStatus(tickets []domain.TicketDetail) StatusCounts {
	counts := StatusCounts{Total: len(tickets)}
	for _, t := range tickets {
		switch t.Status {
		case domain.TicketStatusOpen:
			counts.Open++
		case domain.TicketStatusInProgress:
			counts.InProgress++
		case domain.TicketStatusResolved:
			counts.Resolved++
		}
	}
	return counts
}

// CountByPriority counts tickets by priority, optionally skipping resolved ones.
func CountByPriority(tickets []domain.TicketDetail, excludeResolved bool) PriorityCounts {
	var counts PriorityCounts
	for _, t := range tickets {
		if excludeResolved && t.Status == domain.TicketStatusResolved {
			continue
		}
		switch t.Priority {
		case domain.TicketPriorityHigh:
			counts.High++
		case domain.TicketPriorityMedium:
			counts.Medium++
		case domain.TicketPriorityLow:
			counts.Low++
		}
	}
	return counts
}

// AverageResolutionHours is the mean open time of resolved tickets, 0 when there are none.
func AverageResolutionHours(tickets []domain.TicketDetail) float64 {
	var (
		total float64
		n     int
	)
	for _, t := range tickets {
		if hours, ok := resolutionHours(t.Ticket); ok {
			total += hours
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(total / float64(n))
}

// TechnicianPerformance reports assigned resolved and in-progress counts per technician.
// Only NetworkTeam members are listed, in the order given.
func TechnicianPerformance(technicians []domain.User, tickets []domain.TicketDetail) []TechnicianStat {
	stats := make([]TechnicianStat, 0, len(technicians))
	for i := range technicians {
		member := &technicians[i]
		if member.Role != domain.RoleNetworkTeam {
			continue
		}
		stat := TechnicianStat{UserID: member.ID, Name: member.DisplayName()}
		for _, t := range tickets {
			if t.AssignedTo == nil || *t.AssignedTo != member.ID {
				continue
			}
			switch t.Status {
			case domain.TicketStatusResolved:
				stat.ResolvedCount++
			case domain.TicketStatusInProgress:
				stat.InProgressCount++
			}
		}
		stats = append(stats, stat)
	}
	return stats
}

// GroupByLab counts tickets per lab name.
func GroupByLab(tickets []domain.TicketDetail) []KeyCount {
	return groupBy(tickets, func(t domain.TicketDetail) string {
		if t.LabName == nil || *t.LabName == "" {
			return unknownLab
		}
		return *t.LabName
	})
}

// GroupByStatus counts tickets per status.
func GroupByStatus(tickets []domain.TicketDetail) []KeyCount {
	return groupBy(tickets, func(t domain.TicketDetail) string { return string(t.Status) })
}

// GroupByPriority counts tickets per priority.
func GroupByPriority(tickets []domain.TicketDetail) []KeyCount {
	return groupBy(tickets, func(t domain.TicketDetail) string { return string(t.Priority) })
}

// groupBy yields buckets in first-seen order.
func groupBy(tickets []domain.TicketDetail, key func(domain.TicketDetail) string) []KeyCount {
	index := map[string]int{}
	groups := []KeyCount{}
	for _, t := range tickets {
		k := key(t)
		if i, ok := index[k]; ok {
			groups[i].Count++
			continue
		}
		index[k] = len(groups)
		groups = append(groups, KeyCount{Key: k, Count: 1})
	}
	return groups
}

// ResolutionTimes lists every resolved ticket, slowest first.
func ResolutionTimes(tickets []domain.TicketDetail) []ResolutionTime {
	result := []ResolutionTime{}
	for _, t := range tickets {
		hours, ok := resolutionHours(t.Ticket)
		if !ok {
			continue
		}
		result = append(result, ResolutionTime{
			TicketID:   t.ID,
			Title:      t.Title,
			LabName:    t.LabName,
			ReportedAt: t.ReportedAt,
			ResolvedAt: *t.ResolvedAt,
			Hours:      round2(hours),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Hours > result[j].Hours
	})
	return result
}

// RecentTickets returns the n most recently reported tickets as display summaries.
func RecentTickets(tickets []domain.TicketDetail, n int) []TicketSummary {
	ordered := make([]domain.TicketDetail, len(tickets))
	copy(ordered, tickets)
	sortByReportedDesc(ordered)
	if n >= 0 && len(ordered) > n {
		ordered = ordered[:n]
	}

	result := make([]TicketSummary, 0, len(ordered))
	for _, t := range ordered {
		result = append(result, Summarize(t))
	}
	return result
}

// Summarize projects a ticket with display names for its reporter and assignee.
func Summarize(t domain.TicketDetail) TicketSummary {
	return TicketSummary{
		ID:           t.ID,
		IPAddress:    t.IPAddress,
		Title:        t.Title,
		Status:       t.Status,
		Priority:     t.Priority,
		ReportedAt:   t.ReportedAt,
		ReporterName: displayName(t.Reporter),
		AssigneeName: displayName(t.Assignee),
	}
}

func displayName(u *domain.User) *string {
	if u == nil {
		return nil
	}
	name := u.DisplayName()
	return &name
}

func resolutionHours(t domain.Ticket) (float64, bool) {
	if t.Status != domain.TicketStatusResolved || t.ResolvedAt == nil {
		return 0, false
	}
	return t.ResolvedAt.Sub(t.ReportedAt).Hours(), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
