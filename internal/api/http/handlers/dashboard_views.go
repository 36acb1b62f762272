package handlers

import (
	"github.com/labdesk/lab-issue-service/internal/api/dto"
	"github.com/labdesk/lab-issue-service/internal/service"
)

func dashboardResponse(d *service.Dashboard) dto.DashboardResponse {
	resp := dto.DashboardResponse{
		Role:                   d.Role,
		TotalTickets:           d.Counts.Total,
		Counts:                 dto.StatusCounts(d.Counts),
		AverageResolutionHours: d.AverageResolution,
		RecentTickets:          make([]dto.TicketSummary, 0, len(d.RecentTickets)),
		TotalStudents:          d.TotalStudents,
		TotalNetworkTeam:       d.TotalNetworkTeam,
	}
	if d.OpenPriority != nil {
		open := dto.PriorityCounts(*d.OpenPriority)
		resp.OpenByPriority = &open
	}
	for _, t := range d.RecentTickets {
		resp.RecentTickets = append(resp.RecentTickets, dto.TicketSummary{
			TicketID:       t.ID,
			IPAddress:      t.IPAddress,
			IssueTitle:     t.Title,
			Status:         t.Status,
			Priority:       t.Priority,
			ReportedDate:   t.ReportedAt,
			ReportedByName: t.ReporterName,
			AssignedToName: t.AssigneeName,
		})
	}
	for _, s := range d.TeamPerformance {
		resp.TeamPerformance = append(resp.TeamPerformance, dto.TechnicianStat(s))
	}
	return resp
}

func reportsResponse(r *service.Reports) dto.ReportsResponse {
	resp := dto.ReportsResponse{
		ByLab:                  keyCounts(r.ByLab),
		ByStatus:               keyCounts(r.ByStatus),
		ByPriority:             keyCounts(r.ByPriority),
		ResolutionTimes:        make([]dto.ResolutionTime, 0, len(r.ResolutionTimes)),
		AverageResolutionHours: r.AverageResolution,
	}
	for _, rt := range r.ResolutionTimes {
		resp.ResolutionTimes = append(resp.ResolutionTimes, dto.ResolutionTime{
			TicketID:     rt.TicketID,
			IssueTitle:   rt.Title,
			LabName:      rt.LabName,
			ReportedDate: rt.ReportedAt,
			ResolvedDate: rt.ResolvedAt,
			Hours:        rt.Hours,
		})
	}
	return resp
}

func keyCounts(in []service.KeyCount) []dto.KeyCount {
	out := make([]dto.KeyCount, 0, len(in))
	for _, kc := range in {
		out = append(out, dto.KeyCount(kc))
	}
	return out
}
