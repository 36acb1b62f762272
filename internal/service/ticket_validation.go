package service

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/labdesk/lab-issue-service/internal/domain"
	apperrors "github.com/labdesk/lab-issue-service/pkg/util/errorutil"
)

const (
	maxIPAddressLength    = 15
	maxTitleLength        = 200
	maxDescriptionLength  = 1000
	maxLabNameLength      = 50
	maxComputerNameLength = 50
)

var dottedQuadRegex = regexp.MustCompile(`^(?:[0-9]{1,3}\.){3}[0-9]{1,3}$`)

// ValidIPAddress accepts dotted-quad IPv4 text with every octet in 0..255.
func ValidIPAddress(ip string) bool {
	if !dottedQuadRegex.MatchString(ip) {
		return false
	}
	for _, part := range strings.Split(ip, ".") {
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

// normalize trims the input and fills the default priority.
func (in *ReportIssueInput) normalize() {
	in.IPAddress = strings.TrimSpace(in.IPAddress)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.LabName = strings.TrimSpace(in.LabName)
	in.ComputerName = strings.TrimSpace(in.ComputerName)
	in.Priority = domain.TicketPriority(strings.TrimSpace(string(in.Priority)))
	if in.Priority == "" {
		in.Priority = domain.TicketPriorityMedium
	}
}

func (in ReportIssueInput) validate() error {
	errs := apperrors.FieldErrors{}

	switch {
	case in.IPAddress == "":
		errs.Add("ip_address", "IP Address is required")
	case utf8.RuneCountInString(in.IPAddress) > maxIPAddressLength || !ValidIPAddress(in.IPAddress):
		errs.Add("ip_address", "Invalid IP Address format")
	}

	if in.Title == "" {
		errs.Add("issue_title", "Issue Title is required")
	} else if utf8.RuneCountInString(in.Title) > maxTitleLength {
		errs.Add("issue_title", "Issue Title must be at most 200 characters")
	}

	if in.Description == "" {
		errs.Add("issue_description", "Issue Description is required")
	} else if utf8.RuneCountInString(in.Description) > maxDescriptionLength {
		errs.Add("issue_description", "Issue Description must be at most 1000 characters")
	}

	if utf8.RuneCountInString(in.LabName) > maxLabNameLength {
		errs.Add("lab_name", "Lab Name must be at most 50 characters")
	}
	if utf8.RuneCountInString(in.ComputerName) > maxComputerNameLength {
		errs.Add("computer_name", "Computer Name must be at most 50 characters")
	}
	if !in.Priority.Valid() {
		errs.Add("priority", "Priority must be Low, Medium or High")
	}

	return errs.Err()
}
