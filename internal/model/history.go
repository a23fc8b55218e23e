package model

import "time"

// HistoryItem is one event in a subject's participation history.
type HistoryItem struct {
	EventID            string     `json:"id"`
	Title              string     `json:"title"`
	Type               string     `json:"type"`
	DisplayStatus      string     `json:"status"`
	Date               time.Time  `json:"date"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	MeetingLink        string     `json:"meeting_link,omitempty"`
	RegistrationStatus Status     `json:"registration_status"`
	RejectionReason    string     `json:"rejection_reason,omitempty"`
}

// History is the reconciled participation history, bucketed by event type.
type History struct {
	Workshops   []HistoryItem `json:"workshops"`
	Webinars    []HistoryItem `json:"webinars"`
	Internships []HistoryItem `json:"internships"`
}

// NewHistory returns a history with empty, non-nil buckets so it encodes
// as arrays rather than null.
func NewHistory() History {
	return History{
		Workshops:   []HistoryItem{},
		Webinars:    []HistoryItem{},
		Internships: []HistoryItem{},
	}
}

// Add appends the item to the bucket for its event type. Items of unknown
// types are not kept; Add reports whether the item was stored.
func (h *History) Add(item HistoryItem) bool {
	switch item.Type {
	case EventTypeWorkshop:
		h.Workshops = append(h.Workshops, item)
	case EventTypeWebinar:
		h.Webinars = append(h.Webinars, item)
	case EventTypeInternship:
		h.Internships = append(h.Internships, item)
	default:
		return false
	}
	return true
}

// Len returns the number of items across all buckets.
func (h *History) Len() int {
	return len(h.Workshops) + len(h.Webinars) + len(h.Internships)
}
