package queue

import (
	"sort"

	"clinic_queue/internal/eta"
	"clinic_queue/internal/models"
)

// EntryView is an entry annotated with its live position and ETA.
// Position is 0 for the entry being served.
type EntryView struct {
	models.QueueEntry
	Position int       `json:"position"`
	ETA      eta.Range `json:"eta"`
}

// ServerView is the authoritative snapshot published to observers of a server.
type ServerView struct {
	ServerID              string      `json:"server_id"`
	ServerName            string      `json:"server_name"`
	IsAccepting           bool        `json:"is_accepting"`
	AverageServiceMinutes int         `json:"average_service_minutes"`
	Entries               []EntryView `json:"entries"`
	TotalWaiting          int         `json:"total_waiting"`
}

// Find returns the view of entryID if it is still active.
func (v ServerView) Find(entryID string) (EntryView, bool) {
	for _, e := range v.Entries {
		if e.ID == entryID {
			return e, true
		}
	}
	return EntryView{}, false
}

// Serving returns the entry currently being served, if any.
func (v ServerView) Serving() (EntryView, bool) {
	for _, e := range v.Entries {
		if e.Status == models.StatusServing {
			return e, true
		}
	}
	return EntryView{}, false
}

// ServerSummary is a directory listing row: the server and how many entries wait for it.
type ServerSummary struct {
	models.Server
	TotalWaiting int `json:"total_waiting"`
}

// ConsumerStatus answers "where am I": Entry is nil when the consumer is not queued.
type ConsumerStatus struct {
	Entry  *EntryView     `json:"entry"`
	Server *models.Server `json:"server,omitempty"`
}

// CalledNotice is the point-to-point "your turn" signal.
type CalledNotice struct {
	ConsumerID     string `json:"consumer_id"`
	ServerID       string `json:"server_id"`
	EntryID        string `json:"entry_id"`
	SequenceNumber int    `json:"sequence_number"`
	Message        string `json:"message"`
}

type ServerSession struct {
	ServerID    string `json:"server_id"`
	ServerName  string `json:"server_name"`
	IsAccepting bool   `json:"is_accepting"`
}

// Completion is the outcome of Complete.
type Completion struct {
	Entry                 models.QueueEntry `json:"entry"`
	DurationMinutes       int               `json:"duration_minutes"`
	DurationAccepted      bool              `json:"duration_accepted"`
	AverageServiceMinutes int               `json:"average_service_minutes"`
}

type ServerStats struct {
	ServerID              string `json:"server_id"`
	ServerName            string `json:"server_name"`
	Department            string `json:"department"`
	IsAccepting           bool   `json:"is_accepting"`
	AverageServiceMinutes int    `json:"average_service_minutes"`
	Waiting               int    `json:"waiting"`
	Serving               int    `json:"serving"`
	Served                int    `json:"served"`
	Skipped               int    `json:"skipped"`
	Cancelled             int    `json:"cancelled"`
}

type DayStats struct {
	ServiceDay string                `json:"service_day"`
	Totals     map[models.Status]int `json:"totals"`
	Servers    []ServerStats         `json:"servers"`
}

func sortByArrival(entries []models.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Before(entries[j]) })
}

// buildView ranks waiting entries 1..n in arrival order, so a waiting entry's
// position is the number of waiting entries at or before it.
func buildView(server models.Server, entries []models.QueueEntry) ServerView {
	sortByArrival(entries)
	view := ServerView{
		ServerID:              server.ID,
		ServerName:            server.Name,
		IsAccepting:           server.IsAccepting,
		AverageServiceMinutes: server.AverageServiceMinutes,
		Entries:               make([]EntryView, 0, len(entries)),
	}
	for _, e := range entries {
		ev := EntryView{QueueEntry: e}
		if e.Status == models.StatusWaiting {
			view.TotalWaiting++
			ev.Position = view.TotalWaiting
			ev.ETA = eta.Estimate(ev.Position, server.AverageServiceMinutes)
		}
		view.Entries = append(view.Entries, ev)
	}
	return view
}
