package tickets

import "time"

// TicketView is the public shape of a ticket: everything a display
// board or kiosk receipt needs, without the requester's ID number.
type TicketView struct {
	DisplayNumber string    `json:"display_number"`
	Office        Office    `json:"office"`
	Section       Section   `json:"section"`
	Priority      bool      `json:"priority"`
	State         State     `json:"state"`
	IssuedAt      time.Time `json:"issued_at"`
}

func NewTicketView(t *Ticket) TicketView {
	return TicketView{
		DisplayNumber: t.DisplayNumber,
		Office:        t.Office,
		Section:       t.Section,
		Priority:      t.Priority,
		State:         t.State,
		IssuedAt:      t.IssuedAt,
	}
}

// IssueTicketResponse is the kiosk receipt.
type IssueTicketResponse struct {
	Ticket           TicketView `json:"ticket"`
	Position         int        `json:"position"`
	EstimatedMinutes float64    `json:"estimated_minutes"`
}

// BoardResponse is the public display for one office.
type BoardResponse struct {
	Office    Office       `json:"office"`
	DayKey    string       `json:"day_key"`
	InProcess []TicketView `json:"in_process"`
	OnQueue   []TicketView `json:"on_queue"`
}

func NewBoardResponse(b *Board) BoardResponse {
	resp := BoardResponse{
		Office:    b.Office,
		DayKey:    b.DayKey,
		InProcess: make([]TicketView, 0, len(b.InProcess)),
		OnQueue:   make([]TicketView, 0, len(b.OnQueue)),
	}
	for i := range b.InProcess {
		resp.InProcess = append(resp.InProcess, NewTicketView(&b.InProcess[i]))
	}
	for i := range b.OnQueue {
		resp.OnQueue = append(resp.OnQueue, NewTicketView(&b.OnQueue[i]))
	}
	return resp
}
