package tickets

// IssueTicketRequest is the kiosk payload for requesting a queue number.
type IssueTicketRequest struct {
	IDInput  string `json:"id_input" binding:"required"`
	Office   string `json:"office" binding:"required"`
	Priority bool   `json:"priority"`
}

// WaitQuery asks for the live position of an already issued ticket.
type WaitQuery struct {
	DisplayNumber string `form:"number" binding:"required"`
}
