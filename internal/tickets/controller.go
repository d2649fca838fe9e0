package tickets

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"queuedesk/internal/shared/utils/response"
)

type Controller interface {
	IssueTicket(c *gin.Context)
	GetBoard(c *gin.Context)
	GetWait(c *gin.Context)
	ClaimNext(c *gin.Context)
	ResumeHeld(c *gin.Context)
	HoldCurrent(c *gin.Context)
	CompleteCurrent(c *gin.Context)
	GetStatus(c *gin.Context)
	CancelWaiting(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// httpStatusFor maps the engine's error taxonomy onto HTTP codes.
func httpStatusFor(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindInvalidOffice:
		return http.StatusBadRequest
	case KindDuplicateTicket:
		return http.StatusConflict
	case KindOutOfHours:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	response.RespondJSON(c, "error", httpStatusFor(err), err.Error(), nil, string(KindOf(err)))
}

func officeParam(c *gin.Context) Office {
	return Office(strings.ToLower(c.Param("office")))
}

// staffName pulls the authenticated staff username placed in the
// context by the auth middleware.
func staffName(c *gin.Context) (string, bool) {
	username, exists := c.Get("username")
	if !exists {
		return "", false
	}
	name, ok := username.(string)
	return name, ok && name != ""
}

func (ctrl *controller) IssueTicket(c *gin.Context) {
	var req IssueTicketRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	result, err := ctrl.service.Issue(c.Request.Context(), req.IDInput, Office(strings.ToLower(req.Office)), req.Priority)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := IssueTicketResponse{
		Ticket:           NewTicketView(result.Ticket),
		Position:         result.Position,
		EstimatedMinutes: result.EstimatedMinutes,
	}
	response.RespondJSON(c, "success", http.StatusCreated, "Ticket issued successfully", resp, nil)
}

func (ctrl *controller) GetBoard(c *gin.Context) {
	board, err := ctrl.service.Board(c.Request.Context(), officeParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Board retrieved successfully", NewBoardResponse(board), nil)
}

func (ctrl *controller) GetWait(c *gin.Context) {
	var query WaitQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	estimate, err := ctrl.service.EstimateWait(c.Request.Context(), officeParam(c), query.DisplayNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Wait estimate retrieved successfully", estimate, nil)
}

func (ctrl *controller) ClaimNext(c *gin.Context) {
	staff, ok := staffName(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Staff not authenticated", nil, nil)
		return
	}

	result, err := ctrl.service.ClaimNext(c.Request.Context(), staff, officeParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Claimed == nil {
		response.RespondJSON(c, "success", http.StatusOK, "No available queues to process.", result, nil)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Now serving "+result.Claimed.DisplayNumber, result, nil)
}

func (ctrl *controller) ResumeHeld(c *gin.Context) {
	staff, ok := staffName(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Staff not authenticated", nil, nil)
		return
	}

	result, err := ctrl.service.ResumeHeld(c.Request.Context(), staff, officeParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Claimed == nil {
		response.RespondJSON(c, "success", http.StatusOK, "No held tickets to resume.", result, nil)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Now serving "+result.Claimed.DisplayNumber, result, nil)
}

func (ctrl *controller) HoldCurrent(c *gin.Context) {
	staff, ok := staffName(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Staff not authenticated", nil, nil)
		return
	}

	ticket, err := ctrl.service.Hold(c.Request.Context(), staff, officeParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if ticket == nil {
		response.RespondJSON(c, "success", http.StatusOK, "Nothing in process to hold.", nil, nil)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Ticket placed on hold", NewTicketView(ticket), nil)
}

func (ctrl *controller) CompleteCurrent(c *gin.Context) {
	staff, ok := staffName(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Staff not authenticated", nil, nil)
		return
	}

	ticket, err := ctrl.service.CompleteOnly(c.Request.Context(), staff, officeParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	if ticket == nil {
		response.RespondJSON(c, "success", http.StatusOK, "Nothing in process to complete.", nil, nil)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, "Ticket completed", NewTicketView(ticket), nil)
}

func (ctrl *controller) GetStatus(c *gin.Context) {
	staff, ok := staffName(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Staff not authenticated", nil, nil)
		return
	}

	status, err := ctrl.service.Status(c.Request.Context(), staff, officeParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Queue status retrieved successfully", status, nil)
}

// CancelWaiting is the staff-initiated end-of-day cancel. It is refused
// while the office is still open; the administrative override lives in
// the admin module.
func (ctrl *controller) CancelWaiting(c *gin.Context) {
	if _, ok := staffName(c); !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "Staff not authenticated", nil, nil)
		return
	}

	count, err := ctrl.service.CancelAllWaiting(c.Request.Context(), officeParam(c), false)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Waiting tickets cancelled", gin.H{"cancelled": count}, nil)
}
