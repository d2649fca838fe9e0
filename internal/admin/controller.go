package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"queuedesk/internal/shared/utils/response"
	"queuedesk/internal/tickets"
)

type Controller interface {
	CancelWaiting(c *gin.Context)
	PrioritizeSection(c *gin.Context)
	CancelSection(c *gin.Context)
	StaffActivity(c *gin.Context)
}

type controller struct {
	service   tickets.Service
	validator *validator.Validate
}

func NewController(service tickets.Service) Controller {
	return &controller{
		service:   service,
		validator: validator.New(),
	}
}

// SectionRequest selects a campus section for a bulk operation.
type SectionRequest struct {
	Section string `json:"section" validate:"required,oneof=MAIN SOUTH main south"`
}

func officeParam(c *gin.Context) tickets.Office {
	return tickets.Office(strings.ToLower(c.Param("office")))
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch tickets.KindOf(err) {
	case tickets.KindInvalidInput, tickets.KindInvalidOffice:
		status = http.StatusBadRequest
	case tickets.KindNotFound:
		status = http.StatusNotFound
	case tickets.KindStoreUnavailable:
		status = http.StatusServiceUnavailable
	}
	response.RespondJSON(c, "error", status, err.Error(), nil, string(tickets.KindOf(err)))
}

// CancelWaiting is the administrative override: it empties the waiting
// line regardless of the time of day.
func (ctrl *controller) CancelWaiting(c *gin.Context) {
	count, err := ctrl.service.CancelAllWaiting(c.Request.Context(), officeParam(c), true)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Waiting tickets cancelled", gin.H{"cancelled": count}, nil)
}

func (ctrl *controller) PrioritizeSection(c *gin.Context) {
	var req SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	section := tickets.Section(strings.ToUpper(req.Section))
	count, err := ctrl.service.PrioritizeSection(c.Request.Context(), officeParam(c), section)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Section promoted to priority", gin.H{"promoted": count}, nil)
}

func (ctrl *controller) CancelSection(c *gin.Context) {
	var req SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	section := tickets.Section(strings.ToUpper(req.Section))
	count, err := ctrl.service.CancelSection(c.Request.Context(), officeParam(c), section)
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Section waiting tickets cancelled", gin.H{"cancelled": count}, nil)
}

func (ctrl *controller) StaffActivity(c *gin.Context) {
	staff := c.Param("username")
	if staff == "" {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Staff username is required", nil, nil)
		return
	}

	activity, err := ctrl.service.StaffActivity(c.Request.Context(), staff, officeParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Staff activity retrieved successfully", activity, nil)
}
