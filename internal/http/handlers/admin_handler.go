package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/farmlink-backend/internal/dto"
	"github.com/farmlink/farmlink-backend/internal/http/handlers/common"
	"github.com/farmlink/farmlink-backend/internal/service"
)

// AdminHandler обрабатывает админские операции над спорами.
type AdminHandler struct {
	requests *service.ContactRequestService
}

// NewAdminHandler создаёт админский обработчик.
func NewAdminHandler(requests *service.ContactRequestService) *AdminHandler {
	return &AdminHandler{requests: requests}
}

// ListDisputes обрабатывает GET /api/admin/disputes.
func (h *AdminHandler) ListDisputes(c *gin.Context) {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	disputes, err := h.requests.ListDisputes(c.Request.Context(), role)
	if err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "", disputes)
}

// ResolveDispute обрабатывает POST /api/admin/disputes/:id/resolve.
func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveDisputeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	updated, err := h.requests.ResolveDispute(c.Request.Context(), requestID, role, service.ResolveDisputeInput{
		Resolution: req.Resolution,
		AdminNote:  req.AdminNote,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
