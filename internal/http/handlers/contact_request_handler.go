package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/farmlink/farmlink-backend/internal/dto"
	"github.com/farmlink/farmlink-backend/internal/http/handlers/common"
	"github.com/farmlink/farmlink-backend/internal/models"
	"github.com/farmlink/farmlink-backend/internal/service"
)

// ContactRequestHandler обрабатывает HTTP-запросы жизненного цикла контактных запросов.
type ContactRequestHandler struct {
	requests *service.ContactRequestService
}

// NewContactRequestHandler создаёт обработчик контактных запросов.
func NewContactRequestHandler(requests *service.ContactRequestService) *ContactRequestHandler {
	return &ContactRequestHandler{requests: requests}
}

// Create обрабатывает POST /api/contact-requests.
func (h *ContactRequestHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	var req dto.CreateContactRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		common.RespondBadRequest(c, "product_id должен быть валидным UUID")
		return
	}

	created, err := h.requests.CreateRequest(c.Request.Context(), service.CreateRequestInput{
		RequesterID:       userID,
		RequesterRole:     role,
		ProductID:         productID,
		RequestedQuantity: req.RequestedQuantity,
	})
	if err != nil {
		var dup *service.DuplicateRequestError
		if errors.As(err, &dup) {
			c.JSON(http.StatusConflict, dto.DuplicateRequestResponse{
				Error:             "активный запрос к этому фермеру по этому товару уже существует",
				ExistingRequestID: dup.ExistingID.String(),
			})
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Accept обрабатывает POST /api/contact-requests/:id/accept.
func (h *ContactRequestHandler) Accept(c *gin.Context) {
	h.farmerTransition(c, h.requests.AcceptRequest)
}

// Reject обрабатывает POST /api/contact-requests/:id/reject.
func (h *ContactRequestHandler) Reject(c *gin.Context) {
	h.farmerTransition(c, h.requests.RejectRequest)
}

// ConfirmAsBuyer обрабатывает POST /api/contact-requests/:id/confirm.
func (h *ContactRequestHandler) ConfirmAsBuyer(c *gin.Context) {
	h.confirm(c, h.requests.SubmitUserConfirmation)
}

// ConfirmAsFarmer обрабатывает POST /api/contact-requests/:id/farmer-confirm.
func (h *ContactRequestHandler) ConfirmAsFarmer(c *gin.Context) {
	h.confirm(c, h.requests.SubmitFarmerConfirmation)
}

// My обрабатывает GET /api/contact-requests/my.
func (h *ContactRequestHandler) My(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	result, err := h.requests.ListMyRequests(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get обрабатывает GET /api/contact-requests/:id.
func (h *ContactRequestHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}
	role, _ := common.CurrentUserRole(c)

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	cr, err := h.requests.GetRequest(c.Request.Context(), requestID, userID, role)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, cr)
}

func (h *ContactRequestHandler) farmerTransition(
	c *gin.Context,
	fn func(ctx context.Context, requestID, callerID uuid.UUID) (*models.ContactRequest, error),
) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	updated, err := fn(c.Request.Context(), requestID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *ContactRequestHandler) confirm(
	c *gin.Context,
	fn func(ctx context.Context, requestID, callerID uuid.UUID, in service.ConfirmationInput) (*service.ConfirmationResult, error),
) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ConfirmationRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	result, err := fn(c.Request.Context(), requestID, userID, service.ConfirmationInput{
		Occurred:      req.Occurred != nil && *req.Occurred,
		FinalQuantity: req.FinalQuantity,
		FinalPrice:    req.FinalPrice,
		Feedback:      req.Feedback,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
