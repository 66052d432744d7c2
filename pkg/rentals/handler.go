package rentals

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"klunkaz/pkg/identity"
	"klunkaz/pkg/registry"
	"klunkaz/pkg/response"
)

type RentalService interface {
	RentBike(ctx context.Context, caller registry.Identity, id registry.BikeID, days int64) error
	ReturnBike(ctx context.Context, caller registry.Identity, id registry.BikeID) error
	RentalStatus(id registry.BikeID) (registry.RentalStatus, error)
}

type RentalHandler struct {
	service RentalService
	auth    gin.HandlerFunc
}

func NewRentalHandler(service RentalService, auth gin.HandlerFunc) *RentalHandler {
	return &RentalHandler{service: service, auth: auth}
}

func (h *RentalHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/bikes/:id/rental", h.getRental)
	router.POST("/bikes/:id/rent", h.auth, h.rentBike)
	router.POST("/bikes/:id/return", h.auth, h.returnBike)
}

type rentRequest struct {
	Days int64 `json:"days" binding:"required,gt=0"`
}

func bikeIDParam(c *gin.Context) (registry.BikeID, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid bike id", nil)
		return 0, false
	}
	return registry.BikeID(id), true
}

// @Summary      Rent a bike
// @Description  Charges daily_rate * days and starts the rental
// @Tags         rentals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Param        request body rentRequest true "Rental length"
// @Success      200  {object}  response.APIResponse
// @Failure      400  {object}  response.APIResponse "Invalid duration"
// @Failure      402  {object}  response.APIResponse "Payment failed"
// @Failure      409  {object}  response.APIResponse "Bike is already rented"
// @Failure      422  {object}  response.APIResponse "Bike is not listed for rent"
// @Router       /bikes/{id}/rent [post]
func (h *RentalHandler) rentBike(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	var req rentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	if err := h.service.RentBike(c.Request.Context(), identity.Caller(c), id, req.Days); err != nil {
		response.SendError(c, err)
		return
	}

	status, err := h.service.RentalStatus(id)
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "bike rented", status)
}

// @Summary      Return a rented bike
// @Tags         rentals
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Success      200  {object}  response.APIResponse
// @Failure      403  {object}  response.APIResponse "Not the renter or bike owner"
// @Failure      422  {object}  response.APIResponse "Bike is not currently rented"
// @Router       /bikes/{id}/return [post]
func (h *RentalHandler) returnBike(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	if err := h.service.ReturnBike(c.Request.Context(), identity.Caller(c), id); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "bike returned", nil)
}

// @Summary      Rental status
// @Description  Expired rentals report as not rented
// @Tags         rentals
// @Produce      json
// @Param        id   path      int  true  "Bike ID"
// @Success      200  {object}  response.APIResponse{data=registry.RentalStatus}
// @Failure      404  {object}  response.APIResponse "Bike not found"
// @Router       /bikes/{id}/rental [get]
func (h *RentalHandler) getRental(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	status, err := h.service.RentalStatus(id)
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "rental status fetched", status)
}
