package bikes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"klunkaz/pkg/identity"
	"klunkaz/pkg/registry"
	"klunkaz/pkg/response"
)

type BikeHandler struct {
	service BikeService
	auth    gin.HandlerFunc
}

// NewBikeHandler wires the bike routes. auth guards every mutating route.
func NewBikeHandler(service BikeService, auth gin.HandlerFunc) *BikeHandler {
	RegisterValidations()
	return &BikeHandler{service: service, auth: auth}
}

func (h *BikeHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/bikes", h.listBikes)
	router.GET("/bikes/:id", h.getBike)
	router.GET("/bikes/:id/owner", h.getOwner)
	router.GET("/users/:identity/bikes", h.listUserBikes)
	router.GET("/categories/:category/bikes", h.listCategoryBikes)
	router.GET("/stats", h.getStats)

	router.POST("/bikes", h.auth, h.createBike)
	router.PATCH("/bikes/:id/price", h.auth, h.updatePrice)
	router.PATCH("/bikes/:id/listing", h.auth, h.updateListing)
	router.POST("/bikes/:id/approve", h.auth, h.approve)
	router.POST("/bikes/:id/transfer", h.auth, h.transfer)
	router.POST("/bikes/:id/transfer-from", h.auth, h.transferFrom)
	router.POST("/bikes/:id/buy", h.auth, h.buy)
	router.PATCH("/bikes/:id/stolen", h.auth, h.markStolen)
	router.PATCH("/bikes/:id/unflag-stolen", h.auth, h.unflagStolen)
	router.PATCH("/bikes/:id/tracker", h.auth, h.registerTracker)
	router.PATCH("/bikes/:id/insure", h.auth, h.insure)
}

// Descriptive fields are free-form and stored as given.
type detailsRequest struct {
	Brand string `json:"brand"`
	Title string `json:"title"`
	Size  string `json:"size"`
	Color string `json:"color"`
	Frame string `json:"frame"`
	Fork  string `json:"fork"`
	Shock string `json:"shock"`
}

type metadataRequest struct {
	Category string `json:"category"`
	Images   string `json:"images"`
	Address  string `json:"address"`
	Features string `json:"features"`
}

type listingRequest struct {
	Mode          string `json:"mode" binding:"omitempty,listingmode"`
	DailyRate     int64  `json:"daily_rate" binding:"gte=0"`
	MinRentalDays int64  `json:"min_rental_days" binding:"gte=0"`
	Deposit       int64  `json:"deposit" binding:"gte=0"`
}

func (r listingRequest) input() registry.ListingInput {
	return registry.ListingInput{
		Mode:          registry.ListingMode(r.Mode),
		DailyRate:     r.DailyRate,
		MinRentalDays: r.MinRentalDays,
		Deposit:       r.Deposit,
	}
}

type createBikeRequest struct {
	Price    int64           `json:"price" binding:"gte=0"`
	Details  detailsRequest  `json:"details"`
	Metadata metadataRequest `json:"metadata"`
	Listing  listingRequest  `json:"listing"`
}

type updatePriceRequest struct {
	Price *int64 `json:"price" binding:"required,gte=0"`
}

type approveRequest struct {
	Spender string `json:"spender"`
}

type transferRequest struct {
	To string `json:"to" binding:"required"`
}

type transferFromRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
}

type trackerRequest struct {
	Tracker string `json:"tracker" binding:"required"`
}

func bikeIDParam(c *gin.Context) (registry.BikeID, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid bike id", nil)
		return 0, false
	}
	return registry.BikeID(id), true
}

// @Summary      List a bike
// @Description  Registers a new bike owned by the caller
// @Tags         bikes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createBikeRequest true "Bike listing"
// @Success      201  {object}  response.APIResponse "Bike listed"
// @Failure      400  {object}  response.APIResponse "Invalid request payload"
// @Failure      401  {object}  response.APIResponse "Missing or invalid token"
// @Router       /bikes [post]
func (h *BikeHandler) createBike(c *gin.Context) {
	var req createBikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	id, err := h.service.List(c.Request.Context(), identity.Caller(c), registry.ListInput{
		Price: req.Price,
		Details: registry.Details{
			Brand: req.Details.Brand,
			Title: req.Details.Title,
			Size:  req.Details.Size,
			Color: req.Details.Color,
			Frame: req.Details.Frame,
			Fork:  req.Details.Fork,
			Shock: req.Details.Shock,
		},
		Metadata: registry.Metadata{
			Category: req.Metadata.Category,
			Images:   req.Metadata.Images,
			Address:  req.Metadata.Address,
			Features: req.Metadata.Features,
		},
		Listing: req.Listing.input(),
	})
	if err != nil {
		response.SendError(c, err)
		return
	}

	response.SendAPIResponse(c, http.StatusCreated, true, "bike listed", gin.H{"id": id})
}

// @Summary      List all bikes
// @Tags         bikes
// @Produce      json
// @Success      200  {object}  response.APIResponse{data=[]registry.Bike}
// @Router       /bikes [get]
func (h *BikeHandler) listBikes(c *gin.Context) {
	response.SendAPIResponse(c, http.StatusOK, true, "bikes fetched", h.service.AllBikes())
}

// @Summary      Get a bike
// @Tags         bikes
// @Produce      json
// @Param        id   path      int  true  "Bike ID"
// @Success      200  {object}  response.APIResponse{data=registry.Bike}
// @Failure      400  {object}  response.APIResponse "Invalid bike id"
// @Failure      404  {object}  response.APIResponse "Bike not found"
// @Router       /bikes/{id} [get]
func (h *BikeHandler) getBike(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	bike, err := h.service.GetBike(id)
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "bike fetched", bike)
}

// @Summary      Get a bike's owner
// @Tags         bikes
// @Produce      json
// @Param        id   path      int  true  "Bike ID"
// @Success      200  {object}  response.APIResponse
// @Failure      404  {object}  response.APIResponse "Bike not found"
// @Router       /bikes/{id}/owner [get]
func (h *BikeHandler) getOwner(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	owner, err := h.service.OwnerOf(id)
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "owner fetched", gin.H{"owner": owner})
}

// @Summary      List a user's bikes
// @Description  Bikes currently owned by the identity, in acquisition order
// @Tags         bikes
// @Produce      json
// @Param        identity   path      string  true  "Owner identity"
// @Success      200  {object}  response.APIResponse{data=[]registry.Bike}
// @Router       /users/{identity}/bikes [get]
func (h *BikeHandler) listUserBikes(c *gin.Context) {
	bikes := h.service.UserBikes(registry.Identity(c.Param("identity")))
	response.SendAPIResponse(c, http.StatusOK, true, "bikes fetched", bikes)
}

// @Summary      List bikes in a category
// @Tags         bikes
// @Produce      json
// @Param        category   path      string  true  "Category"
// @Success      200  {object}  response.APIResponse{data=[]registry.Bike}
// @Router       /categories/{category}/bikes [get]
func (h *BikeHandler) listCategoryBikes(c *gin.Context) {
	response.SendAPIResponse(c, http.StatusOK, true, "bikes fetched", h.service.BikesByCategory(c.Param("category")))
}

// @Summary      Registry counters
// @Tags         bikes
// @Produce      json
// @Success      200  {object}  response.APIResponse{data=registry.Stats}
// @Router       /stats [get]
func (h *BikeHandler) getStats(c *gin.Context) {
	response.SendAPIResponse(c, http.StatusOK, true, "stats fetched", h.service.Stats())
}

// @Summary      Update price
// @Tags         bikes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Param        request body updatePriceRequest true "New price"
// @Success      200  {object}  response.APIResponse
// @Failure      403  {object}  response.APIResponse "Not the bike owner"
// @Failure      422  {object}  response.APIResponse "Bike is rented"
// @Router       /bikes/{id}/price [patch]
func (h *BikeHandler) updatePrice(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	if err := h.service.UpdatePrice(c.Request.Context(), identity.Caller(c), id, *req.Price); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "price updated", nil)
}

// @Summary      Update listing terms
// @Description  Switches a bike between sale and rent and sets rental terms
// @Tags         bikes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Param        request body listingRequest true "Listing terms"
// @Success      200  {object}  response.APIResponse
// @Failure      403  {object}  response.APIResponse "Not the bike owner"
// @Failure      422  {object}  response.APIResponse "Bike is rented"
// @Router       /bikes/{id}/listing [patch]
func (h *BikeHandler) updateListing(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	if err := h.service.UpdateListing(c.Request.Context(), identity.Caller(c), id, req.input()); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "listing updated", nil)
}

// @Summary      Approve a transferee
// @Description  Lets spender transfer the bike once. An empty spender clears the approval.
// @Tags         ownership
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Param        request body approveRequest true "Spender"
// @Success      200  {object}  response.APIResponse
// @Failure      403  {object}  response.APIResponse "Not the bike owner"
// @Router       /bikes/{id}/approve [post]
func (h *BikeHandler) approve(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	if err := h.service.Approve(c.Request.Context(), identity.Caller(c), id, registry.Identity(req.Spender)); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "approval updated", nil)
}

// @Summary      Transfer a bike
// @Tags         ownership
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Param        request body transferRequest true "Recipient"
// @Success      200  {object}  response.APIResponse
// @Failure      403  {object}  response.APIResponse "Not allowed to transfer"
// @Failure      422  {object}  response.APIResponse "Bike is rented"
// @Router       /bikes/{id}/transfer [post]
func (h *BikeHandler) transfer(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	if err := h.service.Transfer(c.Request.Context(), identity.Caller(c), id, registry.Identity(req.To)); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "bike transferred", nil)
}

// @Summary      Transfer a bike on the owner's behalf
// @Tags         ownership
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Param        request body transferFromRequest true "Owner and recipient"
// @Success      200  {object}  response.APIResponse
// @Failure      403  {object}  response.APIResponse "Not approved"
// @Router       /bikes/{id}/transfer-from [post]
func (h *BikeHandler) transferFrom(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	var req transferFromRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	err := h.service.TransferFrom(c.Request.Context(), identity.Caller(c), id, registry.Identity(req.From), registry.Identity(req.To))
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "bike transferred", nil)
}

// @Summary      Buy a bike
// @Description  Pays the listed price to the owner and takes ownership
// @Tags         ownership
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Success      200  {object}  response.APIResponse
// @Failure      402  {object}  response.APIResponse "Payment failed"
// @Failure      422  {object}  response.APIResponse "Bike is not for sale"
// @Router       /bikes/{id}/buy [post]
func (h *BikeHandler) buy(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	if err := h.service.Buy(c.Request.Context(), identity.Caller(c), id); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "bike purchased", nil)
}

// @Summary      Mark a bike as stolen
// @Tags         bikes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Success      200  {object}  response.APIResponse
// @Failure      403  {object}  response.APIResponse "Not the bike owner"
// @Router       /bikes/{id}/stolen [patch]
func (h *BikeHandler) markStolen(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	if err := h.service.MarkAsStolen(c.Request.Context(), identity.Caller(c), id); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "bike marked as stolen", nil)
}

// @Summary      Clear the stolen flag
// @Tags         bikes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Success      200  {object}  response.APIResponse
// @Failure      403  {object}  response.APIResponse "Not the bike owner"
// @Failure      422  {object}  response.APIResponse "Bike is not marked as stolen"
// @Router       /bikes/{id}/unflag-stolen [patch]
func (h *BikeHandler) unflagStolen(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	if err := h.service.UnflagAsStolen(c.Request.Context(), identity.Caller(c), id); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "bike recovered", nil)
}

// @Summary      Register a tracker
// @Tags         bikes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Param        request body trackerRequest true "Tracker"
// @Success      200  {object}  response.APIResponse
// @Failure      403  {object}  response.APIResponse "Not the bike owner"
// @Router       /bikes/{id}/tracker [patch]
func (h *BikeHandler) registerTracker(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	var req trackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}
	if err := h.service.RegisterTracker(c.Request.Context(), identity.Caller(c), id, registry.Identity(req.Tracker)); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "tracker registered", nil)
}

// @Summary      Insure a bike
// @Tags         bikes
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Success      200  {object}  response.APIResponse
// @Failure      403  {object}  response.APIResponse "Not the bike owner"
// @Router       /bikes/{id}/insure [patch]
func (h *BikeHandler) insure(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	if err := h.service.InsureBike(c.Request.Context(), identity.Caller(c), id); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "bike insured", nil)
}
