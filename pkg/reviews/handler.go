package reviews

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"klunkaz/pkg/identity"
	"klunkaz/pkg/registry"
	"klunkaz/pkg/response"
)

type ReviewService interface {
	AddReview(ctx context.Context, caller registry.Identity, id registry.BikeID, rating int, comment string) (int, error)
	LikeReview(ctx context.Context, caller registry.Identity, id registry.BikeID, index int) error
	AssetReviews(id registry.BikeID) ([]registry.Review, error)
	UserReviews(reviewer registry.Identity) []registry.BikeID
}

type ReviewHandler struct {
	service ReviewService
	auth    gin.HandlerFunc
}

func NewReviewHandler(service ReviewService, auth gin.HandlerFunc) *ReviewHandler {
	return &ReviewHandler{service: service, auth: auth}
}

func (h *ReviewHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/bikes/:id/reviews", h.listBikeReviews)
	router.GET("/users/:identity/reviews", h.listUserReviews)
	router.POST("/bikes/:id/reviews", h.auth, h.addReview)
	router.POST("/bikes/:id/reviews/:index/like", h.auth, h.likeReview)
}

// Ratings are expected to be 1-5 but are stored as given.
type addReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func bikeIDParam(c *gin.Context) (registry.BikeID, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid bike id", nil)
		return 0, false
	}
	return registry.BikeID(id), true
}

// @Summary      Review a bike
// @Tags         reviews
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Bike ID"
// @Param        request body addReviewRequest true "Review"
// @Success      201  {object}  response.APIResponse "Review added"
// @Failure      400  {object}  response.APIResponse "Invalid request payload"
// @Failure      401  {object}  response.APIResponse "Missing or invalid token"
// @Router       /bikes/{id}/reviews [post]
func (h *ReviewHandler) addReview(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	var req addReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid request payload", nil)
		return
	}

	index, err := h.service.AddReview(c.Request.Context(), identity.Caller(c), id, req.Rating, req.Comment)
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusCreated, true, "review added", gin.H{"index": index})
}

// @Summary      Like a review
// @Tags         reviews
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  int  true  "Bike ID"
// @Param        index   path  int  true  "Review index"
// @Success      200  {object}  response.APIResponse
// @Failure      404  {object}  response.APIResponse "Review does not exist"
// @Router       /bikes/{id}/reviews/{index}/like [post]
func (h *ReviewHandler) likeReview(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.SendAPIResponse(c, http.StatusBadRequest, false, "invalid review index", nil)
		return
	}

	if err := h.service.LikeReview(c.Request.Context(), identity.Caller(c), id, index); err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "review liked", nil)
}

// @Summary      List a bike's reviews
// @Tags         reviews
// @Produce      json
// @Param        id   path      int  true  "Bike ID"
// @Success      200  {object}  response.APIResponse{data=[]registry.Review}
// @Failure      400  {object}  response.APIResponse "Invalid bike id"
// @Router       /bikes/{id}/reviews [get]
func (h *ReviewHandler) listBikeReviews(c *gin.Context) {
	id, ok := bikeIDParam(c)
	if !ok {
		return
	}
	list, err := h.service.AssetReviews(id)
	if err != nil {
		response.SendError(c, err)
		return
	}
	response.SendAPIResponse(c, http.StatusOK, true, "reviews fetched", list)
}

// @Summary      Bikes a user has reviewed
// @Description  One entry per review, in the order they were written
// @Tags         reviews
// @Produce      json
// @Param        identity   path      string  true  "Reviewer identity"
// @Success      200  {object}  response.APIResponse{data=[]int64}
// @Router       /users/{identity}/reviews [get]
func (h *ReviewHandler) listUserReviews(c *gin.Context) {
	ids := h.service.UserReviews(registry.Identity(c.Param("identity")))
	response.SendAPIResponse(c, http.StatusOK, true, "reviews fetched", ids)
}
