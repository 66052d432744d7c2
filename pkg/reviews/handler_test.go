package reviews

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"klunkaz/pkg/identity"
	"klunkaz/pkg/registry"
	"klunkaz/pkg/response"
	"klunkaz/pkg/testhelpers"
)

type mockReviewService struct {
	mock.Mock
}

func (m *mockReviewService) AddReview(ctx context.Context, caller registry.Identity, id registry.BikeID, rating int, comment string) (int, error) {
	args := m.Called(ctx, caller, id, rating, comment)
	return args.Int(0), args.Error(1)
}

func (m *mockReviewService) LikeReview(ctx context.Context, caller registry.Identity, id registry.BikeID, index int) error {
	return m.Called(ctx, caller, id, index).Error(0)
}

func (m *mockReviewService) AssetReviews(id registry.BikeID) ([]registry.Review, error) {
	args := m.Called(id)
	list, _ := args.Get(0).([]registry.Review)
	return list, args.Error(1)
}

func (m *mockReviewService) UserReviews(reviewer registry.Identity) []registry.BikeID {
	ids, _ := m.Called(reviewer).Get(0).([]registry.BikeID)
	return ids
}

func headerAuth(c *gin.Context) {
	if caller := c.GetHeader("X-Caller"); caller != "" {
		identity.SetCaller(c, registry.Identity(caller))
	}
	c.Next()
}

func setupReviewRouter(service ReviewService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewReviewHandler(service, headerAuth).RegisterRoutes(r)
	return r
}

func do(r *gin.Engine, method, path, caller, body string) (*httptest.ResponseRecorder, response.APIResponse) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-Caller", caller)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestReviewHandler_AddReview_Success(t *testing.T) {
	svc := new(mockReviewService)
	r := setupReviewRouter(svc)

	svc.On("AddReview", mock.Anything, registry.Identity("0xB0B"), registry.BikeID(1), 4, "Great bike!").Return(2, nil)

	w, resp := do(r, http.MethodPost, "/bikes/1/reviews", "0xB0B", `{"rating":4,"comment":"Great bike!"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, map[string]any{"index": float64(2)}, resp.Data)
	svc.AssertExpectations(t)
}

func TestReviewHandler_AddReview_RatingStoredAsGiven(t *testing.T) {
	svc := new(mockReviewService)
	r := setupReviewRouter(svc)

	svc.On("AddReview", mock.Anything, registry.Identity("0xB0B"), registry.BikeID(1), 0, "").Return(0, nil).Once()
	svc.On("AddReview", mock.Anything, registry.Identity("0xB0B"), registry.BikeID(1), 9, "").Return(1, nil).Once()
	svc.On("AddReview", mock.Anything, registry.Identity("0xB0B"), registry.BikeID(1), 0, "no rating").Return(2, nil).Once()

	for _, body := range []string{`{"rating":0}`, `{"rating":9}`, `{"comment":"no rating"}`} {
		w, resp := do(r, http.MethodPost, "/bikes/1/reviews", "0xB0B", body)
		require.Equal(t, http.StatusCreated, w.Code, body)
		require.True(t, resp.Success)
	}

	w, resp := do(r, http.MethodPost, "/bikes/1/reviews", "0xB0B", `{"rating":"five"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid request payload", resp.Message)
	svc.AssertExpectations(t)
}

func TestReviewHandler_AddReview_UnlistedBike(t *testing.T) {
	reg := registry.New()
	r := setupReviewRouter(reg)

	w, resp := do(r, http.MethodPost, "/bikes/99/reviews", "0xB0B", `{"rating":4,"comment":"Great bike!"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, map[string]any{"index": float64(0)}, resp.Data)

	w, resp = do(r, http.MethodGet, "/bikes/99/reviews", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Data, 1)

	w, resp = do(r, http.MethodGet, "/bikes/100/reviews", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []any{}, resp.Data)

	w, resp = do(r, http.MethodGet, "/users/0xB0B/reviews", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []any{float64(99)}, resp.Data)
}

func TestReviewHandler_LikeReview(t *testing.T) {
	svc := new(mockReviewService)
	r := setupReviewRouter(svc)

	svc.On("LikeReview", mock.Anything, registry.Identity("0xCA401"), registry.BikeID(1), 0).Return(nil)
	svc.On("LikeReview", mock.Anything, registry.Identity("0xCA401"), registry.BikeID(1), 5).
		Return(&registry.Error{Kind: registry.KindNotFound, Reason: registry.ReasonReviewNotFound})

	w, _ := do(r, http.MethodPost, "/bikes/1/reviews/0/like", "0xCA401", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := do(r, http.MethodPost, "/bikes/1/reviews/5/like", "0xCA401", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, registry.ReasonReviewNotFound, resp.Message)

	w, _ = do(r, http.MethodPost, "/bikes/1/reviews/-1/like", "0xCA401", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	svc.AssertExpectations(t)
}

func TestReviewHandler_Queries(t *testing.T) {
	svc := new(mockReviewService)
	r := setupReviewRouter(svc)

	svc.On("AssetReviews", registry.BikeID(1)).Return([]registry.Review{{Index: 0, Rating: 5, Comment: "a"}, {Index: 1, Rating: 3, Comment: "b"}}, nil)
	svc.On("UserReviews", registry.Identity("0xB0B")).Return([]registry.BikeID{1, 3, 1})

	w, resp := do(r, http.MethodGet, "/bikes/1/reviews", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Data, 2)

	w, resp = do(r, http.MethodGet, "/users/0xB0B/reviews", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []any{float64(1), float64(3), float64(1)}, resp.Data)

	svc.AssertExpectations(t)
}

func TestReviewHandler_WorksWithRegistry(t *testing.T) {
	reg := registry.New()
	r := setupReviewRouter(reg)
	id := testhelpers.ListTestBike(t, reg, "0xA11CE", 100)
	path := "/bikes/1/reviews"
	require.Equal(t, registry.BikeID(1), id)

	w, _ := do(r, http.MethodPost, path, "0xB0B", `{"rating":5,"comment":"first"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w, resp := do(r, http.MethodPost, path, "0xCA401", `{"rating":2,"comment":"second"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, map[string]any{"index": float64(1)}, resp.Data)

	w, _ = do(r, http.MethodPost, path+"/1/like", "0xB0B", "")
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(r, http.MethodPost, path+"/1/like", "0xB0B", "")
	require.Equal(t, http.StatusOK, w.Code)

	list, err := reg.AssetReviews(id)
	require.NoError(t, err)
	require.Equal(t, "first", list[0].Comment)
	require.Equal(t, int64(2), list[1].Likes)
}
