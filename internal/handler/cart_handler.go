package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-planner-api/internal/dto"
	"github.com/noah-isme/course-planner-api/internal/models"
	appErrors "github.com/noah-isme/course-planner-api/pkg/errors"
	"github.com/noah-isme/course-planner-api/pkg/response"
)

type cartService interface {
	Add(ctx context.Context, req dto.AddToCartRequest) (*models.ShoppingCart, error)
	Get(ctx context.Context) (*models.ShoppingCart, error)
	Clear(ctx context.Context)
	Validate(ctx context.Context, req dto.CartValidateRequest) (*dto.CartValidationResponse, error)
	Register(ctx context.Context) (*dto.RegistrationResponse, error)
}

// CartHandler exposes the registration cart.
type CartHandler struct {
	cart cartService
}

// NewCartHandler constructs the handler.
func NewCartHandler(cart cartService) *CartHandler {
	return &CartHandler{cart: cart}
}

// Add godoc
// @Summary Put a schedule into the registration cart
// @Tags Cart
// @Accept json
// @Produce json
// @Param payload body dto.AddToCartRequest true "Schedule"
// @Success 201 {object} response.Envelope
// @Router /cart [post]
func (h *CartHandler) Add(c *gin.Context) {
	var req dto.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cart payload"))
		return
	}
	cart, err := h.cart.Add(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cart)
}

// Get godoc
// @Summary Get the registration cart
// @Tags Cart
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	cart, err := h.cart.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cart, nil)
}

// Clear godoc
// @Summary Empty the registration cart
// @Tags Cart
// @Success 204
// @Router /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	h.cart.Clear(c.Request.Context())
	response.NoContent(c)
}

// Validate godoc
// @Summary Validate the cart
// @Description Reports time conflicts, missing prerequisites and full sections.
// @Tags Cart
// @Accept json
// @Produce json
// @Param payload body dto.CartValidateRequest false "Completed courses"
// @Success 200 {object} response.Envelope
// @Router /cart/validate [post]
func (h *CartHandler) Validate(c *gin.Context) {
	var req dto.CartValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validation payload"))
		return
	}
	result, err := h.cart.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Register godoc
// @Summary Register the validated cart
// @Tags Cart
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /cart/register [post]
func (h *CartHandler) Register(c *gin.Context) {
	result, err := h.cart.Register(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
