package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-planner-api/internal/dto"
	"github.com/noah-isme/course-planner-api/internal/models"
	appErrors "github.com/noah-isme/course-planner-api/pkg/errors"
)

type cartServiceMock struct {
	cart      *models.ShoppingCart
	validate  dto.CartValidateRequest
	result    *dto.CartValidationResponse
	register  *dto.RegistrationResponse
	err       error
	cleared   bool
	addedFrom string
}

func (m *cartServiceMock) Add(_ context.Context, req dto.AddToCartRequest) (*models.ShoppingCart, error) {
	m.addedFrom = req.ScheduleID
	return m.cart, m.err
}

func (m *cartServiceMock) Get(context.Context) (*models.ShoppingCart, error) { return m.cart, m.err }

func (m *cartServiceMock) Clear(context.Context) { m.cleared = true }

func (m *cartServiceMock) Validate(_ context.Context, req dto.CartValidateRequest) (*dto.CartValidationResponse, error) {
	m.validate = req
	return m.result, m.err
}

func (m *cartServiceMock) Register(context.Context) (*dto.RegistrationResponse, error) {
	return m.register, m.err
}

func TestCartHandlerAddAndClear(t *testing.T) {
	mock := &cartServiceMock{cart: &models.ShoppingCart{Schedule: sampleSchedule()}}
	handler := NewCartHandler(mock)

	c, w := newGinContext(http.MethodPost, "/cart", []byte(`{"scheduleId":"generated-1"}`))
	handler.Add(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "generated-1", mock.addedFrom)

	c, w = newGinContext(http.MethodDelete, "/cart", nil)
	handler.Clear(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, mock.cleared)
}

func TestCartHandlerValidateAcceptsEmptyBody(t *testing.T) {
	mock := &cartServiceMock{result: &dto.CartValidationResponse{Valid: true, Issues: []models.CartIssue{}}}
	handler := NewCartHandler(mock)

	c, w := newGinContext(http.MethodPost, "/cart/validate", nil)
	handler.Validate(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodPost, "/cart/validate", []byte(`{"completedCourseIds":["MATH101"]}`))
	handler.Validate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"MATH101"}, mock.validate.CompletedCourseIDs)

	c, w = newGinContext(http.MethodPost, "/cart/validate", []byte(`{"completedCourseIds":7}`))
	handler.Validate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartHandlerRegister(t *testing.T) {
	mock := &cartServiceMock{register: &dto.RegistrationResponse{Confirmation: "REG-1234ABCD"}}
	handler := NewCartHandler(mock)

	c, w := newGinContext(http.MethodPost, "/cart/register", nil)
	handler.Register(c)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.RegistrationResponse
	require.Nil(t, decodeEnvelope(t, w, &resp))
	assert.Equal(t, "REG-1234ABCD", resp.Confirmation)

	mock.err = appErrors.Clone(appErrors.ErrPreconditionFailed, "cart has blocking issues")
	c, w = newGinContext(http.MethodPost, "/cart/register", nil)
	handler.Register(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	mock.err = appErrors.Clone(appErrors.ErrNotFound, "cart is empty")
	c, w = newGinContext(http.MethodGet, "/cart", nil)
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
