package services_test

import (
	"context"
	"errors"
	"testing"

	"z7shop/internal/models"
	"z7shop/internal/repositories"
	"z7shop/internal/services"
	"z7shop/pkg/mailer"
	"z7shop/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newOrderService(withEvents bool) (*services.OrderService, *MockOrderRepository, *MockMailer, *MockPublisher) {
	orders, mail, events := new(MockOrderRepository), new(MockMailer), new(MockPublisher)
	var pub services.EventPublisher
	if withEvents {
		pub = events
	}
	return services.NewOrderService(orders, mail, pub, "orders@suckapunch.com", "support@suckapunch.com"), orders, mail, events
}

func TestGetOrder_Access(t *testing.T) {
	ctx := context.Background()
	owner := uint(1)
	order := &models.Order{ID: 10, UserID: &owner, OrderNumber: "SP-10"}
	guest := &models.Order{ID: 11, OrderNumber: "SP-11"}

	svc, repo, _, _ := newOrderService(false)
	repo.On("GetByID", ctx, uint(10)).Return(order, nil)
	repo.On("GetByID", ctx, uint(11)).Return(guest, nil)
	repo.On("GetByID", ctx, uint(12)).Return(nil, notFound("order"))

	got, err := svc.GetOrder(ctx, &models.User{ID: 1}, 10)
	require.NoError(t, err)
	assert.Equal(t, order, got)

	_, err = svc.GetOrder(ctx, &models.User{ID: 2}, 10)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = svc.GetOrder(ctx, &models.User{ID: 2}, 11)
	assert.ErrorIs(t, err, services.ErrForbidden)

	got, err = svc.GetOrder(ctx, &models.User{ID: 2, IsAdmin: true}, 10)
	require.NoError(t, err)
	assert.Equal(t, order, got)

	_, err = svc.GetOrder(ctx, &models.User{ID: 1}, 12)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestListOrders_Paging(t *testing.T) {
	ctx := context.Background()
	shipped := models.OrderStatusShipped

	svc, repo, _, _ := newOrderService(false)
	repo.On("List", ctx, repositories.OrderFilter{Limit: 10, Offset: 0}).Return([]models.Order{}, int64(0), nil).Once()
	repo.On("List", ctx, repositories.OrderFilter{Status: &shipped, Limit: 100, Offset: 200}).
		Return([]models.Order{{ID: 1}}, int64(201), nil).Once()

	page, err := svc.ListOrders(ctx, services.OrderQuery{Page: 0, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 0, page.TotalPages)

	page, err = svc.ListOrders(ctx, services.OrderQuery{Page: 3, Limit: 500, Status: "shipped"})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(201), page.Total)
	repo.AssertExpectations(t)
}

func TestListOrders_InvalidStatus(t *testing.T) {
	svc, repo, _, _ := newOrderService(false)
	_, err := svc.ListOrders(context.Background(), services.OrderQuery{Status: "lost"})
	assert.ErrorIs(t, err, services.ErrInvalidStatus)
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	svc, repo, _, _ := newOrderService(false)
	ctx := context.Background()

	err := svc.UpdateStatus(ctx, 1, services.StatusUpdate{Status: "teleported"})
	assert.ErrorIs(t, err, services.ErrInvalidStatus)

	bad := models.PaymentStatus("maybe")
	err = svc.UpdateStatus(ctx, 1, services.StatusUpdate{Status: models.OrderStatusShipped, PaymentStatus: &bad})
	assert.ErrorIs(t, err, services.ErrInvalidPaymentState)

	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	svc, repo, _, _ := newOrderService(false)
	ctx := context.Background()
	repo.On("UpdateStatus", ctx, uint(5), models.OrderStatusShipped, (*models.PaymentStatus)(nil)).
		Return(notFound("order")).Once()

	err := svc.UpdateStatus(ctx, 5, services.StatusUpdate{Status: models.OrderStatusShipped})
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
}

func TestUpdateStatus_NotifiesAccountHolder(t *testing.T) {
	svc, repo, mail, events := newOrderService(true)
	ctx := context.Background()
	paid := models.PaymentStatusPaid
	uid := uint(3)

	repo.On("UpdateStatus", ctx, uint(5), models.OrderStatusShipped, &paid).Return(nil).Once()
	repo.On("GetByID", ctx, uint(5)).Return(&models.Order{
		ID: 5, UserID: &uid, OrderNumber: "SP-5", Status: models.OrderStatusShipped,
		User:     &models.User{ID: 3, Email: "account@example.com"},
		Shipping: &models.OrderShipping{RecipientName: "Jane", Email: "ship@example.com"},
	}, nil).Once()
	mail.On("Send", ctx, mock.MatchedBy(func(msg mailer.Message) bool {
		return msg.Subject == "Order #SP-5 Status Update: SHIPPED" &&
			assert.ObjectsAreEqual([]string{"account@example.com"}, msg.To)
	})).Return("email-1", nil).Once()
	events.On("PublishOrderEvent", mock.MatchedBy(func(e rabbitmq.OrderEvent) bool {
		return e.Type == rabbitmq.EventOrderStatusUpdated && e.Status == "shipped"
	})).Return(nil).Once()

	err := svc.UpdateStatus(ctx, 5, services.StatusUpdate{Status: models.OrderStatusShipped, PaymentStatus: &paid, SendNotification: true})
	require.NoError(t, err)
	mail.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestUpdateStatus_GuestOrderUsesShippingEmail(t *testing.T) {
	svc, repo, mail, _ := newOrderService(false)
	ctx := context.Background()

	repo.On("UpdateStatus", ctx, uint(6), models.OrderStatusDelivered, (*models.PaymentStatus)(nil)).Return(nil).Once()
	repo.On("GetByID", ctx, uint(6)).Return(&models.Order{
		ID: 6, OrderNumber: "SP-6", Status: models.OrderStatusDelivered,
		Shipping: &models.OrderShipping{RecipientName: "Guest", Email: "guest@example.com"},
	}, nil).Once()
	mail.On("Send", ctx, mock.MatchedBy(func(msg mailer.Message) bool {
		return assert.ObjectsAreEqual([]string{"guest@example.com"}, msg.To)
	})).Return("", errors.New("resend down")).Once()

	// Email failure is logged, not returned.
	err := svc.UpdateStatus(ctx, 6, services.StatusUpdate{Status: models.OrderStatusDelivered, SendNotification: true})
	require.NoError(t, err)
	mail.AssertExpectations(t)
}

func TestUpdateStatus_WithoutNotification(t *testing.T) {
	svc, repo, mail, _ := newOrderService(false)
	ctx := context.Background()
	repo.On("UpdateStatus", ctx, uint(7), models.OrderStatusProcessing, (*models.PaymentStatus)(nil)).Return(nil).Once()

	require.NoError(t, svc.UpdateStatus(ctx, 7, services.StatusUpdate{Status: models.OrderStatusProcessing}))
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
