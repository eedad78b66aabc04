package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go-billing-api/internal/metrics"
	"go-billing-api/internal/model"
	"go-billing-api/internal/notification"
	"go-billing-api/internal/repository"
	"go-billing-api/internal/ws"
	"go-billing-api/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// amountScale matches the numeric(24,8) money columns.
const amountScale = 8

// CreateBillRequest keeps paid_amount and quantity raw so that JSON strings
// and non-integer quantities can be told apart from numbers.
type CreateBillRequest struct {
	CustomerEmail string            `json:"customer_email"`
	PaidAmount    json.RawMessage   `json:"paid_amount"`
	Items         []BillItemRequest `json:"items"`
}

type BillItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  json.RawMessage `json:"quantity"`
}

type BillReceipt struct {
	BillID        uuid.UUID       `json:"bill_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`

	// NotificationErr is set when the bill committed but the invoice could
	// not be queued. It wraps ErrNotificationFailure.
	NotificationErr error `json:"-"`
}

// BillQuery holds the raw list filters from the query string.
type BillQuery struct {
	ID            string
	CustomerEmail string
	MinAmount     string
	MaxAmount     string
	StartDate     string
	EndDate       string
}

type BillingService interface {
	CreateBill(ctx context.Context, req *CreateBillRequest) (*BillReceipt, error)
	ListBills(ctx context.Context, query BillQuery) ([]model.Bill, error)
	GetBill(ctx context.Context, id string) (*model.Bill, error)
	DeleteBill(ctx context.Context, id string) error
}

type billingService struct {
	productRepo  repository.ProductRepository
	billRepo     repository.BillRepository
	purchaseRepo repository.PurchaseRepository
	db           *gorm.DB
	dispatcher   notification.Dispatcher
	events       EventPublisher
}

func NewBillingService(
	pRepo repository.ProductRepository,
	bRepo repository.BillRepository,
	phRepo repository.PurchaseRepository,
	db *gorm.DB,
	dispatcher notification.Dispatcher,
	events EventPublisher,
) BillingService {
	return &billingService{
		productRepo:  pRepo,
		billRepo:     bRepo,
		purchaseRepo: phRepo,
		db:           db,
		dispatcher:   dispatcher,
		events:       publisherOrNoop(events),
	}
}

// CreateBill validates the request, then decrements stock and records the
// bill with its purchase rows in one transaction. Any failure after the
// transaction opens leaves the database untouched. The invoice is queued
// only after commit.
func (s *billingService) CreateBill(ctx context.Context, req *CreateBillRequest) (*BillReceipt, error) {
	log := logger.FromContext(ctx)

	if req.CustomerEmail == "" || len(req.Items) == 0 {
		return nil, s.reject(invalid("Customer email and items are required"))
	}
	if !ValidEmail(req.CustomerEmail) {
		return nil, s.reject(invalid("Invalid email format"))
	}
	paid, ok := parseAmount(req.PaidAmount)
	if !ok {
		return nil, s.reject(invalid("Paid amount must be a positive number"))
	}

	var bill model.Bill
	var touched []model.Product

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total := decimal.Zero
		purchases := make([]model.PurchaseHistory, 0, len(req.Items))

		for _, item := range req.Items {
			product, err := s.productRepo.FindForUpdate(tx, item.ProductID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Product %s not found", item.ProductID)
			}
			if err != nil {
				return fmt.Errorf("load product %s: %w", item.ProductID, err)
			}

			qty, ok := parseQuantity(item.Quantity)
			if !ok {
				return invalid("Quantity must be a positive integer")
			}
			if product.AvailableStock < qty {
				return newError(ErrInsufficientStock, "Not enough stock for %s", product.Name)
			}

			subtotal, tax := product.LineTotal(qty)
			total = total.Add(subtotal).Add(tax)

			decremented, err := s.productRepo.DecrementStock(tx, product.ProductID, qty)
			if err != nil {
				return fmt.Errorf("decrement stock %s: %w", product.ProductID, err)
			}
			if !decremented {
				return newError(ErrInsufficientStock, "Not enough stock for %s", product.Name)
			}
			product.AvailableStock -= qty
			touched = append(touched, *product)

			purchases = append(purchases, model.PurchaseHistory{
				CustomerEmail: req.CustomerEmail,
				ProductID:     product.ProductID,
				Quantity:      qty,
			})
		}

		// Compare before rounding; only the stored amounts are rounded.
		if paid.LessThan(total) {
			return newError(ErrPaymentInsufficient, "Paid amount is less than total bill")
		}

		bill = model.Bill{
			CustomerEmail: req.CustomerEmail,
			TotalAmount:   total.Round(amountScale),
			PaidAmount:    paid.Round(amountScale),
			BalanceAmount: paid.Sub(total).Round(amountScale),
		}
		if err := s.billRepo.Create(tx, &bill); err != nil {
			return fmt.Errorf("create bill: %w", err)
		}

		for i := range purchases {
			purchases[i].BillID = bill.ID
		}
		if err := s.purchaseRepo.CreateBatch(tx, purchases); err != nil {
			return fmt.Errorf("create purchase history: %w", err)
		}
		return nil
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, s.reject(svcErr)
		}
		metrics.ObserveBillFailure("internal")
		return nil, err
	}

	metrics.ObserveBillCreated()
	log.Info("bill created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("total_amount", bill.TotalAmount.String()),
		zap.Int("items", len(req.Items)),
	)

	receipt := &BillReceipt{
		BillID:        bill.ID,
		TotalAmount:   bill.TotalAmount,
		BalanceAmount: bill.BalanceAmount,
	}

	invoice := notification.Invoice{
		BillID:    bill.ID.String(),
		Recipient: bill.CustomerEmail,
		Body:      fmt.Sprintf("Total: %s, Balance: %s", bill.TotalAmount.String(), bill.BalanceAmount.String()),
	}
	if err := s.dispatcher.Dispatch(ctx, invoice); err != nil {
		metrics.ObserveNotification("queue_failed")
		log.Warn("invoice not queued", zap.String("bill_id", invoice.BillID), zap.Error(err))
		receipt.NotificationErr = &Error{Kind: ErrNotificationFailure, Message: "Bill created but the invoice email could not be queued"}
	} else {
		metrics.ObserveNotification("queued")
	}

	for _, p := range touched {
		s.events.Publish(stockEvent("stock_out", p, fmt.Sprintf("Sold from '%s'", p.Name)))
	}
	s.events.Publish(ws.Event{
		Type:   "bill",
		Action: "bill_created",
		Data: map[string]any{
			"bill_id":        bill.ID,
			"customer_email": bill.CustomerEmail,
			"total_amount":   bill.TotalAmount,
		},
	})

	return receipt, nil
}

func (s *billingService) reject(err *Error) error {
	metrics.ObserveBillFailure(failureReason(err))
	return err
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrPaymentInsufficient):
		return "payment_insufficient"
	default:
		return "internal"
	}
}

// ListBills returns an empty slice, not an error, when nothing matches.
func (s *billingService) ListBills(ctx context.Context, query BillQuery) ([]model.Bill, error) {
	var filter repository.BillFilter

	if query.ID != "" {
		id, err := uuid.Parse(query.ID)
		if err != nil {
			return nil, invalid("id must be a valid bill id")
		}
		filter.ID = &id
	}
	filter.CustomerEmail = query.CustomerEmail

	minAmount, maxAmount, ok := parseDecimalRange(query.MinAmount, query.MaxAmount)
	if !ok {
		return nil, invalid("min_amount and max_amount must be valid numbers.")
	}
	filter.MinAmount, filter.MaxAmount = minAmount, maxAmount

	start, end, ok := parseDateRange(query.StartDate, query.EndDate)
	if !ok {
		return nil, invalid("start_date and end_date must be YYYY-MM-DD or RFC3339 timestamps.")
	}
	filter.StartDate, filter.EndDate = start, end

	bills, err := s.billRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

// GetBill treats a malformed id the same as an unknown one.
func (s *billingService) GetBill(ctx context.Context, id string) (*model.Bill, error) {
	billID, err := uuid.Parse(id)
	if err != nil {
		return nil, notFound("Bill not found")
	}
	bill, err := s.billRepo.FindByID(ctx, billID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Bill not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get bill %s: %w", id, err)
	}
	return bill, nil
}

// DeleteBill removes the bill and its purchase rows. Stock is not restored.
func (s *billingService) DeleteBill(ctx context.Context, id string) error {
	billID, err := uuid.Parse(id)
	if err != nil {
		return notFound("Bill not found")
	}
	err = s.billRepo.Delete(ctx, billID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("Bill not found")
	}
	if err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}

	logger.FromContext(ctx).Info("bill deleted", zap.String("bill_id", id))
	s.events.Publish(ws.Event{Type: "bill", Action: "bill_deleted", Data: map[string]any{"bill_id": billID}})
	return nil
}
