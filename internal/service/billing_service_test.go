package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"go-billing-api/internal/metrics"
	"go-billing-api/internal/model"
	"go-billing-api/internal/notification"
	"go-billing-api/internal/repository"
	"go-billing-api/internal/service"
	"go-billing-api/internal/testdb"
	"go-billing-api/internal/ws"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []ws.Event
}

func (p *recordingPublisher) Publish(e ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Action)
	}
	return out
}

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(context.Context, notification.Invoice) error {
	return errors.New("redis: connection refused")
}

type billingFixture struct {
	db       *gorm.DB
	svc      service.BillingService
	queue    *notification.ChannelQueue
	events   *recordingPublisher
	products repository.ProductRepository
}

func newBillingFixture(t *testing.T, dispatcher notification.Dispatcher) *billingFixture {
	t.Helper()
	db := testdb.New(t)
	f := &billingFixture{
		db:       db,
		queue:    notification.NewChannelQueue(10),
		events:   &recordingPublisher{},
		products: repository.NewProductRepo(db),
	}
	if dispatcher == nil {
		dispatcher = f.queue
	}
	f.svc = service.NewBillingService(
		f.products,
		repository.NewBillRepo(db),
		repository.NewPurchaseRepo(db),
		db,
		dispatcher,
		f.events,
	)

	ctx := context.Background()
	for _, p := range []model.Product{
		{ProductID: "P1", Name: "Green Tea", AvailableStock: 5, Price: dec("100"), TaxPercentage: dec("10")},
		{ProductID: "P2", Name: "Black Tea", AvailableStock: 20, Price: dec("40"), TaxPercentage: dec("5")},
	} {
		p := p
		require.NoError(t, f.products.Create(ctx, &p))
	}
	return f
}

func (f *billingFixture) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.products.FindByProductID(context.Background(), productID)
	require.NoError(t, err)
	return p.AvailableStock
}

func (f *billingFixture) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Count(&n).Error)
	return n
}

func item(productID, quantity string) service.BillItemRequest {
	return service.BillItemRequest{ProductID: productID, Quantity: json.RawMessage(quantity)}
}

func billRequest(paid string, items ...service.BillItemRequest) *service.CreateBillRequest {
	return &service.CreateBillRequest{
		CustomerEmail: "a@b.co",
		PaidAmount:    json.RawMessage(paid),
		Items:         items,
	}
}

func TestCreateBillCommitsAndQueuesInvoice(t *testing.T) {
	f := newBillingFixture(t, nil)
	ctx := context.Background()

	receipt, err := f.svc.CreateBill(ctx, billRequest("115", item("P1", "1")))
	require.NoError(t, err)
	assert.True(t, receipt.TotalAmount.Equal(dec("110")))
	assert.True(t, receipt.BalanceAmount.Equal(dec("5")))
	assert.NoError(t, receipt.NotificationErr)

	assert.Equal(t, 4, f.stock(t, "P1"))
	assert.EqualValues(t, 1, f.count(t, &model.Bill{}))

	var purchases []model.PurchaseHistory
	require.NoError(t, f.db.Find(&purchases).Error)
	require.Len(t, purchases, 1)
	assert.Equal(t, "P1", purchases[0].ProductID)
	assert.Equal(t, 1, purchases[0].Quantity)
	assert.Equal(t, receipt.BillID, purchases[0].BillID)
	assert.Equal(t, "a@b.co", purchases[0].CustomerEmail)

	require.Equal(t, 1, f.queue.Len())
	invoice, err := f.queue.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", invoice.Recipient)
	assert.Equal(t, "Total: 110, Balance: 5", invoice.Body)
	assert.Equal(t, receipt.BillID.String(), invoice.BillID)

	assert.Equal(t, []string{"stock_out", "bill_created"}, f.events.actions())
}

func TestCreateBillSumsMultipleItems(t *testing.T) {
	f := newBillingFixture(t, nil)

	// 2*100*1.10 + 3*40*1.05 = 220 + 126
	receipt, err := f.svc.CreateBill(context.Background(),
		billRequest("400", item("P1", "2"), item("P2", "3")))
	require.NoError(t, err)
	assert.True(t, receipt.TotalAmount.Equal(dec("346")), receipt.TotalAmount.String())
	assert.True(t, receipt.BalanceAmount.Equal(dec("54")))
	assert.Equal(t, 3, f.stock(t, "P1"))
	assert.Equal(t, 17, f.stock(t, "P2"))
	assert.EqualValues(t, 2, f.count(t, &model.PurchaseHistory{}))
}

func TestCreateBillInsufficientStock(t *testing.T) {
	f := newBillingFixture(t, nil)

	_, err := f.svc.CreateBill(context.Background(), billRequest("5000", item("P1", "10")))
	require.ErrorIs(t, err, service.ErrInsufficientStock)
	assert.Equal(t, "Not enough stock for Green Tea", err.Error())
	assert.Equal(t, 5, f.stock(t, "P1"))
	assert.EqualValues(t, 0, f.count(t, &model.Bill{}))
	assert.Equal(t, 0, f.queue.Len())
}

func TestCreateBillPaymentInsufficientRollsBack(t *testing.T) {
	f := newBillingFixture(t, nil)
	rejected := metrics.BillFailures.WithLabelValues("payment_insufficient")
	before := testutil.ToFloat64(rejected)

	_, err := f.svc.CreateBill(context.Background(), billRequest("50", item("P1", "1")))
	require.ErrorIs(t, err, service.ErrPaymentInsufficient)
	assert.Equal(t, before+1, testutil.ToFloat64(rejected))
	assert.Equal(t, "Paid amount is less than total bill", err.Error())
	assert.Equal(t, 5, f.stock(t, "P1"))
	assert.EqualValues(t, 0, f.count(t, &model.Bill{}))
	assert.EqualValues(t, 0, f.count(t, &model.PurchaseHistory{}))
	assert.Empty(t, f.events.actions())
}

func TestCreateBillLaterItemFailureRestoresEarlierItems(t *testing.T) {
	f := newBillingFixture(t, nil)

	_, err := f.svc.CreateBill(context.Background(),
		billRequest("5000", item("P2", "2"), item("P1", "10")))
	require.ErrorIs(t, err, service.ErrInsufficientStock)
	assert.Equal(t, 20, f.stock(t, "P2"))
	assert.Equal(t, 5, f.stock(t, "P1"))

	_, err = f.svc.CreateBill(context.Background(),
		billRequest("5000", item("P2", "2"), item("NOPE", "1")))
	require.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, "Product NOPE not found", err.Error())
	assert.Equal(t, 20, f.stock(t, "P2"))
}

func TestCreateBillConcurrentCallsDoNotOversell(t *testing.T) {
	f := newBillingFixture(t, nil)
	const buyers = 8
	created := metrics.BillsCreated
	before := testutil.ToFloat64(created)

	var wg sync.WaitGroup
	errs := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateBill(context.Background(), billRequest("1000", item("P1", "2")))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, service.ErrInsufficientStock)
	}

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 5, succeeded*2+f.stock(t, "P1"))
	assert.EqualValues(t, succeeded, f.count(t, &model.Bill{}))
	assert.EqualValues(t, succeeded, f.count(t, &model.PurchaseHistory{}))
	assert.Equal(t, before+float64(succeeded), testutil.ToFloat64(created))
}

func TestCreateBillComparesPaymentWithUnroundedTotal(t *testing.T) {
	f := newBillingFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.products.Create(ctx, &model.Product{
		ProductID: "CENT", Name: "Sticker", AvailableStock: 3,
		Price: dec("0.01"), TaxPercentage: dec("33.33333333"),
	}))

	// exact total is 0.0133333333333, stored as 0.01333333
	_, err := f.svc.CreateBill(ctx, billRequest("0.01333333", item("CENT", "1")))
	require.ErrorIs(t, err, service.ErrPaymentInsufficient)
	assert.Equal(t, 3, f.stock(t, "CENT"))

	receipt, err := f.svc.CreateBill(ctx, billRequest("0.0134", item("CENT", "1")))
	require.NoError(t, err)
	assert.True(t, receipt.TotalAmount.Equal(dec("0.01333333")), receipt.TotalAmount.String())
	assert.True(t, receipt.BalanceAmount.Equal(dec("0.00006667")), receipt.BalanceAmount.String())

	bill, err := f.svc.GetBill(ctx, receipt.BillID.String())
	require.NoError(t, err)
	assert.True(t, bill.TotalAmount.Equal(receipt.TotalAmount))
}

func TestCreateBillRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		req  *service.CreateBillRequest
		kind error
		msg  string
	}{
		{
			name: "missing email",
			req:  &service.CreateBillRequest{PaidAmount: json.RawMessage("100"), Items: []service.BillItemRequest{item("P1", "1")}},
			kind: service.ErrInvalidRequest,
			msg:  "Customer email and items are required",
		},
		{
			name: "empty items",
			req:  &service.CreateBillRequest{CustomerEmail: "a@b.co", PaidAmount: json.RawMessage("100")},
			kind: service.ErrInvalidRequest,
			msg:  "Customer email and items are required",
		},
		{
			name: "malformed email",
			req:  &service.CreateBillRequest{CustomerEmail: "not-an-email", PaidAmount: json.RawMessage("100"), Items: []service.BillItemRequest{item("P1", "1")}},
			kind: service.ErrInvalidRequest,
			msg:  "Invalid email format",
		},
		{name: "paid amount as string", req: billRequest(`"100"`, item("P1", "1")), kind: service.ErrInvalidRequest, msg: "Paid amount must be a positive number"},
		{name: "negative paid amount", req: billRequest("-1", item("P1", "1")), kind: service.ErrInvalidRequest, msg: "Paid amount must be a positive number"},
		{name: "missing paid amount", req: billRequest("", item("P1", "1")), kind: service.ErrInvalidRequest, msg: "Paid amount must be a positive number"},
		{name: "zero quantity", req: billRequest("100", item("P1", "0")), kind: service.ErrInvalidRequest, msg: "Quantity must be a positive integer"},
		{name: "fractional quantity", req: billRequest("100", item("P1", "2.0")), kind: service.ErrInvalidRequest, msg: "Quantity must be a positive integer"},
		{name: "quantity as string", req: billRequest("100", item("P1", `"2"`)), kind: service.ErrInvalidRequest, msg: "Quantity must be a positive integer"},
		{name: "unknown product", req: billRequest("100", item("X9", "1")), kind: service.ErrNotFound, msg: "Product X9 not found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newBillingFixture(t, nil)
			_, err := f.svc.CreateBill(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.kind)
			assert.Equal(t, tc.msg, err.Error())
			assert.Equal(t, 5, f.stock(t, "P1"))
			assert.EqualValues(t, 0, f.count(t, &model.Bill{}))
		})
	}
}

func TestCreateBillKeepsBillWhenInvoiceCannotBeQueued(t *testing.T) {
	f := newBillingFixture(t, failingDispatcher{})

	receipt, err := f.svc.CreateBill(context.Background(), billRequest("115", item("P1", "1")))
	require.NoError(t, err)
	require.Error(t, receipt.NotificationErr)
	assert.ErrorIs(t, receipt.NotificationErr, service.ErrNotificationFailure)
	assert.EqualValues(t, 1, f.count(t, &model.Bill{}))
	assert.Equal(t, 4, f.stock(t, "P1"))
}

func TestBillLookupAndDelete(t *testing.T) {
	f := newBillingFixture(t, nil)
	ctx := context.Background()

	receipt, err := f.svc.CreateBill(ctx, billRequest("115", item("P1", "1")))
	require.NoError(t, err)

	bill, err := f.svc.GetBill(ctx, receipt.BillID.String())
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", bill.CustomerEmail)

	_, err = f.svc.GetBill(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, service.ErrNotFound)

	bills, err := f.svc.ListBills(ctx, service.BillQuery{CustomerEmail: "A@B.CO"})
	require.NoError(t, err)
	assert.Len(t, bills, 1)

	bills, err = f.svc.ListBills(ctx, service.BillQuery{MinAmount: "200", MaxAmount: "300"})
	require.NoError(t, err)
	assert.NotNil(t, bills)
	assert.Empty(t, bills)

	_, err = f.svc.ListBills(ctx, service.BillQuery{ID: "abc"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
	_, err = f.svc.ListBills(ctx, service.BillQuery{MinAmount: "x", MaxAmount: "10"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)
	_, err = f.svc.ListBills(ctx, service.BillQuery{StartDate: "yesterday", EndDate: "2030-01-01"})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	require.NoError(t, f.svc.DeleteBill(ctx, receipt.BillID.String()))
	assert.EqualValues(t, 0, f.count(t, &model.PurchaseHistory{}))
	assert.Equal(t, 4, f.stock(t, "P1"), "deleting a bill does not restock")
	assert.ErrorIs(t, f.svc.DeleteBill(ctx, receipt.BillID.String()), service.ErrNotFound)
	assert.Contains(t, f.events.actions(), "bill_deleted")
}

func TestPurchaseHistory(t *testing.T) {
	f := newBillingFixture(t, nil)
	ctx := context.Background()
	purchases := service.NewPurchaseService(repository.NewPurchaseRepo(f.db))

	_, err := purchases.History(ctx, "bad")
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	_, err = purchases.History(ctx, "a@b.co")
	require.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, "No purchase history found", err.Error())

	_, err = f.svc.CreateBill(ctx, billRequest("1000", item("P1", "1"), item("P2", "2")))
	require.NoError(t, err)

	rows, err := purchases.History(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReportSummary(t *testing.T) {
	f := newBillingFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.CreateBill(ctx, billRequest("115", item("P1", "1")))
	require.NoError(t, err)

	reports := service.NewReportService(repository.NewReportRepo(f.db), 10)
	summary, err := reports.GetSummary(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, service.DefaultReportDays, summary.PeriodDays)
	assert.EqualValues(t, 2, summary.Catalog.TotalProducts)
	assert.EqualValues(t, 1, summary.Catalog.LowStockCount)
	assert.EqualValues(t, 1, summary.Sales.BillCount)
	assert.True(t, summary.Sales.Revenue.Equal(dec("110")))
	assert.True(t, summary.Sales.Collected.Equal(dec("115")))
}

func TestValidEmail(t *testing.T) {
	cases := map[string]bool{
		"a@b.co":             true,
		"first.last@shop.io": true,
		"a@b":                false,
		"ab.co":              false,
		"a b@c.de":           false,
		"a@b.c@d":            false,
		"a@b.co trailing":    false,
		"":                   false,
	}
	for email, want := range cases {
		assert.Equal(t, want, service.ValidEmail(email), email)
	}
}
