package service

import (
	"context"
	"errors"
	"testing"

	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/repository"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fixture 一套公司基础数据：GM、双边门店经理、员工申请人、两个门店、商品和源库存
type fixture struct {
	db       *gorm.DB
	svc      *Services
	repos    *repository.Repositories
	gm       *entity.User
	fromMgr  *entity.User
	toMgr    *entity.User
	employee *entity.User
	from     entity.LocationRef
	to       entity.LocationRef
	product  *entity.Product
}

const testCompany = "company-1"

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewServices(db, repos, nil, zap.NewNop())

	fromLoc := testutil.SeedLocation(t, db, testCompany, entity.LocationTypeStore, "Store A")
	toLoc := testutil.SeedLocation(t, db, testCompany, entity.LocationTypeStore, "Store B")
	from := fromLoc.Ref()
	to := toLoc.Ref()

	gm := testutil.SeedUser(t, db, testCompany, "GM", entity.RoleGeneralManager)
	fromMgr := testutil.SeedUser(t, db, testCompany, "From Manager", entity.RoleStoreManager)
	testutil.SeedMembership(t, db, fromMgr.ID, from)
	toMgr := testutil.SeedUser(t, db, testCompany, "To Manager", entity.RoleStoreManager)
	testutil.SeedMembership(t, db, toMgr.ID, to)
	employee := testutil.SeedUser(t, db, testCompany, "Employee", entity.RoleEmployee)
	testutil.SeedMembership(t, db, employee.ID, from)

	product := testutil.SeedProduct(t, db, testCompany, "Widget", "SKU-001")
	testutil.SeedInventory(t, db, testCompany, from, product.ID, 100, 0, 0)

	return &fixture{
		db: db, svc: svc, repos: repos,
		gm: gm, fromMgr: fromMgr, toMgr: toMgr, employee: employee,
		from: from, to: to, product: product,
	}
}

func (f *fixture) createReq(qty int) CreateTransferReq {
	return CreateTransferReq{
		ProductID:        f.product.ID,
		FromLocationType: f.from.Type,
		FromLocationID:   f.from.ID,
		ToLocationType:   f.to.Type,
		ToLocationID:     f.to.ID,
		Quantity:         qty,
	}
}

func (f *fixture) inventory(t *testing.T, loc entity.LocationRef) *entity.InventoryRecord {
	t.Helper()
	rec, err := f.repos.Inventory.Find(context.Background(), testCompany, loc, f.product.ID)
	require.NoError(t, err)
	return rec
}

func TestFullLifecycle(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	created, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(80))
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusPending, created.Request.Status)
	assert.Equal(t, "Widget", created.Request.ProductName)
	assert.Equal(t, "SKU-001", created.Request.ProductSKU)
	id := created.Request.ID

	// approve reserves at source without touching physical stock
	approved, err := f.svc.Transfer.Approve(ctx, f.gm.ID, id, ApproveReq{ApprovedQuantity: 80})
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusApproved, approved.Request.Status)
	inv := f.inventory(t, f.from)
	assert.Equal(t, 100, inv.CurrentQuantity)
	assert.Equal(t, 80, inv.ReservedForTransfers)

	_, err = f.svc.Transfer.MarkReady(ctx, f.fromMgr.ID, id, MarkReadyReq{PackedBy: "packer"})
	require.NoError(t, err)

	// pickup moves physical stock out and consumes the reservation
	picked, err := f.svc.Transfer.Pickup(ctx, f.fromMgr.ID, id, PickupReq{CarrierName: "DHL"})
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusInTransit, picked.Request.Status)
	assert.NotEmpty(t, picked.DeliveryQRCode)
	inv = f.inventory(t, f.from)
	assert.Equal(t, 20, inv.CurrentQuantity)
	assert.Equal(t, 0, inv.ReservedForTransfers)

	_, err = f.svc.Transfer.Deliver(ctx, f.toMgr.ID, id, DeliverReq{ConditionOnArrival: "GOOD"})
	require.NoError(t, err)

	// receive credits good units only, shortfall stays unreconciled
	received, err := f.svc.Transfer.Receive(ctx, f.toMgr.ID, id, ReceiveReq{
		ReceivedQuantity: 75,
		DamagedQuantity:  5,
		ReceiverName:     "To Manager",
		DeliveryQRCode:   picked.DeliveryQRCode,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusCompleted, received.Request.Status)
	assert.Equal(t, 5, received.Request.UnreconciledQuantity)
	assert.Contains(t, received.Request.ReceiptNotes, "unreconciled loss")

	destInv := f.inventory(t, f.to)
	assert.Equal(t, 70, destInv.CurrentQuantity)

	// terminal request offers no further actions
	final, err := f.svc.Transfer.Get(ctx, f.gm.ID, id)
	require.NoError(t, err)
	assert.Empty(t, final.AvailableActions)
}

func TestApproveInsufficientStock(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	created, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(100))
	require.NoError(t, err)

	_, err = f.svc.Transfer.Approve(ctx, f.gm.ID, created.Request.ID, ApproveReq{ApprovedQuantity: 150})
	assert.True(t, IsValidationError(err), "approving above requested quantity is a validation error")

	// sales reservations shrink what transfers may take
	f.db.Model(&entity.InventoryRecord{}).
		Where("company_id = ? AND location_id = ?", testCompany, f.from.ID).
		Update("reserved_for_sales", 30)

	_, err = f.svc.Transfer.Approve(ctx, f.gm.ID, created.Request.ID, ApproveReq{ApprovedQuantity: 80})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// failed approval leaves no residue
	got, err := f.svc.Transfer.Get(ctx, f.gm.ID, created.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusPending, got.Request.Status)
	assert.Equal(t, 0, f.inventory(t, f.from).ReservedForTransfers)
}

func TestOpenReservationsGateFurtherApprovals(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	first, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(70))
	require.NoError(t, err)
	_, err = f.svc.Transfer.Approve(ctx, f.gm.ID, first.Request.ID, ApproveReq{ApprovedQuantity: 70})
	require.NoError(t, err)

	available, err := f.svc.Availability.Available(ctx, testCompany, f.from, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, available)

	second, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(50))
	require.NoError(t, err)
	_, err = f.svc.Transfer.Approve(ctx, f.gm.ID, second.Request.ID, ApproveReq{ApprovedQuantity: 50})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = f.svc.Transfer.Approve(ctx, f.gm.ID, second.Request.ID, ApproveReq{ApprovedQuantity: 30})
	require.NoError(t, err)
}

func TestRejectTwiceIsStateConflict(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	created, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(10))
	require.NoError(t, err)

	_, err = f.svc.Transfer.Reject(ctx, f.gm.ID, created.Request.ID, RejectReq{Reason: "not needed"})
	require.NoError(t, err)

	_, err = f.svc.Transfer.Reject(ctx, f.gm.ID, created.Request.ID, RejectReq{Reason: "again"})
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestCancelReleasesReservation(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	created, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(40))
	require.NoError(t, err)
	id := created.Request.ID

	_, err = f.svc.Transfer.Approve(ctx, f.gm.ID, id, ApproveReq{ApprovedQuantity: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, f.inventory(t, f.from).ReservedForTransfers)

	cancelled, err := f.svc.Transfer.Cancel(ctx, f.gm.ID, id, CancelReq{Reason: "plans changed"})
	require.NoError(t, err)
	assert.Equal(t, entity.TransferStatusCancelled, cancelled.Request.Status)

	inv := f.inventory(t, f.from)
	assert.Equal(t, 0, inv.ReservedForTransfers)
	assert.Equal(t, 100, inv.CurrentQuantity)
}

func TestCancelAfterPickupForbiddenByState(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	created, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(20))
	require.NoError(t, err)
	id := created.Request.ID

	_, err = f.svc.Transfer.Approve(ctx, f.gm.ID, id, ApproveReq{ApprovedQuantity: 20})
	require.NoError(t, err)
	_, err = f.svc.Transfer.MarkReady(ctx, f.fromMgr.ID, id, MarkReadyReq{PackedBy: "packer"})
	require.NoError(t, err)
	_, err = f.svc.Transfer.Pickup(ctx, f.fromMgr.ID, id, PickupReq{CarrierName: "DHL"})
	require.NoError(t, err)

	_, err = f.svc.Transfer.Cancel(ctx, f.gm.ID, id, CancelReq{})
	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestEmployeeCannotApproveOwnRequest(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	created, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(10))
	require.NoError(t, err)

	_, err = f.svc.Transfer.Approve(ctx, f.employee.ID, created.Request.ID, ApproveReq{ApprovedQuantity: 10})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCrossTenantLooksLikeNotFound(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	created, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(10))
	require.NoError(t, err)

	outsider := testutil.SeedUser(t, f.db, "company-2", "Other GM", entity.RoleGeneralManager)

	_, err = f.svc.Transfer.Get(ctx, outsider.ID, created.Request.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Transfer.Approve(ctx, outsider.ID, created.Request.ID, ApproveReq{ApprovedQuantity: 10})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReceiveValidation(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	created, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(30))
	require.NoError(t, err)
	id := created.Request.ID

	_, err = f.svc.Transfer.Approve(ctx, f.gm.ID, id, ApproveReq{ApprovedQuantity: 30})
	require.NoError(t, err)
	_, err = f.svc.Transfer.MarkReady(ctx, f.fromMgr.ID, id, MarkReadyReq{PackedBy: "packer"})
	require.NoError(t, err)
	picked, err := f.svc.Transfer.Pickup(ctx, f.fromMgr.ID, id, PickupReq{CarrierName: "DHL"})
	require.NoError(t, err)
	_, err = f.svc.Transfer.Deliver(ctx, f.toMgr.ID, id, DeliverReq{})
	require.NoError(t, err)

	_, err = f.svc.Transfer.Receive(ctx, f.toMgr.ID, id, ReceiveReq{
		ReceivedQuantity: 31, ReceiverName: "To Manager",
	})
	assert.True(t, IsValidationError(err), "received above approved must fail")

	_, err = f.svc.Transfer.Receive(ctx, f.toMgr.ID, id, ReceiveReq{
		ReceivedQuantity: 10, DamagedQuantity: 11, ReceiverName: "To Manager",
	})
	assert.True(t, IsValidationError(err), "damaged above received must fail")

	_, err = f.svc.Transfer.Receive(ctx, f.toMgr.ID, id, ReceiveReq{
		ReceivedQuantity: 30, ReceiverName: "To Manager", DeliveryQRCode: "bogus",
	})
	assert.True(t, IsValidationError(err), "wrong verification code must fail")

	_, err = f.svc.Transfer.Receive(ctx, f.toMgr.ID, id, ReceiveReq{
		ReceivedQuantity: 30, ReceiverName: "To Manager", DeliveryQRCode: picked.DeliveryQRCode,
	})
	require.NoError(t, err)
}

func TestConcurrentApproveSingleWinner(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	created, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(10))
	require.NoError(t, err)
	id := created.Request.ID

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.svc.Transfer.Approve(ctx, f.gm.ID, id, ApproveReq{ApprovedQuantity: 10})
			results <- err
		}()
	}

	var failures int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			assert.ErrorIs(t, err, ErrStateConflict)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one approval must win")
	assert.Equal(t, 10, f.inventory(t, f.from).ReservedForTransfers, "reservation must not double-apply")
}

func TestConcurrentApprovalsCannotDoubleReserve(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	// two distinct requests against the same 100-unit source row,
	// 60 each: together they overcommit, alone each fits
	first, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(60))
	require.NoError(t, err)
	second, err := f.svc.Transfer.Create(ctx, f.employee.ID, f.createReq(60))
	require.NoError(t, err)

	results := make(chan error, 2)
	for _, id := range []string{first.Request.ID, second.Request.ID} {
		id := id
		go func() {
			_, err := f.svc.Transfer.Approve(ctx, f.gm.ID, id, ApproveReq{ApprovedQuantity: 60})
			results <- err
		}()
	}

	var approved, insufficient int
	for i := 0; i < 2; i++ {
		if err := <-results; err == nil {
			approved++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientStock)
			insufficient++
		}
	}
	assert.Equal(t, 1, approved, "exactly one approval may take the stock")
	assert.Equal(t, 1, insufficient)

	inv := f.inventory(t, f.from)
	assert.Equal(t, 60, inv.ReservedForTransfers, "reservation must not exceed a single grant")
	assert.Equal(t, 100, inv.CurrentQuantity)
}

func TestPendingApprovalOrderingAndScope(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	mk := func(priority string) string {
		req := f.createReq(5)
		req.Priority = priority
		created, err := f.svc.Transfer.Create(ctx, f.employee.ID, req)
		require.NoError(t, err)
		return created.Request.ID
	}
	low := mk(entity.TransferPriorityLow)
	urgent := mk(entity.TransferPriorityUrgent)
	high := mk(entity.TransferPriorityHigh)

	items, err := f.svc.Transfer.PendingApproval(ctx, f.gm.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, urgent, items[0].ID)
	assert.Equal(t, high, items[1].ID)
	assert.Equal(t, low, items[2].ID)

	// destination-side manager cannot approve, sees nothing
	items, err = f.svc.Transfer.PendingApproval(ctx, f.toMgr.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	// source-side manager sees all three
	items, err = f.svc.Transfer.PendingApproval(ctx, f.fromMgr.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestCreateValidation(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	req := f.createReq(0)
	_, err := f.svc.Transfer.Create(ctx, f.employee.ID, req)
	assert.True(t, IsValidationError(err))

	req = f.createReq(5)
	req.ToLocationID = req.FromLocationID
	req.ToLocationType = req.FromLocationType
	_, err = f.svc.Transfer.Create(ctx, f.employee.ID, req)
	assert.True(t, IsValidationError(err))

	req = f.createReq(5)
	req.FromLocationID = "not-ours"
	_, err = f.svc.Transfer.Create(ctx, f.employee.ID, req)
	assert.True(t, IsValidationError(err))

	req = f.createReq(5)
	req.ProductID = "missing"
	_, err = f.svc.Transfer.Create(ctx, f.employee.ID, req)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAvailabilityMissingLedgerRowIsZero(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	available, err := f.svc.Availability.Available(ctx, testCompany, f.to, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, available)
}

func TestVersionConflictMapsToStateConflict(t *testing.T) {
	f := setupFixture(t)

	err := f.svc.Transfer.mapTxError(repository.ErrVersionConflict)
	assert.ErrorIs(t, err, ErrStateConflict)

	other := errors.New("boom")
	assert.Equal(t, other, f.svc.Transfer.mapTxError(other))
}
