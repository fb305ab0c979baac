package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/WinKyaw/InventSight-sub003/internal/middleware"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/entity"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/repository"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/service"
	"github.com/WinKyaw/InventSight-sub003/internal/transfer/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	router  *gin.Engine
	gm      *entity.User
	toMgr   *entity.User
	emp     *entity.User
	from    entity.LocationRef
	to      entity.LocationRef
	product *entity.Product
}

const testCompany = "company-1"

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, nil, zap.NewNop())
	handlers := NewHandlers(services, nil)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	transfers := api.Group("/transfers")
	{
		transfers.POST("", handlers.Transfer.Create)
		transfers.GET("", handlers.Transfer.List)
		transfers.GET("/pending-approval", handlers.Transfer.PendingApproval)
		transfers.GET("/export",
			middleware.RequireRole(entity.RoleCEO, entity.RoleGeneralManager),
			handlers.Transfer.Export)
		transfers.GET("/:id", handlers.Transfer.Get)
		transfers.GET("/:id/proof-of-delivery", handlers.Transfer.DownloadProofOfDelivery)
		transfers.POST("/:id/approve", handlers.Transfer.Approve)
		transfers.POST("/:id/reject", handlers.Transfer.Reject)
		transfers.POST("/:id/cancel", handlers.Transfer.Cancel)
		transfers.POST("/:id/ready", handlers.Transfer.MarkReady)
		transfers.POST("/:id/pickup", handlers.Transfer.Pickup)
		transfers.POST("/:id/deliver", handlers.Transfer.Deliver)
		transfers.POST("/:id/receive", handlers.Transfer.Receive)
	}
	inventory := api.Group("/inventory")
	{
		inventory.GET("/availability", handlers.Inventory.Availability)
	}

	fromLoc := testutil.SeedLocation(t, db, testCompany, entity.LocationTypeStore, "Store A")
	toLoc := testutil.SeedLocation(t, db, testCompany, entity.LocationTypeStore, "Store B")

	gm := testutil.SeedUser(t, db, testCompany, "GM", entity.RoleGeneralManager)
	toMgr := testutil.SeedUser(t, db, testCompany, "To Manager", entity.RoleStoreManager)
	testutil.SeedMembership(t, db, toMgr.ID, toLoc.Ref())
	emp := testutil.SeedUser(t, db, testCompany, "Employee", entity.RoleEmployee)

	product := testutil.SeedProduct(t, db, testCompany, "Widget", "SKU-001")
	testutil.SeedInventory(t, db, testCompany, fromLoc.Ref(), product.ID, 100, 0, 0)

	return &testEnv{
		db: db, router: router,
		gm: gm, toMgr: toMgr, emp: emp,
		from: fromLoc.Ref(), to: toLoc.Ref(), product: product,
	}
}

func (e *testEnv) token(u *entity.User) string {
	return testutil.GenerateTestToken(u.ID, u.CompanyID, u.Name, u.Role)
}

func (e *testEnv) createBody(qty int) map[string]interface{} {
	return map[string]interface{}{
		"productId":        e.product.ID,
		"fromLocationType": e.from.Type,
		"fromLocationId":   e.from.ID,
		"toLocationType":   e.to.Type,
		"toLocationId":     e.to.ID,
		"quantity":         qty,
	}
}

func (e *testEnv) create(t *testing.T, qty int) string {
	t.Helper()
	w := testutil.DoRequest(e.router, "POST", "/api/v1/transfers", e.createBody(qty), e.token(e.emp))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	request := data["request"].(map[string]interface{})
	return request["id"].(string)
}

func TestCreateTransferEndpoint(t *testing.T) {
	env := setupEnv(t)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/transfers", env.createBody(10), env.token(env.emp))
	assert.Equal(t, http.StatusCreated, w.Code)

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	request := data["request"].(map[string]interface{})
	assert.Equal(t, "PENDING", request["status"])
	assert.Equal(t, "MEDIUM", request["priority"])
	assert.Equal(t, float64(10), request["requestedQuantity"])
	assert.Equal(t, env.emp.ID, request["requestedByUserId"])
}

func TestCreateTransferRejectsBadBody(t *testing.T) {
	env := setupEnv(t)

	body := env.createBody(10)
	delete(body, "productId")
	w := testutil.DoRequest(env.router, "POST", "/api/v1/transfers", body, env.token(env.emp))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	env := setupEnv(t)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/transfers", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApproveForbiddenForEmployee(t *testing.T) {
	env := setupEnv(t)
	id := env.create(t, 10)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/transfers/"+id+"/approve",
		map[string]interface{}{"approvedQuantity": 10}, env.token(env.emp))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCrossTenantReturns404(t *testing.T) {
	env := setupEnv(t)
	id := env.create(t, 10)

	outsider := testutil.SeedUser(t, env.db, "company-2", "Outsider", entity.RoleGeneralManager)
	w := testutil.DoRequest(env.router, "GET", "/api/v1/transfers/"+id, nil, env.token(outsider))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDoubleRejectReturns409(t *testing.T) {
	env := setupEnv(t)
	id := env.create(t, 10)

	body := map[string]interface{}{"reason": "not needed"}
	w := testutil.DoRequest(env.router, "POST", "/api/v1/transfers/"+id+"/reject", body, env.token(env.gm))
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(env.router, "POST", "/api/v1/transfers/"+id+"/reject", body, env.token(env.gm))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestApproveBeyondAvailabilityReturns422(t *testing.T) {
	env := setupEnv(t)
	id := env.create(t, 100)

	env.db.Model(&entity.InventoryRecord{}).
		Where("company_id = ? AND location_id = ?", testCompany, env.from.ID).
		Update("reserved_for_sales", 50)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/transfers/"+id+"/approve",
		map[string]interface{}{"approvedQuantity": 80}, env.token(env.gm))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestListPaginationEnvelope(t *testing.T) {
	env := setupEnv(t)
	for i := 0; i < 5; i++ {
		env.create(t, 1)
	}

	w := testutil.DoRequest(env.router, "GET", "/api/v1/transfers?page=2&size=2", nil, env.token(env.gm))
	require.Equal(t, http.StatusOK, w.Code)

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	items := data["requests"].([]interface{})
	assert.Len(t, items, 2)

	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["currentPage"])
	assert.Equal(t, float64(2), pagination["pageSize"])
	assert.Equal(t, float64(5), pagination["totalElements"])
	assert.Equal(t, float64(3), pagination["totalPages"])
	assert.Equal(t, true, pagination["hasNext"])
	assert.Equal(t, true, pagination["hasPrevious"])
}

func TestListFiltersByStatus(t *testing.T) {
	env := setupEnv(t)
	id := env.create(t, 10)
	env.create(t, 20)

	w := testutil.DoRequest(env.router, "POST", "/api/v1/transfers/"+id+"/reject",
		map[string]interface{}{"reason": "no"}, env.token(env.gm))
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.DoRequest(env.router, "GET", "/api/v1/transfers?status=REJECTED", nil, env.token(env.gm))
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.ParseResponse(w)
	items := resp["data"].(map[string]interface{})["requests"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].(map[string]interface{})["id"])

	w = testutil.DoRequest(env.router, "GET", "/api/v1/transfers?status=BOGUS", nil, env.token(env.gm))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPendingApprovalEndpoint(t *testing.T) {
	env := setupEnv(t)
	env.create(t, 10)
	env.create(t, 20)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/transfers/pending-approval", nil, env.token(env.gm))
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["count"])

	// destination-side manager cannot approve, list is empty
	w = testutil.DoRequest(env.router, "GET", "/api/v1/transfers/pending-approval", nil, env.token(env.toMgr))
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["count"])
}

func TestGetIncludesAvailableActions(t *testing.T) {
	env := setupEnv(t)
	id := env.create(t, 10)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/transfers/"+id, nil, env.token(env.gm))
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	actions := data["availableActions"].([]interface{})
	assert.ElementsMatch(t, []interface{}{"approve", "reject", "cancel"}, actions)

	w = testutil.DoRequest(env.router, "GET", "/api/v1/transfers/"+id, nil, env.token(env.emp))
	require.Equal(t, http.StatusOK, w.Code)
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	actions = data["availableActions"].([]interface{})
	assert.ElementsMatch(t, []interface{}{"cancel"}, actions, "requester keeps cancel on own pending request")
}

func TestExportRequiresManagerRole(t *testing.T) {
	env := setupEnv(t)
	env.create(t, 10)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/transfers/export", nil, env.token(env.emp))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(env.router, "GET", "/api/v1/transfers/export", nil, env.token(env.gm))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestProofOfDeliveryDownloadWithoutStore(t *testing.T) {
	env := setupEnv(t)
	id := env.create(t, 10)

	// handlers in tests run without object storage configured
	w := testutil.DoRequest(env.router, "GET", "/api/v1/transfers/"+id+"/proof-of-delivery", nil, env.token(env.gm))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	env := setupEnv(t)

	path := fmt.Sprintf("/api/v1/inventory/availability?locationType=%s&locationId=%s&productId=%s",
		env.from.Type, env.from.ID, env.product.ID)
	w := testutil.DoRequest(env.router, "GET", path, nil, env.token(env.gm))
	require.Equal(t, http.StatusOK, w.Code)

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(100), data["currentQuantity"])
	assert.Equal(t, float64(100), data["available"])

	// employee without membership on the store is refused
	w = testutil.DoRequest(env.router, "GET", path, nil, env.token(env.emp))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(env.router, "GET", "/api/v1/inventory/availability?locationType=XXX&locationId=a&productId=b", nil, env.token(env.gm))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
