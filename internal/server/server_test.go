package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stellapay/stellapay/internal/audit"
	"github.com/stellapay/stellapay/internal/clock"
	"github.com/stellapay/stellapay/internal/config"
	"github.com/stellapay/stellapay/internal/escrow/adapters/memory"
	employeerepo "github.com/stellapay/stellapay/internal/employee/repository"
	employeeservice "github.com/stellapay/stellapay/internal/employee/service"
	payrolldomain "github.com/stellapay/stellapay/internal/payroll/domain"
	payrollrepo "github.com/stellapay/stellapay/internal/payroll/repository"
	payrollservice "github.com/stellapay/stellapay/internal/payroll/service"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	// SQLite support hack: remove FOR UPDATE clauses
	stripLocking := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			newSQL = strings.ReplaceAll(newSQL, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripLocking)
	db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripLocking)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, ddl := range []string{
		`CREATE TABLE payrolls (
			id INTEGER PRIMARY KEY,
			employer_id INTEGER,
			company_id INTEGER,
			title TEXT,
			description TEXT,
			total_amount INTEGER,
			funded_amount INTEGER DEFAULT 0,
			asset TEXT,
			status TEXT DEFAULT 'CREATED',
			escrow_ref TEXT,
			escrow_tx_ref TEXT,
			ledger_tx_ref TEXT,
			pending_op TEXT,
			pending_amount INTEGER DEFAULT 0,
			transition_at DATETIME,
			sweep_attempts INTEGER DEFAULT 0,
			needs_attention BOOLEAN DEFAULT FALSE,
			error_detail TEXT,
			version INTEGER DEFAULT 1,
			metadata TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			funded_at DATETIME,
			released_at DATETIME,
			cancelled_at DATETIME,
			archived_at DATETIME
		)`,
		`CREATE TABLE payroll_recipients (
			id INTEGER PRIMARY KEY,
			payroll_id INTEGER,
			employee_id INTEGER,
			destination_address TEXT,
			amount INTEGER,
			asset TEXT,
			status TEXT DEFAULT 'PENDING',
			disbursement_tx_ref TEXT,
			failure_reason TEXT,
			paid_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE employees (
			id INTEGER PRIMARY KEY,
			employer_id INTEGER,
			name TEXT,
			email TEXT,
			wallet_address TEXT,
			position TEXT,
			salary INTEGER,
			asset TEXT DEFAULT 'XLM',
			active BOOLEAN DEFAULT TRUE,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (employer_id, wallet_address)
		)`,
		`CREATE TABLE audit_logs (
			id INTEGER PRIMARY KEY,
			employer_id INTEGER,
			actor_type TEXT,
			actor_id TEXT,
			action TEXT,
			target_type TEXT,
			target_id TEXT,
			metadata TEXT,
			created_at INTEGER
		)`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}

	return db
}

type serverHarness struct {
	router *gin.Engine
	svc    payrolldomain.Service
	escrow *memory.Client
}

func newServerHarness(t *testing.T) *serverHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	auditSvc := audit.NewService(db, node, log)
	escrowClient := memory.NewClient()

	payrollSvc := payrollservice.NewService(payrollservice.Params{
		Repo:   payrollrepo.NewRepository(db),
		Escrow: escrowClient,
		Node:   node,
		Clock:  clk,
		Audit:  auditSvc,
		Logger: log,
		Escrows: config.EscrowConfig{
			Provider:       "memory",
			SubmitTimeout:  time.Second,
			ConfirmTimeout: 200 * time.Millisecond,
		},
	})
	employeeSvc := employeeservice.NewService(employeerepo.NewRepository(db), node, clk, auditSvc, log)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())

	srv := &Server{
		engine:      router,
		db:          db,
		genID:       node,
		payrollSvc:  payrollSvc,
		employeeSvc: employeeSvc,
		auditSvc:    auditSvc,
	}
	srv.registerRoutes()

	return &serverHarness{router: router, svc: payrollSvc, escrow: escrowClient}
}

func (h *serverHarness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

func (h *serverHarness) createPayroll(t *testing.T, total int64) *payrolldomain.Payroll {
	t.Helper()

	p, err := h.svc.Create(context.Background(), payrolldomain.CreateRequest{
		EmployerID:  42,
		Title:       "March payroll",
		TotalAmount: total,
		Recipients: []payrolldomain.CreateRecipient{
			{EmployeeID: 100, DestinationAddress: "GWALLET0", Amount: total},
		},
	})
	require.NoError(t, err)
	return p
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()

	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

func TestCreatePayrollReturnsCreated(t *testing.T) {
	h := newServerHarness(t)

	resp := h.do(t, http.MethodPost, "/api/payrolls", `{
		"employer_id": "42",
		"title": "March payroll",
		"total_amount": 5000,
		"recipients": [
			{"employee_id": "100", "destination_address": "GWALLET0", "amount": 5000}
		]
	}`)

	require.Equal(t, http.StatusCreated, resp.Code)

	var body struct {
		Data payrolldomain.Payroll `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, payrolldomain.PayrollStatusCreated, body.Data.Status)
	require.NotEmpty(t, body.Data.EscrowRef)
	require.EqualValues(t, 1, body.Data.Version)
}

func TestCreatePayrollRecipientMismatchReturns400(t *testing.T) {
	h := newServerHarness(t)

	resp := h.do(t, http.MethodPost, "/api/payrolls", `{
		"employer_id": "42",
		"title": "March payroll",
		"total_amount": 5000,
		"recipients": [
			{"employee_id": "100", "destination_address": "GWALLET0", "amount": 4000}
		]
	}`)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "validation_error", decodeError(t, resp).Type)
}

func TestFundPayrollStaleVersionReturns409(t *testing.T) {
	h := newServerHarness(t)
	p := h.createPayroll(t, 5000)

	resp := h.do(t, http.MethodPost, "/api/payrolls/"+p.ID.String()+"/fund",
		`{"amount": 5000, "expected_version": 99}`)

	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "concurrent_modification", decodeError(t, resp).Type)
}

func TestFundPayrollInvalidBodyReturns400(t *testing.T) {
	h := newServerHarness(t)
	p := h.createPayroll(t, 5000)

	resp := h.do(t, http.MethodPost, "/api/payrolls/"+p.ID.String()+"/fund", `{"amount": 5000}`)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "validation_error", decodeError(t, resp).Type)
}

func TestFundPayrollConfirmedReturns200(t *testing.T) {
	h := newServerHarness(t)
	p := h.createPayroll(t, 5000)

	resp := h.do(t, http.MethodPost, "/api/payrolls/"+p.ID.String()+"/fund",
		`{"amount": 5000, "expected_version": 1}`)

	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Outcome payrolldomain.OperationOutcome `json:"outcome"`
		Data    payrolldomain.Payroll          `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, payrolldomain.OutcomeConfirmed, body.Outcome)
	require.Equal(t, payrolldomain.PayrollStatusFunded, body.Data.Status)
}

func TestFundPayrollPendingReturns202(t *testing.T) {
	h := newServerHarness(t)
	p := h.createPayroll(t, 5000)
	h.escrow.HoldPending(1000)

	resp := h.do(t, http.MethodPost, "/api/payrolls/"+p.ID.String()+"/fund",
		`{"amount": 5000, "expected_version": 1}`)

	require.Equal(t, http.StatusAccepted, resp.Code)

	var body struct {
		Outcome payrolldomain.OperationOutcome `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, payrolldomain.OutcomeProcessing, body.Outcome)
}

func TestGetPayrollNotFoundReturns404(t *testing.T) {
	h := newServerHarness(t)

	resp := h.do(t, http.MethodGet, "/api/payrolls/123456789", "")

	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Equal(t, "not_found", decodeError(t, resp).Type)
}

func TestGetPayrollMalformedIDReturns400(t *testing.T) {
	h := newServerHarness(t)

	resp := h.do(t, http.MethodGet, "/api/payrolls/not-a-snowflake", "")

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "validation_error", decodeError(t, resp).Type)
}

func TestCreateEmployeeDuplicateWalletReturns409(t *testing.T) {
	h := newServerHarness(t)

	body := `{
		"employer_id": "42",
		"name": "Ada",
		"wallet_address": "GWALLETADA",
		"salary": 3000
	}`
	resp := h.do(t, http.MethodPost, "/api/employees", body)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = h.do(t, http.MethodPost, "/api/employees", body)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Equal(t, "conflict", decodeError(t, resp).Type)
}
