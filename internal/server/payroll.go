package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	payrolldomain "github.com/stellapay/stellapay/internal/payroll/domain"
	"github.com/stellapay/stellapay/pkg/db/pagination"
)

type createPayrollRequest struct {
	EmployerID  string         `json:"employer_id" binding:"required"`
	CompanyID   string         `json:"company_id"`
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	TotalAmount int64          `json:"total_amount" binding:"required"`
	Asset       string         `json:"asset"`
	Metadata    map[string]any `json:"metadata"`
	Recipients  []struct {
		EmployeeID         string `json:"employee_id" binding:"required"`
		DestinationAddress string `json:"destination_address" binding:"required"`
		Amount             int64  `json:"amount" binding:"required"`
	} `json:"recipients" binding:"required"`
}

func (s *Server) createPayroll(c *gin.Context) {
	var req createPayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	employerID, err := snowflake.ParseString(req.EmployerID)
	if err != nil {
		AbortWithError(c, newValidationError("employer_id", "invalid_id", "invalid employer id"))
		return
	}
	var companyID snowflake.ID
	if strings.TrimSpace(req.CompanyID) != "" {
		companyID, err = snowflake.ParseString(req.CompanyID)
		if err != nil {
			AbortWithError(c, newValidationError("company_id", "invalid_id", "invalid company id"))
			return
		}
	}

	create := payrolldomain.CreateRequest{
		EmployerID:  employerID,
		CompanyID:   companyID,
		Title:       req.Title,
		Description: req.Description,
		TotalAmount: req.TotalAmount,
		Asset:       req.Asset,
		Metadata:    req.Metadata,
	}
	for _, r := range req.Recipients {
		employeeID, err := snowflake.ParseString(r.EmployeeID)
		if err != nil {
			AbortWithError(c, newValidationError("recipients", "invalid_id", "invalid employee id"))
			return
		}
		create.Recipients = append(create.Recipients, payrolldomain.CreateRecipient{
			EmployeeID:         employeeID,
			DestinationAddress: r.DestinationAddress,
			Amount:             r.Amount,
		})
	}

	p, err := s.payrollSvc.Create(c.Request.Context(), create)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": p})
}

func (s *Server) listPayrolls(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, newValidationError("pagination", "invalid_request", "invalid pagination"))
		return
	}

	req := payrolldomain.ListRequest{
		Status:          payrolldomain.PayrollStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		IncludeArchived: c.Query("include_archived") == "true",
		Pagination:      page,
	}
	if raw := strings.TrimSpace(c.Query("employer_id")); raw != "" {
		employerID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("employer_id", "invalid_id", "invalid employer id"))
			return
		}
		req.EmployerID = employerID
	}

	resp, err := s.payrollSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Payrolls, "page_info": resp.PageInfo})
}

func (s *Server) getPayroll(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := s.payrollSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) listPayrollRecipients(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	recipients, err := s.payrollSvc.ListRecipients(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recipients})
}

func (s *Server) listPayrollAudit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entries, err := s.auditSvc.ListByTarget(c.Request.Context(), "payroll", id.String(), 50)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

type fundPayrollRequest struct {
	Amount          int64 `json:"amount" binding:"required"`
	ExpectedVersion int64 `json:"expected_version" binding:"required"`
}

func (s *Server) fundPayroll(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req fundPayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	result, err := s.payrollSvc.RequestFunding(c.Request.Context(), payrolldomain.FundingRequest{
		PayrollID:       id,
		ExpectedVersion: req.ExpectedVersion,
		Amount:          req.Amount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeOperationResult(c, result)
}

type releasePayrollRequest struct {
	Mode            string   `json:"mode"`
	RecipientIDs    []string `json:"recipient_ids"`
	ExpectedVersion int64    `json:"expected_version" binding:"required"`
}

func (s *Server) releasePayroll(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req releasePayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	release := payrolldomain.ReleaseRequest{
		PayrollID:       id,
		ExpectedVersion: req.ExpectedVersion,
		Mode:            payrolldomain.ReleaseMode(strings.ToUpper(strings.TrimSpace(req.Mode))),
	}
	for _, raw := range req.RecipientIDs {
		recipientID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("recipient_ids", "invalid_id", "invalid recipient id"))
			return
		}
		release.RecipientIDs = append(release.RecipientIDs, recipientID)
	}

	result, err := s.payrollSvc.RequestRelease(c.Request.Context(), release)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writeOperationResult(c, result)
}

// writeOperationResult maps a settlement operation to its HTTP shape: 200
// for a resolved outcome, 202 when confirmation is still outstanding.
func writeOperationResult(c *gin.Context, result *payrolldomain.OperationResult) {
	status := http.StatusOK
	if result.Outcome == payrolldomain.OutcomeProcessing {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{
		"outcome": result.Outcome,
		"data":    result.Payroll,
	})
}

type cancelPayrollRequest struct {
	Reason          string `json:"reason"`
	ExpectedVersion int64  `json:"expected_version" binding:"required"`
}

func (s *Server) cancelPayroll(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req cancelPayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	p, err := s.payrollSvc.Cancel(c.Request.Context(), payrolldomain.CancelRequest{
		PayrollID:       id,
		ExpectedVersion: req.ExpectedVersion,
		Reason:          req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}

func (s *Server) archivePayroll(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := s.payrollSvc.Archive(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": p})
}
