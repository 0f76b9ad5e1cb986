package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	employeedomain "github.com/stellapay/stellapay/internal/employee/domain"
	"github.com/stellapay/stellapay/pkg/db/pagination"
)

type createEmployeeRequest struct {
	EmployerID    string `json:"employer_id" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email"`
	WalletAddress string `json:"wallet_address" binding:"required"`
	Position      string `json:"position"`
	Salary        int64  `json:"salary" binding:"required"`
	Asset         string `json:"asset"`
}

func (s *Server) createEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	employerID, err := snowflake.ParseString(req.EmployerID)
	if err != nil {
		AbortWithError(c, newValidationError("employer_id", "invalid_id", "invalid employer id"))
		return
	}

	e, err := s.employeeSvc.Create(c.Request.Context(), employeedomain.CreateRequest{
		EmployerID:    employerID,
		Name:          req.Name,
		Email:         req.Email,
		WalletAddress: req.WalletAddress,
		Position:      req.Position,
		Salary:        req.Salary,
		Asset:         req.Asset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": e})
}

func (s *Server) listEmployees(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, newValidationError("pagination", "invalid_request", "invalid pagination"))
		return
	}

	filter := employeedomain.ListFilter{
		ActiveOnly: c.Query("active") == "true",
		Pagination: page,
	}
	if raw := strings.TrimSpace(c.Query("employer_id")); raw != "" {
		employerID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("employer_id", "invalid_id", "invalid employer id"))
			return
		}
		filter.EmployerID = employerID
	}

	employees, info, err := s.employeeSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": employees, "page_info": info})
}

func (s *Server) employeeStats(c *gin.Context) {
	employerID, err := snowflake.ParseString(strings.TrimSpace(c.Query("employer_id")))
	if err != nil {
		AbortWithError(c, newValidationError("employer_id", "invalid_id", "invalid employer id"))
		return
	}

	stats, err := s.employeeSvc.Stats(c.Request.Context(), employerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (s *Server) getEmployee(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	e, err := s.employeeSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": e})
}

type updateEmployeeRequest struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	WalletAddress *string `json:"wallet_address"`
	Position      *string `json:"position"`
	Salary        *int64  `json:"salary"`
	Active        *bool   `json:"active"`
}

func (s *Server) updateEmployee(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req updateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	e, err := s.employeeSvc.Update(c.Request.Context(), employeedomain.UpdateRequest{
		ID:            id,
		Name:          req.Name,
		Email:         req.Email,
		WalletAddress: req.WalletAddress,
		Position:      req.Position,
		Salary:        req.Salary,
		Active:        req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": e})
}

func (s *Server) deactivateEmployee(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	e, err := s.employeeSvc.Deactivate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": e})
}
