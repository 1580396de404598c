package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthythako/payment-redirect/internal/app/service/auditlog"
	"github.com/healthythako/payment-redirect/pkg/response"
)

// @Summary      Scan redirect audit logs
// @Description  Paginated, filterable listing of redirect audit rows for support/forensics. Read-only; the audit trail is append-only.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body auditlog.ScanRequest true "Scan request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/redirect_logs/scan [post]
func ApiScanRedirectLogs(svc *auditlog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req auditlog.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.Scan(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, audit *auditlog.Service) {
	r.POST("/redirect_logs/scan", ApiScanRedirectLogs(audit))
}
