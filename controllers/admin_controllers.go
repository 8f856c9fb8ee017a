package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/grocery-store/services"
	"github.com/yeremiapane/grocery-store/utils"
)

type AdminController struct {
	Reports *services.ReportService
}

func NewAdminController(reports *services.ReportService) *AdminController {
	return &AdminController{Reports: reports}
}

// GetDashboardStats mengambil statistik untuk dashboard
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	stats, err := ac.Reports.Stats(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", gin.H{
		"stats":                   stats,
		"total_revenue_formatted": utils.FormatCurrencyVND(stats.TotalRevenue),
		"today_revenue_formatted": utils.FormatCurrencyVND(stats.TodayRevenue),
	})
}
