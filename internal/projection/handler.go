package projection

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	httperr "github.com/aevon-lab/clickstream/internal/core/errors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all projection API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/sales-funnel", s.HandleSalesFunnel)
	api.GET("/products/top-converting", s.HandleTopConverting)
	api.GET("/products/abandoned-carts", s.HandleAbandonedCarts)
	api.GET("/sessions/analytics", s.HandleSessionAnalytics)
	api.GET("/brands/trends", s.HandleBrandTrends)
}

// HandleSalesFunnel handles GET /api/sales-funnel
func (s *Service) HandleSalesFunnel(c *gin.Context) {
	resp, err := s.SalesFunnel(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to query sales funnel", err)
		return
	}
	slog.Info("[API] Sales funnel served", "stages", len(resp.Funnel))
	c.JSON(http.StatusOK, resp)
}

// HandleTopConverting handles GET /api/products/top-converting
// Query parameters: limit
func (s *Service) HandleTopConverting(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		writeError(c, "Invalid query parameters", err)
		return
	}
	resp, err := s.TopConverting(c.Request.Context(), limit)
	if err != nil {
		writeError(c, "Failed to query top converting products", err)
		return
	}
	slog.Info("[API] Top converting products served", "limit", limit, "products", resp.TotalCount)
	c.JSON(http.StatusOK, resp)
}

// HandleAbandonedCarts handles GET /api/products/abandoned-carts
// Query parameters: limit
func (s *Service) HandleAbandonedCarts(c *gin.Context) {
	limit, err := parseLimit(c)
	if err != nil {
		writeError(c, "Invalid query parameters", err)
		return
	}
	resp, err := s.AbandonedCarts(c.Request.Context(), limit)
	if err != nil {
		writeError(c, "Failed to query abandoned carts", err)
		return
	}
	slog.Info("[API] Abandoned carts served", "limit", limit, "products", resp.TotalCount)
	c.JSON(http.StatusOK, resp)
}

// HandleSessionAnalytics handles GET /api/sessions/analytics
func (s *Service) HandleSessionAnalytics(c *gin.Context) {
	resp, err := s.SessionAnalytics(c.Request.Context())
	if err != nil {
		writeError(c, "Failed to query session analytics", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleBrandTrends handles GET /api/brands/trends
// Query parameters: brand, start_date, end_date
func (s *Service) HandleBrandTrends(c *gin.Context) {
	var query struct {
		Brand     string `form:"brand"`
		StartDate string `form:"start_date"`
		EndDate   string `form:"end_date"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		writeError(c, "Invalid query parameters", invalidQueryf("%v", err))
		return
	}

	start, err := parseDate("start_date", query.StartDate)
	if err != nil {
		writeError(c, "Invalid query parameters", err)
		return
	}
	end, err := parseDate("end_date", query.EndDate)
	if err != nil {
		writeError(c, "Invalid query parameters", err)
		return
	}

	resp, err := s.BrandTrends(c.Request.Context(), BrandTrendsRequest{Brand: query.Brand, Start: start, End: end})
	if err != nil {
		writeError(c, "Failed to query brand trends", err)
		return
	}
	slog.Info("[API] Brand trends served", "brand", resp.Brand, "records", resp.TotalRecords)
	c.JSON(http.StatusOK, resp)
}

func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidQueryf("limit %q is not an integer", raw)
	}
	return limit, nil
}

func parseDate(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, invalidQueryf("%s %q: want YYYY-MM-DD", name, raw)
	}
	return &t, nil
}

// writeError maps service errors onto the JSON error body. Store failures
// are logged with their cause and answered with a generic message.
func writeError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   message,
			Details:   err.Error(),
		})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   err.Error(),
		})
	default:
		slog.Error("[API] Projection read failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   message,
		})
	}
}
