package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trafficshield/internal/api"
	"trafficshield/internal/models"
	"trafficshield/internal/resource"
	"trafficshield/internal/store"
	"trafficshield/internal/workflow"
)

// RegisterRoutes registers all HTTP routes.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	apiGroup := router.Group("/api/v1")
	{
		reports := apiGroup.Group("/reports")
		{
			reports.GET("", listEndpoint(s.engine.Reports.Store, s.engine.Reports.Refresh))
			reports.POST("", s.SubmitReport)
			reports.POST("/:id/review", s.ReviewReport)
			reports.POST("/:id/appeal", s.AppealReport)
		}

		violations := apiGroup.Group("/violations")
		{
			violations.GET("", listEndpoint(s.engine.Violations.Store, s.engine.Violations.Refresh))
			violations.POST("", s.FileViolation)
		}

		fines := apiGroup.Group("/fines")
		{
			fines.GET("", listEndpoint(s.engine.Fines.Store, s.engine.Fines.Refresh))
		}

		payments := apiGroup.Group("/payments")
		{
			payments.GET("", listEndpoint(s.engine.Payments.Store, s.engine.Payments.Refresh))
			payments.POST("", s.InitiatePayment)
		}

		notifications := apiGroup.Group("/notifications")
		{
			notifications.GET("", listEndpoint(s.engine.Notifications.Store, s.engine.Notifications.Refresh))
			notifications.PUT("/:id/read", s.MarkNotificationRead)
			notifications.PUT("/read-all", s.MarkAllNotificationsRead)
			notifications.DELETE("/:id", s.DeleteNotification)
		}

		accidents := apiGroup.Group("/accidents")
		{
			accidents.GET("", listEndpoint(s.engine.Accidents.Store, s.engine.Accidents.Refresh))
			accidents.POST("", s.ReportAccident)
			accidents.PUT("/:id/status", s.UpdateAccidentStatus)
		}

		stations := apiGroup.Group("/stations")
		{
			stations.GET("", listEndpoint(s.engine.Stations.Store, s.engine.Stations.Refresh))
			stations.POST("", s.CreateStation)
			stations.PUT("/:id", s.UpdateStation)
			stations.DELETE("/:id", s.DeleteStation)
		}

		cameras := apiGroup.Group("/cameras")
		{
			cameras.GET("", listEndpoint(s.engine.Cameras.Store, s.engine.Cameras.Refresh))
			cameras.POST("", s.CreateCamera)
			cameras.PUT("/:id/status", s.SetCameraStatus)
			cameras.DELETE("/:id", s.DeleteCamera)
		}

		apiGroup.GET("/violation-types", listEndpoint(s.engine.ViolationTypes.Store, s.engine.ViolationTypes.Refresh))
		apiGroup.GET("/stats", s.GetStats)

		system := apiGroup.Group("/system")
		{
			system.GET("/health", s.HealthCheck)
			system.GET("/version", s.GetVersion)
		}
	}

	router.GET("/ws", s.hub.ServeWS)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// listEndpoint serves one family's cached page. Query params become the
// filter set (passed to the backend unmodified) and the page cursor; the
// cursor update alone never loads data, so a refresh is dispatched
// explicitly before the snapshot is read.
func listEndpoint[T any](st *store.Store[T], refresh func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := store.Filters{}
		for key, values := range c.Request.URL.Query() {
			if key == "page" || key == "limit" || key == "refresh" {
				continue
			}
			if len(values) > 0 {
				filters[key] = values[0]
			}
		}
		// The page param goes first: a filter change always rewinds the
		// cursor to page 1, and that rewind must win over the param.
		if pageParam := c.Query("page"); pageParam != "" {
			if page, err := strconv.Atoi(pageParam); err == nil {
				st.SetPage(page)
			}
		}
		if len(filters) > 0 {
			st.SetFilters(filters)
		}

		if c.Query("refresh") != "false" {
			if err := refresh(c.Request.Context()); err != nil && !errors.Is(err, store.ErrStale) {
				// Stale-but-present: serve the prior page with the error.
				snap := st.State()
				c.JSON(http.StatusBadGateway, gin.H{
					"success": false,
					"error":   snap.Error,
					"data":    snap.Data,
				})
				return
			}
		}

		snap := st.State()
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    snap.Data,
			"loading": snap.Loading,
			"filters": snap.Filters,
			"page":    snap.Page,
			"limit":   snap.Limit,
		})
	}
}

// SubmitReport files a citizen report through the engine.
func (s *Server) SubmitReport(c *gin.Context) {
	var req struct {
		VehiclePlate  string   `json:"vehicle_plate"`
		ViolationType string   `json:"violation_type"`
		Description   string   `json:"description"`
		EvidencePaths []string `json:"evidence_paths"`
		Latitude      float64  `json:"latitude"`
		Longitude     float64  `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	report, err := s.engine.Reports.Submit(c.Request.Context(), resource.Submission{
		VehiclePlate:  req.VehiclePlate,
		ViolationType: req.ViolationType,
		Description:   req.Description,
		EvidencePaths: req.EvidencePaths,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
	})
	if err != nil {
		s.writeActionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": report})
}

// ReviewReport approves or rejects a pending report; the confirmation
// copy for the transition is returned alongside the result.
func (s *Server) ReviewReport(c *gin.Context) {
	var req struct {
		Approve bool   `json:"approve"`
		Notes   string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	report, err := s.engine.Reports.Review(c.Request.Context(), c.Param("id"), workflow.Decision{
		Approve: req.Approve,
		Notes:   req.Notes,
	})
	if err != nil {
		s.writeActionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// AppealReport submits the one-shot appeal for a rejected report.
func (s *Server) AppealReport(c *gin.Context) {
	var req struct {
		Reason        string   `json:"reason"`
		EvidencePaths []string `json:"evidence_paths"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	report, err := s.engine.Reports.Appeal(c.Request.Context(), c.Param("id"), req.Reason, req.EvidencePaths)
	if err != nil {
		s.writeActionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
		"warning": s.engine.Reports.AppealWarning(),
	})
}

// FileViolation files a police violation.
func (s *Server) FileViolation(c *gin.Context) {
	var req resource.Filing
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	violation, err := s.engine.Violations.File(c.Request.Context(), req)
	if err != nil {
		s.writeActionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": violation})
}

// InitiatePayment starts a payment against a fine.
func (s *Server) InitiatePayment(c *gin.Context) {
	var req struct {
		FineID string `json:"fine_id"`
		Method string `json:"method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	payment, err := s.engine.Payments.Initiate(c.Request.Context(), req.FineID, req.Method)
	if err != nil {
		s.writeActionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": payment})
}

// MarkNotificationRead applies the optimistic read toggle.
func (s *Server) MarkNotificationRead(c *gin.Context) {
	if err := s.engine.Notifications.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		s.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkAllNotificationsRead marks the whole feed read.
func (s *Server) MarkAllNotificationsRead(c *gin.Context) {
	if err := s.engine.Notifications.MarkAllRead(c.Request.Context()); err != nil {
		s.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteNotification removes a notification.
func (s *Server) DeleteNotification(c *gin.Context) {
	if err := s.engine.Notifications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReportAccident files a new accident.
func (s *Server) ReportAccident(c *gin.Context) {
	var req struct {
		Description string  `json:"description"`
		Severity    string  `json:"severity"`
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	accident, err := s.engine.Accidents.Report(c.Request.Context(), req.Description, req.Severity, req.Latitude, req.Longitude)
	if err != nil {
		s.writeActionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": accident})
}

// UpdateAccidentStatus advances an accident's lifecycle.
func (s *Server) UpdateAccidentStatus(c *gin.Context) {
	var req struct {
		Status models.AccidentStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	accident, err := s.engine.Accidents.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.writeActionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": accident})
}

// CreateStation registers a police station.
func (s *Server) CreateStation(c *gin.Context) {
	var req models.PoliceStation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	station, err := s.engine.Stations.Create(c.Request.Context(), req)
	if err != nil {
		s.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": station})
}

// UpdateStation edits a police station.
func (s *Server) UpdateStation(c *gin.Context) {
	var req models.PoliceStation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	req.ID = c.Param("id")

	station, err := s.engine.Stations.Update(c.Request.Context(), req)
	if err != nil {
		s.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": station})
}

// DeleteStation removes a police station.
func (s *Server) DeleteStation(c *gin.Context) {
	if err := s.engine.Stations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CreateCamera registers a camera.
func (s *Server) CreateCamera(c *gin.Context) {
	var req models.Camera
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	camera, err := s.engine.Cameras.Create(c.Request.Context(), req)
	if err != nil {
		s.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": camera})
}

// SetCameraStatus toggles a camera's operational state.
func (s *Server) SetCameraStatus(c *gin.Context) {
	var req struct {
		Status models.CameraStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	camera, err := s.engine.Cameras.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": camera})
}

// DeleteCamera removes a camera.
func (s *Server) DeleteCamera(c *gin.Context) {
	if err := s.engine.Cameras.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStats serves the cached stats summary, refreshing first.
func (s *Server) GetStats(c *gin.Context) {
	if c.Query("refresh") != "false" {
		if err := s.engine.Stats.Refresh(c.Request.Context()); err != nil && !errors.Is(err, store.ErrStale) {
			value, _, msg := s.engine.Stats.Store.Value()
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": msg, "data": value})
			return
		}
	}

	value, loading, msg := s.engine.Stats.Store.Value()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    value,
		"loading": loading,
		"error":   msg,
	})
}

// HealthCheck reports basic liveness plus credential and hub state.
func (s *Server) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"websocket_clients": s.hub.ClientCount(),
		"token_expired":     s.creds.Expired(),
	})
}

// GetVersion returns build information.
func (s *Server) GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": s.version,
		"service": "trafficshield-sync-engine",
	})
}

// writeActionError maps engine errors onto facade responses. Backend
// messages pass through verbatim; guard failures are client errors.
func (s *Server) writeActionError(c *gin.Context, err error) {
	if apiErr, ok := api.AsAPIError(err); ok {
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"success": false, "error": apiErr.Message, "fields": apiErr.Fields})
		return
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": err.Error()})
}
