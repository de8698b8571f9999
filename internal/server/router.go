package server

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/lantern/internal/shares"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errMissingShareService = errors.New("share service dependency required")

// Dependencies lists the collaborators required by the HTTP layer.
type Dependencies struct {
	ShareService *shares.Service
	Logger       *zap.Logger
	ShareBaseURL string
}

// NewHTTPHandler wires the share API and the public share page.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.ShareService == nil {
		return nil, errMissingShareService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(accessLog(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	router.SetHTMLTemplate(template.Must(template.New("share.html").Parse(sharePageTemplate)))

	handler := &httpHandler{
		shareService: deps.ShareService,
		logger:       logger,
		shareBaseURL: deps.ShareBaseURL,
	}

	api := router.Group("/api")
	api.POST("/share", handler.handleCreateShare)
	api.POST("/share/:share_id/sync", handler.handleSyncShare)
	api.GET("/share/:share_id/data", handler.handleShareData)
	api.DELETE("/share/:share_id", handler.handleRemoveShare)

	router.GET("/share/:share_id", handler.handleSharePage)

	return router, nil
}

type httpHandler struct {
	shareService *shares.Service
	logger       *zap.Logger
	shareBaseURL string
}

type createShareRequest struct {
	SessionID string `json:"sessionID"`
}

type createShareResponse struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

type syncShareRequest struct {
	Secret string             `json:"secret"`
	Data   []shares.ShareItem `json:"data"`
}

type removeShareRequest struct {
	Secret string `json:"secret"`
}

type shareDataResponse struct {
	Data []shares.ShareItem `json:"data"`
}

func (h *httpHandler) handleCreateShare(c *gin.Context) {
	var request createShareRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	sessionID, err := shares.NewSessionID(request.SessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_session_id"})
		return
	}

	record, err := h.shareService.Create(c.Request.Context(), sessionID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, createShareResponse{
		ID:     record.ID.String(),
		Secret: record.Secret,
		URL:    h.shareURL(c, record.ID),
	})
}

func (h *httpHandler) handleSyncShare(c *gin.Context) {
	shareID, ok := h.bindShareID(c)
	if !ok {
		return
	}

	var request syncShareRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_payload"})
		return
	}

	if err := h.shareService.Sync(c.Request.Context(), shareID, request.Secret, request.Data); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleShareData(c *gin.Context) {
	shareID, ok := h.bindShareID(c)
	if !ok {
		return
	}

	data, err := h.shareService.Data(c.Request.Context(), shareID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, shareDataResponse{Data: data})
}

func (h *httpHandler) handleRemoveShare(c *gin.Context) {
	shareID, ok := h.bindShareID(c)
	if !ok {
		return
	}

	var request removeShareRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_payload"})
		return
	}

	if err := h.shareService.Remove(c.Request.Context(), shareID, request.Secret); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleSharePage(c *gin.Context) {
	shareID, ok := h.bindShareID(c)
	if !ok {
		return
	}

	if _, err := h.shareService.Get(c.Request.Context(), shareID); err != nil {
		if errors.Is(err, shares.ErrShareNotFound) {
			c.String(http.StatusNotFound, "share not found")
			return
		}
		h.logger.Error("share page lookup failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	c.HTML(http.StatusOK, "share.html", gin.H{"ShareID": shareID.String()})
}

func (h *httpHandler) bindShareID(c *gin.Context) (shares.ShareID, bool) {
	shareID, err := shares.NewShareID(c.Param("share_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_share_id"})
		return "", false
	}
	return shareID, true
}

func (h *httpHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shares.ErrShareExists):
		c.JSON(http.StatusConflict, gin.H{"error": "share_exists"})
	case errors.Is(err, shares.ErrShareNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "share_not_found"})
	case errors.Is(err, shares.ErrInvalidSecret):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_secret"})
	case errors.Is(err, shares.ErrMalformedPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed_payload"})
	default:
		h.logger.Error("share request failed", zap.Error(err))
		var serviceErr *shares.ServiceError
		if errors.As(err, &serviceErr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "code": serviceErr.Code()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

// shareURL builds the public link for a share. A configured base URL wins;
// otherwise the link is reconstructed from forwarded headers so it survives
// reverse proxies.
func (h *httpHandler) shareURL(c *gin.Context, shareID shares.ShareID) string {
	if h.shareBaseURL != "" {
		return h.shareBaseURL + "/share/" + shareID.String()
	}

	proto := c.GetHeader("X-Forwarded-Proto")
	if proto == "" {
		proto = "https"
	}
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	return proto + "://" + host + "/share/" + shareID.String()
}
