package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"contact-relay-go/internal/config"
	"contact-relay-go/internal/mailer"
	metricsPkg "contact-relay-go/internal/metrics"
	"contact-relay-go/internal/models"
)

// Store is the persistence surface the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	CreateSubmission(ctx context.Context, sub *models.Submission) error
	GetCredential(ctx context.Context) (*models.OAuthCredential, error)
}

// Dispatcher relays one submission as an HTML email.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Authorizer drives the Gmail authorization flow.
type Authorizer interface {
	AuthURL() string
	Exchange(ctx context.Context, code string) (*models.OAuthCredential, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store   Store
	mailer  Dispatcher
	authz   Authorizer
	metrics *metricsPkg.Metrics
	mail    config.MailConfig
}

// NewHandlers creates new HTTP handlers
func NewHandlers(store Store, dispatcher Dispatcher, authz Authorizer, metrics *metricsPkg.Metrics, mail config.MailConfig) *Handlers {
	return &Handlers{
		store:   store,
		mailer:  dispatcher,
		authz:   authz,
		metrics: metrics,
		mail:    mail,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/auth", h.Authorize)
	router.GET("/oauth2callback", h.OAuthCallback)
	router.POST("/contact", h.Contact)
}

// Contact handles one contact-form submission: validate, persist, relay.
// The submission is persisted before any relay attempt and stays persisted
// when the relay fails.
func (h *Handlers) Contact(c *gin.Context) {
	h.metrics.SubmissionsReceived.Inc()
	timer := prometheus.NewTimer(h.metrics.ContactDuration)
	defer timer.ObserveDuration()

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.metrics.ValidationFailures.Inc()
		c.JSON(http.StatusBadRequest, ContactResponse{
			Success: false,
			Message: "All fields are required",
		})
		return
	}

	ctx := c.Request.Context()

	sub := &models.Submission{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}
	if err := h.store.CreateSubmission(ctx, sub); err != nil {
		logrus.Errorf("Failed to persist submission: %v", err)
		c.JSON(http.StatusInternalServerError, ContactResponse{
			Success: false,
			Message: "Failed to send message",
		})
		return
	}
	h.metrics.SubmissionsStored.Inc()

	body := mailer.SubmissionBody(req.Name, req.Email, req.Message)
	if err := h.mailer.Send(ctx, h.mail.ToEmail, h.mail.Subject, body); err != nil {
		h.metrics.SendFailures.Inc()
		if errors.Is(err, mailer.ErrNotAuthorized) {
			logrus.Error("Submission stored but not relayed: Gmail authorization missing, visit /auth")
		} else {
			logrus.Errorf("Submission stored but relay failed: %v", err)
		}
		// Both failure modes collapse into the same generic response.
		c.JSON(http.StatusInternalServerError, ContactResponse{
			Success: false,
			Message: "Failed to send message",
		})
		return
	}
	h.metrics.SendSuccesses.Inc()

	c.JSON(http.StatusOK, ContactResponse{
		Success: true,
		Message: "Message sent successfully",
	})
}

// Authorize redirects the operator to the provider consent page
func (h *Handlers) Authorize(c *gin.Context) {
	c.Redirect(http.StatusFound, h.authz.AuthURL())
}

// OAuthCallback exchanges the authorization code returned by the provider
// and stores the resulting credential set, replacing any prior one.
func (h *Handlers) OAuthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_code",
			Message: "Authorization code is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	if _, err := h.authz.Exchange(c.Request.Context(), code); err != nil {
		logrus.Errorf("Authorization code exchange failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "auth_exchange_failed",
			Message: "Failed to complete Gmail authorization",
			Code:    http.StatusInternalServerError,
		})
		return
	}
	h.metrics.AuthExchanges.Inc()

	c.String(http.StatusOK, "Gmail API connected. You can now use /contact to send emails.")
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Gmail:     "ok",
	}

	ctx := c.Request.Context()

	if err := h.store.Ping(ctx); err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	if cred, err := h.store.GetCredential(ctx); err != nil {
		response.Gmail = "error"
		logrus.Errorf("Credential health check failed: %v", err)
	} else if cred == nil {
		// Not an error: authorization is an operator action.
		response.Gmail = "unauthorized"
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
