// Package server exposes the review pipeline over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/metalagman/docqa/internal/model"
	"github.com/metalagman/docqa/internal/review"
)

// ReviewRunner runs one document review.
type ReviewRunner interface {
	Run(ctx context.Context, doc string) (*review.Outcome, error)
}

// HealthChecker reports primary backend readiness.
type HealthChecker interface {
	Health(ctx context.Context) bool
}

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Reviewer           ReviewRunner
	Primary            HealthChecker
	TGIBaseURL         string
	FallbackConfigured bool
	FallbackModel      string
	CORSOrigins        []string
}

// ReviewRequest is the request body for POST /review. Doc is a pointer so a
// body without the field is rejected while an explicitly empty document is
// still reviewed.
type ReviewRequest struct {
	Doc *string `json:"doc"`
}

// ReviewResponse is the success body for POST /review.
type ReviewResponse struct {
	Version     string               `json:"version"`
	Diff        string               `json:"diff"`
	UpdatedDoc  string               `json:"updated_doc"`
	ModelReview model.ReviewResponse `json:"model_review"`
	LintIssues  []model.LintIssue    `json:"lint_issues"`
}

// Router builds the gin engine with all routes registered.
func Router(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(deps.CORSOrigins))

	r.GET("/health", HandleHealth(deps))
	r.POST("/review", HandleReview(deps.Reviewer))
	return r
}

// HandleHealth reports service and collaborator status.
func HandleHealth(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		tgiOK := false
		if deps.Primary != nil {
			tgiOK = deps.Primary.Health(c.Request.Context())
		}
		c.JSON(http.StatusOK, gin.H{
			"status":              "ok",
			"tgi":                 tgiOK,
			"tgi_base_url":        deps.TGIBaseURL,
			"openrouter_fallback": deps.FallbackConfigured,
			"openrouter_model":    deps.FallbackModel,
		})
	}
}

// HandleReview runs the review pipeline for the posted document.
func HandleReview(reviewer ReviewRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Doc == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		outcome, err := reviewer.Run(c.Request.Context(), *req.Doc)
		if err != nil {
			if me, ok := model.AsMalformed(err); ok {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error":  "malformed_tool_call",
					"reason": me.Reason,
				})
				return
			}
			log.Error().Err(err).Msg("review failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, ReviewResponse{
			Version:     outcome.Version,
			Diff:        outcome.Diff,
			UpdatedDoc:  outcome.UpdatedDoc,
			ModelReview: outcome.Review,
			LintIssues:  outcome.LintIssues,
		})
	}
}

// corsMiddleware applies a permissive CORS policy, optionally restricted to
// configured origins.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if len(allowed) == 0 || allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
