package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"worker-translate/dto"
	"worker-translate/repository"
	"worker-translate/service"
)

// Cors applies the permissive headers every response carries and answers
// preflight requests.
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestUploadSlot is the intake endpoint. Credential validation is an
// upstream concern; only the bearer format is required here. Error bodies
// stay generic, detail goes to the log.
func RequestUploadSlot(intake service.IntakeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		authorization := c.GetHeader("Authorization")
		if !strings.HasPrefix(authorization, "Bearer ") || strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer ")) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		var req dto.UploadSlotRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("malformed upload slot request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		resp, err := intake.RequestUploadSlot(ctx, req)
		if err != nil {
			if errors.Is(err, service.ErrValidation) {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("upload slot request rejected")
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to create upload slot")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create an upload slot"})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// GetJob is the status read path clients poll with the jobId returned at
// intake.
func GetJob(repo repository.JobRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		jobId, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
			return
		}

		job, err := repo.FindJobById(ctx, jobId)
		if err != nil {
			if errors.Is(err, repository.ErrJobNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
				return
			}
			zerolog.Ctx(ctx).Error().Err(err).Str("job_id", jobId.String()).Msg("failed to load job")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load job"})
			return
		}

		c.JSON(http.StatusOK, job)
	}
}
