// internal/handlers/analysis.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"beef-back/internal/apperrors"
	"beef-back/internal/logging"
	"beef-back/internal/middleware"
	"beef-back/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	msgNoFile        = "업로드할 파일이 없습니다."
	msgAnalyzeFailed = "분석 서버 통신 오류 또는 처리 중 오류가 발생했습니다: "
)

type SaveResultRequest struct {
	DetectedPart  *string `json:"detectedPart"`
	DetectedGrade *string `json:"detectedGrade"`
	Insight       string  `json:"insight" binding:"required"`
	FileName      string  `json:"fileName"`
}

// readUpload buffers the "file" form field once. It writes the 400 response
// itself and returns nil when there is nothing usable.
func readUpload(c *gin.Context, maxBytes int64) *services.Upload {
	header, err := c.FormFile("file")
	if err != nil || header.Size == 0 {
		c.JSON(http.StatusBadRequest, errorResult(msgNoFile))
		return nil
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResult(msgNoFile))
		return nil
	}
	defer f.Close()

	upload, err := services.ReadUpload(f, header.Filename, maxBytes)
	if err != nil {
		c.JSON(statusFor(err), errorResult(publicMessage(err)))
		return nil
	}
	return upload
}

// AnalyzeCut runs both analyses, stores the merged result for the caller
// (anonymous without a token) and returns it.
func AnalyzeCut(analysis *services.AnalysisService, maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		upload := readUpload(c, maxBytes)
		if upload == nil {
			return
		}

		result, err := analysis.AnalyzeAndSave(c.Request.Context(), upload, middleware.IdentityFrom(c))
		if err != nil {
			msg := publicMessage(err)
			if errors.Is(err, apperrors.ErrUpstream) {
				msg = msgAnalyzeFailed + logging.Redact(err.Error())
			}
			c.JSON(statusFor(err), errorResult(msg))
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// AnalyzeGrade returns the grade analysis alone.
func AnalyzeGrade(analysis *services.AnalysisService, maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		upload := readUpload(c, maxBytes)
		if upload == nil {
			return
		}

		result, err := analysis.AnalyzeGrade(c.Request.Context(), upload)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": "등급 분석 처리 중 오류가 발생했습니다: " + logging.Redact(err.Error())})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// SaveResult stores a result submitted by the client for the caller
// (anonymous without a token) and responds with its id.
func SaveResult(analysis *services.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SaveResultRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, err := analysis.SaveResult(c.Request.Context(), services.SaveRequest{
			DetectedPart:  req.DetectedPart,
			DetectedGrade: req.DetectedGrade,
			Insight:       req.Insight,
			FileName:      req.FileName,
		}, middleware.IdentityFrom(c))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": publicMessage(err)})
			return
		}
		c.JSON(http.StatusOK, id)
	}
}

func GetHistory(analysis *services.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := analysis.History(c.Request.Context(), middleware.IdentityFrom(c))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": publicMessage(err)})
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func GetResult(analysis *services.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Result not found"})
			return
		}

		item, err := analysis.Result(c.Request.Context(), middleware.IdentityFrom(c), uint(id))
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Result not found"})
				return
			}
			c.JSON(statusFor(err), gin.H{"error": publicMessage(err)})
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func errorResult(msg string) services.CombinedResult {
	return services.CombinedResult{Status: services.StatusError, Insight: msg}
}
