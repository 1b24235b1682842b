// internal/services/analysis.go
package services

import (
	"context"
	"errors"
	"time"

	"beef-back/internal/apperrors"
	"beef-back/internal/auth"
	"beef-back/internal/logging"
	"beef-back/internal/models"
	"beef-back/pkg/imaging"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	StageArchive     = "archive"
	StagePersistence = "persistence"
)

// Analyzer is the AI inference server.
type Analyzer interface {
	AnalyzePart(ctx context.Context, data []byte, filename string) (*imaging.PartResult, error)
	AnalyzeGrade(ctx context.Context, data []byte, filename string) (*imaging.GradeResult, error)
}

// CutStore persists analysis results.
type CutStore interface {
	Create(ctx context.Context, cut *models.Cut) error
	ListByMember(ctx context.Context, memberID string) ([]models.Cut, error)
	FindForMember(ctx context.Context, id uint, memberID string) (*models.Cut, error)
}

// ImageArchive stores original uploads. Optional.
type ImageArchive interface {
	Archive(ctx context.Context, owner, ext, contentType string, data []byte) (string, error)
	PresignedURL(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

// CombinedResult is the merged outcome of the part and grade calls.
type CombinedResult struct {
	Status        string  `json:"status"`
	DetectedPart  *string `json:"detectedPart"`
	DetectedGrade *string `json:"detectedGrade"`
	Insight       string  `json:"insight"`
	MemberID      *string `json:"memberId"`
}

// SaveRequest is a client supplied result to store as-is. The owner always
// comes from the caller's identity.
type SaveRequest struct {
	DetectedPart  *string
	DetectedGrade *string
	Insight       string
	FileName      string
}

// HistoryItem is a stored result as shown to its owner.
type HistoryItem struct {
	ID            uint      `json:"id"`
	DetectedPart  *string   `json:"detectedPart"`
	DetectedGrade *string   `json:"detectedGrade"`
	Insight       string    `json:"insight"`
	FileName      string    `json:"fileName"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AnalysisService struct {
	analyzer Analyzer
	cuts     CutStore
	archive  ImageArchive
	logger   *zap.Logger
}

// NewAnalysisService builds the orchestrator. archive may be nil.
func NewAnalysisService(analyzer Analyzer, cuts CutStore, archive ImageArchive, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{analyzer: analyzer, cuts: cuts, archive: archive, logger: logger}
}

// CombineInsight joins the two insights in the format existing clients parse.
func CombineInsight(partInsight, gradeInsight string) string {
	return partInsight + "\n(등급 분석: " + gradeInsight + ")"
}

// AnalyzeAndCombine runs the part and grade analyses concurrently and merges
// them. Either failure fails the whole call.
func (s *AnalysisService) AnalyzeAndCombine(ctx context.Context, upload *Upload) (*CombinedResult, error) {
	var (
		part  *imaging.PartResult
		grade *imaging.GradeResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.analyzer.AnalyzePart(gctx, upload.Bytes(), upload.Filename())
		if err != nil {
			return err
		}
		part = res
		return nil
	})
	g.Go(func() error {
		res, err := s.analyzer.AnalyzeGrade(gctx, upload.Bytes(), upload.Filename())
		if err != nil {
			return err
		}
		grade = res
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Analysis failed",
			zap.String("stage", stageOf(err)),
			zap.String("file", upload.Filename()),
			logging.Error(err))
		return nil, err
	}

	result := &CombinedResult{
		Status:        StatusSuccess,
		DetectedPart:  optional(part.DetectedPart),
		DetectedGrade: optional(grade.DetectedGrade),
		Insight:       CombineInsight(part.Insight, grade.Insight),
	}
	if result.DetectedPart == nil && result.DetectedGrade == nil {
		err := &apperrors.UpstreamError{Stage: imaging.StagePart, Err: errors.New("neither part nor grade detected")}
		s.logger.Error("Analysis returned no detection", zap.String("file", upload.Filename()))
		return nil, err
	}
	return result, nil
}

// AnalyzeAndSave analyses upload, archives the image when an archive is
// configured and stores the result for the caller (anonymous when id is nil).
// A failed archive is logged and skipped. A failed store fails the call and
// removes the archived image again.
func (s *AnalysisService) AnalyzeAndSave(ctx context.Context, upload *Upload, id *auth.Identity) (*CombinedResult, error) {
	result, err := s.AnalyzeAndCombine(ctx, upload)
	if err != nil {
		return nil, err
	}

	owner := id.Owner()
	cut := &models.Cut{
		DetectedPart:  result.DetectedPart,
		DetectedGrade: result.DetectedGrade,
		Insight:       result.Insight,
		FileName:      upload.Filename(),
		MemberID:      owner,
	}

	if s.archive != nil {
		ext := imaging.Extension(upload.Filename(), upload.ContentType())
		key, err := s.archive.Archive(ctx, owner, ext, upload.ContentType(), upload.Bytes())
		if err != nil {
			s.logger.Warn("Failed to archive image",
				zap.String("stage", StageArchive),
				zap.String("file", upload.Filename()),
				logging.Error(err))
		} else {
			cut.ImageKey = key
		}
	}

	if err := s.cuts.Create(ctx, cut); err != nil {
		s.logger.Error("Failed to save analysis result",
			zap.String("stage", StagePersistence),
			zap.String("file", upload.Filename()),
			logging.Error(err))
		s.discardImage(ctx, cut.ImageKey)
		return nil, err
	}

	result.MemberID = &owner
	s.logger.Info("Analysis saved",
		zap.Uint("cut_id", cut.ID),
		zap.Bool("anonymous", owner == auth.AnonymousOwner))
	return result, nil
}

// AnalyzeGrade runs only the grade analysis. Nothing is stored.
func (s *AnalysisService) AnalyzeGrade(ctx context.Context, upload *Upload) (*CombinedResult, error) {
	grade, err := s.analyzer.AnalyzeGrade(ctx, upload.Bytes(), upload.Filename())
	if err != nil {
		s.logger.Error("Grade analysis failed",
			zap.String("stage", imaging.StageGrade),
			zap.String("file", upload.Filename()),
			logging.Error(err))
		return nil, err
	}
	return &CombinedResult{
		Status:        StatusSuccess,
		DetectedGrade: optional(grade.DetectedGrade),
		Insight:       grade.Insight,
	}, nil
}

// SaveResult stores a client supplied result for the caller (anonymous when
// id is nil) and returns its id.
func (s *AnalysisService) SaveResult(ctx context.Context, req SaveRequest, id *auth.Identity) (uint, error) {
	if req.Insight == "" {
		return 0, apperrors.Validation("insight is required")
	}
	owner := id.Owner()

	cut := &models.Cut{
		DetectedPart:  req.DetectedPart,
		DetectedGrade: req.DetectedGrade,
		Insight:       req.Insight,
		FileName:      req.FileName,
		MemberID:      owner,
	}
	if err := s.cuts.Create(ctx, cut); err != nil {
		s.logger.Error("Failed to save result",
			zap.String("stage", StagePersistence),
			logging.Error(err))
		return 0, err
	}
	return cut.ID, nil
}

// History lists the caller's stored results, newest first.
func (s *AnalysisService) History(ctx context.Context, id *auth.Identity) ([]HistoryItem, error) {
	if id == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	cuts, err := s.cuts.ListByMember(ctx, id.Subject)
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(cuts))
	for i := range cuts {
		items = append(items, s.historyItem(ctx, &cuts[i]))
	}
	return items, nil
}

// Result returns one stored result owned by the caller.
func (s *AnalysisService) Result(ctx context.Context, id *auth.Identity, cutID uint) (*HistoryItem, error) {
	if id == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	cut, err := s.cuts.FindForMember(ctx, cutID, id.Subject)
	if err != nil {
		return nil, err
	}
	item := s.historyItem(ctx, cut)
	return &item, nil
}

func (s *AnalysisService) historyItem(ctx context.Context, cut *models.Cut) HistoryItem {
	item := HistoryItem{
		ID:            cut.ID,
		DetectedPart:  cut.DetectedPart,
		DetectedGrade: cut.DetectedGrade,
		Insight:       cut.Insight,
		FileName:      cut.FileName,
		CreatedAt:     cut.CreatedAt,
	}
	if cut.ImageKey != "" && s.archive != nil {
		url, err := s.archive.PresignedURL(ctx, cut.ImageKey)
		if err != nil {
			s.logger.Warn("Failed to presign image", zap.Uint("cut_id", cut.ID), logging.Error(err))
		} else {
			item.ImageURL = url
		}
	}
	return item
}

// discardImage deletes an archived image whose row was never written. It
// runs detached from ctx so a cancelled request still cleans up.
func (s *AnalysisService) discardImage(ctx context.Context, key string) {
	if key == "" || s.archive == nil {
		return
	}
	if err := s.archive.Remove(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("Failed to remove orphaned image",
			zap.String("stage", StageArchive),
			zap.String("key", key),
			logging.Error(err))
	}
}

func stageOf(err error) string {
	var upstream *apperrors.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Stage
	}
	return "analysis"
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
