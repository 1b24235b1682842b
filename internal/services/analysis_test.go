// internal/services/analysis_test.go
package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"beef-back/internal/apperrors"
	"beef-back/internal/auth"
	"beef-back/internal/models"
	"beef-back/internal/repository"
	"beef-back/internal/testhelpers"
	"beef-back/pkg/imaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x42}, 64)...)

// stubAI imitates the inference server and records what it received.
type stubAI struct {
	partCalls  atomic.Int32
	gradeCalls atomic.Int32

	partStatus  int
	gradeStatus int
	partBody    string
	gradeBody   string

	mu       sync.Mutex
	received [][]byte
}

func newStubAI() *stubAI {
	return &stubAI{
		partStatus:  http.StatusOK,
		gradeStatus: http.StatusOK,
		partBody:    `{"detectedPart":"tenderloin","insight":"A","status":"success"}`,
		gradeBody:   `{"detectedGrade":"1++","insight":"B","status":"success"}`,
	}
}

func (s *stubAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	data, _ := io.ReadAll(file)
	file.Close()

	s.mu.Lock()
	s.received = append(s.received, data)
	s.mu.Unlock()

	switch r.URL.Path {
	case imaging.PartPath:
		s.partCalls.Add(1)
		w.WriteHeader(s.partStatus)
		_, _ = w.Write([]byte(s.partBody))
	case imaging.GradePath:
		s.gradeCalls.Add(1)
		w.WriteHeader(s.gradeStatus)
		_, _ = w.Write([]byte(s.gradeBody))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type fakeArchive struct {
	err     error
	keys    []string
	presign string
}

func (f *fakeArchive) Archive(_ context.Context, owner, ext, _ string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := "cuts/" + owner + "/obj" + ext
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakeArchive) PresignedURL(_ context.Context, key string) (string, error) {
	return f.presign + key, nil
}

func (f *fakeArchive) Remove(_ context.Context, key string) error {
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			return nil
		}
	}
	return errors.New("no such key")
}

type failingCutStore struct {
	*repository.CutRepository
}

func (failingCutStore) Create(context.Context, *models.Cut) error {
	return errors.Join(apperrors.ErrPersistence, errors.New("disk full"))
}

type analysisFixture struct {
	svc  *AnalysisService
	ai   *stubAI
	db   *gorm.DB
	cuts *repository.CutRepository
}

func newAnalysisFixture(t *testing.T, ai *stubAI, archive ImageArchive) *analysisFixture {
	t.Helper()
	srv := httptest.NewServer(ai)
	t.Cleanup(srv.Close)

	db := testhelpers.NewDB(t)
	cuts := repository.NewCutRepository(db, time.Second)
	client := imaging.NewClient(srv.URL, 2*time.Second)

	return &analysisFixture{
		svc:  NewAnalysisService(client, cuts, archive, zap.NewNop()),
		ai:   ai,
		db:   db,
		cuts: cuts,
	}
}

func (f *analysisFixture) countCuts(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Cut{}).Count(&n).Error)
	return n
}

func mustUpload(t *testing.T) *Upload {
	t.Helper()
	u, err := NewUpload(pngBytes, "steak.png")
	require.NoError(t, err)
	return u
}

func TestCombineInsight(t *testing.T) {
	assert.Equal(t, "A\n(등급 분석: B)", CombineInsight("A", "B"))
}

func TestAnalyzeAndCombine_MergesBothCalls(t *testing.T) {
	f := newAnalysisFixture(t, newStubAI(), nil)

	res, err := f.svc.AnalyzeAndCombine(context.Background(), mustUpload(t))
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.DetectedPart)
	require.NotNil(t, res.DetectedGrade)
	assert.Equal(t, "tenderloin", *res.DetectedPart)
	assert.Equal(t, "1++", *res.DetectedGrade)
	assert.Contains(t, res.Insight, "A")
	assert.Contains(t, res.Insight, "B")
	assert.Equal(t, "A\n(등급 분석: B)", res.Insight)

	assert.EqualValues(t, 1, f.ai.partCalls.Load())
	assert.EqualValues(t, 1, f.ai.gradeCalls.Load())
}

func TestAnalyzeAndCombine_BothCallsGetFullImage(t *testing.T) {
	f := newAnalysisFixture(t, newStubAI(), nil)

	_, err := f.svc.AnalyzeAndCombine(context.Background(), mustUpload(t))
	require.NoError(t, err)

	require.Len(t, f.ai.received, 2)
	for _, got := range f.ai.received {
		assert.Equal(t, pngBytes, got)
	}
}

func TestAnalyzeAndSave_GradeFailureStoresNothing(t *testing.T) {
	ai := newStubAI()
	ai.gradeStatus = http.StatusInternalServerError
	ai.gradeBody = `{"error":"model crashed"}`
	f := newAnalysisFixture(t, ai, nil)

	_, err := f.svc.AnalyzeAndSave(context.Background(), mustUpload(t), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)

	var upstream *apperrors.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, imaging.StageGrade, upstream.Stage)
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)

	assert.Zero(t, f.countCuts(t))
}

func TestAnalyzeAndSave_PartFailureStoresNothing(t *testing.T) {
	ai := newStubAI()
	ai.partBody = `not json`
	f := newAnalysisFixture(t, ai, nil)

	_, err := f.svc.AnalyzeAndSave(context.Background(), mustUpload(t), nil)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Zero(t, f.countCuts(t))
}

func TestAnalyzeAndSave_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	db := testhelpers.NewDB(t)
	svc := NewAnalysisService(imaging.NewClient(url, time.Second), repository.NewCutRepository(db, time.Second), nil, zap.NewNop())

	_, err := svc.AnalyzeAndSave(context.Background(), mustUpload(t), nil)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestAnalyzeAndSave_NoDetection(t *testing.T) {
	ai := newStubAI()
	ai.partBody = `{"detectedPart":"","insight":"nothing"}`
	ai.gradeBody = `{"detectedGrade":"","insight":"nothing"}`
	f := newAnalysisFixture(t, ai, nil)

	_, err := f.svc.AnalyzeAndSave(context.Background(), mustUpload(t), nil)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Zero(t, f.countCuts(t))
}

func TestAnalyzeAndSave_Anonymous(t *testing.T) {
	f := newAnalysisFixture(t, newStubAI(), nil)

	res, err := f.svc.AnalyzeAndSave(context.Background(), mustUpload(t), nil)
	require.NoError(t, err)
	require.NotNil(t, res.MemberID)
	assert.Equal(t, auth.AnonymousOwner, *res.MemberID)

	var cut models.Cut
	require.NoError(t, f.db.First(&cut).Error)
	assert.Equal(t, auth.AnonymousOwner, cut.MemberID)
	assert.Equal(t, "steak.png", cut.FileName)
	assert.Equal(t, "A\n(등급 분석: B)", cut.Insight)
	require.NotNil(t, cut.DetectedPart)
	assert.Equal(t, "tenderloin", *cut.DetectedPart)
}

func TestAnalyzeAndSave_OwnedByIdentity(t *testing.T) {
	archive := &fakeArchive{presign: "https://minio.local/"}
	f := newAnalysisFixture(t, newStubAI(), archive)
	id := &auth.Identity{Subject: "cook@example.com", Role: auth.RoleUser}

	_, err := f.svc.AnalyzeAndSave(context.Background(), mustUpload(t), id)
	require.NoError(t, err)

	var cut models.Cut
	require.NoError(t, f.db.First(&cut).Error)
	assert.Equal(t, "cook@example.com", cut.MemberID)
	assert.Equal(t, "cuts/cook@example.com/obj.png", cut.ImageKey)

	history, err := f.svc.History(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "https://minio.local/cuts/cook@example.com/obj.png", history[0].ImageURL)

	item, err := f.svc.Result(context.Background(), id, cut.ID)
	require.NoError(t, err)
	assert.Equal(t, cut.ID, item.ID)

	_, err = f.svc.Result(context.Background(), &auth.Identity{Subject: "other@example.com"}, cut.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAnalyzeAndSave_ArchiveFailureStillSaves(t *testing.T) {
	f := newAnalysisFixture(t, newStubAI(), &fakeArchive{err: errors.New("minio down")})

	_, err := f.svc.AnalyzeAndSave(context.Background(), mustUpload(t), nil)
	require.NoError(t, err)

	var cut models.Cut
	require.NoError(t, f.db.First(&cut).Error)
	assert.Empty(t, cut.ImageKey)
}

func TestAnalyzeAndSave_PersistenceFailureFails(t *testing.T) {
	srv := httptest.NewServer(newStubAI())
	defer srv.Close()

	svc := NewAnalysisService(imaging.NewClient(srv.URL, time.Second), failingCutStore{}, nil, zap.NewNop())

	_, err := svc.AnalyzeAndSave(context.Background(), mustUpload(t), nil)
	assert.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.NotErrorIs(t, err, apperrors.ErrUpstream)
}

func TestAnalyzeAndSave_PersistenceFailureRemovesImage(t *testing.T) {
	srv := httptest.NewServer(newStubAI())
	defer srv.Close()

	archive := &fakeArchive{}
	svc := NewAnalysisService(imaging.NewClient(srv.URL, time.Second), failingCutStore{}, archive, zap.NewNop())

	_, err := svc.AnalyzeAndSave(context.Background(), mustUpload(t), nil)
	require.ErrorIs(t, err, apperrors.ErrPersistence)
	assert.Empty(t, archive.keys)
}

func TestAnalyzeAndCombine_MissingInsight(t *testing.T) {
	ai := newStubAI()
	ai.partBody = `{"detectedPart":"tenderloin"}`
	f := newAnalysisFixture(t, ai, nil)

	_, err := f.svc.AnalyzeAndSave(context.Background(), mustUpload(t), nil)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Zero(t, f.countCuts(t))
}

func TestAnalyzeGrade(t *testing.T) {
	f := newAnalysisFixture(t, newStubAI(), nil)

	res, err := f.svc.AnalyzeGrade(context.Background(), mustUpload(t))
	require.NoError(t, err)
	assert.Nil(t, res.DetectedPart)
	require.NotNil(t, res.DetectedGrade)
	assert.Equal(t, "1++", *res.DetectedGrade)
	assert.Equal(t, "B", res.Insight)

	assert.Zero(t, f.ai.partCalls.Load())
	assert.Zero(t, f.countCuts(t))
}

func TestSaveResult(t *testing.T) {
	f := newAnalysisFixture(t, newStubAI(), nil)
	part := "sirloin"

	id, err := f.svc.SaveResult(context.Background(), SaveRequest{DetectedPart: &part, Insight: "manual", FileName: "a.jpg"}, nil)
	require.NoError(t, err)
	assert.NotZero(t, id)

	again, err := f.svc.SaveResult(context.Background(), SaveRequest{DetectedPart: &part, Insight: "manual", FileName: "a.jpg"}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, id, again)

	var cut models.Cut
	require.NoError(t, f.db.First(&cut, id).Error)
	assert.Equal(t, auth.AnonymousOwner, cut.MemberID)

	_, err = f.svc.SaveResult(context.Background(), SaveRequest{}, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSaveResult_OwnedByIdentity(t *testing.T) {
	f := newAnalysisFixture(t, newStubAI(), nil)
	id := &auth.Identity{Subject: "cook@example.com", Role: auth.RoleUser}

	cutID, err := f.svc.SaveResult(context.Background(), SaveRequest{Insight: "manual"}, id)
	require.NoError(t, err)

	var cut models.Cut
	require.NoError(t, f.db.First(&cut, cutID).Error)
	assert.Equal(t, "cook@example.com", cut.MemberID)
}

func TestHistory_RequiresIdentity(t *testing.T) {
	f := newAnalysisFixture(t, newStubAI(), nil)

	_, err := f.svc.History(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestReadUpload(t *testing.T) {
	u, err := ReadUpload(bytes.NewReader(pngBytes), "dir/steak.png", 1024)
	require.NoError(t, err)
	assert.Equal(t, "steak.png", u.Filename())
	assert.Equal(t, "image/png", u.ContentType())
	assert.Equal(t, len(pngBytes), u.Size())

	_, err = ReadUpload(bytes.NewReader(nil), "empty.png", 1024)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = ReadUpload(bytes.NewReader(pngBytes), "big.png", 8)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = ReadUpload(strings.NewReader("plain text is not an image"), "notes.txt", 1024)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	u, err = NewUpload(pngBytes, "")
	require.NoError(t, err)
	assert.Equal(t, "upload.png", u.Filename())
}
