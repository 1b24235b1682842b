// internal/server/router.go
package server

import (
	"beef-back/internal/handlers"
	"beef-back/internal/middleware"
	"beef-back/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the router wires into handlers.
type Deps struct {
	DB             *gorm.DB
	Members        *services.MemberService
	Analysis       *services.AnalysisService
	Verifier       middleware.TokenVerifier
	Policy         *middleware.Policy
	AllowedOrigins []string
	MaxUploadBytes int64
	Logger         *zap.Logger
}

type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
}

// NewRouter builds the engine. Access control comes only from deps.Policy:
// the auth gate consults it per request, and routes whose policy entry is
// AccessRequired get RequireIdentity here.
func NewRouter(deps Deps) *gin.Engine {
	policy := deps.Policy
	if policy == nil {
		policy = middleware.DefaultPolicy()
	}

	r := gin.New()
	r.MaxMultipartMemory = deps.MaxUploadBytes
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORSMiddleware(deps.AllowedOrigins))
	r.Use(middleware.NewAuthGate(deps.Verifier, policy, deps.Logger).Handler())

	routes := []route{
		{"POST", "/auth/register", handlers.Register(deps.Members)},
		{"POST", "/auth/login", handlers.Login(deps.Members)},
		{"GET", "/api/member/profile", handlers.GetProfile(deps.Members)},

		{"POST", "/api/cut/analyze", handlers.AnalyzeCut(deps.Analysis, deps.MaxUploadBytes)},
		{"POST", "/api/cut/grade", handlers.AnalyzeGrade(deps.Analysis, deps.MaxUploadBytes)},
		{"POST", "/api/cut/save", handlers.SaveResult(deps.Analysis)},
		{"GET", "/api/cut/history", handlers.GetHistory(deps.Analysis)},
		{"GET", "/api/cut/results/:id", handlers.GetResult(deps.Analysis)},

		{"GET", "/healthz", handlers.Health(deps.DB)},
	}

	for _, rt := range routes {
		chain := []gin.HandlerFunc{rt.handler}
		if policy.Lookup(rt.method, rt.path) == middleware.AccessRequired {
			chain = append([]gin.HandlerFunc{middleware.RequireIdentity()}, chain...)
		}
		r.Handle(rt.method, rt.path, chain...)
	}

	return r
}
