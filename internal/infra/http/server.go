package http

import (
	"context"
	"log"
	"net/http"

	"intentd/internal/config"
	"intentd/internal/infra/cachemem"
	"intentd/internal/infra/cacheredis"
	"intentd/internal/infra/crypto"
	"intentd/internal/infra/db"
	"intentd/internal/infra/keys/soft"
	"intentd/internal/infra/merkle"
	"intentd/internal/infra/policyopa"
	"intentd/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	authority   *usecase.TokenAuthority
	delegations *usecase.DelegationService
	authorizeUC *usecase.AuthorizeInvocation
	cache       *usecase.TokenCache
	audit       usecase.AuditEventRepository

	apiKey  string
	initErr error
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Authority   *usecase.TokenAuthority
	Delegations *usecase.DelegationService
	Authorize   *usecase.AuthorizeInvocation
	Cache       *usecase.TokenCache
	Audit       usecase.AuditEventRepository
	APIKey      string
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		authority:   deps.Authority,
		delegations: deps.Delegations,
		authorizeUC: deps.Authorize,
		cache:       deps.Cache,
		audit:       deps.Audit,
		apiKey:      deps.APIKey,
	}
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.apiKey = s.cfg.APIKey

	cryptoSvc := crypto.NewService()
	merkleSvc := &merkle.Service{}

	keyManager, err := soft.NewManagerFromConfig(s.cfg)
	if err != nil {
		log.Printf("no signing key configured; generating an ephemeral key (tokens will not survive a restart)")
		keyManager, err = soft.NewEphemeralManager(s.cfg.SigningKeyID)
		if err != nil {
			s.initErr = err
			return
		}
	}

	var policyEngine usecase.PolicyEngine
	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath, "issuance")
		if err != nil {
			s.initErr = err
			return
		}
		policyEngine = engine
	}

	var (
		tokenRepo      usecase.TokenRepository
		delegationRepo usecase.DelegationRepository
		auditRepo      usecase.AuditEventRepository
	)
	if s.store != nil && s.store.DB != nil {
		tokenRepo = db.NewTokenRepository(s.store.DB)
		delegationRepo = db.NewDelegationRepository(s.store.DB)
		auditRepo = db.NewAuditEventRepository(s.store.DB)
	}
	s.audit = auditRepo
	emitter := &usecase.AuditEmitter{Repo: auditRepo}

	s.authority = &usecase.TokenAuthority{
		Crypto:          cryptoSvc,
		Merkle:          merkleSvc,
		Keys:            keyManager,
		Policy:          policyEngine,
		Tokens:          tokenRepo,
		Audit:           emitter,
		DefaultValidity: s.cfg.TokenValidity(),
	}
	s.delegations = &usecase.DelegationService{
		Crypto:      cryptoSvc,
		Keys:        keyManager,
		Verifier:    s.authority,
		Delegations: delegationRepo,
		Audit:       emitter,
		MaxDepth:    s.cfg.DelegationMaxDepth,
	}
	s.authorizeUC = &usecase.AuthorizeInvocation{
		Verifier:    s.authority,
		Delegations: s.delegations,
		Crypto:      cryptoSvc,
		Merkle:      merkleSvc,
		Audit:       emitter,
	}

	var cacheStore usecase.TokenCacheStore
	if s.cfg.RedisAddr != "" {
		redisCache, err := cacheredis.New(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB)
		if err != nil {
			s.initErr = err
			return
		}
		cacheStore = redisCache
	} else {
		cacheStore = cachemem.New()
	}
	s.cache = &usecase.TokenCache{
		Store:  cacheStore,
		Issuer: s.authority,
		Crypto: cryptoSvc,
	}
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/intent/issue", s.handleIssue)
		v1.POST("/delegation/create", s.handleDelegate)
		v1.POST("/delegation/redelegate", s.handleRedelegate)
		v1.POST("/authorize", s.handleAuthorize)
		v1.POST("/authorize/delegated", s.handleAuthorizeDelegated)
		v1.GET("/tokens/:token_id/audit", s.handleTokenAudit)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	if s.initErr != nil {
		return s.initErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}
