// Package web provides the admin console web server: routing, templates,
// cookie sessions and the background jobs.
package web

import (
	"context"
	"crypto/tls"
	"embed"
	"errors"
	"html/template"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/authpanel/authpanel/caching"
	"github.com/authpanel/authpanel/config"
	"github.com/authpanel/authpanel/logger"
	"github.com/authpanel/authpanel/util/common"
	"github.com/authpanel/authpanel/util/crypto"
	"github.com/authpanel/authpanel/util/random"
	"github.com/authpanel/authpanel/web/controller"
	"github.com/authpanel/authpanel/web/job"
	"github.com/authpanel/authpanel/web/locale"
	"github.com/authpanel/authpanel/web/middleware"
	"github.com/authpanel/authpanel/web/network"
	"github.com/authpanel/authpanel/web/service"
	"github.com/authpanel/authpanel/web/session"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

//go:embed html/*
var htmlFS embed.FS

//go:embed translation/*
var i18nFS embed.FS

// Server is the console web server with its controllers and scheduled jobs.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	index *controller.IndexController
	api   *controller.APIController

	adminAPI    *service.AdminAPIService
	directories *caching.Cache
	health      *job.CheckAPIHealthJob

	cron *cron.Cron
}

func NewServer() *Server {
	return &Server{}
}

func (s *Server) getHtmlTemplate() (*template.Template, error) {
	return template.New("").ParseFS(htmlFS, "html/*.html")
}

// sessionStore builds the cookie store. Without a configured secret the keys
// are random and sessions do not survive a restart.
func (s *Server) sessionStore(basePath string) (cookie.Store, error) {
	secret := config.GetSessionSecret()
	if secret == "" {
		logger.Warning("AUTHPANEL_SESSION_SECRET is not set, sessions end when the process restarts")
		secret = random.Seq(32)
	}
	hashKey, blockKey, err := crypto.SessionKeys(secret)
	if err != nil {
		return nil, err
	}
	store := cookie.NewStore(hashKey, blockKey)
	store.Options(sessions.Options{
		Path:     basePath,
		MaxAge:   config.GetSessionMaxAge() * 60,
		HttpOnly: true,
		Secure:   config.GetCertFile() != "",
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

func (s *Server) initRouter() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.Default()

	if webDomain := config.GetWebDomain(); webDomain != "" {
		engine.Use(middleware.DomainValidatorMiddleware(webDomain))
	}

	basePath := config.GetBasePath()
	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{basePath + "panel/api/"}),
	))

	store, err := s.sessionStore(basePath)
	if err != nil {
		return nil, err
	}
	engine.Use(sessions.Sessions(session.CookieName, store))
	engine.Use(middleware.BasePathMiddleware(basePath))
	engine.Use(locale.LocalizerMiddleware())

	tpl, err := s.getHtmlTemplate()
	if err != nil {
		return nil, err
	}
	engine.SetHTMLTemplate(tpl)

	base := controller.NewBaseController(s.adminAPI, s.directories, config.GetHomeURL())
	g := engine.Group(basePath)
	s.index = controller.NewIndexController(g, base)
	s.api = controller.NewAPIController(g, base)

	engine.GET(basePath+"healthz", func(c *gin.Context) {
		body := gin.H{"api": true, "consoles": s.directories.Len(), "version": config.GetVersion()}
		if !s.health.Healthy() {
			body["api"] = false
			body["msg"] = locale.I18n(c, "pages.api.unhealthy")
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	})

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine, nil
}

func (s *Server) startTask() {
	if _, err := s.cron.AddJob(config.GetHealthCron(), s.health); err != nil {
		logger.Warning("Add CheckAPIHealthJob error:", err)
	}
	if _, err := s.cron.AddJob("@daily", job.NewAuditCleanupJob()); err != nil {
		logger.Warning("Add AuditCleanupJob error:", err)
	}
}

func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	if err = config.Validate(); err != nil {
		return err
	}
	if err = locale.InitLocalizer(i18nFS); err != nil {
		return err
	}

	s.adminAPI = service.NewAdminAPIService(config.GetAPIURL(), config.GetAPITimeout())
	s.health = job.NewCheckAPIHealthJob(s.adminAPI, config.GetAPITimeout())
	s.directories = caching.NewCache(time.Duration(config.GetSessionMaxAge()) * time.Minute)
	if err = s.directories.Init(); err != nil {
		return err
	}

	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	s.cron.Start()

	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	certFile, keyFile := config.GetCertFile(), config.GetKeyFile()
	if certFile != "" || keyFile != "" {
		if cert, err := tls.LoadX509KeyPair(certFile, keyFile); err == nil {
			cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
			listener = network.NewRedirectListener(listener)
			listener = tls.NewListener(listener, cfg)
			logger.Info("Web server running HTTPS on", listener.Addr())
		} else {
			logger.Error("Error loading certificates:", err)
			logger.Info("Web server running HTTP on", listener.Addr())
		}
	} else {
		logger.Info("Web server running HTTP on", listener.Addr())
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("web server stopped:", err)
		}
	}()

	s.startTask()

	return nil
}

func (s *Server) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.directories != nil {
		_ = s.directories.Flush()
	}
	var err1, err2 error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	}
	if s.listener != nil {
		// Shutdown already closed it
		if err2 = s.listener.Close(); errors.Is(err2, net.ErrClosed) {
			err2 = nil
		}
	}
	return common.Combine(err1, err2)
}
