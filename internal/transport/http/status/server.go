// Package status serves the read-only operational surface: session state,
// position, stats and the trade ledger. It never mutates the session; the
// only control path into a running session is the operator stop signal.
package status

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devvrat-hans/algo-trading-bot/internal/logger"
	"github.com/devvrat-hans/algo-trading-bot/internal/position"
	"github.com/devvrat-hans/algo-trading-bot/internal/session"
)

// SessionView is what the handlers need from the controller.
type SessionView interface {
	Snapshot() session.Snapshot
}

// TradeLister reads back persisted trade records, newest first.
type TradeLister interface {
	List(ctx context.Context, limit int) ([]position.TradeRecord, error)
}

type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr    string
	Session SessionView
	Trades  TradeLister
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("status http server requires a session view")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9985"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/status", handleStatus(cfg.Session))
	if cfg.Trades != nil {
		api.GET("/trades", handleTrades(cfg.Trades))
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

func handleStatus(view SessionView) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, view.Snapshot())
	}
}

func handleTrades(trades TradeLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		if limit <= 0 {
			limit = 100
		}
		if limit > 500 {
			limit = 500
		}
		recs, err := trades.List(c.Request.Context(), limit)
		if err != nil {
			logger.Errorf("[api] trade list failed ip=%s err=%v", c.ClientIP(), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"trades": recs, "count": len(recs)})
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx cancels or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
