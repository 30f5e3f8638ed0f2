package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path"
	"regexp"
	"syscall"
	"time"

	"guilance/src/boot"
	"guilance/src/config"
	"guilance/src/lib"
	"guilance/src/middlewares"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const apiPrefix = "/api/v1"

var mobilePattern = regexp.MustCompile(`^(\+98|0)?9\d{9}$`)

// mobileValidator accepts Iranian mobile numbers such as 09121234567 or +989121234567.
var mobileValidator validator.Func = func(fl validator.FieldLevel) bool {
	v, ok := fl.Field().Interface().(string)
	return ok && mobilePattern.MatchString(v)
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("mobile", mobileValidator)
	}
}

func setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middlewares.RequestLogger, middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine, cfg *config.Config) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		if cfg.MaintenanceMode {
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "server is under maintenance"})
			return
		}
	})
	return g
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	if cfg.IsLocal() {
		return cors.Default()
	}
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
	cc.AllowOriginFunc = func(origin string) bool {
		return origin == cfg.FrontendRoot || (cfg.AppHost != "" && origin == cfg.AppHost)
	}
	cc.AllowCredentials = true
	return cors.New(cc)
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	return g.Group(apiPrefix)
}

// mountRoutes registers every API route on router.
func mountRoutes(router *gin.Engine, app *boot.App, cfg *config.Config) {
	payLimiter := middlewares.NewRateLimiter(rate.Every(time.Minute/30), 10, 10*time.Minute)

	public := apiv1Group(router)
	eventHandlers(public, app)
	callback := public.Group("", payLimiter.Middleware())
	paymentCallbackRoute(callback, app)

	authorized := apiv1Group(router)
	authorized.Use(middlewares.AuthMiddleware([]byte(cfg.JWTSecret), app.Store.Users()))
	{
		authorized.GET("/users/me", func(ctx *gin.Context) {
			user, err := app.Store.Users().FindByID(ctx.Request.Context(), ctx.GetUint("id"))
			if err != nil {
				abortWithError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, user)
		})
		payments := authorized.Group("", payLimiter.Middleware())
		paymentHandlers(payments, app)
		registrationHandlers(authorized, app)
		discountHandlers(authorized, app)
	}
}

func initLogger(cfg *config.Config) *zap.Logger {
	logger := lib.NewLogger(cfg.APIEnv, cfg.LogDir)
	if cfg.IsLocal() {
		gin.ForceConsoleColor()
	}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err == nil {
		if f, err := os.Create(path.Join(cfg.LogDir, "api.log")); err == nil {
			gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
		}
	}
	return logger
}

func main() {
	cfg := config.Get()
	logger := initLogger(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB := boot.InitDb()
	app := boot.InitServices(ctx, gormDB, cfg)
	boot.InitScheduler(app, cfg)
	defer boot.StopScheduler()
	go boot.InitBroker(ctx, cfg)

	registerValidators()
	router := setupRouter()
	router.Use(corsMiddleware(cfg))
	router = maintenanceModeMiddleware(router, cfg)
	mountRoutes(router, app, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zap.L().Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.APIEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown", zap.Error(err))
	}
}
