package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	adminhandler "github.com/anestconsulta/booking-api/internal/handler/admin"
	authhandler "github.com/anestconsulta/booking-api/internal/handler/auth"
	bookinghandler "github.com/anestconsulta/booking-api/internal/handler/booking"
	healthhandler "github.com/anestconsulta/booking-api/internal/handler/health"
	panelhandler "github.com/anestconsulta/booking-api/internal/handler/panel"
	"github.com/anestconsulta/booking-api/internal/middleware"
	"github.com/anestconsulta/booking-api/internal/service/account"
	"github.com/anestconsulta/booking-api/internal/validate"
	"github.com/anestconsulta/booking-api/pkg/auth"
	"github.com/anestconsulta/booking-api/pkg/errors"
	"github.com/anestconsulta/booking-api/pkg/httputil"
)

type Config struct {
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
}

type Router struct {
	engine   *gin.Engine
	bookingH *bookinghandler.Handler
	authH    *authhandler.Handler
	panelH   *panelhandler.Handler
	adminH   *adminhandler.Handler
	healthH  *healthhandler.Handler
	accounts *account.Service
	jwt      auth.JWTService
}

func NewRouter(
	bookingH *bookinghandler.Handler,
	authH *authhandler.Handler,
	panelH *panelhandler.Handler,
	adminH *adminhandler.Handler,
	healthH *healthhandler.Handler,
	accounts *account.Service,
	jwtSvc auth.JWTService,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validate.RegisterBindingValidators(v)
	}

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Metrics(),
		middleware.CORS(config.CORSConfig),
	)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(limiter.RateLimit())

	engine.NoMethod(func(c *gin.Context) {
		httputil.RespondWithError(c, errors.MethodNotAllowed())
	})
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithError(c, errors.NotFound("Recurso não encontrado."))
	})

	return &Router{
		engine:   engine,
		bookingH: bookingH,
		authH:    authH,
		panelH:   panelH,
		adminH:   adminH,
		healthH:  healthH,
		accounts: accounts,
		jwt:      jwtSvc,
	}
}

func (r *Router) Setup() {
	r.healthH.RegisterRoutes(r.engine)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	// Public surface
	r.bookingH.RegisterRoutes(api)
	r.authH.RegisterRoutes(api)
	r.adminH.RegisterLogin(api.Group("/admin"))

	// Patient panel, bearer session required
	panel := api.Group("/painel")
	panel.Use(middleware.PatientAuth(r.accounts))
	r.panelH.RegisterRoutes(panel)

	// Staff dashboard, JWT required
	admin := api.Group("/admin")
	admin.Use(middleware.StaffAuth(r.jwt))
	r.adminH.RegisterRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}
