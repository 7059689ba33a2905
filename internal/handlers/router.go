package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/tomato-leaf-api/internal/metrics"
	"github.com/Brownie44l1/tomato-leaf-api/internal/web"
)

// NewRouter builds the gin engine with the page, API and ops routes.
func NewRouter(h *Handler, m *metrics.Metrics, logger *zap.Logger) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger, m))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", requestIDHeader},
		ExposeHeaders:   []string{requestIDHeader, "Content-Disposition"},
	}))
	r.SetHTMLTemplate(tmpl)
	r.MaxMultipartMemory = h.maxUpload

	r.GET("/", h.Home)
	r.GET("/detect", h.DetectPage)
	r.POST("/detect", h.Detect)
	r.GET("/report", h.Report)
	r.GET("/guide", h.CareGuide)
	r.GET("/chatbot", h.Chatbot)

	api := r.Group("/api")
	api.POST("/predict", h.PredictFromImage)

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(m.Handler()))

	return r, nil
}
