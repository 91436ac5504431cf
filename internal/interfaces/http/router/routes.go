package router

import (
	"github.com/gin-gonic/gin"
	"github.com/railinspect/backend/internal/interfaces/http/handler"
)

// Handlers holds the handlers served by the inspection service
type Handlers struct {
	Pages      *handler.PageHandler
	Sessions   *handler.SessionHandler
	Products   *handler.ProductHandler
	Conditions *handler.ConditionHandler
	System     *handler.SystemHandler
}

// BodyLimits guard request bodies. Upload applies to the routes that accept
// images, Default to every other route. A nil limit is not applied.
type BodyLimits struct {
	Default gin.HandlerFunc
	Upload  gin.HandlerFunc
}

func (l BodyLimits) chain(limit, hf gin.HandlerFunc) []gin.HandlerFunc {
	if limit == nil {
		return []gin.HandlerFunc{hf}
	}
	return []gin.HandlerFunc{limit, hf}
}

// Inspection registers the inspector screens and the API
func Inspection(r *Router, h Handlers, limits BodyLimits) *Router {
	upload := func(hf gin.HandlerFunc) []gin.HandlerFunc {
		return limits.chain(limits.Upload, hf)
	}
	body := func(hf gin.HandlerFunc) []gin.HandlerFunc {
		return limits.chain(limits.Default, hf)
	}

	pages := NewDomainGroup("pages", "")
	pages.GET(handler.PathScan, h.Pages.Scan).Describe("Scan screen")
	pages.POST("/scan", body(h.Pages.SubmitScan)...).Describe("Resolve a typed product ID")
	pages.POST("/scan/image", upload(h.Pages.ScanImage)...).Describe("Resolve a photo of a QR label")
	pages.POST("/scan/new", h.Pages.ScanNew).Describe("Forget the resolved product")
	pages.POST("/logout", h.Pages.Logout).Describe("Forget the session")

	guarded := pages.Group("product-screens", "").Use(h.Pages.RequireProduct())
	guarded.GET(handler.PathDashboard, h.Pages.Dashboard).Describe("Product dashboard")
	guarded.GET(handler.PathUpdateCondition, h.Pages.UpdateConditionForm).Describe("Condition form")
	guarded.POST(handler.PathUpdateCondition, body(h.Pages.SubmitCondition)...).Describe("Submit the condition form")
	guarded.GET(handler.PathHistory, h.Pages.History).Describe("Maintenance history")
	r.RegisterPage(pages)

	session := NewDomainGroup("session", "/session")
	session.GET("", h.Sessions.Get).Describe("Session state")
	session.DELETE("", h.Sessions.Clear).Describe("Clear the resolved product")
	session.POST("/scan", body(h.Sessions.Scan)...).Describe("Resolve a product ID")
	session.POST("/scan/frames", upload(h.Sessions.ScanFrames)...).Describe("Decode camera frames")
	session.PUT("/location", body(h.Sessions.SetLocation)...).Describe("Record the device location")
	r.Register(session)

	products := NewDomainGroup("products", "/products")
	products.GET("", h.Products.List).Describe("List products")
	products.GET("/:code", h.Products.Get).Describe("Get a product")
	products.GET("/:code/history", h.Products.History).Describe("Filtered maintenance history")
	products.GET("/:code/history.csv", h.Products.ExportHistory).Describe("Export history as CSV")
	products.GET("/:code/qr", h.Products.Label).Describe("QR label")
	products.GET("/:code/images", h.Products.ListImages).Describe("List inspection photos")
	products.POST("/:code/images", upload(h.Products.UploadImage)...).Describe("Upload an inspection photo")
	products.POST("/:code/condition", body(h.Conditions.Update)...).Describe("Record an inspection")
	r.Register(products)

	if h.System != nil {
		system := NewDomainGroup("system", "/system")
		system.GET("/info", h.System.GetSystemInfo).Describe("Service information")
		system.GET("/ping", h.System.Ping).Describe("Liveness")
		r.Register(system)
	}
	return r
}
