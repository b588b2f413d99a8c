// Package httpapi exposes the report service over HTTP with gin.
package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pnlEngine/internal/adapters/logger"
	"pnlEngine/internal/app"
	"pnlEngine/internal/domain"
	"pnlEngine/internal/ports"
)

const (
	apiBasePath     = "/api/v1"
	requestIDHeader = "X-Request-ID"
)

var errMissingUser = errors.New("missing user")

type Handler struct {
	router *gin.Engine
	svc    *app.ReportService
	logger ports.Logger
	now    func() time.Time
}

var _ http.Handler = (*Handler)(nil)

// NewHandler builds the gin router serving the report API. Decimals render
// as JSON numbers only when the process sets decimal.MarshalJSONWithoutQuotes,
// as main does before serving.
func NewHandler(svc *app.ReportService, log ports.Logger) *Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{
		router: router,
		svc:    svc,
		logger: log,
		now:    time.Now,
	}
	router.Use(h.requestID())
	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := h.router.Group(apiBasePath)
	{
		api.POST("/portfolio", h.portfolio)
		api.POST("/overview", h.overview)
		api.POST("/performance", h.performance)
		api.POST("/tax", h.tax)
		api.POST("/compare", h.compare)

		funds := api.Group("/funds")
		{
			funds.POST("/overview", h.fundOverview)
			funds.POST("/performance", h.fundPerformance)
		}

		users := api.Group("/users/:user")
		{
			users.GET("/portfolio", h.userPortfolio)
			users.GET("/overview", h.userOverview)
			users.GET("/performance", h.userPerformance)
			users.GET("/tax", h.userTax)

			users.POST("/trades", h.createTrade)
			users.POST("/trades/:id/tags", h.tagTrade)
			users.POST("/funds", h.createFundLot)
			users.GET("/funds/overview", h.userFundOverview)
		}
	}
}

// requestID tags every request with an id, taken from the X-Request-ID
// header when the caller sent one.
func (h *Handler) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := logger.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()
		h.logger.Debug(ctx, "Request handled", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

// Stateless reports: the trades travel in the request body.

func (h *Handler) portfolio(c *gin.Context) {
	var req reportRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Portfolio(c.Request.Context(), tradesToDomain(req.Trades), req.valuation())
	h.respond(c, res, err)
}

func (h *Handler) overview(c *gin.Context) {
	var req reportRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Overview(c.Request.Context(), tradesToDomain(req.Trades), req.valuation())
	h.respond(c, res, err)
}

func (h *Handler) performance(c *gin.Context) {
	var req reportRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Performance(c.Request.Context(), tradesToDomain(req.Trades), req.tagsByTrade())
	h.respond(c, res, err)
}

func (h *Handler) tax(c *gin.Context) {
	var req taxRequest
	if !bindJSON(c, &req) {
		return
	}
	year := req.TaxYear
	if year == 0 {
		year = h.now().Year()
	}
	res, err := h.svc.Tax(c.Request.Context(), tradesToDomain(req.Trades), req.apply(h.svc.TaxParams(year)))
	h.respond(c, res, err)
}

func (h *Handler) compare(c *gin.Context) {
	var req compareRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.ComparePeriods(c.Request.Context(), tradesToDomain(req.Trades), req.Period1, req.Period2)
	h.respond(c, res, err)
}

func (h *Handler) fundOverview(c *gin.Context) {
	var req fundRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c, h.svc.FundOverview(c.Request.Context(), req.lots(), req.NAVs), nil)
}

func (h *Handler) fundPerformance(c *gin.Context) {
	var req fundRequest
	if !bindJSON(c, &req) {
		return
	}
	h.respond(c, h.svc.FundPerformance(c.Request.Context(), req.lots(), req.NAVs, req.AsOf), nil)
}

// Stored reports: the trades come from the repository.

func (h *Handler) userPortfolio(c *gin.Context) {
	user, v, ok := h.userValuation(c)
	if !ok {
		return
	}
	res, err := h.svc.UserPortfolio(c.Request.Context(), user, v)
	h.respond(c, res, err)
}

func (h *Handler) userOverview(c *gin.Context) {
	user, v, ok := h.userValuation(c)
	if !ok {
		return
	}
	res, err := h.svc.UserOverview(c.Request.Context(), user, v)
	h.respond(c, res, err)
}

func (h *Handler) userPerformance(c *gin.Context) {
	user, _, ok := h.userAndPrices(c, "")
	if !ok {
		return
	}
	res, err := h.svc.UserPerformance(c.Request.Context(), user)
	h.respond(c, res, err)
}

func (h *Handler) userTax(c *gin.Context) {
	user, _, ok := h.userAndPrices(c, "")
	if !ok {
		return
	}
	year := h.now().Year()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, fmt.Errorf("year %q: %v: %w", raw, err, ports.ErrInvalidRequest))
			return
		}
		year = y
	}
	res, err := h.svc.UserTax(c.Request.Context(), user, h.svc.TaxParams(year))
	h.respond(c, res, err)
}

func (h *Handler) userFundOverview(c *gin.Context) {
	user, navs, ok := h.userAndPrices(c, "nav")
	if !ok {
		return
	}
	res, err := h.svc.UserFundOverview(c.Request.Context(), user, navs)
	h.respond(c, res, err)
}

func (h *Handler) createTrade(c *gin.Context) {
	user, _, ok := h.userAndPrices(c, "")
	if !ok {
		return
	}
	var payload tradePayload
	if !bindJSON(c, &payload) {
		return
	}
	trade := payload.toDomain()
	id, err := h.svc.RecordTrade(c.Request.Context(), user, &trade)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) tagTrade(c *gin.Context) {
	user, _, ok := h.userAndPrices(c, "")
	if !ok {
		return
	}
	var tag domain.JournalTag
	if !bindJSON(c, &tag) {
		return
	}
	tag.TradeID = c.Param("id")
	if err := h.svc.TagTrade(c.Request.Context(), user, tag); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

func (h *Handler) createFundLot(c *gin.Context) {
	user, _, ok := h.userAndPrices(c, "")
	if !ok {
		return
	}
	var payload fundLotPayload
	if !bindJSON(c, &payload) {
		return
	}
	lot := payload.toDomain()
	id, err := h.svc.RecordFundLot(c.Request.Context(), user, &lot)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// userAndPrices reads the :user path parameter and, when param is set, the
// repeated KEY:price query values of that name.
func (h *Handler) userAndPrices(c *gin.Context, param string) (string, map[string]decimal.Decimal, bool) {
	user := c.Param("user")
	if user == "" {
		writeError(c, fmt.Errorf("%w: %w", errMissingUser, ports.ErrInvalidRequest))
		return "", nil, false
	}
	if param == "" {
		return user, nil, true
	}
	prices, err := parsePrices(c.QueryArray(param))
	if err != nil {
		writeError(c, fmt.Errorf("%v: %w", err, ports.ErrInvalidRequest))
		return "", nil, false
	}
	return user, prices, true
}

// userValuation reads ?mark=SYMBOL:price (repeatable) and ?strict=bool.
func (h *Handler) userValuation(c *gin.Context) (string, app.Valuation, bool) {
	user, marks, ok := h.userAndPrices(c, "mark")
	if !ok {
		return "", app.Valuation{}, false
	}
	v := app.Valuation{Marks: marks}
	if raw := c.Query("strict"); raw != "" {
		strict, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(c, fmt.Errorf("strict %q: %v: %w", raw, err, ports.ErrInvalidRequest))
			return "", app.Valuation{}, false
		}
		v.Strict = &strict
	}
	return user, v, true
}

func (h *Handler) respond(c *gin.Context, res interface{}, err error) {
	if err != nil {
		if statusFor(err) >= http.StatusInternalServerError {
			h.logger.Error(c.Request.Context(), err, "Request failed", map[string]interface{}{"path": c.FullPath()})
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, fmt.Errorf("invalid request body: %v: %w", err, ports.ErrInvalidRequest))
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case app.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMarkPriceMissing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrDuplicateEntry):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	body := gin.H{"error": err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		if verr.TradeID != "" {
			body["trade_id"] = verr.TradeID
		}
		if verr.Symbol != "" {
			body["symbol"] = verr.Symbol
		}
	}
	var merr *domain.MarkPriceMissingError
	if errors.As(err, &merr) {
		body["symbol"] = merr.Symbol
	}
	c.JSON(statusFor(err), body)
}
