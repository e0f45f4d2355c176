package handlers

import (
	"github.com/gin-gonic/gin"

	"handwerk/internal/domain/pricing"
	"handwerk/internal/infrastructure/http/v1/dto"
)

// ThresholdSource supplies the current calculation state thresholds.
type ThresholdSource interface {
	Thresholds() pricing.Thresholds
}

// CalcHandler exposes the tax and margin calculator.
type CalcHandler struct {
	*BaseHandler
	thresholds ThresholdSource
}

// NewCalcHandler creates a new calculator handler.
func NewCalcHandler(base *BaseHandler, thresholds ThresholdSource) *CalcHandler {
	return &CalcHandler{BaseHandler: base, thresholds: thresholds}
}

// Net handles GET /calc/net?amount=&rate= with a gross amount.
func (h *CalcHandler) Net(c *gin.Context) {
	var query dto.AmountQuery
	if !h.BindQuery(c, &query) {
		return
	}
	gross, rate, err := query.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}
	split, err := pricing.SplitGross(gross, rate)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, split)
}

// Gross handles GET /calc/gross?amount=&rate= with a net amount.
func (h *CalcHandler) Gross(c *gin.Context) {
	var query dto.AmountQuery
	if !h.BindQuery(c, &query) {
		return
	}
	net, rate, err := query.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}
	gross, err := pricing.GrossFromNet(net, rate)
	if err != nil {
		h.Error(c, err)
		return
	}
	split, err := pricing.SplitGross(gross, rate)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, split)
}

// Margin handles GET /calc/margin?sales=&purchase=
func (h *CalcHandler) Margin(c *gin.Context) {
	var query dto.MarginQuery
	if !h.BindQuery(c, &query) {
		return
	}
	sales, purchase, err := query.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}
	res, err := pricing.Margin(sales, purchase)
	if err != nil {
		h.Error(c, err)
		return
	}
	thresholds := pricing.DefaultThresholds()
	if h.thresholds != nil {
		thresholds = h.thresholds.Thresholds()
	}
	h.OK(c, dto.MarginResponse{MarginResult: res, State: thresholds.Classify(res.Percent)})
}

// RegisterRoutes registers calculator routes.
func (h *CalcHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/net", h.Net)
	rg.GET("/gross", h.Gross)
	rg.GET("/margin", h.Margin)
}
