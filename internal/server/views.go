package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auditelle/storefront/internal/reseller"
)

// configHandler serves the client bootstrap payload.
func (s *Server) configHandler(c *gin.Context) {
	cfg := reseller.MustFromContext(c.Request.Context())
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, reseller.NewPublicView(cfg))
}

func (s *Server) metadataHandler(c *gin.Context) {
	cfg := reseller.MustFromContext(c.Request.Context())
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, reseller.BuildMetadata(cfg))
}

// PlansResponse lists both plan sets with their daily allowances.
type PlansResponse struct {
	Homepage    []reseller.HomepagePlan    `json:"homepage"`
	Upgrade     []reseller.UpgradePlan     `json:"upgrade"`
	DailyLimits map[reseller.PlanID]int    `json:"dailyLimits"`
	Labels      map[reseller.PlanID]string `json:"scansPerDay"`
}

func (s *Server) plansHandler(c *gin.Context) {
	cfg := reseller.MustFromContext(c.Request.Context())

	resp := PlansResponse{
		Homepage:    cfg.Plans.Homepage,
		Upgrade:     cfg.Plans.Upgrade,
		DailyLimits: make(map[reseller.PlanID]int),
		Labels:      make(map[reseller.PlanID]string),
	}
	for _, p := range cfg.Plans.Upgrade {
		resp.DailyLimits[p.ID] = reseller.DailyLimit(p.ID)
		resp.Labels[p.ID] = cfg.ScansPerDayLabel(p.ID)
	}
	resp.DailyLimits[reseller.PlanFree] = reseller.DailyLimit(reseller.PlanFree)
	resp.Labels[reseller.PlanFree] = cfg.ScansPerDayLabel(reseller.PlanFree)

	c.JSON(http.StatusOK, resp)
}

// PlanResponse is one upgrade plan with its email blurb and allowance.
type PlanResponse struct {
	reseller.UpgradePlan
	Detail     reseller.PlanDetail `json:"detail"`
	DailyLimit int                 `json:"dailyLimit"`
}

func (s *Server) planHandler(c *gin.Context) {
	cfg := reseller.MustFromContext(c.Request.Context())

	id := reseller.PlanID(c.Param("id"))
	plan, ok := cfg.UpgradePlan(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": cfg.Strings.Errors.InvalidPlan})
		return
	}
	c.JSON(http.StatusOK, PlanResponse{
		UpgradePlan: plan,
		Detail:      cfg.PlanDetail(id),
		DailyLimit:  reseller.DailyLimit(id),
	})
}

// registerRedirects mounts the tenant's redirect table. A source gin
// refuses, such as one already taken by an application route, is an error.
func (s *Server) registerRedirects() error {
	for _, r := range s.reseller.Redirects {
		if err := s.mountRedirect(r); err != nil {
			return err
		}
	}
	if n := len(s.reseller.Redirects); n > 0 {
		s.logger.Info("redirects registered", "reseller", s.reseller.ID, "count", n)
	}
	return nil
}

func (s *Server) mountRedirect(r reseller.Redirect) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("server: redirect %s: %v", r.Source, p)
		}
	}()
	code := http.StatusTemporaryRedirect
	if r.Permanent {
		code = http.StatusMovedPermanently
	}
	dest := r.Destination
	handler := func(c *gin.Context) {
		target := dest
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		c.Redirect(code, target)
	}
	s.router.GET(r.Source, handler)
	s.router.HEAD(r.Source, handler)
	s.logger.Debug("redirect registered",
		"reseller", s.reseller.ID,
		"source", r.Source,
		"destination", r.Destination,
		"status", code,
	)
	return nil
}
