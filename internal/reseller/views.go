package reseller

import "strings"

// Metadata is the document head for the storefront's public pages.
type Metadata struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	Lang        string    `json:"lang"`
	OpenGraph   OpenGraph `json:"openGraph"`
	Canonical   string    `json:"canonical"`
}

type OpenGraph struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Locale      string `json:"locale"`
	SiteName    string `json:"siteName"`
}

// BuildMetadata derives page metadata from cfg.
func BuildMetadata(cfg *Config) Metadata {
	keywords := make([]string, len(cfg.SEO.Keywords))
	copy(keywords, cfg.SEO.Keywords)
	return Metadata{
		Title:       cfg.SEO.Title,
		Description: cfg.SEO.Description,
		Keywords:    keywords,
		Lang:        cfg.Locale.HTMLLang,
		Canonical:   SiteURL(cfg, "/"),
		OpenGraph: OpenGraph{
			Title:       cfg.SEO.OGTitle,
			Description: cfg.SEO.OGDescription,
			Type:        "website",
			Locale:      strings.ReplaceAll(cfg.Locale.Tag, "-", "_"),
			SiteName:    cfg.Branding.Name,
		},
	}
}

// LegalFooter renders the legal identity line used in page and email
// footers. The registration segment is dropped when no number is on file.
func LegalFooter(cfg *Config) string {
	l := cfg.Legal
	parts := []string{l.Entity}
	if l.RegistrationNumber != "" {
		parts = append(parts, l.RegistrationLabel+" "+l.RegistrationNumber)
	}
	parts = append(parts, l.City+", "+l.Country)
	return strings.Join(parts, " · ")
}

// SiteURL returns an absolute link on the reseller's public domain.
func SiteURL(cfg *Config, path string) string {
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "https://www." + cfg.Branding.Domain + path
}

// PublicView is the bootstrap payload sent to browsers. Nothing in Config
// is secret; the analytics ids are embedded in every page anyway.
type PublicView struct {
	*Config
	Metadata    Metadata       `json:"metadata"`
	LegalFooter string         `json:"legalFooter"`
	DailyLimits map[PlanID]int `json:"dailyLimits"`
}

// NewPublicView assembles the bootstrap payload for cfg.
func NewPublicView(cfg *Config) PublicView {
	limits := make(map[PlanID]int, len(DailyLimits))
	for k, v := range DailyLimits {
		limits[k] = v
	}
	return PublicView{
		Config:      cfg,
		Metadata:    BuildMetadata(cfg),
		LegalFooter: LegalFooter(cfg),
		DailyLimits: limits,
	}
}
