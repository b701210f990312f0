package email

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"unicode"
	"unicode/utf8"

	"github.com/auditelle/storefront/internal/reseller"
)

// ErrUnknownTemplate is returned by Render for names outside Templates().
var ErrUnknownTemplate = errors.New("email: unknown template")

// Template names a transactional email.
type Template string

const (
	Welcome               Template = "welcome"
	SubscriptionConfirmed Template = "subscriptionConfirmed"
	UpgradeReminder       Template = "upgradeReminder"
	TrialExpiring         Template = "trialExpiring"
	TrialEnded            Template = "trialEnded"
	LimitReached          Template = "limitReached"
)

// Templates lists every template in a stable order.
func Templates() []Template {
	return []Template{Welcome, SubscriptionConfirmed, UpgradeReminder, TrialExpiring, TrialEnded, LimitReached}
}

// Params fills a template. Name is the recipient's display name; only its
// first word is used in greetings. Plan, Percent and Days are read by the
// templates that need them.
type Params struct {
	Name    string
	Plan    reseller.PlanID
	Percent int
	Days    int
}

// Message is a rendered email ready for a Sender.
type Message struct {
	Template Template `json:"template"`
	From     string   `json:"from"`
	To       string   `json:"to,omitempty"`
	Subject  string   `json:"subject"`
	HTML     string   `json:"html"`
	Text     string   `json:"text"`
}

//go:embed templates/layout.html templates/layout.txt
var templateFS embed.FS

var (
	htmlLayout = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/layout.html"))
	textLayout = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/layout.txt"))
)

// urgentDays is the countdown at which trial reminders switch subject.
const urgentDays = 2

// defaultAccent is the CTA color for tenants without a theme.
const defaultAccent = "#e85d04"

type box struct {
	Title    string
	Body     string
	Items    []string
	Footnote string
}

// content is the data both layouts render.
type content struct {
	Lang          string
	Subject       string
	HeaderName    string
	Accent        string
	Countdown     string
	CountdownHint string
	Title         string
	Paragraphs    []string
	Progress      int
	Box           *box
	CTALabel      string
	CTAURL        string
	Note          string
	LegalFooter   string
	SiteURL       string
	SiteLabel     string
}

// Render builds template t for cfg.
func Render(cfg *reseller.Config, t Template, p Params) (Message, error) {
	e := cfg.Strings.Emails
	first := FirstName(p.Name)
	vars := reseller.Vars{
		"name":    first,
		"percent": strconv.Itoa(p.Percent),
		"days":    strconv.Itoa(p.Days),
	}
	in := func(s string) string { return reseller.Interpolate(s, vars) }

	var c content
	switch t {
	case Welcome:
		w := e.Welcome
		c = content{
			Subject:    in(w.Subject),
			Title:      in(w.Greeting),
			Paragraphs: []string{in(w.Intro)},
			Box:        &box{Title: w.TrialTitle, Items: w.TrialFeatures},
			CTALabel:   w.CTAButton,
			CTAURL:     reseller.SiteURL(cfg, w.CTAURL),
			Note:       w.Question,
		}

	case SubscriptionConfirmed:
		detail := cfg.PlanDetail(p.Plan)
		vars["plan"] = detail.Name
		s := e.SubscriptionConfirmed
		c = content{
			Subject:    in(s.Subject),
			Title:      in(s.Greeting),
			Paragraphs: []string{in(s.Active)},
			Box:        &box{Title: s.PlanTitle, Items: detail.Features},
			CTALabel:   s.CTAButton,
			CTAURL:     reseller.SiteURL(cfg, "/dashboard"),
			Note:       s.ManageHint,
		}

	case UpgradeReminder:
		u := e.UpgradeReminder
		c = content{
			Subject:    in(u.Subject),
			Title:      in(u.Title),
			Paragraphs: []string{in(u.Body)},
			Progress:   clampPercent(p.Percent),
			Box:        &box{Title: u.UpgradeTitle, Items: u.UpgradeFeatures, Footnote: u.UpgradePrice},
			CTALabel:   u.CTAButton,
			CTAURL:     reseller.SiteURL(cfg, "/dashboard?upgrade=true"),
		}

	case TrialExpiring:
		x := e.TrialExpiring
		c = content{
			Box:           &box{Title: x.KeepTitle, Items: x.KeepFeatures},
			CTALabel:      x.CTAButton,
			CTAURL:        reseller.SiteURL(cfg, "/dashboard/upgrade"),
			Note:          x.Question,
			CountdownHint: x.BeforeEnd,
		}
		switch {
		case p.Days <= 0:
			c.Subject = in(x.Subjects.LastDay)
			c.Title = in(x.Titles.LastDay)
			c.Paragraphs = []string{in(x.BodyLastDay)}
			c.Countdown = x.Countdown.Today
		default:
			c.Subject = in(x.Subjects.Reminder)
			if p.Days <= urgentDays {
				c.Subject = in(x.Subjects.Urgent)
			}
			c.Title = in(x.Titles.Remaining)
			c.Paragraphs = []string{in(x.Body)}
			c.Countdown = in(x.Countdown.Days)
		}

	case TrialEnded:
		x := e.TrialEnded
		c = content{
			Subject:    in(x.Subject),
			Title:      in(x.Title),
			Paragraphs: []string{in(x.Body)},
			Box:        &box{Title: x.OfferTitle, Body: x.OfferBody},
			CTALabel:   x.CTAButton,
			CTAURL:     reseller.SiteURL(cfg, "/dashboard/upgrade"),
			Note:       x.Question,
		}

	case LimitReached:
		l := e.LimitReached
		c = content{
			Subject:    in(l.Subject),
			Title:      in(l.Title),
			Paragraphs: []string{in(l.Body)},
			CTALabel:   l.CTAButton,
			CTAURL:     reseller.SiteURL(cfg, "/dashboard/upgrade"),
		}

	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, t)
	}

	c.Lang = cfg.Locale.HTMLLang
	c.HeaderName = e.HeaderName
	c.Accent = defaultAccent
	if th := cfg.Branding.Theme; th != nil && th.Accent != "" {
		c.Accent = th.Accent
	}
	c.LegalFooter = reseller.LegalFooter(cfg)
	c.SiteURL = reseller.SiteURL(cfg, "/")
	c.SiteLabel = "www." + cfg.Branding.Domain

	var html, text bytes.Buffer
	if err := htmlLayout.Execute(&html, c); err != nil {
		return Message{}, fmt.Errorf("email: render %s html: %w", t, err)
	}
	if err := textLayout.Execute(&text, c); err != nil {
		return Message{}, fmt.Errorf("email: render %s text: %w", t, err)
	}

	return Message{
		Template: t,
		From:     fmt.Sprintf("%s <%s>", cfg.Branding.Name, cfg.Contact.NoReplyEmail),
		Subject:  c.Subject,
		HTML:     html.String(),
		Text:     strings.TrimSpace(text.String()) + "\n",
	}, nil
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// FirstName is the first word of a display name.
func FirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// DisplayName picks the name used in greetings: the stored full name, or
// the capitalized local part of the email address with any +tag removed.
func DisplayName(fullName, emailAddr string) string {
	if n := strings.TrimSpace(fullName); n != "" {
		return n
	}
	local, _, _ := strings.Cut(emailAddr, "@")
	local, _, _ = strings.Cut(local, "+")
	r, size := utf8.DecodeRuneInString(local)
	if r == utf8.RuneError {
		return local
	}
	return string(unicode.ToUpper(r)) + local[size:]
}
