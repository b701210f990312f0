package email

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditelle/storefront/internal/reseller"
)

func frConfig(t *testing.T) *reseller.Config {
	t.Helper()
	cfg, err := reseller.Builtin().Build("auditelle-fr")
	require.NoError(t, err)
	return cfg
}

func TestRender_Welcome(t *testing.T) {
	cfg := frConfig(t)
	msg, err := Render(cfg, Welcome, Params{Name: "Marie Curie"})
	require.NoError(t, err)

	assert.Equal(t, Welcome, msg.Template)
	assert.Equal(t, "Auditelle <noreply@auditelle.fr>", msg.From)
	assert.Equal(t, "Bienvenue sur Auditelle, Marie! 🎉", msg.Subject)
	assert.Contains(t, msg.HTML, "Bienvenue, Marie! 👋")
	assert.Contains(t, msg.HTML, `href="https://www.auditelle.fr/dashboard"`)
	assert.Contains(t, msg.HTML, "AUDITELLE")
	assert.Contains(t, msg.HTML, `lang="fr"`)
	for _, f := range cfg.Strings.Emails.Welcome.TrialFeatures {
		assert.Contains(t, msg.Text, "- "+f)
	}
	assert.Contains(t, msg.Text, reseller.LegalFooter(cfg))
	assert.NotContains(t, msg.Text, "{name}")
}

func TestRender_SubscriptionConfirmedUsesPlanDetail(t *testing.T) {
	cfg := frConfig(t)
	msg, err := Render(cfg, SubscriptionConfirmed, Params{Name: "Jean", Plan: reseller.PlanStarter})
	require.NoError(t, err)

	assert.Equal(t, "Votre abonnement Starter est actif! 🚀", msg.Subject)
	for _, f := range cfg.PlanDetail(reseller.PlanStarter).Features {
		assert.Contains(t, msg.Text, f)
	}

	// Plans without their own blurb fall back to pro.
	msg, err = Render(cfg, SubscriptionConfirmed, Params{Name: "Jean", Plan: reseller.PlanID("mystery")})
	require.NoError(t, err)
	assert.Contains(t, msg.Subject, cfg.PlanDetail(reseller.PlanPro).Name)
}

func TestRender_TrialExpiringSubjects(t *testing.T) {
	cfg := frConfig(t)
	x := cfg.Strings.Emails.TrialExpiring
	vars := func(days string) reseller.Vars { return reseller.Vars{"name": "Ana", "days": days} }

	tests := []struct {
		days      int
		subject   string
		countdown string
	}{
		{0, reseller.Interpolate(x.Subjects.LastDay, vars("0")), x.Countdown.Today},
		{-3, reseller.Interpolate(x.Subjects.LastDay, vars("-3")), x.Countdown.Today},
		{1, reseller.Interpolate(x.Subjects.Urgent, vars("1")), "1 JOURS"},
		{2, reseller.Interpolate(x.Subjects.Urgent, vars("2")), "2 JOURS"},
		{5, reseller.Interpolate(x.Subjects.Reminder, vars("5")), "5 JOURS"},
	}
	for _, tt := range tests {
		msg, err := Render(cfg, TrialExpiring, Params{Name: "Ana", Days: tt.days})
		require.NoError(t, err)
		assert.Equal(t, tt.subject, msg.Subject, "days=%d", tt.days)
		assert.True(t, strings.HasPrefix(msg.Text, tt.countdown), "days=%d text=%q", tt.days, msg.Text)
	}
}

func TestRender_UpgradeReminderProgress(t *testing.T) {
	cfg := frConfig(t)
	msg, err := Render(cfg, UpgradeReminder, Params{Name: "Léa", Percent: 85})
	require.NoError(t, err)
	assert.Equal(t, "Léa, vous avez utilisé 85% de vos analyses 📊", msg.Subject)
	assert.Contains(t, msg.HTML, "width: 85%")
	assert.Contains(t, msg.HTML, "#ef4444")
	assert.Contains(t, msg.HTML, "upgrade=true")

	msg, err = Render(cfg, UpgradeReminder, Params{Name: "Léa", Percent: 250})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "width: 100%")
}

func TestRender_EveryTemplateForEveryTenant(t *testing.T) {
	reg := reseller.Builtin()
	for _, id := range reg.IDs() {
		cfg, err := reg.Build(id)
		require.NoError(t, err)
		for _, tmpl := range Templates() {
			msg, err := Render(cfg, tmpl, Params{Name: "Alex", Plan: reseller.PlanPro, Percent: 80, Days: 3})
			require.NoError(t, err, "%s/%s", id, tmpl)
			assert.NotEmpty(t, msg.Subject, "%s/%s", id, tmpl)
			assert.NotContains(t, msg.Subject, "{", "%s/%s", id, tmpl)
			assert.Contains(t, msg.HTML, "https://www."+cfg.Branding.Domain, "%s/%s", id, tmpl)
		}
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := Render(frConfig(t), Template("newsletter"), Params{})
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestRender_EscapesHTML(t *testing.T) {
	msg, err := Render(frConfig(t), LimitReached, Params{Name: "<script>x</script>"})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Marie", FirstName("Marie Curie"))
	assert.Equal(t, "Marie", FirstName("  Marie  "))
	assert.Equal(t, "", FirstName(""))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Marie Curie", DisplayName("Marie Curie", "m@example.com"))
	assert.Equal(t, "Jean", DisplayName("", "jean@example.com"))
	assert.Equal(t, "Jean", DisplayName("  ", "jean+promo@example.com"))
	assert.Equal(t, "Élodie", DisplayName("", "élodie@example.com"))
	assert.Equal(t, "", DisplayName("", ""))
}
