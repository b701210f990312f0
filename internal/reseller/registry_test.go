package reseller

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_IDs(t *testing.T) {
	assert.Equal(t, []string{"auditelle-fr", "veritexto-es", "veritexto-pt"}, Builtin().IDs())
	assert.Equal(t, DefaultID, Builtin().DefaultID())
}

func TestBuiltin_EveryEntryIsComplete(t *testing.T) {
	for _, id := range Builtin().IDs() {
		t.Run(id, func(t *testing.T) {
			cfg, err := Builtin().Build(id)
			require.NoError(t, err)
			assert.Equal(t, id, cfg.ID)
			assert.NoError(t, Validate(cfg))
		})
	}
}

func TestBuiltin_TenantsDiffer(t *testing.T) {
	fr, err := Builtin().Build("auditelle-fr")
	require.NoError(t, err)
	es, err := Builtin().Build("veritexto-es")
	require.NoError(t, err)
	pt, err := Builtin().Build("veritexto-pt")
	require.NoError(t, err)

	assert.Equal(t, "auditelle.fr", fr.Branding.Domain)
	assert.Equal(t, "veritexto.es", es.Branding.Domain)
	assert.Equal(t, "veritexto.com.br", pt.Branding.Domain)

	assert.NotEqual(t, fr.Branding.Name, es.Branding.Name)
	assert.NotEqual(t, fr.Strings.Nav.Login, es.Strings.Nav.Login)
	assert.NotEqual(t, es.Strings.Nav.Login, pt.Strings.Nav.Login)

	assert.Equal(t, "BRL", pt.Locale.Currency)
	assert.True(t, es.Features.PlagiarismDetection)
	assert.False(t, fr.Features.PlagiarismDetection)
	assert.NotNil(t, fr.Analytics)
	assert.Nil(t, es.Analytics)
}

func TestBuiltin_FreshObjectPerBuild(t *testing.T) {
	a, err := Builtin().Build("auditelle-fr")
	require.NoError(t, err)
	b, err := Builtin().Build("auditelle-fr")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, a, b)
}

func TestRegistry_Normalize(t *testing.T) {
	reg := Builtin()
	tests := []struct {
		raw   string
		id    string
		known bool
	}{
		{"", DefaultID, true},
		{"   ", DefaultID, true},
		{"veritexto-es", "veritexto-es", true},
		{"  Veritexto-PT ", "veritexto-pt", true},
		{"acme-de", DefaultID, false},
	}
	for _, tt := range tests {
		id, known := reg.Normalize(tt.raw)
		assert.Equal(t, tt.id, id, "raw=%q", tt.raw)
		assert.Equal(t, tt.known, known, "raw=%q", tt.raw)
	}
	assert.Equal(t, "veritexto-es", NormalizeID(" VERITEXTO-ES"))
}

func TestRegistry_RegisterRejectsBadIDs(t *testing.T) {
	reg := NewRegistry("a-b")
	f := func() (*Config, error) { return nil, errors.New("unused") }

	assert.Panics(t, func() { reg.Register("Bad ID", f) })
	assert.Panics(t, func() { reg.Register("ok-id", nil) })

	reg.Register("ok-id", f)
	assert.Panics(t, func() { reg.Register("ok-id", f) })
}

func TestRegistry_BuildWithoutDefault(t *testing.T) {
	reg := NewRegistry("missing")
	_, err := reg.Build("")
	assert.ErrorIs(t, err, ErrUnknownReseller)
}

func TestRegistry_BuildRejectsMismatchedID(t *testing.T) {
	reg := NewRegistry("other-id")
	reg.Register("other-id", FromFS(tenantFiles, "tenants/auditelle-fr.yaml"))
	_, err := reg.Build("other-id")
	assert.ErrorIs(t, err, ErrMalformedEntry)
}

func TestRedirectsFor(t *testing.T) {
	redirects, err := RedirectsFor(Builtin(), "veritexto-es")
	require.NoError(t, err)
	assert.Contains(t, redirects, Redirect{Source: "/prueba-gratis", Destination: "/signup"})

	// Unknown ids fall back exactly like the resolver does.
	fallback, err := RedirectsFor(Builtin(), "nope-xx")
	require.NoError(t, err)
	def, err := RedirectsFor(Builtin(), "")
	require.NoError(t, err)
	assert.Equal(t, def, fallback)
	assert.Contains(t, def, Redirect{Source: "/essai-gratuit", Destination: "/signup"})
}

func TestConfig_PlanHelpers(t *testing.T) {
	cfg, err := Builtin().Build("auditelle-fr")
	require.NoError(t, err)

	p, ok := cfg.UpgradePlan(PlanStarter)
	require.True(t, ok)
	assert.True(t, p.Popular)
	_, ok = cfg.UpgradePlan(PlanEquipe)
	assert.False(t, ok)

	assert.Equal(t, cfg.Strings.PlanDetails[PlanPro], cfg.PlanDetail(PlanStudent))
	assert.Equal(t, cfg.Strings.PlanDetails[PlanStarter], cfg.PlanDetail(PlanStarter))

	assert.Equal(t, cfg.Strings.Dashboard.ScansPerDay["free"], cfg.ScansPerDayLabel(PlanFree))
	assert.Equal(t, cfg.Strings.Dashboard.ScansPerDay["default"], cfg.ScansPerDayLabel(PlanEnterprise))
}

func TestDailyLimit(t *testing.T) {
	assert.Equal(t, 5, DailyLimit(PlanFree))
	assert.Equal(t, 50, DailyLimit(PlanPro))
	assert.Equal(t, 10000, DailyLimit(PlanEnterprise))
	assert.Equal(t, 5, DailyLimit(PlanEquipe))
	assert.Equal(t, 5, DailyLimit("bogus"))
	assert.True(t, PlanUniversity.Paid())
	assert.False(t, PlanFree.Paid())
	assert.False(t, PlanID("gold").Valid())
	assert.Len(t, PlanIDs(), 8)
}
