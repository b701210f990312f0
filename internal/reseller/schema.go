package reseller

// Config is the complete configuration of one branded deployment.
//
// Every field is required unless tagged `reseller:"optional"`. A resolved
// Config is shared by every request in the process and must be treated as
// read-only.
type Config struct {
	ID        string     `yaml:"id" json:"id"`
	Branding  Branding   `yaml:"branding" json:"branding"`
	Locale    Locale     `yaml:"locale" json:"locale"`
	Legal     Legal      `yaml:"legal" json:"legal"`
	Contact   Contact    `yaml:"contact" json:"contact"`
	Analytics *Analytics `yaml:"analytics,omitempty" json:"analytics,omitempty" reseller:"optional"`
	Plans     Plans      `yaml:"plans" json:"plans"`
	Features  *Features  `yaml:"features" json:"features"`
	SEO       SEO        `yaml:"seo" json:"seo"`
	Redirects []Redirect `yaml:"redirects" json:"redirects" validate:"dive"`
	Strings   Strings    `yaml:"strings" json:"strings"`
}

// Branding identifies the brand on every surface.
type Branding struct {
	Name      string `yaml:"name" json:"name"`
	Domain    string `yaml:"domain" json:"domain" validate:"fqdn"`
	LogoColor string `yaml:"logoColor" json:"logoColor" validate:"startswith=/"`
	LogoWhite string `yaml:"logoWhite" json:"logoWhite" validate:"startswith=/"`
	Theme     *Theme `yaml:"theme,omitempty" json:"theme,omitempty" reseller:"optional"`
}

// Theme overrides the default palette. Tenants that do not customize it
// leave the whole block out.
type Theme struct {
	Accent       string `yaml:"accent,omitempty" json:"accent,omitempty" reseller:"optional" validate:"omitempty,hexcolor"`
	AccentHover  string `yaml:"accentHover,omitempty" json:"accentHover,omitempty" reseller:"optional" validate:"omitempty,hexcolor"`
	AccentLight  string `yaml:"accentLight,omitempty" json:"accentLight,omitempty" reseller:"optional" validate:"omitempty,hexcolor"`
	Navy         string `yaml:"navy,omitempty" json:"navy,omitempty" reseller:"optional" validate:"omitempty,hexcolor"`
	NavyLight    string `yaml:"navyLight,omitempty" json:"navyLight,omitempty" reseller:"optional" validate:"omitempty,hexcolor"`
	HeroGradient string `yaml:"heroGradient,omitempty" json:"heroGradient,omitempty" reseller:"optional"`
	LogoHeight   string `yaml:"logoHeight,omitempty" json:"logoHeight,omitempty" reseller:"optional"`
}

type Locale struct {
	Tag            string `yaml:"tag" json:"tag"`
	HTMLLang       string `yaml:"htmlLang" json:"htmlLang"`
	Currency       string `yaml:"currency" json:"currency" validate:"iso4217"`
	CurrencySymbol string `yaml:"currencySymbol" json:"currencySymbol"`
	Timezone       string `yaml:"timezone" json:"timezone" validate:"timezone"`
}

// Legal is the registered identity shown in footers and emails.
// RegistrationNumber is optional because some entities are still pending
// registration in the jurisdiction they sell into.
type Legal struct {
	Entity              string `yaml:"entity" json:"entity"`
	RegistrationNumber  string `yaml:"registrationNumber,omitempty" json:"registrationNumber,omitempty" reseller:"optional"`
	RegistrationLabel   string `yaml:"registrationLabel" json:"registrationLabel"`
	Country             string `yaml:"country" json:"country"`
	City                string `yaml:"city" json:"city"`
	DataProtectionLabel string `yaml:"dataProtectionLabel" json:"dataProtectionLabel"`
}

type Contact struct {
	SupportEmail string `yaml:"supportEmail" json:"supportEmail" validate:"email"`
	NoReplyEmail string `yaml:"noReplyEmail" json:"noReplyEmail" validate:"email"`
}

type Analytics struct {
	GoogleAdsID           string `yaml:"googleAdsId" json:"googleAdsId"`
	ConversionLabel       string `yaml:"conversionLabel" json:"conversionLabel"`
	SignupConversionLabel string `yaml:"signupConversionLabel" json:"signupConversionLabel"`
}

// Plans holds the two parallel plan lists.
type Plans struct {
	Homepage []HomepagePlan `yaml:"homepage" json:"homepage" validate:"dive"`
	Upgrade  []UpgradePlan  `yaml:"upgrade" json:"upgrade" validate:"dive"`
}

// HomepagePlan is shown to anonymous visitors and keyed by display name.
type HomepagePlan struct {
	Name         string   `yaml:"name" json:"name"`
	Price        string   `yaml:"price" json:"price"`
	Period       string   `yaml:"period,omitempty" json:"period,omitempty" reseller:"optional"`
	Description  string   `yaml:"description" json:"description"`
	Features     []string `yaml:"features" json:"features"`
	CTA          string   `yaml:"cta" json:"cta"`
	Href         string   `yaml:"href" json:"href" validate:"startswith=/"`
	Popular      bool     `yaml:"popular,omitempty" json:"popular,omitempty"`
	PopularBadge string   `yaml:"popularBadge,omitempty" json:"popularBadge,omitempty" reseller:"optional"`
}

// UpgradePlan is shown to signed-in users and keyed by a billing plan id.
type UpgradePlan struct {
	ID          PlanID   `yaml:"id" json:"id" validate:"planid"`
	Name        string   `yaml:"name" json:"name"`
	Price       string   `yaml:"price" json:"price"`
	Period      string   `yaml:"period" json:"period"`
	Description string   `yaml:"description" json:"description"`
	Features    []string `yaml:"features" json:"features"`
	Popular     bool     `yaml:"popular,omitempty" json:"popular,omitempty"`
	Badge       string   `yaml:"badge,omitempty" json:"badge,omitempty" reseller:"optional"`
}

type SEO struct {
	Title         string   `yaml:"title" json:"title"`
	Description   string   `yaml:"description" json:"description"`
	Keywords      []string `yaml:"keywords" json:"keywords"`
	OGTitle       string   `yaml:"ogTitle" json:"ogTitle"`
	OGDescription string   `yaml:"ogDescription" json:"ogDescription"`
}

// Redirect is one entry of the routing layer's redirect table.
type Redirect struct {
	Source      string `yaml:"source" json:"source" validate:"startswith=/"`
	Destination string `yaml:"destination" json:"destination" validate:"startswith=/"`
	Permanent   bool   `yaml:"permanent" json:"permanent"`
}

// Strings is the catalog of user-facing copy.
type Strings struct {
	Nav           NavStrings           `yaml:"nav" json:"nav"`
	Hero          HeroStrings          `yaml:"hero" json:"hero"`
	TrustBar      TrustBarStrings      `yaml:"trustBar" json:"trustBar"`
	Features      FeatureStrings       `yaml:"features" json:"features"`
	HowItWorks    HowItWorksStrings    `yaml:"howItWorks" json:"howItWorks"`
	Testimonials  TestimonialStrings   `yaml:"testimonials" json:"testimonials"`
	Pricing       PricingStrings       `yaml:"pricing" json:"pricing"`
	Comparison    ComparisonStrings    `yaml:"comparison" json:"comparison"`
	CTA           CTAStrings           `yaml:"cta" json:"cta"`
	Footer        FooterStrings        `yaml:"footer" json:"footer"`
	CookieConsent CookieConsentStrings `yaml:"cookieConsent" json:"cookieConsent"`
	Auth          AuthStrings          `yaml:"auth" json:"auth"`
	Dashboard     DashboardStrings     `yaml:"dashboard" json:"dashboard"`
	Results       ResultStrings        `yaml:"results" json:"results"`
	Plagiarism    PlagiarismStrings    `yaml:"plagiarism" json:"plagiarism"`
	HeroDemo      HeroDemoStrings      `yaml:"heroDemo" json:"heroDemo"`
	FileUpload    FileUploadStrings    `yaml:"fileUpload" json:"fileUpload"`
	Contact       ContactStrings       `yaml:"contact" json:"contact"`
	DemoVideo     DemoVideoStrings     `yaml:"demoVideo" json:"demoVideo"`
	Emails        EmailStrings         `yaml:"emails" json:"emails"`
	Errors        ErrorStrings         `yaml:"errors" json:"errors"`
	PlanDetails   map[PlanID]PlanDetail `yaml:"planDetails" json:"planDetails" validate:"dive,keys,planid,endkeys"`
}

type NavStrings struct {
	Features  string `yaml:"features" json:"features"`
	Pricing   string `yaml:"pricing" json:"pricing"`
	Dashboard string `yaml:"dashboard" json:"dashboard"`
	Login     string `yaml:"login" json:"login"`
	FreeTrial string `yaml:"freeTrial" json:"freeTrial"`
}

type HeroStrings struct {
	Badge        string   `yaml:"badge" json:"badge"`
	Title        string   `yaml:"title" json:"title"`
	TitleAccent  string   `yaml:"titleAccent" json:"titleAccent"`
	Subtitle     string   `yaml:"subtitle" json:"subtitle"`
	TrustBadges  []string `yaml:"trustBadges" json:"trustBadges"`
	CTAPrimary   string   `yaml:"ctaPrimary" json:"ctaPrimary"`
	CTASecondary string   `yaml:"ctaSecondary" json:"ctaSecondary"`
}

type TrustBarStrings struct {
	Label string   `yaml:"label" json:"label"`
	Names []string `yaml:"names" json:"names"`
}

type FeatureStrings struct {
	Title    string        `yaml:"title" json:"title"`
	Subtitle string        `yaml:"subtitle" json:"subtitle"`
	Items    []FeatureItem `yaml:"items" json:"items"`
}

type FeatureItem struct {
	Icon        string `yaml:"icon" json:"icon"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

type HowItWorksStrings struct {
	Title string `yaml:"title" json:"title"`
	Steps []Step `yaml:"steps" json:"steps"`
}

type Step struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

type TestimonialStrings struct {
	Title string        `yaml:"title" json:"title"`
	Items []Testimonial `yaml:"items" json:"items"`
}

type Testimonial struct {
	Quote  string `yaml:"quote" json:"quote"`
	Author string `yaml:"author" json:"author"`
	Role   string `yaml:"role" json:"role"`
}

type PricingStrings struct {
	Title    string `yaml:"title" json:"title"`
	Subtitle string `yaml:"subtitle" json:"subtitle"`
	Footer   string `yaml:"footer" json:"footer"`
}

type ComparisonStrings struct {
	Title       string          `yaml:"title" json:"title"`
	Subtitle    string          `yaml:"subtitle" json:"subtitle"`
	Competitors []string        `yaml:"competitors" json:"competitors"`
	Rows        []ComparisonRow `yaml:"rows" json:"rows"`
}

// ComparisonRow has one Cell per competitor, in the same order.
type ComparisonRow struct {
	Label  string `yaml:"label" json:"label"`
	Values []Cell `yaml:"values" json:"values"`
}

type CTAStrings struct {
	Title    string `yaml:"title" json:"title"`
	Subtitle string `yaml:"subtitle" json:"subtitle"`
	Button   string `yaml:"button" json:"button"`
}

type FooterStrings struct {
	Description   string `yaml:"description" json:"description"`
	ProductLabel  string `yaml:"productLabel" json:"productLabel"`
	CompanyLabel  string `yaml:"companyLabel" json:"companyLabel"`
	ContactLabel  string `yaml:"contactLabel" json:"contactLabel"`
	Copyright     string `yaml:"copyright" json:"copyright"`
	PoweredBy     string `yaml:"poweredBy" json:"poweredBy"`
	PoweredByName string `yaml:"poweredByName" json:"poweredByName"`
}

type CookieConsentStrings struct {
	Message string `yaml:"message" json:"message"`
	Accept  string `yaml:"accept" json:"accept"`
	Decline string `yaml:"decline" json:"decline"`
}

type AuthStrings struct {
	Login                  string `yaml:"login" json:"login"`
	Signup                 string `yaml:"signup" json:"signup"`
	ResetPassword          string `yaml:"resetPassword" json:"resetPassword"`
	LoginSubtitle          string `yaml:"loginSubtitle" json:"loginSubtitle"`
	LoginSubtitlePlan      string `yaml:"loginSubtitlePlan" json:"loginSubtitlePlan"`
	SignupSubtitle         string `yaml:"signupSubtitle" json:"signupSubtitle"`
	SignupSubtitlePlan     string `yaml:"signupSubtitlePlan" json:"signupSubtitlePlan"`
	ResetSubtitle          string `yaml:"resetSubtitle" json:"resetSubtitle"`
	FullName               string `yaml:"fullName" json:"fullName"`
	Email                  string `yaml:"email" json:"email"`
	Password               string `yaml:"password" json:"password"`
	EmailPlaceholder       string `yaml:"emailPlaceholder" json:"emailPlaceholder"`
	NamePlaceholder        string `yaml:"namePlaceholder" json:"namePlaceholder"`
	ForgotPassword         string `yaml:"forgotPassword" json:"forgotPassword"`
	NoAccount              string `yaml:"noAccount" json:"noAccount"`
	HasAccount             string `yaml:"hasAccount" json:"hasAccount"`
	BackToLogin            string `yaml:"backToLogin" json:"backToLogin"`
	Loading                string `yaml:"loading" json:"loading"`
	AccountCreatedRedirect string `yaml:"accountCreatedRedirect" json:"accountCreatedRedirect"`
	CheckEmail             string `yaml:"checkEmail" json:"checkEmail"`
	ResetEmailSent         string `yaml:"resetEmailSent" json:"resetEmailSent"`
}

type DashboardStrings struct {
	Detection                   string `yaml:"detection" json:"detection"`
	History                     string `yaml:"history" json:"history"`
	Account                     string `yaml:"account" json:"account"`
	SignOut                     string `yaml:"signOut" json:"signOut"`
	AnalyzerTitle               string `yaml:"analyzerTitle" json:"analyzerTitle"`
	AnalyzerSubtitle            string `yaml:"analyzerSubtitle" json:"analyzerSubtitle"`
	TextareaPlaceholder         string `yaml:"textareaPlaceholder" json:"textareaPlaceholder"`
	Characters                  string `yaml:"characters" json:"characters"`
	Analyze                     string `yaml:"analyze" json:"analyze"`
	Analyzing                   string `yaml:"analyzing" json:"analyzing"`
	ScansRemaining              string `yaml:"scansRemaining" json:"scansRemaining"`
	SubscriptionActivated       string `yaml:"subscriptionActivated" json:"subscriptionActivated"`
	SubscriptionActivatedDetail string `yaml:"subscriptionActivatedDetail" json:"subscriptionActivatedDetail"`
	MinCharsError               string `yaml:"minCharsError" json:"minCharsError"`

	HistoryTitle     string `yaml:"historyTitle" json:"historyTitle"`
	HistoryEmpty     string `yaml:"historyEmpty" json:"historyEmpty"`
	HistoryEmptyHint string `yaml:"historyEmptyHint" json:"historyEmptyHint"`
	HistoryLoading   string `yaml:"historyLoading" json:"historyLoading"`
	HistoryModel     string `yaml:"historyModel" json:"historyModel"`

	AccountTitle         string            `yaml:"accountTitle" json:"accountTitle"`
	ProfileLabel         string            `yaml:"profileLabel" json:"profileLabel"`
	NameLabel            string            `yaml:"nameLabel" json:"nameLabel"`
	EmailLabel           string            `yaml:"emailLabel" json:"emailLabel"`
	SubscriptionLabel    string            `yaml:"subscriptionLabel" json:"subscriptionLabel"`
	Plan                 string            `yaml:"plan" json:"plan"`
	UpgradeToPro         string            `yaml:"upgradeToPro" json:"upgradeToPro"`
	ManageSubscription   string            `yaml:"manageSubscription" json:"manageSubscription"`
	ManagingSubscription string            `yaml:"managingSubscription" json:"managingSubscription"`
	ScansPerDay          map[string]string `yaml:"scansPerDay" json:"scansPerDay"`

	UpgradeTitle    string `yaml:"upgradeTitle" json:"upgradeTitle"`
	UpgradeSubtitle string `yaml:"upgradeSubtitle" json:"upgradeSubtitle"`
	UpgradeBack     string `yaml:"upgradeBack" json:"upgradeBack"`
	UpgradePopular  string `yaml:"upgradePopular" json:"upgradePopular"`
	UpgradeFooter   string `yaml:"upgradeFooter" json:"upgradeFooter"`
	UpgradeLoading  string `yaml:"upgradeLoading" json:"upgradeLoading"`
	UpgradeContact  string `yaml:"upgradeContact" json:"upgradeContact"`
	UpgradeChoose   string `yaml:"upgradeChoose" json:"upgradeChoose"`
	UpgradeError    string `yaml:"upgradeError" json:"upgradeError"`
}

type ResultStrings struct {
	ProbablyHuman   string `yaml:"probablyHuman" json:"probablyHuman"`
	Mixed           string `yaml:"mixed" json:"mixed"`
	ProbablyAI      string `yaml:"probablyAI" json:"probablyAI"`
	AIScore         string `yaml:"aiScore" json:"aiScore"`
	AIProbability   string `yaml:"aiProbability" json:"aiProbability"`
	Classification  string `yaml:"classification" json:"classification"`
	SectionAnalysis string `yaml:"sectionAnalysis" json:"sectionAnalysis"`
	AIPercent       string `yaml:"aiPercent" json:"aiPercent"`
	Breakdown       string `yaml:"breakdown" json:"breakdown"`
	AIGenerated     string `yaml:"aiGenerated" json:"aiGenerated"`
	AIAssisted      string `yaml:"aiAssisted" json:"aiAssisted"`
	HumanWritten    string `yaml:"humanWritten" json:"humanWritten"`
	ViewReport      string `yaml:"viewReport" json:"viewReport"`
}

type PlagiarismStrings struct {
	ModeAI             string `yaml:"modeAI" json:"modeAI"`
	ModePlagiarism     string `yaml:"modePlagiarism" json:"modePlagiarism"`
	NoPlagiarism       string `yaml:"noPlagiarism" json:"noPlagiarism"`
	PlagiarismFound    string `yaml:"plagiarismFound" json:"plagiarismFound"`
	PercentPlagiarized string `yaml:"percentPlagiarized" json:"percentPlagiarized"`
	SourcesFound       string `yaml:"sourcesFound" json:"sourcesFound"`
	SourceLabel        string `yaml:"sourceLabel" json:"sourceLabel"`
	MatchedText        string `yaml:"matchedText" json:"matchedText"`
	Similarity         string `yaml:"similarity" json:"similarity"`
	AnalyzePlagiarism  string `yaml:"analyzePlagiarism" json:"analyzePlagiarism"`
	OriginalSample     string `yaml:"originalSample" json:"originalSample"`
	CopiedSample       string `yaml:"copiedSample" json:"copiedSample"`
	OriginalButton     string `yaml:"originalButton" json:"originalButton"`
	CopiedButton       string `yaml:"copiedButton" json:"copiedButton"`
}

type HeroDemoStrings struct {
	TestNow           string `yaml:"testNow" json:"testNow"`
	Free              string `yaml:"free" json:"free"`
	Placeholder       string `yaml:"placeholder" json:"placeholder"`
	TryLabel          string `yaml:"tryLabel" json:"tryLabel"`
	HumanButton       string `yaml:"humanButton" json:"humanButton"`
	ChatGPTButton     string `yaml:"chatgptButton" json:"chatgptButton"`
	HumanSample       string `yaml:"humanSample" json:"humanSample"`
	ChatGPTSample     string `yaml:"chatgptSample" json:"chatgptSample"`
	AnalyzingLabel    string `yaml:"analyzingLabel" json:"analyzingLabel"`
	AnalyzingDetail   string `yaml:"analyzingDetail" json:"analyzingDetail"`
	Scanner           string `yaml:"scanner" json:"scanner"`
	CreateAccountFull string `yaml:"createAccountFull" json:"createAccountFull"`
	VeryLikelyAI      string `yaml:"veryLikelyAI" json:"veryLikelyAI"`
	PossiblyAI        string `yaml:"possiblyAI" json:"possiblyAI"`
	ProbablyHuman     string `yaml:"probablyHuman" json:"probablyHuman"`
	ConnectionError   string `yaml:"connectionError" json:"connectionError"`
	CTAButton         string `yaml:"ctaButton" json:"ctaButton"`
	CTATeaser         string `yaml:"ctaTeaser" json:"ctaTeaser"`
	UnlockLabel       string `yaml:"unlockLabel" json:"unlockLabel"`
	ScansRemaining    string `yaml:"scansRemaining" json:"scansRemaining"`
}

type FileUploadStrings struct {
	DropOrBrowse string `yaml:"dropOrBrowse" json:"dropOrBrowse"`
	Browse       string `yaml:"browse" json:"browse"`
	Formats      string `yaml:"formats" json:"formats"`
	Extracting   string `yaml:"extracting" json:"extracting"`
	Unsupported  string `yaml:"unsupported" json:"unsupported"`
	TooLarge     string `yaml:"tooLarge" json:"tooLarge"`
	ExtractError string `yaml:"extractError" json:"extractError"`
}

type ContactStrings struct {
	Title                  string          `yaml:"title" json:"title"`
	Subtitle               string          `yaml:"subtitle" json:"subtitle"`
	EmailLabel             string          `yaml:"emailLabel" json:"emailLabel"`
	CompanyName            string          `yaml:"companyName" json:"companyName"`
	InstitutionCTA         string          `yaml:"institutionCta" json:"institutionCta"`
	InstitutionDescription string          `yaml:"institutionDescription" json:"institutionDescription"`
	FormFullName           string          `yaml:"formFullName" json:"formFullName"`
	FormEmail              string          `yaml:"formEmail" json:"formEmail"`
	FormOrganization       string          `yaml:"formOrganization" json:"formOrganization"`
	FormSubject            string          `yaml:"formSubject" json:"formSubject"`
	FormMessage            string          `yaml:"formMessage" json:"formMessage"`
	FormSubmit             string          `yaml:"formSubmit" json:"formSubmit"`
	FormSending            string          `yaml:"formSending" json:"formSending"`
	FormSuccess            string          `yaml:"formSuccess" json:"formSuccess"`
	FormSuccessDetail      string          `yaml:"formSuccessDetail" json:"formSuccessDetail"`
	NamePlaceholder        string          `yaml:"namePlaceholder" json:"namePlaceholder"`
	EmailPlaceholder       string          `yaml:"emailPlaceholder" json:"emailPlaceholder"`
	OrgPlaceholder         string          `yaml:"orgPlaceholder" json:"orgPlaceholder"`
	MessagePlaceholder     string          `yaml:"messagePlaceholder" json:"messagePlaceholder"`
	SelectSubject          string          `yaml:"selectSubject" json:"selectSubject"`
	SubjectOptions         []SubjectOption `yaml:"subjectOptions" json:"subjectOptions"`
}

type SubjectOption struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

type DemoVideoStrings struct {
	Title            string        `yaml:"title" json:"title"`
	Subtitle         string        `yaml:"subtitle" json:"subtitle"`
	VideoPlaceholder string        `yaml:"videoPlaceholder" json:"videoPlaceholder"`
	VideoSoon        string        `yaml:"videoSoon" json:"videoSoon"`
	ReadyCTA         string        `yaml:"readyCta" json:"readyCta"`
	ReadySubtitle    string        `yaml:"readySubtitle" json:"readySubtitle"`
	ReadyButton      string        `yaml:"readyButton" json:"readyButton"`
	FeatureCards     []FeatureCard `yaml:"featureCards" json:"featureCards"`
}

type FeatureCard struct {
	Emoji       string `yaml:"emoji" json:"emoji"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
}

// EmailStrings holds every transactional email template. Subject and body
// fields may carry {name}, {plan}, {percent} and {days} placeholders.
type EmailStrings struct {
	HeaderName            string                      `yaml:"headerName" json:"headerName"`
	Welcome               WelcomeEmail                `yaml:"welcome" json:"welcome"`
	SubscriptionConfirmed SubscriptionConfirmedEmail  `yaml:"subscriptionConfirmed" json:"subscriptionConfirmed"`
	UpgradeReminder       UpgradeReminderEmail        `yaml:"upgradeReminder" json:"upgradeReminder"`
	TrialExpiring         TrialExpiringEmail          `yaml:"trialExpiring" json:"trialExpiring"`
	TrialEnded            TrialEndedEmail             `yaml:"trialEnded" json:"trialEnded"`
	LimitReached          LimitReachedEmail           `yaml:"limitReached" json:"limitReached"`
}

type WelcomeEmail struct {
	Subject       string   `yaml:"subject" json:"subject"`
	Greeting      string   `yaml:"greeting" json:"greeting"`
	Intro         string   `yaml:"intro" json:"intro"`
	TrialTitle    string   `yaml:"trialTitle" json:"trialTitle"`
	TrialFeatures []string `yaml:"trialFeatures" json:"trialFeatures"`
	CTAButton     string   `yaml:"ctaButton" json:"ctaButton"`
	Question      string   `yaml:"question" json:"question"`
	CTAURL        string   `yaml:"ctaUrl" json:"ctaUrl" validate:"startswith=/"`
}

type SubscriptionConfirmedEmail struct {
	Subject    string `yaml:"subject" json:"subject"`
	Greeting   string `yaml:"greeting" json:"greeting"`
	Active     string `yaml:"active" json:"active"`
	PlanTitle  string `yaml:"planTitle" json:"planTitle"`
	CTAButton  string `yaml:"ctaButton" json:"ctaButton"`
	ManageHint string `yaml:"manageHint" json:"manageHint"`
}

type UpgradeReminderEmail struct {
	Subject         string   `yaml:"subject" json:"subject"`
	Title           string   `yaml:"title" json:"title"`
	Body            string   `yaml:"body" json:"body"`
	UpgradeTitle    string   `yaml:"upgradeTitle" json:"upgradeTitle"`
	UpgradeFeatures []string `yaml:"upgradeFeatures" json:"upgradeFeatures"`
	UpgradePrice    string   `yaml:"upgradePrice" json:"upgradePrice"`
	CTAButton       string   `yaml:"ctaButton" json:"ctaButton"`
}

type TrialExpiringEmail struct {
	Subjects struct {
		LastDay  string `yaml:"lastDay" json:"lastDay"`
		Urgent   string `yaml:"urgent" json:"urgent"`
		Reminder string `yaml:"reminder" json:"reminder"`
	} `yaml:"subjects" json:"subjects"`
	Titles struct {
		LastDay   string `yaml:"lastDay" json:"lastDay"`
		Remaining string `yaml:"remaining" json:"remaining"`
	} `yaml:"titles" json:"titles"`
	Body        string `yaml:"body" json:"body"`
	BodyLastDay string `yaml:"bodyLastDay" json:"bodyLastDay"`
	Countdown   struct {
		Today string `yaml:"today" json:"today"`
		Days  string `yaml:"days" json:"days"`
	} `yaml:"countdown" json:"countdown"`
	BeforeEnd    string   `yaml:"beforeEnd" json:"beforeEnd"`
	KeepTitle    string   `yaml:"keepTitle" json:"keepTitle"`
	KeepFeatures []string `yaml:"keepFeatures" json:"keepFeatures"`
	CTAButton    string   `yaml:"ctaButton" json:"ctaButton"`
	Question     string   `yaml:"question" json:"question"`
}

type TrialEndedEmail struct {
	Subject    string `yaml:"subject" json:"subject"`
	Title      string `yaml:"title" json:"title"`
	Body       string `yaml:"body" json:"body"`
	OfferTitle string `yaml:"offerTitle" json:"offerTitle"`
	OfferBody  string `yaml:"offerBody" json:"offerBody"`
	CTAButton  string `yaml:"ctaButton" json:"ctaButton"`
	Question   string `yaml:"question" json:"question"`
}

type LimitReachedEmail struct {
	Subject   string `yaml:"subject" json:"subject"`
	Title     string `yaml:"title" json:"title"`
	Body      string `yaml:"body" json:"body"`
	CTAButton string `yaml:"ctaButton" json:"ctaButton"`
}

// ErrorStrings are the user-facing API error messages.
type ErrorStrings struct {
	Unauthorized       string `yaml:"unauthorized" json:"unauthorized"`
	DailyLimitReached  string `yaml:"dailyLimitReached" json:"dailyLimitReached"`
	RateLimitRetry     string `yaml:"rateLimitRetry" json:"rateLimitRetry"`
	TextTooShort       string `yaml:"textTooShort" json:"textTooShort"`
	TextTooLong        string `yaml:"textTooLong" json:"textTooLong"`
	InvalidPlan        string `yaml:"invalidPlan" json:"invalidPlan"`
	InternalError      string `yaml:"internalError" json:"internalError"`
	PaymentError       string `yaml:"paymentError" json:"paymentError"`
	BillingError       string `yaml:"billingError" json:"billingError"`
	NoSubscription     string `yaml:"noSubscription" json:"noSubscription"`
	UserNotFound       string `yaml:"userNotFound" json:"userNotFound"`
	ServiceUnavailable string `yaml:"serviceUnavailable" json:"serviceUnavailable"`
	DemoLimitReached   string `yaml:"demoLimitReached" json:"demoLimitReached"`
	DemoTextTooLong    string `yaml:"demoTextTooLong" json:"demoTextTooLong"`
	AnalysisError      string `yaml:"analysisError" json:"analysisError"`
	EmailAlreadySent   string `yaml:"emailAlreadySent" json:"emailAlreadySent"`
}

// PlanDetail is the plan blurb used inside subscription emails.
type PlanDetail struct {
	Name     string   `yaml:"name" json:"name"`
	Features []string `yaml:"features" json:"features"`
}
