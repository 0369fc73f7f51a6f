package goquery_test

import (
	"testing"

	"github.com/fwojciec/legalaudit"
	"github.com/fwojciec/legalaudit/goquery"
	"github.com/stretchr/testify/assert"
)

// Ensure Detector implements legalaudit.ConsentDetector at compile time.
var _ legalaudit.ConsentDetector = (*goquery.Detector)(nil)

func TestDetector_Detect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want legalaudit.ConsentPlatform
	}{
		{
			name: "OneTrust from script source",
			html: `<html><head>
<script src="https://cdn.cookielaw.org/scripttemplates/otSDKStub.js" data-domain-script="abc"></script>
</head><body></body></html>`,
			want: legalaudit.ConsentOneTrust,
		},
		{
			name: "OneTrust from banner container",
			html: `<html><body><div id="onetrust-consent-sdk"></div></body></html>`,
			want: legalaudit.ConsentOneTrust,
		},
		{
			name: "Cookiebot from script id",
			html: `<html><head><script id="Cookiebot" type="text/javascript"></script></head></html>`,
			want: legalaudit.ConsentCookiebot,
		},
		{
			name: "Cookiebot from data attribute",
			html: `<html><head><script data-cbid="1234" async></script></head></html>`,
			want: legalaudit.ConsentCookiebot,
		},
		{
			name: "Didomi from host element",
			html: `<html><body><div id="didomi-host"></div></body></html>`,
			want: legalaudit.ConsentDidomi,
		},
		{
			name: "Osano from script source",
			html: `<html><head><script src="https://cmp.osano.com/abc/osano.js"></script></head></html>`,
			want: legalaudit.ConsentOsano,
		},
		{
			name: "CookieYes from script source",
			html: `<html><head><script src="https://cdn-cookieyes.com/client_data/x/script.js"></script></head></html>`,
			want: legalaudit.ConsentCookieYes,
		},
		{
			name: "iubenda from banner",
			html: `<html><body><div id="iubenda-cs-banner"></div></body></html>`,
			want: legalaudit.ConsentIubenda,
		},
		{
			name: "Termly from script source",
			html: `<html><head><script src="https://app.termly.io/embed.min.js"></script></head></html>`,
			want: legalaudit.ConsentTermly,
		},
		{
			name: "Usercentrics from root element",
			html: `<html><body><div id="usercentrics-root"></div></body></html>`,
			want: legalaudit.ConsentUsercentrics,
		},
		{
			name: "script source wins over banner markup",
			html: `<html><head><script src="https://consent.cookiebot.com/uc.js"></script></head>
<body><div id="onetrust-banner-sdk"></div></body></html>`,
			want: legalaudit.ConsentCookiebot,
		},
		{
			name: "plain page",
			html: `<html><head><script src="/app.js"></script></head><body><p>Hello</p></body></html>`,
			want: legalaudit.ConsentUnknown,
		},
		{
			name: "empty input",
			want: legalaudit.ConsentUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, goquery.NewDetector().Detect(tt.html))
		})
	}
}
