package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/legalaudit"
)

var _ legalaudit.ConsentDetector = (*Detector)(nil)

// consentMarker lists the script hosts and selectors that identify a platform.
type consentMarker struct {
	platform  legalaudit.ConsentPlatform
	scripts   []string
	selectors []string
}

var consentMarkers = []consentMarker{
	{
		platform:  legalaudit.ConsentOneTrust,
		scripts:   []string{"cdn.cookielaw.org", "otsdkstub", "optanon"},
		selectors: []string{"#onetrust-consent-sdk", "#onetrust-banner-sdk", ".optanon-alert-box-wrapper"},
	},
	{
		platform:  legalaudit.ConsentCookiebot,
		scripts:   []string{"consent.cookiebot.com", "consentcdn.cookiebot.com"},
		selectors: []string{"script#Cookiebot", "#CybotCookiebotDialog"},
	},
	{
		platform:  legalaudit.ConsentDidomi,
		scripts:   []string{"sdk.privacy-center.org"},
		selectors: []string{"#didomi-host", ".didomi-popup-container"},
	},
	{
		platform:  legalaudit.ConsentOsano,
		scripts:   []string{"cmp.osano.com"},
		selectors: []string{".osano-cm-window", ".osano-cm-dialog"},
	},
	{
		platform:  legalaudit.ConsentCookieYes,
		scripts:   []string{"cdn-cookieyes.com"},
		selectors: []string{".cky-consent-container", "#cookie-law-info-bar"},
	},
	{
		platform:  legalaudit.ConsentIubenda,
		scripts:   []string{"cdn.iubenda.com", "cs.iubenda.com"},
		selectors: []string{"#iubenda-cs-banner"},
	},
	{
		platform:  legalaudit.ConsentTermly,
		scripts:   []string{"app.termly.io"},
		selectors: []string{"#termly-code-snippet-support"},
	},
	{
		platform:  legalaudit.ConsentUsercentrics,
		scripts:   []string{"usercentrics.eu"},
		selectors: []string{"#usercentrics-root", "#usercentrics-cmp-ui"},
	},
}

// Detector identifies cookie consent platforms from HTML content.
// Script sources are checked before banner markup, then loader data
// attributes.
type Detector struct{}

// NewDetector creates a new Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect analyzes HTML and returns the identified consent platform.
// Returns ConsentUnknown if no platform can be determined.
func (d *Detector) Detect(html string) legalaudit.ConsentPlatform {
	if html == "" {
		return legalaudit.ConsentUnknown
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return legalaudit.ConsentUnknown
	}

	srcs := d.scriptSources(doc)
	for _, m := range consentMarkers {
		for _, s := range m.scripts {
			if containsAny(srcs, s) {
				return m.platform
			}
		}
	}

	for _, m := range consentMarkers {
		for _, sel := range m.selectors {
			if d.hasSelector(doc, sel) {
				return m.platform
			}
		}
	}

	return d.detectFromDataAttributes(doc)
}

// scriptSources returns the lower-cased src of every external script.
func (d *Detector) scriptSources(doc *goquery.Document) []string {
	var srcs []string
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			srcs = append(srcs, strings.ToLower(src))
		}
	})
	return srcs
}

// detectFromDataAttributes recognizes platforms configured through data
// attributes on an inline loader.
func (d *Detector) detectFromDataAttributes(doc *goquery.Document) legalaudit.ConsentPlatform {
	switch {
	case d.hasSelector(doc, "[data-domain-script]"):
		return legalaudit.ConsentOneTrust
	case d.hasSelector(doc, "[data-cbid]"):
		return legalaudit.ConsentCookiebot
	case d.hasSelector(doc, "[data-settings-id]") && d.hasSelector(doc, "[data-usercentrics]"):
		return legalaudit.ConsentUsercentrics
	}
	return legalaudit.ConsentUnknown
}

// hasSelector checks if the document contains at least one element matching the selector.
func (d *Detector) hasSelector(doc *goquery.Document, selector string) bool {
	return doc.Find(selector).Length() > 0
}

func containsAny(values []string, substr string) bool {
	for _, v := range values {
		if strings.Contains(v, substr) {
			return true
		}
	}
	return false
}
