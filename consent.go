package legalaudit

// ConsentPlatform identifies a cookie consent management platform.
type ConsentPlatform string

// Known consent platforms. ConsentUnknown means no platform was recognized.
const (
	ConsentUnknown      ConsentPlatform = ""
	ConsentOneTrust     ConsentPlatform = "onetrust"
	ConsentCookiebot    ConsentPlatform = "cookiebot"
	ConsentDidomi       ConsentPlatform = "didomi"
	ConsentOsano        ConsentPlatform = "osano"
	ConsentCookieYes    ConsentPlatform = "cookieyes"
	ConsentIubenda      ConsentPlatform = "iubenda"
	ConsentTermly       ConsentPlatform = "termly"
	ConsentUsercentrics ConsentPlatform = "usercentrics"
)

// ConsentDetector recognizes the consent platform a page embeds.
type ConsentDetector interface {
	// Detect returns ConsentUnknown when no platform is recognized.
	Detect(html string) ConsentPlatform
}
