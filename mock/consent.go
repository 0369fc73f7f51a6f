package mock

import "github.com/fwojciec/legalaudit"

var _ legalaudit.ConsentDetector = (*ConsentDetector)(nil)

// ConsentDetector is a mock implementation of legalaudit.ConsentDetector.
type ConsentDetector struct {
	DetectFn func(html string) legalaudit.ConsentPlatform
}

func (d *ConsentDetector) Detect(html string) legalaudit.ConsentPlatform {
	return d.DetectFn(html)
}
