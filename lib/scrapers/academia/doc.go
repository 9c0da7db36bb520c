// Package academia turns pages scraped from the SRM Academia portal
// into structured reports. Extraction works on raw page HTML so it
// can be tested against captured fixtures without a browser.
package academia

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("scrapers/academia")

// report metadata constants, the portal only ever serves the current
// academic term
const (
	academicYear = "2025-26 ODD"
	institution  = "SRM Institute of Science and Technology"
	college      = "College of Engineering and Technology"
)
