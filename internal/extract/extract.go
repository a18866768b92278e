// Package extract turns raw listing HTML into a fully-populated
// record. Two interchangeable extractors honor the same contract: they
// never return an error, and every field resolves to a documented
// default when no candidate in the page matches.
package extract

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tavola/internal/model"
)

// Extractor produces a complete listing from one page body. The source
// URL is recorded on the result, never fetched.
type Extractor interface {
	Extract(html, sourceURL string) model.ExtractedListing
}

// DocExtractor walks the selector table over a parsed document. It is
// the primary extractor; RegexExtractor covers payloads too mangled to
// parse.
type DocExtractor struct {
	Table     Table
	Fallbacks Fallbacks

	now func() time.Time
}

func NewDocExtractor(t Table, fb Fallbacks) *DocExtractor {
	return &DocExtractor{Table: t, Fallbacks: fb, now: time.Now}
}

func (e *DocExtractor) Extract(html, sourceURL string) model.ExtractedListing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return e.stamp(e.allFallbacks(), sourceURL)
	}

	address, addressFound := e.address(doc)

	listing := model.ExtractedListing{
		Name:        e.name(doc),
		Rating:      e.rating(doc),
		PriceRange:  e.priceRange(doc),
		Cuisines:    e.cuisines(doc),
		Description: e.description(doc),
		Address:     address,
		Phone:       e.phone(doc),
		ImageURL:    e.imageURL(doc),
	}
	listing.Cuisine = listing.Cuisines[0]

	lat, lon, locality := e.coordinates(doc)
	listing.Latitude = lat
	listing.Longitude = lon
	// Locality falls back through the map link, then the extracted
	// address; the configured fallback address never implies one.
	if locality == "" && addressFound {
		locality = localityFromAddress(address, "")
	}
	if locality == "" {
		locality = e.Fallbacks.Locality
	}
	listing.Location = locality

	return e.stamp(listing, sourceURL)
}

func (e *DocExtractor) stamp(l model.ExtractedListing, sourceURL string) model.ExtractedListing {
	l.ExtractedAt = e.now().UTC().Format(time.RFC3339)
	l.SourceURL = sourceURL
	return l
}

func (e *DocExtractor) allFallbacks() model.ExtractedListing {
	fb := e.Fallbacks
	return model.ExtractedListing{
		Name:        fb.Name,
		Rating:      fb.Rating,
		PriceRange:  fb.PriceRange,
		Cuisine:     fb.CuisineTag,
		Cuisines:    []string{fb.CuisineTag},
		Description: fb.Description,
		Address:     fb.Address,
		Location:    fb.Locality,
		Latitude:    fb.Latitude,
		Longitude:   fb.Longitude,
	}
}

// firstText returns the trimmed text of the first element matching any
// selector, walking the list in order, that passes ok.
func firstText(doc *goquery.Document, selectors []string, ok func(string) bool) string {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" && ok(text) {
			return text
		}
	}
	return ""
}

func (e *DocExtractor) name(doc *goquery.Document) string {
	text := firstText(doc, e.Table.Name, func(t string) bool {
		return len(t) > 2 && !strings.Contains(strings.ToLower(t), "tripadvisor")
	})
	if text == "" {
		return e.Fallbacks.Name
	}
	return text
}

func (e *DocExtractor) rating(doc *goquery.Document) string {
	for _, sel := range e.Table.Rating {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if m := numberPattern.FindString(text); m != "" {
			return normalizeRating(m, e.Fallbacks.Rating)
		}
	}
	return e.Fallbacks.Rating
}

func (e *DocExtractor) priceRange(doc *goquery.Document) string {
	best := 0
	for _, sel := range e.Table.Price {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if n := longestEuroRun(s.Text()); n > best {
				best = n
			}
		})
	}
	if best == 0 {
		return e.Fallbacks.PriceRange
	}
	return strings.Repeat("€", best)
}

func (e *DocExtractor) cuisines(doc *goquery.Document) []string {
	var regions []string
	for _, sel := range e.Table.CuisineAreas {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				regions = append(regions, text)
			}
		})
	}
	return matchCuisines(regions, e.Fallbacks.CuisineTag)
}

func (e *DocExtractor) description(doc *goquery.Document) string {
	text := firstText(doc, e.Table.Description, func(t string) bool {
		return len(t) > 20
	})
	if text == "" {
		return e.Fallbacks.Description
	}
	return truncateDescription(text)
}

func (e *DocExtractor) address(doc *goquery.Document) (string, bool) {
	text := firstText(doc, e.Table.Address, func(t string) bool {
		return len(t) > 5
	})
	if text == "" {
		return e.Fallbacks.Address, false
	}
	return text, true
}

// coordinates scans outbound map links for an @lat,lon pair and a
// destination locality. The first link carrying coordinates wins.
func (e *DocExtractor) coordinates(doc *goquery.Document) (lat, lon, locality string) {
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !isMapLink(href) {
			return true
		}
		if m := coordPattern.FindStringSubmatch(href); m != nil {
			lat, lon = m[1], m[2]
		}
		if m := daddrPattern.FindStringSubmatch(href); m != nil {
			if decoded, err := url.QueryUnescape(m[1]); err == nil {
				if loc := localityFromMapDestination(decoded); loc != "" {
					locality = loc
				}
			}
		}
		return lat == ""
	})
	if lat == "" {
		lat, lon = e.Fallbacks.Latitude, e.Fallbacks.Longitude
	}
	return lat, lon, locality
}

func (e *DocExtractor) phone(doc *goquery.Document) string {
	phone := ""
	doc.Find(`a[href^="tel:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		candidate := strings.TrimSpace(strings.TrimPrefix(href, "tel:"))
		if candidate == "" {
			candidate = strings.TrimSpace(s.Text())
		}
		if m := phonePattern.FindString(candidate); m != "" {
			phone = m
			return false
		}
		return true
	})
	if phone != "" {
		return phone
	}
	for _, sel := range e.Table.PhoneContainers {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if m := phonePattern.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// imageURL returns the highest-resolution media CDN image: the last
// srcset entry when present, the plain src otherwise.
func (e *DocExtractor) imageURL(doc *goquery.Document) string {
	image := ""
	doc.Find("picture img, img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if srcset, ok := s.Attr("srcset"); ok && strings.Contains(srcset, mediaCDNMarker) {
			entries := strings.Split(srcset, ",")
			last := strings.TrimSpace(entries[len(entries)-1])
			if fields := strings.Fields(last); len(fields) > 0 {
				image = fields[0]
				return false
			}
		}
		if src, ok := s.Attr("src"); ok && strings.Contains(src, mediaCDNMarker) {
			image = src
			return false
		}
		return true
	})
	return image
}
