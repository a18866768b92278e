package extract

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"tavola/internal/model"
)

var (
	h1Pattern           = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	jsonRatingPattern   = regexp.MustCompile(`"ratingValue"\s*:\s*"?(\d+(?:[.,]\d+)?)"?`)
	inlineRatingPattern = regexp.MustCompile(`(\d+[.,]\d+)\s*(?:su|of|/)\s*5`)
	jsonAddressPattern  = regexp.MustCompile(`"streetAddress"\s*:\s*"([^"]+)"`)
	metaDescPattern     = regexp.MustCompile(`(?is)<meta[^>]+(?:property|name)=["'](?:og:)?description["'][^>]*content=["']([^"']+)["']`)
	metaDescRevPattern  = regexp.MustCompile(`(?is)<meta[^>]+content=["']([^"']+)["'][^>]*(?:property|name)=["'](?:og:)?description["']`)
	mapHrefPattern      = regexp.MustCompile(`(?:maps\.google\.com|goo\.gl/maps|maps\.app\.goo\.gl)[^"'\s<>]*`)
	telHrefPattern      = regexp.MustCompile(`(?i)href=["']tel:([^"']+)["']`)
	srcsetPattern       = regexp.MustCompile(`(?i)srcset=["']([^"']*tripadvisor\.com/media/photo[^"']*)["']`)
	srcPattern          = regexp.MustCompile(`(?i)\bsrc=["']([^"']*tripadvisor\.com/media/photo[^"']*)["']`)
	scriptStylePattern  = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(?:script|style)>`)
	tagPattern          = regexp.MustCompile(`<[^>]*>`)
	spacePattern        = regexp.MustCompile(`\s+`)
)

// RegexExtractor extracts fields with raw-text patterns and no DOM. It
// serves payloads the parser mangles and doubles as a cross-check for
// the selector table in tests.
type RegexExtractor struct {
	Fallbacks Fallbacks

	converter *md.Converter
	now       func() time.Time
}

func NewRegexExtractor(fb Fallbacks) *RegexExtractor {
	return &RegexExtractor{
		Fallbacks: fb,
		converter: md.NewConverter("", true, nil),
		now:       time.Now,
	}
}

func (e *RegexExtractor) Extract(page, sourceURL string) model.ExtractedListing {
	stripped := stripTags(page)
	address, addressFound := e.addressField(page)

	listing := model.ExtractedListing{
		Name:        e.name(page),
		Rating:      e.rating(page),
		PriceRange:  e.priceRange(stripped),
		Cuisines:    matchCuisines([]string{stripped}, e.Fallbacks.CuisineTag),
		Description: e.description(page),
		Address:     address,
		Phone:       e.phone(page),
		ImageURL:    e.imageURL(page),
	}
	listing.Cuisine = listing.Cuisines[0]

	lat, lon, locality := e.coordinates(page)
	listing.Latitude = lat
	listing.Longitude = lon
	if locality == "" && addressFound {
		locality = localityFromAddress(address, "")
	}
	if locality == "" {
		locality = e.Fallbacks.Locality
	}
	listing.Location = locality

	listing.ExtractedAt = e.now().UTC().Format(time.RFC3339)
	listing.SourceURL = sourceURL
	return listing
}

func stripTags(page string) string {
	text := scriptStylePattern.ReplaceAllString(page, " ")
	text = tagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

func (e *RegexExtractor) name(page string) string {
	for _, m := range h1Pattern.FindAllStringSubmatch(page, -1) {
		text := strings.TrimSpace(stripTags(m[1]))
		if len(text) > 2 && !strings.Contains(strings.ToLower(text), "tripadvisor") {
			return text
		}
	}
	return e.Fallbacks.Name
}

func (e *RegexExtractor) rating(page string) string {
	if m := jsonRatingPattern.FindStringSubmatch(page); m != nil {
		return normalizeRating(m[1], e.Fallbacks.Rating)
	}
	if m := inlineRatingPattern.FindStringSubmatch(page); m != nil {
		return normalizeRating(m[1], e.Fallbacks.Rating)
	}
	return e.Fallbacks.Rating
}

func (e *RegexExtractor) priceRange(stripped string) string {
	if n := longestEuroRun(stripped); n > 0 {
		return strings.Repeat("€", n)
	}
	return e.Fallbacks.PriceRange
}

func (e *RegexExtractor) description(page string) string {
	for _, p := range []*regexp.Regexp{metaDescPattern, metaDescRevPattern} {
		if m := p.FindStringSubmatch(page); m != nil {
			text := strings.TrimSpace(html.UnescapeString(m[1]))
			if len(text) > 20 {
				return truncateDescription(text)
			}
		}
	}

	// Last resort: convert the page to markdown and take the first
	// substantial prose paragraph.
	if text, err := e.converter.ConvertString(page); err == nil {
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if len(para) > 50 && !strings.HasPrefix(para, "#") && !strings.HasPrefix(para, "[") {
				return truncateDescription(spacePattern.ReplaceAllString(para, " "))
			}
		}
	}
	return e.Fallbacks.Description
}

func (e *RegexExtractor) addressField(page string) (string, bool) {
	if m := jsonAddressPattern.FindStringSubmatch(page); m != nil {
		text := strings.TrimSpace(html.UnescapeString(m[1]))
		if len(text) > 5 {
			return text, true
		}
	}
	return e.Fallbacks.Address, false
}

func (e *RegexExtractor) coordinates(page string) (lat, lon, locality string) {
	for _, href := range mapHrefPattern.FindAllString(page, -1) {
		if m := coordPattern.FindStringSubmatch(href); m != nil && lat == "" {
			lat, lon = m[1], m[2]
		}
		if m := daddrPattern.FindStringSubmatch(href); m != nil && locality == "" {
			if decoded, err := url.QueryUnescape(m[1]); err == nil {
				locality = localityFromMapDestination(decoded)
			}
		}
		if lat != "" {
			break
		}
	}
	if lat == "" {
		lat, lon = e.Fallbacks.Latitude, e.Fallbacks.Longitude
	}
	return lat, lon, locality
}

func (e *RegexExtractor) phone(page string) string {
	for _, m := range telHrefPattern.FindAllStringSubmatch(page, -1) {
		if phone := phonePattern.FindString(m[1]); phone != "" {
			return phone
		}
	}
	return ""
}

func (e *RegexExtractor) imageURL(page string) string {
	if m := srcsetPattern.FindStringSubmatch(page); m != nil {
		entries := strings.Split(m[1], ",")
		last := strings.TrimSpace(entries[len(entries)-1])
		if fields := strings.Fields(last); len(fields) > 0 {
			return fields[0]
		}
	}
	if m := srcPattern.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	return ""
}
