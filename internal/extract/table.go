package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Table is the versioned selector table the document extractor walks.
// Candidates are ordered most page-version-specific first, generic
// last; the site's markup drifts, so deployments can override any list
// from configuration instead of waiting for a release.
type Table struct {
	Version         string
	Name            []string
	Rating          []string
	Price           []string
	Description     []string
	Address         []string
	CuisineAreas    []string
	PhoneContainers []string
}

// DefaultTable returns the selector snapshot the service ships with.
func DefaultTable() Table {
	return Table{
		Version: "2024-01",
		Name: []string{
			".biGQs._P.hzzSG.rRtyp",
			`h1[data-automation="restaurant-detail-name"]`,
			"h1.ui_header",
			".HjBfq",
			"h1",
		},
		Rating: []string{
			".biGQs._P.pZUbB.KxBGd",
			`[data-automation="rating"]`,
			".ZDEqb",
			".overallRating",
		},
		Price: []string{
			".biGQs._P.pZUbB.KxBGd",
			".dlMOJ",
			`[data-automation="price-range"]`,
		},
		Description: []string{
			".biGQs._P.pZUbB.avBIb.KxBGd",
			".biGQs._P.pZUbB.hmDzD",
			`[data-automation="restaurant-detail-description"]`,
			`[data-test-target="restaurant-detail-overview"] p`,
		},
		Address: []string{
			".biGQs._P.fiohW.fOtGX",
			".AYHFM",
			`[data-automation="restaurant-detail-address"]`,
			`[data-test-target="location-detail"] span`,
		},
		CuisineAreas: []string{
			".HUMGB.cPbcf",
			`[data-test-target="restaurant-detail-overview"]`,
			".breadcrumbs",
		},
		PhoneContainers: []string{
			"span.biGQs._P.XWJSj.Wb",
			`[data-automation="restaurant-phone"]`,
			".phone-number",
		},
	}
}

// Fallbacks holds the documented default for every field. Extractors
// never fail: when no candidate matches, the fallback is the value.
type Fallbacks struct {
	Name        string
	Rating      string
	PriceRange  string
	CuisineTag  string
	Description string
	Address     string
	Locality    string
	Latitude    string
	Longitude   string
}

func DefaultFallbacks() Fallbacks {
	return Fallbacks{
		Name:        "Ristorante",
		Rating:      "4.0",
		PriceRange:  "€€",
		CuisineTag:  "italiana",
		Description: "Autentico ristorante che serve specialità locali",
		Address:     "Salento, Puglia",
		Locality:    "Salento",
		Latitude:    "40.3515",
		Longitude:   "18.1750",
	}
}

// cuisineTags maps an output tag to the keywords that imply it. Order
// matters twice over: tags are tested in this order for each scanned
// region, and the first region that matches a tag fixes its position in
// the result.
var cuisineTags = []struct {
	tag      string
	keywords []string
}{
	{"pugliese", []string{"pugliese", "apulian", "puglia", "salentina", "salento", "tipica pugliese"}},
	{"italiana", []string{"italiana", "italian", "italy", "tradizionale italiana"}},
	{"mediterranea", []string{"mediterranea", "mediterranean", "mediter"}},
	{"pesce", []string{"pesce", "seafood", "fish", "mare", "frutti di mare", "crudo"}},
	{"barbecue", []string{"barbecue", "grill", "griglia", "alla griglia", "bbq", "braceria"}},
	{"steakhouse", []string{"steakhouse", "steak", "bistecca", "carne", "beef"}},
}

var (
	numberPattern = regexp.MustCompile(`\d+[.,]\d+|\d+`)
	euroPattern   = regexp.MustCompile(`€+`)
	coordPattern  = regexp.MustCompile(`@(-?\d+\.?\d*),(-?\d+\.?\d*)`)
	daddrPattern  = regexp.MustCompile(`daddr=([^@&]+)`)
	phonePattern  = regexp.MustCompile(`(\+39\s?)?(\d{2,4}\s?\d{6,8}|\d{3}\s?\d{3}\s?\d{4})`)
)

const (
	maxDescriptionLen = 300
	mediaCDNMarker    = "tripadvisor.com/media/photo"
)

var mapLinkMarkers = []string{"maps.google.com", "goo.gl/maps", "maps.app.goo.gl"}

// normalizeRating validates a raw numeric match against the 1.0–5.0
// range, normalizing decimal commas. Anything out of range or
// unparseable coerces to the fallback.
func normalizeRating(raw, fallback string) string {
	if raw == "" {
		return fallback
	}
	v := strings.ReplaceAll(raw, ",", ".")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 1.0 || f > 5.0 {
		return fallback
	}
	return v
}

// longestEuroRun returns the longest consecutive run of currency
// symbols in text, capped at four.
func longestEuroRun(text string) int {
	best := 0
	for _, m := range euroPattern.FindAllString(text, -1) {
		if n := strings.Count(m, "€"); n > best {
			best = n
		}
	}
	if best > 4 {
		best = 4
	}
	return best
}

// matchCuisines scans region texts in priority order and collects each
// matched tag once, preserving discovery order.
func matchCuisines(regions []string, fallbackTag string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, region := range regions {
		text := strings.ToLower(region)
		if text == "" {
			continue
		}
		for _, ct := range cuisineTags {
			if seen[ct.tag] {
				continue
			}
			for _, kw := range ct.keywords {
				if strings.Contains(text, kw) {
					seen[ct.tag] = true
					tags = append(tags, ct.tag)
					break
				}
			}
		}
	}
	if len(tags) == 0 {
		tags = []string{fallbackTag}
	}
	return tags
}

// truncateDescription enforces the 300-character cap, ellipsis
// included. Counting is by rune so multi-byte text is not cut
// mid-character.
func truncateDescription(text string) string {
	runes := []rune(text)
	if len(runes) <= maxDescriptionLen {
		return text
	}
	return string(runes[:maxDescriptionLen-3]) + "..."
}

// localityFromAddress derives a locality from the trailing
// comma-delimited segment of an address, or returns fallback.
func localityFromAddress(address, fallback string) string {
	parts := strings.Split(address, ",")
	if len(parts) > 1 {
		if loc := strings.TrimSpace(parts[len(parts)-1]); loc != "" {
			return loc
		}
	}
	return fallback
}

// localityFromMapDestination pulls a locality out of a map link's
// destination parameter: the second-to-last comma segment of the
// decoded address.
func localityFromMapDestination(decoded string) string {
	parts := strings.Split(decoded, ",")
	if len(parts) > 1 {
		return strings.TrimSpace(parts[len(parts)-2])
	}
	return ""
}

func isMapLink(href string) bool {
	for _, marker := range mapLinkMarkers {
		if strings.Contains(href, marker) {
			return true
		}
	}
	return false
}
