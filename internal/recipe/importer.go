package recipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoRecipe is returned when a page has no recognizable recipe title.
var ErrNoRecipe = errors.New("no recipe found in document")

// knownUnits are the leading words treated as a unit in free-text lines
// such as "2 cups flour".
var knownUnits = map[string]struct{}{
	"g": {}, "gram": {}, "grams": {}, "kg": {}, "mg": {},
	"ml": {}, "l": {}, "liter": {}, "liters": {}, "litre": {}, "litres": {},
	"cup": {}, "cups": {}, "tbsp": {}, "tablespoon": {}, "tablespoons": {},
	"tsp": {}, "teaspoon": {}, "teaspoons": {},
	"oz": {}, "lb": {}, "lbs": {}, "pinch": {}, "clove": {}, "cloves": {},
	"slice": {}, "slices": {}, "can": {}, "cans": {}, "pcs": {},
}

// Importer turns recipe web pages into catalog entries.
type Importer struct {
	httpClient *http.Client
}

// NewImporter creates an Importer with a bounded HTTP timeout.
func NewImporter() *Importer {
	return &Importer{httpClient: &http.Client{Timeout: 15 * time.Second}}
}

// FetchURL downloads the page at url and parses the recipe it contains.
func (i *Importer) FetchURL(ctx context.Context, url string) (Recipe, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Recipe{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return Recipe{}, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Recipe{}, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	return ParseHTML(resp.Body, url)
}

// ParseHTML extracts a recipe from an HTML document. The title comes from the
// first h1 (or <title>), ingredients from schema.org recipeIngredient
// markup, an .ingredients list or the list following an "Ingredients"
// heading, and instructions likewise from the steps list.
func ParseHTML(r io.Reader, sourceURL string) (Recipe, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Recipe{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Remove noise before reading any text.
	doc.Find("script, style, nav, footer, iframe, .ads, #ads").Remove()

	title := cleanText(doc.Find("h1").First().Text())
	if title == "" {
		title = cleanText(doc.Find("title").First().Text())
	}
	if title == "" {
		return Recipe{}, ErrNoRecipe
	}

	description, _ := doc.Find(`meta[name="description"]`).Attr("content")

	rec := Recipe{
		Title:       title,
		Description: strings.TrimSpace(description),
		SourceURL:   sourceURL,
	}

	for _, line := range listItems(doc, `[itemprop="recipeIngredient"], .ingredients li, li.ingredient`, "ingredient", "ul, ol") {
		if req, ok := ParseIngredientText(line); ok {
			rec.Requirements = append(rec.Requirements, req)
		}
	}

	steps := listItems(doc, `[itemprop="recipeInstructions"] li, .instructions li`, "instruction|method|direction|step", "ol, ul")
	rec.Instructions = strings.Join(steps, "\n")

	return rec, nil
}

// listItems returns the text of the elements matched by selector or, when
// there are none, of the first list after a heading containing one of the
// |-separated keywords.
func listItems(doc *goquery.Document, selector, keywords, listSelector string) []string {
	var items []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			items = append(items, text)
		}
	})
	if len(items) > 0 {
		return items
	}

	words := strings.Split(keywords, "|")
	doc.Find("h2, h3, h4").EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		text := strings.ToLower(heading.Text())
		for _, w := range words {
			if strings.Contains(text, w) {
				heading.NextAllFiltered(listSelector).First().Find("li").Each(func(_ int, li *goquery.Selection) {
					if t := cleanText(li.Text()); t != "" {
						items = append(items, t)
					}
				})
				return false
			}
		}
		return true
	})
	return items
}

// ParseIngredientText reads a free-text ingredient line. Lines containing
// "|" use the name|qty|unit format; otherwise an optional leading amount
// (integer, decimal or simple fraction) and a known unit word are split off
// the name: "2 cups flour", "3 eggs", "salt".
func ParseIngredientText(line string) (Requirement, bool) {
	line = cleanText(line)
	if line == "" {
		return Requirement{}, false
	}
	if strings.Contains(line, "|") {
		return ParseRequirementLine(line)
	}

	fields := strings.Fields(line)
	req := Requirement{Quantity: DefaultQuantity, Unit: DefaultUnit}

	if q, ok := parseAmount(fields[0]); ok && len(fields) > 1 {
		req.Quantity = q
		fields = fields[1:]
		if _, isUnit := knownUnits[strings.ToLower(fields[0])]; isUnit && len(fields) > 1 {
			req.Unit = strings.ToLower(fields[0])
			fields = fields[1:]
		}
	}

	req.IngredientName = strings.Join(fields, " ")
	return req, true
}

func parseAmount(s string) (float64, bool) {
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 || n < 0 {
			return 0, false
		}
		return n / d, true
	}
	q, err := strconv.ParseFloat(s, 64)
	if err != nil || q < 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return 0, false
	}
	return q, true
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
