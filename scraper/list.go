package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-operators/config"
	"github.com/aluiziolira/go-scrape-operators/models"
)

// CardError reports an index card missing one of its expected parts.
type CardError struct {
	Index    int
	Selector string
}

func (e *CardError) Error() string {
	return fmt.Sprintf("operator card %d: missing %s", e.Index, e.Selector)
}

// ParseOperatorList reads one summary per index card, in document order.
// origin is prepended to each card's relative href.
func ParseOperatorList(doc *goquery.Document, sel config.Selectors, origin string) ([]models.Summary, error) {
	cards := doc.Find(sel.Card)
	summaries := make([]models.Summary, 0, cards.Length())

	var err error
	cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
		var summary models.Summary
		summary, err = parseCard(i, card, sel, origin)
		if err != nil {
			return false
		}
		summaries = append(summaries, summary)
		return true
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func parseCard(i int, card *goquery.Selection, sel config.Selectors, origin string) (models.Summary, error) {
	name := card.Find(sel.Name).First()
	if name.Length() == 0 {
		return models.Summary{}, &CardError{Index: i, Selector: sel.Name}
	}

	banner, ok := card.Find(sel.Banner).First().Attr("src")
	if !ok {
		return models.Summary{}, &CardError{Index: i, Selector: sel.Banner + "[src]"}
	}
	icon, ok := card.Find(sel.Icon).First().Attr("src")
	if !ok {
		return models.Summary{}, &CardError{Index: i, Selector: sel.Icon + "[src]"}
	}
	href, ok := card.Attr("href")
	if !ok {
		return models.Summary{}, &CardError{Index: i, Selector: sel.Card + "[href]"}
	}

	return models.Summary{
		Name:   strings.TrimSpace(name.Text()),
		Banner: banner,
		Icon:   icon,
		URL:    origin + href,
	}, nil
}
