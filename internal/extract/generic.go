package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type pageDoc struct {
	doc *goquery.Document
}

func (p pageDoc) firstText(selectors []string) string {
	for _, sel := range selectors {
		var found string
		p.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = strings.TrimSpace(s.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func (p pageDoc) firstHTML(selectors []string) string {
	for _, sel := range selectors {
		s := p.doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		markup, err := s.Html()
		if err != nil || strings.TrimSpace(markup) == "" {
			continue
		}
		return markup
	}
	return ""
}

func (p pageDoc) exists(selectors []string) bool {
	for _, sel := range selectors {
		if p.doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// imageSources prefers lazy-load attributes over src.
func (p pageDoc) imageSources(selectors []string) []string {
	var out []string
	for _, sel := range selectors {
		p.doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if src := imageAttr(s); src != "" {
				out = append(out, src)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return out
}

func imageAttr(s *goquery.Selection) string {
	for _, attr := range []string{"data-src", "src"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (p pageDoc) metaContent(property string) string {
	for _, sel := range []string{
		`meta[property="` + property + `"]`,
		`meta[name="` + property + `"]`,
	} {
		if v, ok := p.doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (p pageDoc) genericTitle() string {
	for _, property := range []string{"og:title", "twitter:title"} {
		if v := CleanText(p.metaContent(property)); v != "" {
			return v
		}
	}
	if v := CleanText(p.doc.Find("title").First().Text()); v != "" {
		return v
	}
	return CleanText(p.doc.Find("h1").First().Text())
}

func (p pageDoc) genericDescription() string {
	for _, property := range []string{"og:description", "description"} {
		if v := p.metaContent(property); v != "" {
			return v
		}
	}
	return ""
}

func (p pageDoc) genericPrice() string {
	if v := p.metaContent("product:price:amount"); v != "" {
		return v
	}
	return itempropValue(p.doc.Find(`[itemprop="price"]`).First())
}

func (p pageDoc) genericBrand() string {
	if v := p.metaContent("product:brand"); v != "" {
		return v
	}
	brand := p.doc.Find(`[itemprop="brand"]`).First()
	if brand.Length() == 0 {
		return ""
	}
	if name := itempropValue(brand.Find(`[itemprop="name"]`).First()); name != "" {
		return name
	}
	return itempropValue(brand)
}

func itempropValue(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(s.Text())
}

func (p pageDoc) genericImages() []string {
	var out []string
	p.doc.Find(`meta[property="og:image"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	})
	if len(out) > 0 {
		return out
	}
	p.doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := imageAttr(s)
		if src == "" || isDecorativeImage(src) {
			return
		}
		out = append(out, src)
	})
	return out
}

func (p pageDoc) specTable(rowSel, keySel, valueSel string) map[string]string {
	if rowSel == "" || keySel == "" || valueSel == "" {
		return nil
	}
	specs := make(map[string]string)
	p.doc.Find(rowSel).Each(func(_ int, row *goquery.Selection) {
		key := CleanText(row.Find(keySel).First().Text())
		value := CleanText(row.Find(valueSel).First().Text())
		if key == "" || value == "" {
			return
		}
		if _, dup := specs[key]; !dup {
			specs[key] = value
		}
	})
	if len(specs) == 0 {
		return nil
	}
	return specs
}

func (p pageDoc) genericSpecs() map[string]string {
	specs := p.specTable("table tr", "th", "td")
	if len(specs) > 0 {
		return specs
	}
	specs = make(map[string]string)
	p.doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		dl.Find("dt").Each(func(_ int, dt *goquery.Selection) {
			key := CleanText(dt.Text())
			value := CleanText(dt.NextFiltered("dd").Text())
			if key == "" || value == "" {
				return
			}
			if _, dup := specs[key]; !dup {
				specs[key] = value
			}
		})
	})
	if len(specs) == 0 {
		return nil
	}
	return specs
}

func (p pageDoc) genericSoldOut() bool {
	availability := strings.ToLower(p.metaContent("product:availability"))
	if strings.Contains(availability, "out of stock") || availability == "oos" {
		return true
	}
	href, _ := p.doc.Find(`[itemprop="availability"]`).First().Attr("href")
	return strings.Contains(strings.ToLower(href), "outofstock")
}
