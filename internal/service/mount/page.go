package mount

import (
	"io"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	model "github.com/zhouzirui/botura-widget/internal/model/widget"
)

// DefaultHostElementID is the element the embed snippet asks hosts to provide.
const DefaultHostElementID = "botura-chat-widget"

// rootClass marks the container the widget adds inside its host element.
const rootClass = "botura-chat-widget-root"

// HostPage is a parsed host document. It is safe for concurrent use.
type HostPage struct {
	mu  sync.RWMutex
	doc *goquery.Document
}

// LoadHostPage parses an HTML document.
func LoadHostPage(r io.Reader) (*HostPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse host page")
	}
	return &HostPage{doc: doc}, nil
}

// HTML serializes the document including any mounted root containers.
func (p *HostPage) HTML() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.Html()
}

// find returns the host element with elementID and how many elements matched.
func (p *HostPage) find(elementID string) (*goquery.Selection, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sel := p.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return id == elementID
	})
	return sel.First(), sel.Length()
}

// attributes reads every known widget attribute from sel.
func attributes(sel *goquery.Selection) model.Attributes {
	attrs := make(model.Attributes, len(model.KnownAttributes))
	for _, name := range model.KnownAttributes {
		if v, ok := sel.Attr(name); ok {
			attrs[name] = v
		}
	}
	return attrs
}

// appendRoot adds the widget's root container inside the host element.
func (p *HostPage) appendRoot(sel *goquery.Selection, cfg model.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel.AppendHtml(`<div class="` + rootClass + `"></div>`)
	container := sel.ChildrenFiltered("." + rootClass).Last()
	container.SetAttr("data-chatbot-id", cfg.ChatbotID)
	container.SetAttr("data-position", string(cfg.Position))
	container.SetAttr("data-size", string(cfg.Size))
	container.SetAttr("data-color", cfg.AccentColor)
}
