package ssr

import (
	"golang.org/x/net/html"

	"compssr/dom"
)

// reconcileSlots fills slot placeholders found in host with content of
// original, the host element as it was before rendering.
//
// Named slots take every element of original (at any depth) assigned to them
// with the slot attribute. The first unnamed slot takes whatever is left, all
// other unnamed slots are dropped. A slot left without content shows its own
// children instead. When there is no unnamed slot unclaimed content is lost.
func reconcileSlots(host, original *html.Node) {
	slots := dom.ElementsByTag(host, "slot")

	var fallback *html.Node
	for _, slot := range slots {
		name, named := dom.Attr(slot, AttrSlotName)
		if !named {
			if fallback == nil {
				fallback = slot
			}
			continue
		}
		assigned := dom.FindAll(original, func(n *html.Node) bool {
			v, ok := dom.Attr(n, AttrSlot)
			return n.Type == html.ElementNode && ok && v == name
		})
		for _, n := range assigned {
			dom.Detach(n)
		}
		fill(slot, assigned)
	}

	if fallback != nil {
		fill(fallback, dom.RemoveChildren(original))
	}

	for _, slot := range slots {
		if slot != fallback && slot.Parent != nil {
			if _, named := dom.Attr(slot, AttrSlotName); !named {
				dom.Detach(slot)
			}
		}
	}
}

// fill replaces slot with content or, when there is none, with its own
// children.
func fill(slot *html.Node, content []*html.Node) {
	if len(content) == 0 {
		content = dom.Children(slot)
	}
	dom.ReplaceWith(slot, content...)
}
