package memory

import "github.com/ignatzorin/swapmarket-backend/internal/domain/entity"

func cloneListing(l *entity.Listing) *entity.Listing {
	c := *l
	if l.PriceCents != nil {
		price := *l.PriceCents
		c.PriceCents = &price
	}
	return &c
}

func cloneOrder(o *entity.Order) *entity.Order {
	c := *o
	c.Items = append([]entity.OrderItem(nil), o.Items...)
	if o.Escrow != nil {
		e := *o.Escrow
		c.Escrow = &e
	}
	return &c
}

func cloneDispute(d *entity.Dispute) *entity.Dispute {
	c := *d
	c.EvidenceImages = append([]string(nil), d.EvidenceImages...)
	return &c
}

func cloneTrade(t *entity.Trade) *entity.Trade {
	c := *t
	return &c
}
