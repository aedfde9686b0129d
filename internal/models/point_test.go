package models

import (
	"testing"
	"time"
)

func TestPointStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to PointStatus
		ok       bool
	}{
		{PointStatusPending, PointStatusPublish, true},
		{PointStatusPending, PointStatusTrash, true},
		{PointStatusPublish, PointStatusTrash, true},
		{PointStatusPublish, PointStatusPending, false},
		{PointStatusPublish, PointStatusPublish, false},
		{PointStatusTrash, PointStatusPublish, false},
		{PointStatusTrash, PointStatusPending, false},
		{PointStatusPending, PointStatusPending, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.ok {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestPromoExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	p := PointModel{IsPromo: true, PromoUntil: &past}
	if !p.PromoExpired(now) {
		t.Error("promo with past deadline should be expired")
	}
	p.PromoUntil = &future
	if p.PromoExpired(now) {
		t.Error("promo with future deadline should not be expired")
	}
	p = PointModel{IsPromo: false, PromoUntil: &past}
	if p.PromoExpired(now) {
		t.Error("non-promo point is never promo-expired")
	}
	p = PointModel{IsPromo: true}
	if p.PromoExpired(now) {
		t.Error("promo without deadline does not expire")
	}
}

func TestMaxImages(t *testing.T) {
	p := PointModel{}
	if got := p.MaxImages(6, 12); got != 6 {
		t.Errorf("regular point cap = %d, want 6", got)
	}
	p.IsPromo = true
	if got := p.MaxImages(6, 12); got != 12 {
		t.Errorf("sponsored point cap = %d, want 12", got)
	}
}
