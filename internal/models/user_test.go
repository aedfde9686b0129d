package models

import (
	"testing"
	"time"
)

func TestBanActive(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	u := UserModel{Banned: true}
	if !u.BanActive(now) {
		t.Error("permanent ban must be active")
	}
	u.BanUntil = &future
	if !u.BanActive(now) {
		t.Error("temporary ban before expiry must be active")
	}
	u.BanUntil = &past
	if u.BanActive(now) {
		t.Error("expired temporary ban must be inactive")
	}
	u = UserModel{}
	if u.BanActive(now) {
		t.Error("unbanned user must not be banned")
	}
}

func TestCapabilityValid(t *testing.T) {
	for _, c := range []Capability{CapVoting, CapAddPlaces, CapAddEvents, CapAddTrivia, CapEditPlaces, CapPhotoUpload} {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if Capability("fly").Valid() {
		t.Error("unknown capability should be invalid")
	}
}
