package document

import (
	"strings"
	"testing"
)

func TestLinkFilled(t *testing.T) {
	var nilLink *Link
	if nilLink.Filled() {
		t.Fatal("nil link must not be filled")
	}
	if (&Link{UID: "about", Broken: true}).Filled() {
		t.Fatal("broken link must not be filled")
	}
	if (&Link{UID: "  "}).Filled() {
		t.Fatal("blank uid must not be filled")
	}
	if !(&Link{UID: "about"}).Filled() {
		t.Fatal("expected filled link")
	}
}

func TestDocumentHelpers(t *testing.T) {
	doc := &Document{UID: "team", Data: PageData{MetaTitle: "Team meta", Parent: &Link{UID: "about"}}}
	if doc.IsHome() {
		t.Fatal("team is not home")
	}
	if doc.ParentLink() == nil || doc.ParentLink().UID != "about" {
		t.Fatalf("unexpected parent %+v", doc.ParentLink())
	}
	if !(&Document{UID: "home"}).IsHome() {
		t.Fatal("expected home")
	}
}

func TestValidUID(t *testing.T) {
	for _, uid := range []string{"about-us", "child-uid", "om-kumpan-starter", "faq_2025", "a--b", "Kollektion"} {
		if !ValidUID(uid) {
			t.Fatalf("expected %q to be valid", uid)
		}
	}
	for _, uid := range []string{"", "bad\x00uid", "line\nbreak", strings.Repeat("a", MaxUIDLength+1)} {
		if ValidUID(uid) {
			t.Fatalf("expected %q to be invalid", uid)
		}
	}
}
