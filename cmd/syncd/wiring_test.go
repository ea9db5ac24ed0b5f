package main

import (
	"reflect"
	"testing"

	"github.com/flashnote/syncd/internal/changelog"
	"github.com/flashnote/syncd/internal/webdav"
)

func TestMapRemoteEntries(t *testing.T) {
	in := []webdav.Entry{
		{Href: "/flashnote/notes/abc.json", IsDirectory: false},
		{Href: "/flashnote/images/", IsDirectory: true},
	}

	want := []changelog.RemoteEntry{
		{Href: "/flashnote/notes/abc.json", IsDirectory: false},
		{Href: "/flashnote/images/", IsDirectory: true},
	}

	got := mapRemoteEntries(in)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("mapRemoteEntries() = %#v, want %#v", got, want)
	}
}

func TestMapRemoteEntriesEmpty(t *testing.T) {
	got := mapRemoteEntries(nil)
	if len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}
