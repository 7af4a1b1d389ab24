package common

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	if got := Normalize("  Blacks Beach \t"); got != "blacks beach" {
		t.Errorf("Normalize = %q", got)
	}
}

func TestWords(t *testing.T) {
	got := Words("la jolla  shores of  pb", 2)
	want := []string{"jolla", "shores"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words = %v, want %v", got, want)
	}
	if got := Words("", 2); len(got) != 0 {
		t.Errorf("Words(empty) = %v", got)
	}
}

func TestLenCountsRunes(t *testing.T) {
	if got := Len("Peñasco"); got != 7 {
		t.Errorf("Len = %d, want 7", got)
	}
}
