package main

import "testing"

func TestSplitList(t *testing.T) {
	got := splitList(" MEADOW, ,CAVERN ")
	if len(got) != 2 || got[0] != "MEADOW" || got[1] != "CAVERN" {
		t.Fatalf("splitList=%q", got)
	}
	if got := splitList(""); got != nil {
		t.Fatalf("empty input=%q", got)
	}
}
