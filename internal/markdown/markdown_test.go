package markdown

import (
	"strings"
	"testing"
)

func TestToPlainText(t *testing.T) {
	md := "## Thesis\n\n**Score: 4/5** - the claim is *clear*.\n\n- cites Smith & Jones\n- no counterargument\n"

	got := ToPlainText(md)

	for _, unwanted := range []string{"##", "**", "*clear*", "<", "&amp;"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("expected %q to be removed, got %q", unwanted, got)
		}
	}
	for _, want := range []string{"Thesis", "Score: 4/5", "clear", "- cites Smith & Jones", "- no counterargument"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestToPlainText_Plain(t *testing.T) {
	if got := ToPlainText("Total Score: 14/20"); got != "Total Score: 14/20" {
		t.Errorf("unexpected %q", got)
	}
}

func TestStripHTMLTags(t *testing.T) {
	if got := StripHTMLTags("<p>a <em>b</em></p>"); got != "a b" {
		t.Errorf("unexpected %q", got)
	}
}
