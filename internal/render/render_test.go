package render

import (
	"strings"
	"testing"
)

func resolver(titles map[string]string) ResolveFunc {
	return func(name string) (string, bool) {
		id, ok := titles[strings.ToLower(name)]
		return id, ok
	}
}

func TestHTML_LinksAnnotations(t *testing.T) {
	out, err := HTML("see @B and #proj/x and @Nobody", resolver(map[string]string{"b": "b.md"}))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`<a href="note:b.md">@B</a>`,
		`<a href="context:proj/x">#proj/x</a>`,
		`<a href="new:Nobody">@Nobody</a>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestHTML_LeavesCodeAlone(t *testing.T) {
	out, err := HTML("inline `@Code`\n\n```\n#fenced\n```\n", nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "href") {
		t.Errorf("code was linked:\n%s", out)
	}
	if !strings.Contains(out, "<code>@Code</code>") {
		t.Errorf("inline code missing:\n%s", out)
	}
}

func TestAnnotate_SkipsLinkLabels(t *testing.T) {
	in := "[about @B](https://example.com) then @B"
	got := Annotate(in, resolver(map[string]string{"b": "b.md"}))
	want := "[about @B](https://example.com) then [@B](note:b.md)"
	if got != want {
		t.Errorf("Annotate = %q, want %q", got, want)
	}
}

func TestAnnotate_EscapesTargets(t *testing.T) {
	got := Annotate("@B", resolver(map[string]string{"b": "sub dir/b c.md"}))
	if got != "[@B](note:sub%20dir/b%20c.md)" {
		t.Errorf("Annotate = %q", got)
	}
}
