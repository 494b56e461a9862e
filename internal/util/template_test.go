package util

import "testing"

func TestRenderTemplate_PassthroughWithoutMarkers(t *testing.T) {
	out, err := RenderTemplate("plain text", nil)
	if err != nil || out != "plain text" {
		t.Fatalf("unexpected: %q %v", out, err)
	}
}

func TestRenderTemplate_SubstitutesState(t *testing.T) {
	out, err := RenderTemplate("profile: {{.profiling_summary}}", map[string]any{"profiling_summary": "vegan, 2000 kcal"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "profile: vegan, 2000 kcal" {
		t.Fatalf("unexpected render: %q", out)
	}
}

func TestRenderTemplate_DoesNotHTMLEscape(t *testing.T) {
	out, err := RenderTemplate("{{.v}}", map[string]any{"v": `rice & beans <2 cups>`})
	if err != nil {
		t.Fatal(err)
	}
	if out != `rice & beans <2 cups>` {
		t.Fatalf("prompt text must not be escaped: %q", out)
	}
}
