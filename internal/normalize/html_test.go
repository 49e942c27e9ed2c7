package normalize

import "testing"

func TestVisibleText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "intake form",
			html: `<html><head><title>Intake</title></head><body>
				<h1>Why are you reaching out?</h1>
				<p>I haven't slept   properly
				since the layoffs.</p>
			</body></html>`,
			want: "Why are you reaching out? I haven't slept properly since the layoffs.",
		},
		{
			name: "skips scripts and styles",
			html: `<body><script>track()</script><style>p{}</style><p>Panic at work.</p><noscript>enable js</noscript></body>`,
			want: "Panic at work.",
		},
		{
			name: "entities decoded",
			html: `<p>Me &amp; my partner</p>`,
			want: "Me & my partner",
		},
		{
			name: "plain text",
			html: "just text",
			want: "just text",
		},
		{
			name: "empty",
			html: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VisibleText(tt.html)
			if err != nil {
				t.Fatalf("VisibleText failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsHTML(t *testing.T) {
	for name, want := range map[string]bool{
		"form.html": true,
		"FORM.HTM":  true,
		"case.txt":  false,
		"html":      false,
	} {
		if got := IsHTML(name); got != want {
			t.Errorf("IsHTML(%q) = %v, want %v", name, got, want)
		}
	}
}
