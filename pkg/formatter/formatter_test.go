package formatter_test

import (
	"testing"

	"github.com/thomasrohde/hotloop/pkg/formatter"
	"github.com/thomasrohde/hotloop/pkg/parser"
)

func format(t *testing.T, source string) string {
	t.Helper()
	prog, diags := parser.Parse(source, "test.hl")
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return formatter.Format(prog)
}

func TestFormatCanonical(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"let x=1+2*3", "let x = 1 + 2 * 3\n"},
		{"let x = (1+2)*3", "let x = (1 + 2) * 3\n"},
		{"let f = 2.0", "let f = 2.0\n"},
		{"let s = \"a\\nb\"", "let s = \"a\\nb\"\n"},
		{"(a,b)=p", "(a, b) = p\n"},
		{"obj.field=1", "obj.field = 1\n"},
		{"xs[ 0 ]=1", "xs[0] = 1\n"},
		{"return", "return\n"},
	}
	for _, tt := range tests {
		if got := format(t, tt.source); got != tt.want {
			t.Errorf("%q:\n  want %q\n  got  %q", tt.source, tt.want, got)
		}
	}
}

func TestFormatBlocks(t *testing.T) {
	source := "for x in reloading(xs,every=2){\nif x>1 {\ntotal=total+x\n} else if x>0 {\ntotal=total+1\n} else {\ntotal=total\n}\n}"
	want := `for x in reloading(xs, every=2) {
  if x > 1 {
    total = total + x
  } else if x > 0 {
    total = total + 1
  } else {
    total = total
  }
}
`
	if got := format(t, source); got != want {
		t.Errorf("want:\n%s\ngot:\n%s", want, got)
	}
}

func TestFormatDeclarations(t *testing.T) {
	source := "let x = 1\n@reloading(every=3)\nfn work(a, b) {\nreturn a+b\n}\nclass Box {\nlet v = 0\nfn get(self) {\nreturn self.v\n}\n}"
	want := `let x = 1

@reloading(every=3)
fn work(a, b) {
  return a + b
}

class Box {
  let v = 0
  fn get(self) {
    return self.v
  }
}
`
	if got := format(t, source); got != want {
		t.Errorf("want:\n%s\ngot:\n%s", want, got)
	}
}

func TestFormatIsStable(t *testing.T) {
	source := "let x=1\nfn f(a){\nreturn a*2\n}\nprint(f(x))"
	once := format(t, source)
	if twice := format(t, once); twice != once {
		t.Errorf("formatting is not idempotent:\n%s\nvs\n%s", once, twice)
	}
}

func TestHasComments(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"let x = 1", false},
		{"let x = 1 # note", true},
		{"# leading\nlet x = 1", true},
		{"let s = \"a#b\"", false},
		{"let s = \"quote \\\" # still in string\"", false},
	}
	for _, tt := range tests {
		if got := formatter.HasComments(tt.source); got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.source, tt.want, got)
		}
	}
}
