package liquidpage

import (
	"errors"
	"testing"
)

func TestFilters(t *testing.T) {
	ctx := map[string]any{
		"words": "the quick brown fox jumps",
		"html":  `<p class="x">Hi <b>there</b></p><script>alert(1)</script>`,
		"nums":  []any{3, 1, 2},
		"names": []any{"bob", "Alice", "carol"},
		"dupes": []any{1, 2, 1, 3, 2},
		"holes": []any{1, nil, 2},
		"posts": []any{
			map[string]any{"title": "B", "draft": false, "tags": []any{"go"}},
			map[string]any{"title": "A", "draft": true, "tags": []any{"web"}},
			map[string]any{"title": "C", "draft": false, "tags": nil},
		},
		"site": map[string]any{"url": "https://example.com", "baseurl": "/blog"},
	}

	tests := []struct {
		source   string
		expected string
	}{
		{`{{ "abc" | append: "def" }}`, "abcdef"},
		{`{{ "abc" | prepend: "x" }}`, "xabc"},
		{`{{ "Straße" | upcase }}`, "STRASSE"},
		{`{{ "ÀB" | downcase }}`, "àb"},
		{`{{ "hELLO" | capitalize }}`, "Hello"},
		{`[{{ "  a  " | lstrip }}][{{ "  a  " | rstrip }}]`, "[a  ][  a]"},
		{"{{ \"a\nb\" | strip_newlines }}", "ab"},
		{"{{ \"a\nb\" | newline_to_br }}", "a<br />\nb"},
		{`{{ html | strip_html }}`, "Hi there"},
		{`{{ "aXbX" | replace_first: "X", "-" }}`, "a-bX"},
		{`{{ "aXbX" | remove: "X" }}`, "ab"},
		{`{{ "aXbX" | remove_first: "X" }}`, "abX"},
		{`{{ "Ground control to Major Tom." | truncate: 20 }}`, "Ground control to..."},
		{`{{ "short" | truncate: 20 }}`, "short"},
		{`{{ "Ground control" | truncate: 8, "" }}`, "Ground c"},
		{`{{ words | truncatewords: 3 }}`, "the quick brown..."},
		{`{{ words | truncatewords: 3, "" }}`, "the quick brown"},
		{`{{ "a b  c" | split: " " | join: "," }}`, "a,b,c"},
		{`{{ "abc" | split: "" | join: "," }}`, "a,b,c"},
		{`{{ "a b&c" | url_encode }}`, "a+b%26c"},
		{`{{ "a+b%26c" | url_decode }}`, "a b&c"},
		{`{{ "<a href='x'>&</a>" | escape }}`, "&lt;a href=&#39;x&#39;&gt;&amp;&lt;/a&gt;"},
		{`{{ "&lt; & <" | escape_once }}`, "&lt; &amp; &lt;"},
		{`{{ '"a" & b' | xml_escape }}`, "&quot;a&quot; &amp; b"},
		{`{{ "The _config.yml file" | slugify }}`, "the-config-yml-file"},
		{`{{ "The _config.yml file" | slugify: "pretty" }}`, "the-_config.yml-file"},
		{`{{ "Hello World!" | slugify: "raw" }}`, "hello-world!"},
		{`{{ "Café Ünïcode" | slugify: "latin" }}`, "cafe-unicode"},
		{`{{ words | number_of_words }}`, "5"},
		{`{{ nums | sort | join: "," }}`, "1,2,3"},
		{`{{ names | sort | join: "," }}`, "Alice,bob,carol"},
		{`{{ names | sort_natural | join: "," }}`, "Alice,bob,carol"},
		{`{{ nums | reverse | join: "," }}`, "2,1,3"},
		{`{{ dupes | uniq | join: "," }}`, "1,2,3"},
		{`{{ holes | compact | join: "," }}`, "1,2"},
		{`{{ posts | map: "title" | join: "," }}`, "B,A,C"},
		{`{{ posts | sort: "title" | map: "title" | join: "," }}`, "A,B,C"},
		{`{{ posts | where: "draft", false | map: "title" | join: "," }}`, "B,C"},
		{`{{ posts | where: "draft" | map: "title" | join: "," }}`, "A"},
		{`{{ posts | where: "tags", "go" | size }}`, "1"},
		{`{{ nums | concat: names | size }}`, "6"},
		{`{{ "hello" | slice: 1, 3 }}`, "ell"},
		{`{{ "hello" | slice: -3, 2 }}`, "ll"},
		{`{{ nums | slice: 1, 5 | join: "," }}`, "1,2"},
		{`{{ names | array_to_sentence_string }}`, "bob, Alice, and carol"},
		{`{{ names | first | array_to_sentence_string: "or" }}`, "bob"},
		{`{{ 5 | plus: "2" }}`, "7"},
		{`{{ 5 | minus: 7 }}`, "-2"},
		{`{{ 3 | times: 1.5 }}`, "4.5"},
		{`{{ -7 | divided_by: 2 }}`, "-4"},
		{`{{ -7 | modulo: 3 }}`, "2"},
		{`{{ -2.5 | abs }}`, "2.5"},
		{`{{ 1.2 | ceil }}|{{ 1.8 | floor }}|{{ 2.5 | round }}|{{ 3.14159 | round: 2 }}`, "2|1|3|3.14"},
		{`{{ 1 | at_least: 3 }}|{{ 5 | at_most: 3 }}|{{ 4 | at_least: 3 }}`, "3|3|4"},
		{`{{ nil | default: "x" }}|{{ "" | default: "x" }}|{{ false | default: "x" }}|{{ false | default: "x", allow_false: true }}`, "x|x|x|false"},
		{`{{ "/about/" | relative_url }}`, "/blog/about/"},
		{`{{ "about" | absolute_url }}`, "https://example.com/blog/about"},
		{`{{ "https://other.org/x" | absolute_url }}`, "https://other.org/x"},
		{`{{ 'a"b' | jsonify }}`, `"a\"b"`},
		{`{{ nums | jsonify }}`, "[3,1,2]"},
		{`{{ nil | inspect }}`, "nil"},
	}

	env := strictEnv()
	for _, tc := range tests {
		assertRender(t, env, tc.source, ctx, tc.expected)
	}
}

func TestFilterErrors(t *testing.T) {
	env := strictEnv()
	tests := []struct {
		source string
		kind   ErrorKind
	}{
		{`{{ 1 | divided_by: 0 }}`, ErrInvalidOperation},
		{`{{ 1 | modulo: 0 }}`, ErrInvalidOperation},
		{`{{ "x" | plus: "y" }}`, ErrInvalidOperation},
		{`{{ "x" | append }}`, ErrInvalidOperation},
		{`{{ "x" | concat: "y" }}`, ErrInvalidOperation},
		{`{{ "x" | slugify: "bogus" }}`, ErrInvalidOperation},
		{`{{ "x" | nope }}`, ErrUndefinedFilter},
	}
	for _, tc := range tests {
		lerr := assertRenderErrorKind(t, env, tc.source, nil, tc.kind)
		if lerr.Span == nil {
			t.Errorf("%q: error has no location", tc.source)
		}
	}
}

func TestUnknownFilterReportsName(t *testing.T) {
	_, err := Render(`{{ "x" | upcase | shout }}`, nil, StrictOptions())
	var lerr *Error
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if lerr.Path != "shout" {
		t.Errorf("path: got %q, want shout", lerr.Path)
	}
}

func TestCustomFilterUsesState(t *testing.T) {
	env := strictEnv()
	env.AddFilter("greet", func(state *State, val Value, args []Value, _ map[string]Value) (Value, error) {
		name, err := state.Resolve("user.name")
		if err != nil {
			return Undefined(), err
		}
		return state.ApplyFilter("prepend", FromString(name.String()+", "), val)
	})
	assertRender(t, env, `{{ "hello" | greet }}`, map[string]any{"user": map[string]any{"name": "Ada"}}, "helloAda, ")
	assertRenderErrorKind(t, env, `{{ "hello" | greet }}`, map[string]any{"user": map[string]any{}}, ErrUndefinedVar)
}
