package liquidpage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/v3gtb/liquidpage/value"
)

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
	foldCaser  = cases.Fold()
)

// --- String filters ---

// filterAppend implements the built-in `append` filter.
func filterAppend(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs("append", args, 1); err != nil {
		return value.Undefined(), err
	}
	return value.FromString(val.String() + args[0].String()), nil
}

// filterPrepend implements the built-in `prepend` filter.
func filterPrepend(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs("prepend", args, 1); err != nil {
		return value.Undefined(), err
	}
	return value.FromString(args[0].String() + val.String()), nil
}

// filterUpcase implements the built-in `upcase` filter.
func filterUpcase(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return value.FromString(upperCaser.String(val.String())), nil
}

// filterDowncase implements the built-in `downcase` filter.
func filterDowncase(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return value.FromString(lowerCaser.String(val.String())), nil
}

// filterCapitalize implements the built-in `capitalize` filter: the first
// character is upcased and the rest downcased.
func filterCapitalize(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	s := val.String()
	if s == "" {
		return value.FromString(""), nil
	}
	_, size := utf8.DecodeRuneInString(s)
	return value.FromString(upperCaser.String(s[:size]) + lowerCaser.String(s[size:])), nil
}

func filterStrip(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return value.FromString(strings.TrimSpace(val.String())), nil
}

func filterLstrip(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return value.FromString(strings.TrimLeftFunc(val.String(), unicode.IsSpace)), nil
}

func filterRstrip(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return value.FromString(strings.TrimRightFunc(val.String(), unicode.IsSpace)), nil
}

// filterStripNewlines implements the built-in `strip_newlines` filter.
func filterStripNewlines(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	s := strings.ReplaceAll(val.String(), "\r\n", "")
	return value.FromString(strings.ReplaceAll(s, "\n", "")), nil
}

// filterNewlineToBr implements the built-in `newline_to_br` filter.
func filterNewlineToBr(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	s := strings.ReplaceAll(val.String(), "\r\n", "\n")
	return value.FromString(strings.ReplaceAll(s, "\n", "<br />\n")), nil
}

var (
	htmlBlockRe   = regexp.MustCompile(`(?is)<script.*?</script>|<!--.*?-->|<style.*?</style>`)
	htmlTagRe     = regexp.MustCompile(`(?s)<.*?>`)
	entityRe      = regexp.MustCompile(`^&(?:[a-zA-Z][a-zA-Z0-9]*|#[0-9]+|#[xX][0-9a-fA-F]+);`)
	slugRawRe     = regexp.MustCompile(`\s+`)
	slugDefaultRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)
	slugPrettyRe  = regexp.MustCompile(`[^\p{L}\p{N}_.~!$&'()+,;=@]+`)
	slugASCIIRe   = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// filterStripHTML implements the built-in `strip_html` filter.
func filterStripHTML(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	s := htmlBlockRe.ReplaceAllString(val.String(), "")
	return value.FromString(htmlTagRe.ReplaceAllString(s, "")), nil
}

// filterReplace implements the built-in `replace` filter.
func filterReplace(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs("replace", args, 1); err != nil {
		return value.Undefined(), err
	}
	return value.FromString(strings.ReplaceAll(val.String(), args[0].String(), stringArg(args, 1, ""))), nil
}

func filterReplaceFirst(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs("replace_first", args, 1); err != nil {
		return value.Undefined(), err
	}
	return value.FromString(strings.Replace(val.String(), args[0].String(), stringArg(args, 1, ""), 1)), nil
}

func filterRemove(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs("remove", args, 1); err != nil {
		return value.Undefined(), err
	}
	return value.FromString(strings.ReplaceAll(val.String(), args[0].String(), "")), nil
}

func filterRemoveFirst(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs("remove_first", args, 1); err != nil {
		return value.Undefined(), err
	}
	return value.FromString(strings.Replace(val.String(), args[0].String(), "", 1)), nil
}

// filterTruncate implements the built-in `truncate` filter. The ellipsis
// counts towards the length.
func filterTruncate(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	n, err := intArg("truncate", args, 0, 50)
	if err != nil {
		return value.Undefined(), err
	}
	ellipsis := stringArg(args, 1, "...")
	chars := []rune(val.String())
	if int64(len(chars)) <= n {
		return value.FromString(string(chars)), nil
	}
	keep := n - int64(utf8.RuneCountInString(ellipsis))
	if keep < 0 {
		keep = 0
	}
	return value.FromString(string(chars[:keep]) + ellipsis), nil
}

// filterTruncateWords implements the built-in `truncatewords` filter.
func filterTruncateWords(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	n, err := intArg("truncatewords", args, 0, 15)
	if err != nil {
		return value.Undefined(), err
	}
	if n < 1 {
		n = 1
	}
	ellipsis := stringArg(args, 1, "...")
	words := strings.Fields(val.String())
	if int64(len(words)) <= n {
		return val, nil
	}
	return value.FromString(strings.Join(words[:n], " ") + ellipsis), nil
}

// filterSplit implements the built-in `split` filter. A single space splits
// on runs of whitespace; trailing empty fields are dropped.
func filterSplit(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs("split", args, 1); err != nil {
		return value.Undefined(), err
	}
	s := val.String()
	sep := args[0].String()
	var parts []string
	if sep == " " {
		parts = strings.Fields(s)
	} else {
		parts = strings.Split(s, sep)
		for len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
	}
	items := make([]value.Value, len(parts))
	for i, p := range parts {
		items[i] = value.FromString(p)
	}
	return value.FromSlice(items), nil
}

func filterURLEncode(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return value.FromString(url.QueryEscape(val.String())), nil
}

func filterURLDecode(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	s, err := url.QueryUnescape(val.String())
	if err != nil {
		return value.Undefined(), NewError(ErrInvalidOperation, "invalid percent-encoding").WithCause(err)
	}
	return value.FromString(s), nil
}

// filterEscape implements the built-in `escape` filter.
func filterEscape(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	if val.IsNil() {
		return val, nil
	}
	return value.FromString(escapeHTML(val.String())), nil
}

// filterEscapeOnce escapes HTML but leaves existing entities alone.
func filterEscapeOnce(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	s := val.String()
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == '&' {
			if m := entityRe.FindString(s[i:]); m != "" {
				b.WriteString(m)
				i += len(m)
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if esc, ok := htmlEscapes[r]; ok {
			b.WriteString(esc)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return value.FromString(b.String()), nil
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func filterXMLEscape(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return value.FromString(xmlEscaper.Replace(val.String())), nil
}

// filterSlugify implements the built-in `slugify` filter. The optional
// argument selects the mode: none, raw, default, pretty, ascii or latin.
func filterSlugify(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	mode := stringArg(args, 0, "default")
	s := val.String()
	var slug string
	switch mode {
	case "none":
		return value.FromString(s), nil
	case "raw":
		slug = slugRawRe.ReplaceAllString(s, "-")
	case "default":
		slug = slugDefaultRe.ReplaceAllString(s, "-")
	case "pretty":
		slug = slugPrettyRe.ReplaceAllString(s, "-")
	case "ascii":
		slug = slugASCIIRe.ReplaceAllString(s, "-")
	case "latin":
		stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
		if err != nil {
			return value.Undefined(), NewError(ErrInvalidOperation, "cannot transliterate input").WithCause(err)
		}
		slug = slugASCIIRe.ReplaceAllString(stripped, "-")
	default:
		return value.Undefined(), NewError(ErrInvalidOperation, fmt.Sprintf("unknown slugify mode '%s'", mode))
	}
	slug = strings.Trim(slug, "-")
	return value.FromString(lowerCaser.String(slug)), nil
}

func filterNumberOfWords(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return value.FromInt(int64(len(strings.Fields(val.String())))), nil
}

// --- Sequence filters ---

// filterSize implements the built-in `size` filter.
func filterSize(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	n, _ := val.Len()
	return value.FromInt(int64(n)), nil
}

func filterFirst(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	if items, ok := val.AsSlice(); ok && len(items) > 0 {
		return items[0], nil
	}
	return value.Nil(), nil
}

func filterLast(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	if items, ok := val.AsSlice(); ok && len(items) > 0 {
		return items[len(items)-1], nil
	}
	return value.Nil(), nil
}

// filterJoin implements the built-in `join` filter.
func filterJoin(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	items, ok := val.AsSlice()
	if !ok {
		return value.FromString(val.String()), nil
	}
	sep := stringArg(args, 0, " ")
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return value.FromString(strings.Join(parts, sep)), nil
}

func filterReverse(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	items := seqOf(val)
	reversed := make([]value.Value, len(items))
	for i, item := range items {
		reversed[len(items)-1-i] = item
	}
	return value.FromSlice(reversed), nil
}

// filterSort implements the built-in `sort` filter. With an argument the
// items are sorted by that property. Nil sorts last.
func filterSort(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	return sortBy(val, args, func(a, b value.Value) (int, bool) {
		return a.Compare(b)
	})
}

// filterSortNatural sorts case-insensitively.
func filterSortNatural(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	return sortBy(val, args, func(a, b value.Value) (int, bool) {
		fa, fb := foldCaser.String(a.String()), foldCaser.String(b.String())
		return strings.Compare(fa, fb), true
	})
}

func sortBy(val value.Value, args []value.Value, cmp func(a, b value.Value) (int, bool)) (value.Value, error) {
	items := append([]value.Value(nil), seqOf(val)...)
	key := func(v value.Value) value.Value { return v }
	if prop := argAt(args, 0); !prop.IsNil() {
		name := prop.String()
		key = func(v value.Value) value.Value { return propertyOf(v, name) }
	}

	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		a, b := key(items[i]), key(items[j])
		switch {
		case a.IsNil() && b.IsNil():
			return false
		case a.IsNil():
			return false
		case b.IsNil():
			return true
		}
		c, ok := cmp(a, b)
		if !ok {
			if sortErr == nil {
				sortErr = NewError(ErrInvalidOperation, fmt.Sprintf("cannot sort %s and %s", a.Repr(), b.Repr()))
			}
			return false
		}
		return c < 0
	})
	if sortErr != nil {
		return value.Undefined(), sortErr
	}
	return value.FromSlice(items), nil
}

// filterUniq implements the built-in `uniq` filter.
func filterUniq(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	items := seqOf(val)
	prop := argAt(args, 0)
	result := make([]value.Value, 0, len(items))
	var seen []value.Value
outer:
	for _, item := range items {
		key := item
		if !prop.IsNil() {
			key = propertyOf(item, prop.String())
		}
		for _, s := range seen {
			if s.Equal(key) {
				continue outer
			}
		}
		seen = append(seen, key)
		result = append(result, item)
	}
	return value.FromSlice(result), nil
}

// filterCompact implements the built-in `compact` filter.
func filterCompact(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	items := seqOf(val)
	prop := argAt(args, 0)
	result := make([]value.Value, 0, len(items))
	for _, item := range items {
		key := item
		if !prop.IsNil() {
			key = propertyOf(item, prop.String())
		}
		if !key.IsNil() {
			result = append(result, item)
		}
	}
	return value.FromSlice(result), nil
}

// filterMap implements the built-in `map` filter.
func filterMap(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs("map", args, 1); err != nil {
		return value.Undefined(), err
	}
	prop := args[0].String()
	items := seqOf(val)
	result := make([]value.Value, len(items))
	for i, item := range items {
		result[i] = propertyOf(item, prop)
	}
	return value.FromSlice(result), nil
}

// filterWhere implements the built-in `where` filter. Values are compared
// by their text; a sequence property matches when it contains the value.
// Without a value, items whose property is truthy are kept.
func filterWhere(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs("where", args, 1); err != nil {
		return value.Undefined(), err
	}
	prop := args[0].String()
	want := argAt(args, 1)
	items := seqOf(val)
	result := make([]value.Value, 0, len(items))
	for _, item := range items {
		got := propertyOf(item, prop)
		if want.IsUndefined() {
			if got.IsTrue() {
				result = append(result, item)
			}
			continue
		}
		if whereMatches(got, want) {
			result = append(result, item)
		}
	}
	return value.FromSlice(result), nil
}

func whereMatches(got, want value.Value) bool {
	if elems, ok := got.AsSlice(); ok {
		for _, e := range elems {
			if e.String() == want.String() {
				return true
			}
		}
		return false
	}
	return got.String() == want.String()
}

// filterConcat implements the built-in `concat` filter.
func filterConcat(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs("concat", args, 1); err != nil {
		return value.Undefined(), err
	}
	other, ok := args[0].AsSlice()
	if !ok {
		return value.Undefined(), NewError(ErrInvalidOperation, "concat filter requires an array argument")
	}
	items := seqOf(val)
	result := make([]value.Value, 0, len(items)+len(other))
	result = append(result, items...)
	result = append(result, other...)
	return value.FromSlice(result), nil
}

// filterSlice implements the built-in `slice` filter for strings and
// sequences. A negative offset counts from the end.
func filterSlice(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	if err := requireArgs("slice", args, 1); err != nil {
		return value.Undefined(), err
	}
	offset, err := intArg("slice", args, 0, 0)
	if err != nil {
		return value.Undefined(), err
	}
	length, err := intArg("slice", args, 1, 1)
	if err != nil {
		return value.Undefined(), err
	}

	bounds := func(n int64) (int64, int64) {
		start := offset
		if start < 0 {
			start += n
		}
		if start < 0 || start > n || length <= 0 {
			return 0, 0
		}
		end := start + length
		if end > n {
			end = n
		}
		return start, end
	}

	if items, ok := val.AsSlice(); ok {
		start, end := bounds(int64(len(items)))
		return value.FromSlice(append([]value.Value(nil), items[start:end]...)), nil
	}
	chars := []rune(val.String())
	start, end := bounds(int64(len(chars)))
	return value.FromString(string(chars[start:end])), nil
}

// filterArrayToSentenceString joins items as an English list.
func filterArrayToSentenceString(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	connector := stringArg(args, 0, "and")
	items := seqOf(val)
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	switch len(parts) {
	case 0:
		return value.FromString(""), nil
	case 1:
		return value.FromString(parts[0]), nil
	case 2:
		return value.FromString(parts[0] + " " + connector + " " + parts[1]), nil
	}
	last := len(parts) - 1
	return value.FromString(strings.Join(parts[:last], ", ") + ", " + connector + " " + parts[last]), nil
}

// --- Other filters ---

// filterDefault implements the built-in `default` filter. Nil, false and
// empty values are replaced; `allow_false: true` keeps false.
func filterDefault(_ *State, val value.Value, args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	fallback := argAt(args, 0)
	if fallback.IsUndefined() {
		fallback = value.FromString("")
	}
	if b, ok := val.AsBool(); ok && !b && kwargs["allow_false"].IsTrue() {
		return val, nil
	}
	if !val.IsTrue() || val.IsEmpty() {
		return fallback, nil
	}
	return val, nil
}

// filterJSONify implements the built-in `jsonify` filter.
func filterJSONify(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(val.ToNative()); err != nil {
		return value.Undefined(), NewError(ErrInvalidOperation, "cannot encode value as JSON").WithCause(err)
	}
	return value.FromString(strings.TrimSuffix(buf.String(), "\n")), nil
}

func filterInspect(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return value.FromString(val.Repr()), nil
}

// filterRelativeURL prefixes a path with site.baseurl.
func filterRelativeURL(state *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return value.FromString(relativeURL(state, val.String())), nil
}

// filterAbsoluteURL prefixes a path with site.url and site.baseurl.
func filterAbsoluteURL(state *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	input := val.String()
	if isAbsoluteURL(input) {
		return value.FromString(input), nil
	}
	base := strings.TrimSuffix(siteSetting(state, "url"), "/")
	return value.FromString(base + relativeURL(state, input)), nil
}

func relativeURL(state *State, input string) string {
	if isAbsoluteURL(input) {
		return input
	}
	baseurl := strings.Trim(siteSetting(state, "baseurl"), "/")
	var b strings.Builder
	if baseurl != "" {
		b.WriteString("/")
		b.WriteString(baseurl)
	}
	if !strings.HasPrefix(input, "/") {
		b.WriteString("/")
	}
	b.WriteString(input)
	return b.String()
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// siteSetting reads site.<key> without raising for absent values.
func siteSetting(state *State, key string) string {
	site, ok := state.Lookup("site")
	if !ok {
		return ""
	}
	v, ok := site.Lookup(key)
	if !ok || v.IsNil() {
		return ""
	}
	return v.String()
}

// --- Math filters ---

func filterPlus(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	return arith("plus", val, args, value.Value.Add)
}

func filterMinus(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	return arith("minus", val, args, value.Value.Sub)
}

func filterTimes(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	return arith("times", val, args, value.Value.Mul)
}

// filterDividedBy implements the built-in `divided_by` filter. Integer
// operands use floor division.
func filterDividedBy(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	return arith("divided_by", val, args, value.Value.Div)
}

func filterModulo(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	return arith("modulo", val, args, value.Value.Mod)
}

func arith(filter string, val value.Value, args []value.Value, op func(value.Value, value.Value) (value.Value, error)) (value.Value, error) {
	if err := requireArgs(filter, args, 1); err != nil {
		return value.Undefined(), err
	}
	a, err := numberOf(filter, val)
	if err != nil {
		return value.Undefined(), err
	}
	b, err := numberOf(filter, args[0])
	if err != nil {
		return value.Undefined(), err
	}
	result, err := op(a, b)
	if err != nil {
		return value.Undefined(), NewError(ErrInvalidOperation, fmt.Sprintf("%s: %v", filter, err)).WithCause(err)
	}
	return result, nil
}

func filterAbs(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	n, err := numberOf("abs", val)
	if err != nil {
		return value.Undefined(), err
	}
	if n.IsInt() {
		i, _ := n.AsInt()
		if i < 0 {
			i = -i
		}
		return value.FromInt(i), nil
	}
	f, _ := n.AsFloat()
	return value.FromFloat(math.Abs(f)), nil
}

func filterCeil(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return rounding("ceil", val, math.Ceil)
}

func filterFloor(_ *State, val value.Value, _ []value.Value, _ map[string]value.Value) (value.Value, error) {
	return rounding("floor", val, math.Floor)
}

func rounding(filter string, val value.Value, fn func(float64) float64) (value.Value, error) {
	n, err := numberOf(filter, val)
	if err != nil {
		return value.Undefined(), err
	}
	f, _ := n.AsFloat()
	return value.FromInt(int64(fn(f))), nil
}

// filterRound implements the built-in `round` filter. Without a precision
// the result is an integer.
func filterRound(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	n, err := numberOf("round", val)
	if err != nil {
		return value.Undefined(), err
	}
	digits, err := intArg("round", args, 0, 0)
	if err != nil {
		return value.Undefined(), err
	}
	f, _ := n.AsFloat()
	if digits <= 0 {
		return value.FromInt(int64(math.Round(f))), nil
	}
	scale := math.Pow(10, float64(digits))
	return value.FromFloat(math.Round(f*scale) / scale), nil
}

func filterAtLeast(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	return bound("at_least", val, args, func(c int) bool { return c < 0 })
}

func filterAtMost(_ *State, val value.Value, args []value.Value, _ map[string]value.Value) (value.Value, error) {
	return bound("at_most", val, args, func(c int) bool { return c > 0 })
}

// bound returns the argument when replace(compare(val, arg)) holds.
func bound(filter string, val value.Value, args []value.Value, replace func(int) bool) (value.Value, error) {
	if err := requireArgs(filter, args, 1); err != nil {
		return value.Undefined(), err
	}
	a, err := numberOf(filter, val)
	if err != nil {
		return value.Undefined(), err
	}
	b, err := numberOf(filter, args[0])
	if err != nil {
		return value.Undefined(), err
	}
	c, _ := a.Compare(b)
	if replace(c) {
		return b, nil
	}
	return a, nil
}
