package liquidpage

func registerDefaultFilters(env *Environment) {
	// String filters
	env.AddFilter("append", filterAppend)
	env.AddFilter("prepend", filterPrepend)
	env.AddFilter("upcase", filterUpcase)
	env.AddFilter("downcase", filterDowncase)
	env.AddFilter("capitalize", filterCapitalize)
	env.AddFilter("strip", filterStrip)
	env.AddFilter("lstrip", filterLstrip)
	env.AddFilter("rstrip", filterRstrip)
	env.AddFilter("strip_newlines", filterStripNewlines)
	env.AddFilter("newline_to_br", filterNewlineToBr)
	env.AddFilter("strip_html", filterStripHTML)
	env.AddFilter("replace", filterReplace)
	env.AddFilter("replace_first", filterReplaceFirst)
	env.AddFilter("remove", filterRemove)
	env.AddFilter("remove_first", filterRemoveFirst)
	env.AddFilter("truncate", filterTruncate)
	env.AddFilter("truncatewords", filterTruncateWords)
	env.AddFilter("split", filterSplit)
	env.AddFilter("slugify", filterSlugify)
	env.AddFilter("number_of_words", filterNumberOfWords)

	// Escaping
	env.AddFilter("escape", filterEscape)
	env.AddFilter("escape_once", filterEscapeOnce)
	env.AddFilter("xml_escape", filterXMLEscape)
	env.AddFilter("url_encode", filterURLEncode)
	env.AddFilter("url_decode", filterURLDecode)

	// Sequence filters
	env.AddFilter("size", filterSize)
	env.AddFilter("first", filterFirst)
	env.AddFilter("last", filterLast)
	env.AddFilter("join", filterJoin)
	env.AddFilter("reverse", filterReverse)
	env.AddFilter("sort", filterSort)
	env.AddFilter("sort_natural", filterSortNatural)
	env.AddFilter("uniq", filterUniq)
	env.AddFilter("compact", filterCompact)
	env.AddFilter("map", filterMap)
	env.AddFilter("where", filterWhere)
	env.AddFilter("concat", filterConcat)
	env.AddFilter("slice", filterSlice)
	env.AddFilter("array_to_sentence_string", filterArrayToSentenceString)

	// Math filters
	env.AddFilter("plus", filterPlus)
	env.AddFilter("minus", filterMinus)
	env.AddFilter("times", filterTimes)
	env.AddFilter("divided_by", filterDividedBy)
	env.AddFilter("modulo", filterModulo)
	env.AddFilter("abs", filterAbs)
	env.AddFilter("ceil", filterCeil)
	env.AddFilter("floor", filterFloor)
	env.AddFilter("round", filterRound)
	env.AddFilter("at_least", filterAtLeast)
	env.AddFilter("at_most", filterAtMost)

	// Other
	env.AddFilter("default", filterDefault)
	env.AddFilter("jsonify", filterJSONify)
	env.AddFilter("inspect", filterInspect)
	env.AddFilter("relative_url", filterRelativeURL)
	env.AddFilter("absolute_url", filterAbsoluteURL)
}
