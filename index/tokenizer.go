// Copyright 2025 JPVia Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package index

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// The corpus is Spanish-language regulatory text. Queries and chunks are
// folded to lowercase ASCII-ish forms (á→a, ñ→n) so "artículo" and
// "articulo" index identically.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// spanishStopwords are tokens carrying no lexical signal. Folded forms.
var spanishStopwords = map[string]bool{
	"a": true, "al": true, "ante": true, "bajo": true, "como": true,
	"con": true, "contra": true, "cual": true, "cuales": true, "cuando": true,
	"de": true, "del": true, "desde": true, "donde": true, "durante": true,
	"el": true, "ella": true, "ellas": true, "ellos": true, "en": true,
	"entre": true, "era": true, "es": true, "esa": true, "ese": true,
	"esta": true, "estan": true, "este": true, "esto": true, "estos": true,
	"fue": true, "ha": true, "hacia": true, "han": true, "hasta": true,
	"hay": true, "la": true, "las": true, "le": true, "les": true,
	"lo": true, "los": true, "mas": true, "me": true, "mi": true,
	"muy": true, "no": true, "nos": true, "o": true, "otra": true,
	"otro": true, "para": true, "pero": true, "por": true, "que": true,
	"se": true, "segun": true, "ser": true, "si": true, "sin": true,
	"sobre": true, "son": true, "su": true, "sus": true, "tambien": true,
	"te": true, "tiene": true, "tienen": true, "tras": true,
	"tu": true, "un": true, "una": true, "uno": true, "unos": true,
	"y": true, "ya": true, "yo": true,
}

const minTokenLength = 2

// Fold lowercases text and strips diacritical marks.
func Fold(text string) string {
	folded, _, err := transform.String(foldTransformer, strings.ToLower(text))
	if err != nil {
		// The fold chain cannot fail on valid UTF-8; fall back to the
		// lowercased input for anything it rejects.
		return strings.ToLower(text)
	}
	return folded
}

// Tokenize produces the normalized lexical terms of a text: folded,
// split on non-alphanumeric runes, stopwords and single runes dropped.
// The same function normalizes both chunk text at index time and query
// text at search time.
func Tokenize(text string) []string {
	folded := Fold(text)

	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < minTokenLength {
			continue
		}
		if spanishStopwords[field] {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}
