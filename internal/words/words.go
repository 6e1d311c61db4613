// Package words holds the word catalog and the language/script
// fallback chain used to pick a drawer's three word choices.
package words

import (
	"math/rand"
	"strings"
)

// Catalog maps language -> script -> category -> words. A category of
// "" is the default/uncategorized bucket.
type Catalog struct {
	entries map[string]map[string]map[string][]string
}

// fallback order (see Resolve): the requested script in the target
// language, then roman in the target language, then english-roman,
// then a hard-coded 10-word last resort so word_options is never
// empty. A native script is used only when it is the requested one.
var lastResort = []string{
	"house", "tree", "car", "dog", "cat", "sun", "book", "star", "fish", "cloud",
}

func NewCatalog() *Catalog {
	c := &Catalog{entries: map[string]map[string]map[string][]string{}}
	c.seedDefaults()
	return c
}

func (c *Catalog) seedDefaults() {
	c.add("english", "roman", "", englishWords)
	c.add("spanish", "roman", "", spanishWords)
	c.add("hindi", "devanagari", "", hindiDevanagariWords)
	c.add("hindi", "roman", "", hindiRomanWords)
	c.add("japanese", "kana", "", japaneseKanaWords)
	c.add("japanese", "roman", "", japaneseRomanWords)
}

func (c *Catalog) add(language, script, category string, list []string) {
	lang := strings.ToLower(language)
	scr := strings.ToLower(script)
	if _, ok := c.entries[lang]; !ok {
		c.entries[lang] = map[string]map[string][]string{}
	}
	if _, ok := c.entries[lang][scr]; !ok {
		c.entries[lang][scr] = map[string][]string{}
	}
	c.entries[lang][scr][category] = list
}

// lookup returns the word list for an exact (language, script,
// category) triple, or nil if nothing is registered there.
func (c *Catalog) lookup(language, script, category string) []string {
	lang, ok := c.entries[strings.ToLower(language)]
	if !ok {
		return nil
	}
	scr, ok := lang[strings.ToLower(script)]
	if !ok {
		return nil
	}
	if category != "" {
		if list, ok := scr[category]; ok && len(list) > 0 {
			return list
		}
	}
	return scr[""]
}

// Resolve walks the fallback chain and returns the first non-empty
// list it finds.
func (c *Catalog) Resolve(language, script, category string) []string {
	if list := c.lookup(language, script, category); len(list) > 0 {
		return list
	}
	if list := c.lookup(language, "roman", category); len(list) > 0 {
		return list
	}
	if list := c.lookup("english", "roman", category); len(list) > 0 {
		return list
	}
	return lastResort
}

// Choose draws n distinct words not present in used, falling back to
// recycling (ignoring used) once the pool is exhausted so word
// selection never blocks.
func (c *Catalog) Choose(language, script, category string, n int, used map[string]bool) []string {
	pool := c.Resolve(language, script, category)
	fresh := make([]string, 0, len(pool))
	for _, w := range pool {
		if !used[w] {
			fresh = append(fresh, w)
		}
	}
	if len(fresh) < n {
		fresh = append([]string(nil), pool...)
	}

	rand.Shuffle(len(fresh), func(i, j int) { fresh[i], fresh[j] = fresh[j], fresh[i] })
	if n > len(fresh) {
		n = len(fresh)
	}
	return append([]string(nil), fresh[:n]...)
}

// Mask converts a word to underscore form, preserving spaces.
func Mask(word string, revealed map[int]bool) string {
	if word == "" {
		return ""
	}
	runes := []rune(word)
	out := make([]string, len(runes))
	for i, r := range runes {
		switch {
		case r == ' ':
			out[i] = " "
		case revealed[i]:
			out[i] = string(r)
		default:
			out[i] = "_"
		}
	}
	return strings.Join(out, " ")
}
