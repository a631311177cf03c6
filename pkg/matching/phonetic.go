package matching

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// Keys is the double metaphone pair of a name.
type Keys struct {
	Primary   string
	Secondary string
}

// PhoneticKeys returns the double metaphone codes of a normalized name. Tokens
// are sorted first so word order does not change the codes. Empty input, or
// input the encoder cannot handle, yields empty codes.
func PhoneticKeys(normalized string) (primary, secondary string) {
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return "", ""
	}
	sort.Strings(tokens)

	defer func() {
		if recover() != nil {
			primary, secondary = "", ""
		}
	}()

	return matchr.DoubleMetaphone(strings.Join(tokens, " "))
}

// KeysFor is PhoneticKeys packed into a Keys value.
func KeysFor(normalized string) Keys {
	primary, secondary := PhoneticKeys(normalized)
	return Keys{Primary: primary, Secondary: secondary}
}

// PhoneticallyLinked is true when any non-empty code of a equals any non-empty code of b.
func PhoneticallyLinked(a, b Keys) bool {
	for _, x := range []string{a.Primary, a.Secondary} {
		if x == "" {
			continue
		}
		if x == b.Primary || x == b.Secondary {
			return true
		}
	}
	return false
}
