// Package seals gives commits memorable names.
//
// A seal name has the form adjective-noun-verb-adverb-short, where short is the first
// eight hex characters of the commit hash, e.g. swift-eagle-flies-high-447abe9b. The
// words are picked from the hash, so the same commit always gets the same name.
package seals

import (
	"encoding/hex"
	"strings"

	"github.com/javanhut/strata/internal/cas"
)

// ShortLen is the number of hex characters at the end of a seal name.
const ShortLen = 8

var (
	adjectives = []string{
		"swift", "brave", "bold", "clever", "mighty", "gentle", "wise", "noble",
		"fierce", "calm", "bright", "ancient", "young", "strong", "quiet", "sharp",
		"smooth", "rough", "deep", "wide", "golden", "silver", "crystal", "iron",
		"wild", "free", "open", "rich", "clear", "misty", "vivid", "pale",
	}

	nouns = []string{
		"eagle", "mountain", "river", "falcon", "wolf", "bear", "storm", "forest",
		"ocean", "phoenix", "dragon", "tiger", "hawk", "raven", "fox", "comet",
		"valley", "canyon", "meadow", "grove", "island", "castle", "tower", "bridge",
		"shield", "crown", "ember", "wave", "stone", "oak", "pine", "pearl",
	}

	verbs = []string{
		"flies", "runs", "leaps", "soars", "dives", "climbs", "swims", "hunts",
		"rests", "guards", "watches", "seeks", "finds", "builds", "grows", "shines",
		"glows", "rises", "turns", "flows", "burns", "heals", "explores", "reveals",
		"travels", "returns", "calls", "whispers", "sings", "roars", "echoes", "waits",
	}

	adverbs = []string{
		"high", "fast", "slow", "well", "far", "near", "deep", "wide",
		"softly", "boldly", "quietly", "loudly", "freely", "truly", "wisely", "swiftly",
		"proudly", "humbly", "grandly", "gently", "fiercely", "calmly", "wildly", "early",
		"late", "often", "again", "onward", "upward", "inward", "alone", "together",
	}
)

// Name returns the seal name of a commit hash.
func Name(hash cas.Hash) string {
	words := []string{
		adjectives[int(hash[4])%len(adjectives)],
		nouns[int(hash[5])%len(nouns)],
		verbs[int(hash[6])%len(verbs)],
		adverbs[int(hash[7])%len(adverbs)],
		hash.Short(),
	}
	return strings.Join(words, "-")
}

// ShortHash extracts the hex suffix of a seal name.
func ShortHash(name string) (string, bool) {
	i := strings.LastIndexByte(name, '-')
	if i < 0 {
		return "", false
	}
	short := name[i+1:]
	if len(short) != ShortLen {
		return "", false
	}
	if _, err := hex.DecodeString(short); err != nil {
		return "", false
	}
	return short, true
}

// Matches reports whether name is the seal name of hash.
func Matches(name string, hash cas.Hash) bool {
	return name == Name(hash)
}
