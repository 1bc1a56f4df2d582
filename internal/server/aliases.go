package server

import (
	"fmt"
	"math/rand"
	"strings"
)

var aliasAdjectives = []string{
	"Bashful", "Brave", "Cheery", "Crafty", "Dapper", "Dizzy",
	"Gallant", "Giddy", "Jaunty", "Jolly", "Mellow", "Nimble",
	"Peppy", "Plucky", "Quirky", "Rowdy", "Sleepy", "Sneaky",
	"Snazzy", "Spiffy", "Sprightly", "Wobbly", "Zany", "Zesty",
}

var aliasCreatures = []string{
	"Axolotl", "Badger", "Chamois", "Dingo", "Echidna", "Ferret",
	"Gecko", "Heron", "Ibex", "Jackdaw", "Kiwi", "Lemur",
	"Marmot", "Narwhal", "Ocelot", "Pangolin", "Quokka", "Raccoon",
	"Stoat", "Tapir", "Urchin", "Vole", "Walrus", "Yak",
}

func newAlias(rng *rand.Rand) string {
	adjective := aliasAdjectives[rng.Intn(len(aliasAdjectives))]
	creature := aliasCreatures[rng.Intn(len(aliasCreatures))]
	return adjective + " " + creature
}

const aliasProbeAttempts = 50

// uniqueAlias probes generated candidates against the room's existing
// aliases, then falls back to a numbered suffix that cannot collide.
func uniqueAlias(room *Room, rng *rand.Rand) string {
	taken := make(map[string]struct{}, len(room.Players))
	for _, player := range room.Players {
		taken[strings.ToLower(player.Alias)] = struct{}{}
	}
	for i := 0; i < aliasProbeAttempts; i++ {
		candidate := newAlias(rng)
		if _, ok := taken[strings.ToLower(candidate)]; !ok {
			return candidate
		}
	}
	base := newAlias(rng)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s %d", base, n)
		if _, ok := taken[strings.ToLower(candidate)]; !ok {
			return candidate
		}
	}
}
