package server

import (
	"errors"
	"math/rand"
)

type roundPair struct {
	Real     ImageEntry
	Fake     ImageEntry
	Category string
}

// selectRoundPairs builds one same-category image pair per round, never
// reusing an image within a game. Each round gets up to attemptsPerRound
// draws to find a partnered image; running out of attempts aborts the
// whole selection so a game never starts with partial round data.
func selectRoundPairs(catalog []ImageEntry, rounds, attemptsPerRound int, rng *rand.Rand) ([]roundPair, error) {
	if rounds <= 0 {
		return nil, errors.New("rounds must be positive")
	}
	if len(catalog) < rounds*2 {
		return nil, errors.New("image catalog too small")
	}
	used := make(map[int]struct{}, rounds*2)
	pairs := make([]roundPair, 0, rounds)
	for r := 0; r < rounds; r++ {
		paired := false
		for attempt := 0; attempt < attemptsPerRound; attempt++ {
			first := rng.Intn(len(catalog))
			if _, taken := used[first]; taken {
				continue
			}
			partners := make([]int, 0)
			for i := range catalog {
				if i == first {
					continue
				}
				if _, taken := used[i]; taken {
					continue
				}
				if catalog[i].Category == catalog[first].Category {
					partners = append(partners, i)
				}
			}
			if len(partners) == 0 {
				continue
			}
			second := partners[rng.Intn(len(partners))]
			used[first] = struct{}{}
			used[second] = struct{}{}
			pairs = append(pairs, roundPair{
				Real:     catalog[first],
				Fake:     catalog[second],
				Category: catalog[first].Category,
			})
			paired = true
			break
		}
		if !paired {
			return nil, errors.New("no matching image pair available")
		}
	}
	return pairs, nil
}

// defaultCatalog keeps the server playable before any images are loaded
// into the database.
func defaultCatalog() []ImageEntry {
	return []ImageEntry{
		{FilePath: "images/animals/otter.jpg", Title: "Otter", Category: "animals"},
		{FilePath: "images/animals/red-panda.jpg", Title: "Red Panda", Category: "animals"},
		{FilePath: "images/animals/puffin.jpg", Title: "Puffin", Category: "animals"},
		{FilePath: "images/food/ramen.jpg", Title: "Ramen", Category: "food"},
		{FilePath: "images/food/pretzel.jpg", Title: "Pretzel", Category: "food"},
		{FilePath: "images/food/dumplings.jpg", Title: "Dumplings", Category: "food"},
		{FilePath: "images/places/lighthouse.jpg", Title: "Lighthouse", Category: "places"},
		{FilePath: "images/places/water-tower.jpg", Title: "Water Tower", Category: "places"},
		{FilePath: "images/places/windmill.jpg", Title: "Windmill", Category: "places"},
		{FilePath: "images/sports/curling.jpg", Title: "Curling", Category: "sports"},
		{FilePath: "images/sports/bowling.jpg", Title: "Bowling", Category: "sports"},
		{FilePath: "images/sports/darts.jpg", Title: "Darts", Category: "sports"},
		{FilePath: "images/vehicles/tram.jpg", Title: "Tram", Category: "vehicles"},
		{FilePath: "images/vehicles/zeppelin.jpg", Title: "Zeppelin", Category: "vehicles"},
		{FilePath: "images/vehicles/rickshaw.jpg", Title: "Rickshaw", Category: "vehicles"},
		{FilePath: "images/objects/typewriter.jpg", Title: "Typewriter", Category: "objects"},
		{FilePath: "images/objects/gramophone.jpg", Title: "Gramophone", Category: "objects"},
		{FilePath: "images/objects/sundial.jpg", Title: "Sundial", Category: "objects"},
		{FilePath: "images/weather/waterspout.jpg", Title: "Waterspout", Category: "weather"},
		{FilePath: "images/weather/aurora.jpg", Title: "Aurora", Category: "weather"},
		{FilePath: "images/weather/hailstorm.jpg", Title: "Hailstorm", Category: "weather"},
		{FilePath: "images/plants/bonsai.jpg", Title: "Bonsai", Category: "plants"},
		{FilePath: "images/plants/cactus.jpg", Title: "Cactus", Category: "plants"},
		{FilePath: "images/plants/sunflower.jpg", Title: "Sunflower", Category: "plants"},
	}
}
